package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
		},
		Database: DatabaseConfig{
			Host:   "localhost",
			User:   "test",
			DBName: "test",
		},
		Mailbox: MailboxConfig{
			ClientID:     "test",
			ClientSecret: "test",
			RefreshToken: "test",
		},
		Directory: DirectoryConfig{
			Domain:            "org.example",
			AdminEmail:        "admin@org.example",
			AuthorizedSenders: []string{"director@org.example"},
		},
		Scheduler: SchedulerConfig{
			IntervalMinutes: 5,
		},
	}
}

func TestConfigValidation(t *testing.T) {
	config := validConfig()
	assert.NoError(t, config.Validate())

	invalidConfig := &Config{
		Server: ServerConfig{
			Port: "",
		},
	}
	assert.Error(t, invalidConfig.Validate())
}

func TestConfigValidationRequiresAllowList(t *testing.T) {
	config := validConfig()
	config.Directory.AuthorizedSenders = nil
	assert.Error(t, config.Validate())
}

func TestConfigValidationRequiresDomainAndAdmin(t *testing.T) {
	config := validConfig()
	config.Directory.Domain = ""
	assert.Error(t, config.Validate())

	config = validConfig()
	config.Directory.AdminEmail = ""
	assert.Error(t, config.Validate())
}

func TestConfigValidationIMAPCredentials(t *testing.T) {
	config := validConfig()
	config.Mailbox = MailboxConfig{UseIMAP: true}
	assert.Error(t, config.Validate())

	config.Mailbox.IMAPUser = "accounts@org.example"
	config.Mailbox.IMAPPassword = "app-password"
	assert.NoError(t, config.Validate())
}

func TestDatabaseDSN(t *testing.T) {
	config := DatabaseConfig{
		Host:     "localhost",
		Port:     3306,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
	}

	dsn := config.GetDSN()
	expected := "testuser:testpass@tcp(localhost:3306)/testdb?charset=utf8mb4&parseTime=True&loc=Local"
	assert.Equal(t, expected, dsn)
}

func TestSplitAndTrim(t *testing.T) {
	result := splitAndTrim("a@org.example, b@org.example ,,  ")
	assert.Equal(t, []string{"a@org.example", "b@org.example"}, result)
}
