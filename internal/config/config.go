package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application. It is built once at
// startup and passed into components as an immutable value.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Mailbox   MailboxConfig   `mapstructure:"mailbox"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// MailboxConfig holds the inbound mailbox configuration. Either IMAP with an
// app password or the Gmail API via OAuth2 refresh token.
type MailboxConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	UserEmail    string `mapstructure:"user_email"`
	UseIMAP      bool   `mapstructure:"use_imap"`
	IMAPHost     string `mapstructure:"imap_host"`
	IMAPPort     int    `mapstructure:"imap_port"`
	IMAPUser     string `mapstructure:"imap_user"`
	IMAPPassword string `mapstructure:"imap_password"`
}

// DirectoryConfig holds the directory provider and authorization settings.
type DirectoryConfig struct {
	Domain             string   `mapstructure:"domain"`
	AdminEmail         string   `mapstructure:"admin_email"`
	OrgUnitPath        string   `mapstructure:"org_unit_path"`
	AuthorizedSenders  []string `mapstructure:"authorized_senders"`
	ServiceAccountFile string   `mapstructure:"service_account_file"`
	MaxRetries         int      `mapstructure:"max_retries"`
}

// NotifyConfig holds outbound notification settings.
type NotifyConfig struct {
	FromAddress string `mapstructure:"from_address"`
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	IntervalMinutes int           `mapstructure:"interval_minutes"`
	RunTimeout      time.Duration `mapstructure:"run_timeout"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	viper.AutomaticEnv()

	// Bind environment variables
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Allow-list may arrive as a comma-separated env value.
	if len(config.Directory.AuthorizedSenders) == 1 && strings.Contains(config.Directory.AuthorizedSenders[0], ",") {
		config.Directory.AuthorizedSenders = splitAndTrim(config.Directory.AuthorizedSenders[0])
	}

	return &config, nil
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)

	viper.SetDefault("mailbox.use_imap", false)
	viper.SetDefault("mailbox.imap_host", "imap.gmail.com")
	viper.SetDefault("mailbox.imap_port", 993)

	viper.SetDefault("directory.org_unit_path", "/")
	viper.SetDefault("directory.max_retries", 3)

	viper.SetDefault("scheduler.interval_minutes", 5)
	viper.SetDefault("scheduler.run_timeout", "5m")
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Database
	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.dbname", "DB_NAME")

	// Mailbox
	viper.BindEnv("mailbox.client_id", "MAILBOX_CLIENT_ID")
	viper.BindEnv("mailbox.client_secret", "MAILBOX_CLIENT_SECRET")
	viper.BindEnv("mailbox.refresh_token", "MAILBOX_REFRESH_TOKEN")
	viper.BindEnv("mailbox.user_email", "MAILBOX_USER_EMAIL")
	viper.BindEnv("mailbox.use_imap", "MAILBOX_USE_IMAP")
	viper.BindEnv("mailbox.imap_host", "MAILBOX_IMAP_HOST")
	viper.BindEnv("mailbox.imap_port", "MAILBOX_IMAP_PORT")
	viper.BindEnv("mailbox.imap_user", "MAILBOX_IMAP_USER")
	viper.BindEnv("mailbox.imap_password", "MAILBOX_IMAP_PASSWORD")

	// Directory
	viper.BindEnv("directory.domain", "DIRECTORY_DOMAIN")
	viper.BindEnv("directory.admin_email", "DIRECTORY_ADMIN_EMAIL")
	viper.BindEnv("directory.org_unit_path", "DIRECTORY_ORG_UNIT_PATH")
	viper.BindEnv("directory.authorized_senders", "DIRECTORY_AUTHORIZED_SENDERS")
	viper.BindEnv("directory.service_account_file", "DIRECTORY_SERVICE_ACCOUNT_FILE")
	viper.BindEnv("directory.max_retries", "DIRECTORY_MAX_RETRIES")

	// Notify
	viper.BindEnv("notify.from_address", "NOTIFY_FROM_ADDRESS")

	// Scheduler
	viper.BindEnv("scheduler.interval_minutes", "SCHEDULER_INTERVAL_MINUTES")
	viper.BindEnv("scheduler.run_timeout", "SCHEDULER_RUN_TIMEOUT")
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return fmt.Errorf("database host, user, and dbname are required")
	}

	if !c.Mailbox.UseIMAP {
		if c.Mailbox.ClientID == "" || c.Mailbox.ClientSecret == "" || c.Mailbox.RefreshToken == "" {
			return fmt.Errorf("mailbox OAuth2 credentials are required when not using IMAP")
		}
	} else {
		if c.Mailbox.IMAPUser == "" || c.Mailbox.IMAPPassword == "" {
			return fmt.Errorf("IMAP credentials are required when using IMAP")
		}
	}

	if c.Directory.Domain == "" {
		return fmt.Errorf("directory domain is required")
	}

	if c.Directory.AdminEmail == "" {
		return fmt.Errorf("directory admin email is required")
	}

	if len(c.Directory.AuthorizedSenders) == 0 {
		return fmt.Errorf("at least one authorized sender is required")
	}

	if c.Scheduler.IntervalMinutes <= 0 {
		return fmt.Errorf("scheduler interval must be greater than 0")
	}

	return nil
}
