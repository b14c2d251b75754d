package directory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/sirupsen/logrus"

	"account-provisioner-go/internal/config"
	"account-provisioner-go/internal/model"
)

// GoogleDirectory implements Service against the Google Workspace Admin SDK.
type GoogleDirectory struct {
	service *admin.Service
	domain  string
	orgUnit string
}

// NewGoogleDirectory creates a directory client authenticated with a service
// account key. The admin email is used as the domain-wide delegation subject.
func NewGoogleDirectory(cfg *config.DirectoryConfig) (*GoogleDirectory, error) {
	ctx := context.Background()

	keyData, err := os.ReadFile(cfg.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(keyData, admin.AdminDirectoryUserScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}
	jwtConfig.Subject = cfg.AdminEmail

	service, err := admin.NewService(ctx, option.WithTokenSource(jwtConfig.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create directory service: %w", err)
	}

	logrus.Infof("Directory service initialized for domain %s", cfg.Domain)

	return &GoogleDirectory{
		service: service,
		domain:  cfg.Domain,
		orgUnit: cfg.OrgUnitPath,
	}, nil
}

// UserExists checks whether the primary address is already taken.
func (d *GoogleDirectory) UserExists(ctx context.Context, email string) (bool, error) {
	_, err := d.service.Users.Get(email).Context(ctx).Do()
	if err == nil {
		return true, nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return false, nil
	}

	return false, classifyProviderError(err)
}

// CreateUser creates the account with a forced password change on first
// login.
func (d *GoogleDirectory) CreateUser(ctx context.Context, req model.AccountRequest, tempPassword string) (*model.ProvisioningResult, error) {
	primaryEmail := fmt.Sprintf("%s@%s", req.Username, d.domain)

	user := &admin.User{
		Name: &admin.UserName{
			GivenName:  req.FirstName,
			FamilyName: req.LastName,
		},
		PrimaryEmail:              primaryEmail,
		Password:                  tempPassword,
		OrgUnitPath:               d.orgUnit,
		ChangePasswordAtNextLogin: true,
		Suspended:                 false,
		Organizations: []admin.UserOrganization{
			{
				Department: req.Department,
				Title:      req.Title,
				Primary:    true,
			},
		},
	}

	_, err := d.service.Users.Insert(user).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
			return nil, ErrDuplicateUser
		}
		return nil, classifyProviderError(err)
	}

	logrus.Infof("Created directory user %s", primaryEmail)

	return &model.ProvisioningResult{
		Status:         model.ProvisioningCreated,
		PrimaryAddress: primaryEmail,
		TempPassword:   tempPassword,
	}, nil
}
