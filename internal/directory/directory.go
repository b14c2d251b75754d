package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"

	"account-provisioner-go/internal/model"
)

// Service is the narrow contract against the external directory provider.
type Service interface {
	// UserExists reports whether the primary address is already taken.
	UserExists(ctx context.Context, email string) (bool, error)
	// CreateUser creates the account with the given temporary password and
	// the forced-password-change flag set.
	CreateUser(ctx context.Context, req model.AccountRequest, tempPassword string) (*model.ProvisioningResult, error)
}

// ErrDuplicateUser is returned by CreateUser when the provider reports the
// account already exists. Callers treat it as an idempotency short-circuit,
// not a failure.
var ErrDuplicateUser = errors.New("user already exists")

// ProviderError wraps a directory provider failure with its retry class.
type ProviderError struct {
	Transient bool
	Detail    string
	Err       error
}

func (e *ProviderError) Error() string {
	class := "permanent"
	if e.Transient {
		class = "transient"
	}
	return fmt.Sprintf("%s provider error: %s", class, e.Detail)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a provider error worth retrying.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}

// classifyProviderError maps a raw provider error onto the retry taxonomy.
// Rate limits, timeouts and server-side failures are transient; invalid
// fields, quota and policy violations are permanent.
func classifyProviderError(err error) *ProviderError {
	pe := &ProviderError{Detail: err.Error(), Err: err}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429 || apiErr.Code >= 500:
			pe.Transient = true
		case apiErr.Code == 403 && hasReason(apiErr, "rateLimitExceeded", "userRateLimitExceeded"):
			pe.Transient = true
		}
		return pe
	}

	if errors.Is(err, context.DeadlineExceeded) {
		pe.Transient = true
		return pe
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate") || strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		pe.Transient = true
	}
	return pe
}

func hasReason(apiErr *googleapi.Error, reasons ...string) bool {
	for _, item := range apiErr.Errors {
		for _, reason := range reasons {
			if item.Reason == reason {
				return true
			}
		}
	}
	return false
}
