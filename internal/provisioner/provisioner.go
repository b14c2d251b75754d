package provisioner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"account-provisioner-go/internal/directory"
	"account-provisioner-go/internal/model"
)

// Provisioner creates directory accounts for authorized requests. A
// duplicate-username check before creation keeps retried runs from
// provisioning the same account twice.
type Provisioner struct {
	directory  directory.Service
	domain     string
	maxRetries int
}

// NewProvisioner creates a new account provisioner
func NewProvisioner(dir directory.Service, domain string, maxRetries int) *Provisioner {
	if maxRetries < 1 {
		maxRetries = 3
	}
	return &Provisioner{
		directory:  dir,
		domain:     domain,
		maxRetries: maxRetries,
	}
}

// Provision creates the account for an authorized request. It returns a
// result with status ALREADY_EXISTS when the username is taken, CREATED on
// success, and FAILED with provider detail when the provider rejects the
// request after retries are exhausted.
func (p *Provisioner) Provision(ctx context.Context, req model.AccountRequest) (*model.ProvisioningResult, error) {
	primaryEmail := fmt.Sprintf("%s@%s", req.Username, p.domain)

	exists, err := p.directory.UserExists(ctx, primaryEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		logrus.Infof("User %s already exists, skipping creation", primaryEmail)
		return &model.ProvisioningResult{
			Status:         model.ProvisioningAlreadyExists,
			PrimaryAddress: primaryEmail,
		}, nil
	}

	tempPassword, err := directory.GeneratePassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate temporary password: %w", err)
	}

	result, err := p.createWithRetry(ctx, req, tempPassword)
	if err == nil {
		return result, nil
	}

	if errors.Is(err, directory.ErrDuplicateUser) {
		// Lost a race with a prior partial run; the account is there, which
		// is the outcome we wanted.
		logrus.Infof("User %s created by an earlier attempt", primaryEmail)
		return &model.ProvisioningResult{
			Status:         model.ProvisioningAlreadyExists,
			PrimaryAddress: primaryEmail,
		}, nil
	}

	var pe *directory.ProviderError
	if errors.As(err, &pe) {
		return &model.ProvisioningResult{
			Status:         model.ProvisioningFailed,
			PrimaryAddress: primaryEmail,
			ProviderDetail: pe.Detail,
		}, nil
	}

	return nil, err
}

// createWithRetry retries transient provider errors with exponential backoff.
// Permanent errors fail immediately.
func (p *Provisioner) createWithRetry(ctx context.Context, req model.AccountRequest, tempPassword string) (*model.ProvisioningResult, error) {
	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		result, err := p.directory.CreateUser(ctx, req, tempPassword)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !directory.IsTransient(err) {
			return nil, err
		}

		logrus.Warnf("Transient provider error creating %s (attempt %d/%d): %v", req.Username, attempt, p.maxRetries, err)

		if attempt == p.maxRetries {
			break
		}

		waitTime := backoffDelay(attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(waitTime):
		}
	}

	return nil, lastErr
}

// backoffDelay doubles per attempt: 1s, 2s, 4s.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<(attempt-1)) * time.Second
}
