package provisioner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-provisioner-go/internal/directory"
	"account-provisioner-go/internal/model"
)

// fakeDirectory implements directory.Service for tests.
type fakeDirectory struct {
	existing     map[string]bool
	existsErr    error
	createErrs   []error
	existsCalls  int
	createCalls  int
	lastPassword string
}

func (f *fakeDirectory) UserExists(ctx context.Context, email string) (bool, error) {
	f.existsCalls++
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.existing[email], nil
}

func (f *fakeDirectory) CreateUser(ctx context.Context, req model.AccountRequest, tempPassword string) (*model.ProvisioningResult, error) {
	f.createCalls++
	f.lastPassword = tempPassword

	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	return &model.ProvisioningResult{
		Status:         model.ProvisioningCreated,
		PrimaryAddress: req.Username + "@org.example",
		TempPassword:   tempPassword,
	}, nil
}

func testRequest() model.AccountRequest {
	return model.AccountRequest{
		FirstName:       "Jane",
		LastName:        "Smith",
		Username:        "jane.smith",
		Department:      "Volunteers",
		Title:           "Event Coordinator",
		SourceMessageID: "msg-1",
	}
}

func TestProvisionCreatesAccount(t *testing.T) {
	dir := &fakeDirectory{existing: map[string]bool{}}
	p := NewProvisioner(dir, "org.example", 3)

	result, err := p.Provision(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, model.ProvisioningCreated, result.Status)
	assert.Equal(t, "jane.smith@org.example", result.PrimaryAddress)
	assert.Len(t, result.TempPassword, 16)
	assert.Equal(t, 1, dir.createCalls)
}

func TestProvisionShortCircuitsOnExistingUser(t *testing.T) {
	dir := &fakeDirectory{existing: map[string]bool{"jane.smith@org.example": true}}
	p := NewProvisioner(dir, "org.example", 3)

	result, err := p.Provision(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, model.ProvisioningAlreadyExists, result.Status)
	assert.Equal(t, 0, dir.createCalls, "existing user must not trigger creation")
	assert.Empty(t, result.TempPassword, "no credential is generated for an existing user")
}

func TestProvisionRetriesTransientError(t *testing.T) {
	transient := &directory.ProviderError{Transient: true, Detail: "rate limited"}
	dir := &fakeDirectory{
		existing:   map[string]bool{},
		createErrs: []error{transient, nil},
	}
	p := NewProvisioner(dir, "org.example", 3)

	result, err := p.Provision(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, model.ProvisioningCreated, result.Status)
	assert.Equal(t, 2, dir.createCalls)
}

func TestProvisionPermanentErrorFailsWithoutRetry(t *testing.T) {
	permanent := &directory.ProviderError{Transient: false, Detail: "invalid field: givenName"}
	dir := &fakeDirectory{
		existing:   map[string]bool{},
		createErrs: []error{permanent},
	}
	p := NewProvisioner(dir, "org.example", 3)

	result, err := p.Provision(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, model.ProvisioningFailed, result.Status)
	assert.Equal(t, "invalid field: givenName", result.ProviderDetail)
	assert.Equal(t, 1, dir.createCalls, "permanent errors must not be retried")
}

func TestProvisionDuplicateOnCreateIsIdempotent(t *testing.T) {
	dir := &fakeDirectory{
		existing:   map[string]bool{},
		createErrs: []error{directory.ErrDuplicateUser},
	}
	p := NewProvisioner(dir, "org.example", 3)

	result, err := p.Provision(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, model.ProvisioningAlreadyExists, result.Status)
	assert.Equal(t, 1, dir.createCalls)
}

func TestProvisionExistsCheckErrorPropagates(t *testing.T) {
	dir := &fakeDirectory{
		existsErr: &directory.ProviderError{Transient: true, Detail: "timeout"},
	}
	p := NewProvisioner(dir, "org.example", 3)

	_, err := p.Provision(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, 0, dir.createCalls)
}

func TestBackoffDelayDoubles(t *testing.T) {
	assert.Equal(t, time.Second, backoffDelay(1))
	assert.Equal(t, 2*time.Second, backoffDelay(2))
	assert.Equal(t, 4*time.Second, backoffDelay(3))
}
