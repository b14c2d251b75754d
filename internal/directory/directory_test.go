package directory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestClassifyRateLimitIsTransient(t *testing.T) {
	err := classifyProviderError(&googleapi.Error{Code: 429, Message: "rateLimitExceeded"})
	assert.True(t, err.Transient)
}

func TestClassifyServerErrorIsTransient(t *testing.T) {
	err := classifyProviderError(&googleapi.Error{Code: 503, Message: "backendError"})
	assert.True(t, err.Transient)
}

func TestClassifyForbiddenRateLimitReasonIsTransient(t *testing.T) {
	apiErr := &googleapi.Error{
		Code: 403,
		Errors: []googleapi.ErrorItem{
			{Reason: "userRateLimitExceeded"},
		},
	}
	assert.True(t, classifyProviderError(apiErr).Transient)
}

func TestClassifyInvalidFieldIsPermanent(t *testing.T) {
	err := classifyProviderError(&googleapi.Error{Code: 400, Message: "invalid givenName"})
	assert.False(t, err.Transient)
}

func TestClassifyQuotaExceededIsPermanent(t *testing.T) {
	apiErr := &googleapi.Error{
		Code: 403,
		Errors: []googleapi.ErrorItem{
			{Reason: "quotaExceeded"},
		},
	}
	assert.False(t, classifyProviderError(apiErr).Transient)
}

func TestClassifyDeadlineIsTransient(t *testing.T) {
	err := classifyProviderError(fmt.Errorf("calling provider: %w", context.DeadlineExceeded))
	assert.True(t, err.Transient)
}

func TestClassifyPlainTimeoutMessageIsTransient(t *testing.T) {
	err := classifyProviderError(errors.New("connection timeout while dialing"))
	assert.True(t, err.Transient)
}

func TestIsTransientOnWrappedError(t *testing.T) {
	pe := classifyProviderError(&googleapi.Error{Code: 429})
	wrapped := fmt.Errorf("create user: %w", pe)

	assert.True(t, IsTransient(wrapped))
	assert.False(t, IsTransient(errors.New("plain failure")))
}
