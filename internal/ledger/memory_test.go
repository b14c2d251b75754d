package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-provisioner-go/internal/model"
)

func testMessage() model.Message {
	return model.Message{
		ID:         "msg-1",
		From:       "director@org.example",
		Subject:    "New Account Request",
		ReceivedAt: time.Now(),
	}
}

func TestBeginCreatesReceivedRecord(t *testing.T) {
	lg := NewMemoryLedger()

	record, err := lg.Begin(context.Background(), testMessage())
	require.NoError(t, err)

	assert.Equal(t, model.StateReceived, record.State)
	assert.Equal(t, "director@org.example", record.Sender)
}

func TestBeginIsIdempotent(t *testing.T) {
	lg := NewMemoryLedger()
	ctx := context.Background()

	first, err := lg.Begin(ctx, testMessage())
	require.NoError(t, err)

	require.NoError(t, lg.Transition(ctx, "msg-1", model.StateParsed, ""))

	second, err := lg.Begin(ctx, testMessage())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, model.StateParsed, second.State, "Begin must not reset prior progress")
}

func TestSuccessPathTransitions(t *testing.T) {
	lg := NewMemoryLedger()
	ctx := context.Background()

	_, err := lg.Begin(ctx, testMessage())
	require.NoError(t, err)

	states := []model.State{
		model.StateParsed,
		model.StateAuthorized,
		model.StateProvisioned,
		model.StateNotified,
		model.StateFinalized,
	}
	for _, state := range states {
		require.NoError(t, lg.Transition(ctx, "msg-1", state, ""))
	}

	record, err := lg.Get(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, model.StateFinalized, record.State)
	assert.True(t, record.State.IsTerminal())
	assert.NotNil(t, record.FinalizedAt)
}

func TestIllegalTransitionRejected(t *testing.T) {
	lg := NewMemoryLedger()
	ctx := context.Background()

	_, err := lg.Begin(ctx, testMessage())
	require.NoError(t, err)

	// Authorization may not be skipped.
	err = lg.Transition(ctx, "msg-1", model.StateAuthorized, "")
	require.Error(t, err)

	var invalidErr *InvalidTransitionError
	assert.True(t, errors.As(err, &invalidErr))
}

func TestTerminalStateHasNoExit(t *testing.T) {
	lg := NewMemoryLedger()
	ctx := context.Background()

	_, err := lg.Begin(ctx, testMessage())
	require.NoError(t, err)

	require.NoError(t, lg.Transition(ctx, "msg-1", model.StateParsed, ""))
	require.NoError(t, lg.Transition(ctx, "msg-1", model.StateDenied, "sender not in allow-list"))

	for _, next := range []model.State{model.StateAuthorized, model.StateParsed, model.StateFinalized} {
		err := lg.Transition(ctx, "msg-1", next, "")
		assert.Error(t, err, "DENIED must not transition to %s", next)
	}
}

func TestParseFailureIsTerminal(t *testing.T) {
	lg := NewMemoryLedger()
	ctx := context.Background()

	_, err := lg.Begin(ctx, testMessage())
	require.NoError(t, err)

	require.NoError(t, lg.Transition(ctx, "msg-1", model.StateParseFailed, "missing field (username)"))

	record, err := lg.Get(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, record.State.IsTerminal())
	assert.Error(t, lg.Transition(ctx, "msg-1", model.StateParsed, ""))
}

func TestGetUnknownMessage(t *testing.T) {
	lg := NewMemoryLedger()

	_, err := lg.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkNotifyPendingAndUsername(t *testing.T) {
	lg := NewMemoryLedger()
	ctx := context.Background()

	_, err := lg.Begin(ctx, testMessage())
	require.NoError(t, err)

	require.NoError(t, lg.SetUsername(ctx, "msg-1", "jane.smith"))
	require.NoError(t, lg.MarkNotifyPending(ctx, "msg-1"))

	record, err := lg.Get(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, "jane.smith", record.Username)
	assert.True(t, record.NotifyPending)
}

func TestListPagination(t *testing.T) {
	lg := NewMemoryLedger()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		msg := testMessage()
		msg.ID = id
		_, err := lg.Begin(ctx, msg)
		require.NoError(t, err)
	}

	records, total, err := lg.List(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, records, 2)

	records, _, err = lg.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
