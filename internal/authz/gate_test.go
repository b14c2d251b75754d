package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGateAllowsListedSender(t *testing.T) {
	gate := NewGate([]string{"director@org.example", "board@org.example"})

	decision := gate.Check("msg-1", "director@org.example")
	assert.Equal(t, OutcomeAllowed, decision.Outcome)
	assert.True(t, decision.Allowed())
	assert.Equal(t, "msg-1", decision.SourceMessageID)
}

func TestGateComparisonIsCaseInsensitive(t *testing.T) {
	gate := NewGate([]string{"Director@Org.Example"})

	assert.True(t, gate.Check("msg-1", "director@org.example").Allowed())
	assert.True(t, gate.Check("msg-2", "DIRECTOR@ORG.EXAMPLE").Allowed())
}

func TestGateDeniesUnlistedSender(t *testing.T) {
	gate := NewGate([]string{"director@org.example"})

	decision := gate.Check("msg-1", "random@external.example")
	assert.Equal(t, OutcomeDenied, decision.Outcome)
	assert.False(t, decision.Allowed())
}

func TestGateDeniesByDefaultWithEmptyList(t *testing.T) {
	gate := NewGate(nil)

	decision := gate.Check("msg-1", "director@org.example")
	assert.Equal(t, OutcomeDenied, decision.Outcome)
	assert.Equal(t, "allow-list is empty", decision.Reason)
}

func TestGateDeniesEmptySender(t *testing.T) {
	gate := NewGate([]string{"director@org.example"})

	decision := gate.Check("msg-1", "   ")
	assert.Equal(t, OutcomeDenied, decision.Outcome)
}

func TestGateIgnoresBlankListEntries(t *testing.T) {
	gate := NewGate([]string{"  ", "", "director@org.example "})

	assert.True(t, gate.Check("msg-1", "director@org.example").Allowed())
	assert.False(t, gate.Check("msg-2", "").Allowed())
}

func TestGateDoesNotMatchDisplayNameForm(t *testing.T) {
	gate := NewGate([]string{"director@org.example"})

	// A display-name header value is not a raw envelope address and must
	// not authorize.
	decision := gate.Check("msg-1", "Director <director@org.example>")
	assert.Equal(t, OutcomeDenied, decision.Outcome)
}
