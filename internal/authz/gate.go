package authz

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Outcome of an authorization check.
type Outcome string

const (
	OutcomeAllowed Outcome = "ALLOWED"
	OutcomeDenied  Outcome = "DENIED"
)

// Decision records whether a sender may request an account, and why.
type Decision struct {
	SourceMessageID string
	Sender          string
	Outcome         Outcome
	Reason          string
}

// Allowed reports whether the decision permits provisioning.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllowed
}

// Gate decides whether a sender may request account creation. Policy is deny
// by default: an empty allow-list denies everyone. Comparison is a
// case-insensitive exact match on the raw envelope address; display names
// are never consulted.
type Gate struct {
	allowed map[string]struct{}
}

// NewGate builds a gate from the configured allow-list. The list is copied
// so later mutation of the slice cannot change decisions.
func NewGate(authorizedSenders []string) *Gate {
	allowed := make(map[string]struct{}, len(authorizedSenders))
	for _, addr := range authorizedSenders {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr != "" {
			allowed[addr] = struct{}{}
		}
	}

	logrus.Infof("Authorization gate initialized with %d authorized senders", len(allowed))
	return &Gate{allowed: allowed}
}

// Check evaluates the sender of a message against the allow-list.
func (g *Gate) Check(messageID, sender string) Decision {
	decision := Decision{
		SourceMessageID: messageID,
		Sender:          sender,
		Outcome:         OutcomeDenied,
		Reason:          "sender not in allow-list",
	}

	if len(g.allowed) == 0 {
		decision.Reason = "allow-list is empty"
		return decision
	}

	normalized := strings.ToLower(strings.TrimSpace(sender))
	if normalized == "" {
		decision.Reason = "empty sender address"
		return decision
	}

	if _, ok := g.allowed[normalized]; ok {
		decision.Outcome = OutcomeAllowed
		decision.Reason = "sender in allow-list"
	}
	return decision
}
