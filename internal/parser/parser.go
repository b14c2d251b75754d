package parser

import (
	"fmt"
	"strings"

	"account-provisioner-go/internal/model"
)

// Recognized request labels. Matching is case-insensitive and values are
// trimmed; unrecognized lines are ignored; duplicate labels last-wins.
const (
	labelFirstName  = "first name"
	labelLastName   = "last name"
	labelUsername   = "username"
	labelDepartment = "department"
	labelTitle      = "title"
)

var requiredLabels = []string{labelFirstName, labelLastName, labelUsername, labelDepartment, labelTitle}

// ParseError describes why a message body could not be turned into an
// account request.
type ParseError struct {
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s (%s)", e.Reason, e.Field)
}

// NewMissingFieldError reports a required label that is absent or empty.
func NewMissingFieldError(field string) *ParseError {
	return &ParseError{Field: field, Reason: "missing field"}
}

// NewInvalidUsernameError reports a username outside the allowed charset.
func NewInvalidUsernameError() *ParseError {
	return &ParseError{Field: labelUsername, Reason: "invalid username"}
}

// RequestParser turns raw message text into a structured account request.
// It is a pure function over the message content: no I/O, no side effects.
type RequestParser struct{}

// NewRequestParser creates a new request parser
func NewRequestParser() *RequestParser {
	return &RequestParser{}
}

// Parse extracts an AccountRequest from the message body. The body is a
// sequence of "Label: value" lines.
func (p *RequestParser) Parse(msg model.Message) (*model.AccountRequest, error) {
	fields := make(map[string]string)

	for _, line := range strings.Split(msg.Body, "\n") {
		label, value, ok := splitLabelLine(line)
		if !ok {
			continue
		}
		switch label {
		case labelFirstName, labelLastName, labelUsername, labelDepartment, labelTitle:
			fields[label] = value
		}
	}

	for _, label := range requiredLabels {
		if strings.TrimSpace(fields[label]) == "" {
			return nil, NewMissingFieldError(label)
		}
	}

	username := fields[labelUsername]
	if !validUsername(username) {
		return nil, NewInvalidUsernameError()
	}

	return &model.AccountRequest{
		FirstName:       fields[labelFirstName],
		LastName:        fields[labelLastName],
		Username:        username,
		Department:      fields[labelDepartment],
		Title:           fields[labelTitle],
		SourceMessageID: msg.ID,
	}, nil
}

// splitLabelLine splits a "Label: value" line into a normalized label and a
// trimmed value. Lines without a colon are not label lines.
func splitLabelLine(line string) (label, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}

	label = strings.ToLower(strings.TrimSpace(line[:idx]))
	value = strings.TrimSpace(line[idx+1:])
	if label == "" {
		return "", "", false
	}
	return label, value, true
}

// validUsername reports whether the username uses only the organization's
// allowed character set: letters, digits, '.', '-' and '_'.
func validUsername(username string) bool {
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '_':
		default:
			return false
		}
	}
	return username != ""
}
