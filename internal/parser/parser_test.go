package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-provisioner-go/internal/model"
)

func TestParseWellFormedRequest(t *testing.T) {
	p := NewRequestParser()

	msg := model.Message{
		ID:   "msg-1",
		From: "director@org.example",
		Body: "First Name: Jane\nLast Name: Smith\nUsername: jane.smith\nDepartment: Volunteers\nTitle: Event Coordinator",
	}

	req, err := p.Parse(msg)
	require.NoError(t, err)

	assert.Equal(t, "Jane", req.FirstName)
	assert.Equal(t, "Smith", req.LastName)
	assert.Equal(t, "jane.smith", req.Username)
	assert.Equal(t, "Volunteers", req.Department)
	assert.Equal(t, "Event Coordinator", req.Title)
	assert.Equal(t, "msg-1", req.SourceMessageID)
}

func TestParseTrimsWhitespaceAndIgnoresCase(t *testing.T) {
	p := NewRequestParser()

	msg := model.Message{
		ID:   "msg-2",
		Body: "  first name :  Jane  \nLAST NAME: Smith\nusername: jane.smith\ndepartment: Volunteers\ntitle: Coordinator",
	}

	req, err := p.Parse(msg)
	require.NoError(t, err)

	assert.Equal(t, "Jane", req.FirstName)
	assert.Equal(t, "Smith", req.LastName)
}

func TestParseIgnoresUnrecognizedLines(t *testing.T) {
	p := NewRequestParser()

	msg := model.Message{
		ID: "msg-3",
		Body: "Hello team,\n" +
			"First Name: Jane\nLast Name: Smith\nUsername: jane.smith\n" +
			"Favorite Color: blue\n" +
			"Department: Volunteers\nTitle: Coordinator\nThanks!",
	}

	req, err := p.Parse(msg)
	require.NoError(t, err)
	assert.Equal(t, "jane.smith", req.Username)
}

func TestParseDuplicateLabelLastWins(t *testing.T) {
	p := NewRequestParser()

	msg := model.Message{
		ID: "msg-4",
		Body: "First Name: Jane\nLast Name: Smith\nUsername: jane.smith\n" +
			"Department: Volunteers\nTitle: Coordinator\nUsername: j.smith",
	}

	req, err := p.Parse(msg)
	require.NoError(t, err)
	assert.Equal(t, "j.smith", req.Username)
}

func TestParseMissingRequiredField(t *testing.T) {
	p := NewRequestParser()

	// Username line omitted entirely.
	msg := model.Message{
		ID:   "msg-5",
		Body: "First Name: Jane\nLast Name: Smith\nDepartment: Volunteers\nTitle: Coordinator",
	}

	_, err := p.Parse(msg)
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "missing field", parseErr.Reason)
	assert.Equal(t, "username", parseErr.Field)
}

func TestParseEmptyValueIsMissing(t *testing.T) {
	p := NewRequestParser()

	msg := model.Message{
		ID:   "msg-6",
		Body: "First Name: Jane\nLast Name:   \nUsername: jane.smith\nDepartment: Volunteers\nTitle: Coordinator",
	}

	_, err := p.Parse(msg)
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "missing field", parseErr.Reason)
	assert.Equal(t, "last name", parseErr.Field)
}

func TestParseInvalidUsername(t *testing.T) {
	p := NewRequestParser()

	msg := model.Message{
		ID:   "msg-7",
		Body: "First Name: Jane\nLast Name: Smith\nUsername: jane smith!\nDepartment: Volunteers\nTitle: Coordinator",
	}

	_, err := p.Parse(msg)
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "invalid username", parseErr.Reason)
}

func TestValidUsernameCharset(t *testing.T) {
	assert.True(t, validUsername("jane.smith"))
	assert.True(t, validUsername("jane_smith-2"))
	assert.False(t, validUsername("jane smith"))
	assert.False(t, validUsername("jane@smith"))
	assert.False(t, validUsername(""))
}
