package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFIssueIsStablePerSession(t *testing.T) {
	s := NewCSRFService(time.Minute)

	first, err := s.Issue("sess-1")
	require.NoError(t, err)
	second, err := s.Issue("sess-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := s.Issue("sess-2")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestCSRFValidate(t *testing.T) {
	s := NewCSRFService(time.Minute)

	token, err := s.Issue("sess-1")
	require.NoError(t, err)

	assert.True(t, s.Validate("sess-1", token))
	assert.False(t, s.Validate("sess-1", "forged"))
	assert.False(t, s.Validate("sess-1", ""))
	assert.False(t, s.Validate("sess-2", token))
}
