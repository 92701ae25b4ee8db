package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	issuer := NewIssuer([]byte("test-signing-key"), time.Hour)

	token, jti, err := issuer.Issue("42", "student", time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, jti)

	claims, err := issuer.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, "student", claims.Role)
	assert.Equal(t, jti, claims.JTI)
}

func TestValidateRejectsExpired(t *testing.T) {
	issuer := NewIssuer([]byte("test-signing-key"), time.Minute)

	token, _, err := issuer.Issue("42", "student", time.Now().Add(-2*time.Minute))
	require.NoError(t, err)

	_, err = issuer.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	issuer := NewIssuer([]byte("key-one"), time.Hour)
	other := NewIssuer([]byte("key-two"), time.Hour)

	token, _, err := issuer.Issue("42", "admin", time.Now())
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestIssueUniqueJTI(t *testing.T) {
	issuer := NewIssuer([]byte("test-signing-key"), time.Hour)
	_, a, err := issuer.Issue("42", "student", time.Now())
	require.NoError(t, err)
	_, b, err := issuer.Issue("42", "student", time.Now())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
