package auth

import (
	"chat-pulse/domain"
	"chat-pulse/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenVerifier_RoundTrip(t *testing.T) {
	req := require.New(t)
	verifier := NewTokenVerifier("a-secret-long-enough-for-hs256-signing")

	token, err := verifier.GenerateToken("alice", time.Minute)
	req.NoError(err)

	// Identity comes from the token when the client does not claim one
	identity, err := verifier.Verify("", token)
	req.NoError(err)
	req.Equal("alice", string(identity))

	// And a matching claim is accepted
	identity, err = verifier.Verify("alice", token)
	req.NoError(err)
	req.Equal("alice", string(identity))
}

func TestTokenVerifier_Rejects(t *testing.T) {
	verifier := NewTokenVerifier("a-secret-long-enough-for-hs256-signing")
	other := NewTokenVerifier("another-secret-long-enough-for-hs256")

	valid, err := verifier.GenerateToken("alice", time.Minute)
	require.NoError(t, err)
	expired, err := verifier.GenerateToken("alice", -time.Minute)
	require.NoError(t, err)
	forged, err := other.GenerateToken("alice", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name    string
		claimed string
		token   string
		wantErr error
	}{
		{"missing token", "alice", "", errors.ErrAuthRequired},
		{"garbage", "alice", "not-a-jwt", errors.ErrInvalidToken},
		{"expired", "alice", expired, errors.ErrInvalidToken},
		{"wrong secret", "alice", forged, errors.ErrInvalidToken},
		{"impersonation", "bob", valid, errors.ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(domain.UserID(tt.claimed), tt.token)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClientTrust(t *testing.T) {
	req := require.New(t)

	identity, err := ClientTrust{}.Verify("alice", "")
	req.NoError(err)
	req.Equal("alice", string(identity))

	_, err = ClientTrust{}.Verify("", "")
	req.ErrorIs(err, errors.ErrAuthRequired)
}
