package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	errs "studymate/errors"
)

func TestMintAndVerify(t *testing.T) {
	req := require.New(t)
	verifier := NewVerifier("top-secret")
	ctx := context.Background()

	token, err := verifier.Mint("user-a", time.Hour)
	req.NoError(err)
	req.NotEmpty(token)

	userID, err := verifier.Verify(ctx, token)
	req.NoError(err)
	req.Equal("user-a", userID)
}

func TestVerify_RejectsBadCredentials(t *testing.T) {
	req := require.New(t)
	verifier := NewVerifier("top-secret")
	ctx := context.Background()

	tests := []struct {
		name       string
		credential string
	}{
		{"Empty token", ""},
		{"Garbage token", "not-a-jwt"},
		{"Tampered token", func() string {
			token, _ := verifier.Mint("user-a", time.Hour)
			return token + "x"
		}()},
		{"Wrong secret", func() string {
			other := NewVerifier("another-secret")
			token, _ := other.Mint("user-a", time.Hour)
			return token
		}()},
		{"Expired token", func() string {
			token, _ := verifier.Mint("user-a", -time.Minute)
			return token
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(ctx, tt.credential)
			req.ErrorIs(err, errs.ErrInvalidCredential)
		})
	}
}

func TestVerify_RejectsTokenWithoutUserID(t *testing.T) {
	req := require.New(t)
	verifier := NewVerifier("top-secret")

	token, err := verifier.Mint("", time.Hour)
	req.NoError(err)

	_, err = verifier.Verify(context.Background(), token)
	req.ErrorIs(err, errs.ErrInvalidCredential)
}
