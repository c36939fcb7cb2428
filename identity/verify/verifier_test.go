package verify_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/media-admin/identity/oidctest"
	"github.com/jrsteele09/media-admin/identity/verify"
	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/jrsteele09/media-admin/sessions"
	"github.com/stretchr/testify/require"
)

func TestUnverifiedDecoder(t *testing.T) {
	ctx := context.Background()
	sign := func(claims jwt.MapClaims) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
		require.NoError(t, err)
		return tok
	}

	user, err := verify.UnverifiedDecoder{}.Verify(ctx, sign(jwt.MapClaims{"email": "a@example.com", "sub": "1", "exp": time.Now().Add(time.Hour).Unix()}))
	require.NoError(t, err)
	require.Equal(t, &sessions.User{Email: "a@example.com", Subject: "1"}, user)

	_, err = verify.UnverifiedDecoder{}.Verify(ctx, sign(jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()}))
	require.EqualError(t, err, "Unauthorized: Invalid or expired token")
	require.Equal(t, errors.CodeUnauthorized, errors.CodeOf(err))
	require.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestOIDCVerifier(t *testing.T) {
	ctx := context.Background()
	iss := oidctest.NewIssuer(t)
	u := oidctest.User{Email: "a@example.com", Subject: "user-1"}

	v, err := verify.NewOIDCVerifier(ctx, iss.URL, oidctest.ClientID)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		tok, err := iss.IDToken(u, time.Hour)
		require.NoError(t, err)
		user, err := v.Verify(ctx, tok)
		require.NoError(t, err)
		require.Equal(t, &sessions.User{Email: "a@example.com", Subject: "user-1"}, user)
	})

	t.Run("expired token", func(t *testing.T) {
		tok, err := iss.IDToken(u, -time.Hour)
		require.NoError(t, err)
		_, err = v.Verify(ctx, tok)
		require.Equal(t, errors.CodeUnauthorized, errors.CodeOf(err))
	})

	t.Run("foreign signature", func(t *testing.T) {
		other, err := oidctest.GenerateRSAKeyPair("test-key")
		require.NoError(t, err)
		tok, err := other.Sign(jwt.MapClaims{"iss": iss.URL, "aud": oidctest.ClientID, "sub": "x", "exp": time.Now().Add(time.Hour).Unix()})
		require.NoError(t, err)
		_, err = v.Verify(ctx, tok)
		require.Equal(t, errors.CodeUnauthorized, errors.CodeOf(err))
		require.EqualError(t, err, "Unauthorized: Invalid or expired token")
		require.ErrorIs(t, err, errors.ErrInvalidToken)

		var appErr *errors.AppError
		require.True(t, errors.As(err, &appErr))
		require.Contains(t, appErr.Original.Error(), "[OIDCVerifier Verify]")
	})
}
