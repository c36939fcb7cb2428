package sessions

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is derived from the id token and never stored on its own.
type User struct {
	Email   string `json:"email"`
	Subject string `json:"sub"`
}

// UserFromIDToken decodes the token payload without verifying its
// signature. It returns nil for undecodable tokens and for tokens whose exp
// has passed.
func UserFromIDToken(idToken string, now time.Time) *User {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(now) {
		return nil
	}

	email, _ := claims["email"].(string)
	if email == "" {
		email, _ = claims["cognito:username"].(string)
	}
	sub, _ := claims.GetSubject()
	return &User{Email: email, Subject: sub}
}
