package sessions

import (
	"encoding/json"
	"time"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Session is the token bundle issued by the identity provider. It is
// replaced wholesale on refresh and never mutated in place.
type Session struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

type sessionJSON struct {
	AccessToken  string `json:"accessToken"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"` // epoch ms
}

func (s Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(sessionJSON{
		AccessToken:  s.AccessToken,
		IDToken:      s.IDToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt.UnixMilli(),
	})
}

func (s *Session) UnmarshalJSON(data []byte) error {
	var raw sessionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Session{
		AccessToken:  raw.AccessToken,
		IDToken:      raw.IDToken,
		RefreshToken: raw.RefreshToken,
		ExpiresAt:    time.UnixMilli(raw.ExpiresAt),
	}
	return nil
}

// Expired reports whether the session is at or past its expiry.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// ExpiresWithin reports whether less than d remains before expiry.
func (s Session) ExpiresWithin(d time.Duration, now time.Time) bool {
	return s.ExpiresAt.Sub(now) < d
}

// NewSession builds a session expiring expiresIn seconds after now. A
// non-positive expiresIn means the provider's one hour default.
func NewSession(accessToken, idToken, refreshToken string, expiresIn int64, now time.Time) Session {
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	return Session{
		AccessToken:  accessToken,
		IDToken:      idToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(time.Duration(expiresIn) * time.Second),
	}
}

// Stored is the persisted unit. Session and user are always written together.
type Stored struct {
	Session Session `json:"session"`
	User    User    `json:"user"`
}
