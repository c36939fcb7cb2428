// Package refresh keeps the stored session fresh. It refreshes proactively
// when the session is close to expiry and signs the user out when a refresh
// fails.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/media-admin/identity"
	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/jrsteele09/media-admin/internal/metrics"
	"github.com/jrsteele09/media-admin/sessions"
	"github.com/rs/zerolog/log"
)

const (
	DefaultThreshold = 5 * time.Minute
	DefaultInterval  = 30 * time.Minute
)

// Controller owns the session lifecycle: sign-in, periodic refresh and
// sign-out. It is the only writer of the session store.
type Controller struct {
	store     sessions.Store
	provider  identity.Provider
	threshold time.Duration
	interval  time.Duration
	now       func() time.Time
	metrics   metrics.Recorder

	// refreshMu serializes every write to the store: refreshes, sign-in and
	// sign-out.
	refreshMu sync.Mutex

	mu          sync.Mutex
	current     *sessions.Stored
	gen         uint64
	stopped     bool
	baseCtx     context.Context
	cancel      context.CancelFunc
	timerCancel context.CancelFunc
	wg          sync.WaitGroup
}

type Option func(*Controller)

func WithThreshold(d time.Duration) Option {
	return func(c *Controller) { c.threshold = d }
}

func WithInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(c *Controller) { c.metrics = m }
}

func NewController(store sessions.Store, provider identity.Provider, opts ...Option) *Controller {
	c := &Controller{
		store:     store,
		provider:  provider,
		threshold: DefaultThreshold,
		interval:  DefaultInterval,
		now:       sessions.NowTimeFunc,
		metrics:   metrics.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start loads the persisted session and, if there is one, checks it
// immediately. The periodic timer runs until Stop or until the session goes
// away.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.baseCtx != nil {
		c.mu.Unlock()
		return fmt.Errorf("[Controller Start] already started")
	}
	c.baseCtx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	stored, err := c.store.Get()
	if err != nil {
		return fmt.Errorf("[Controller Start] failed to load session: %w", err)
	}
	if stored == nil {
		return nil
	}

	c.mu.Lock()
	c.adoptLocked(stored)
	c.mu.Unlock()

	c.RefreshIfNeeded(ctx)
	return nil
}

// Stop tears down the timer. Refreshes still in flight have their results
// discarded.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.stopTimerLocked()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	c.wg.Wait()
}

// ShouldRefresh reports whether less than the threshold remains on s.
func (c *Controller) ShouldRefresh(s sessions.Session) bool {
	return s.ExpiresWithin(c.threshold, c.now())
}

// Current returns a copy of the held session and user, or nil.
func (c *Controller) Current() *sessions.Stored {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	cp := *c.current
	return &cp
}

// IDToken is the bearer token for API calls, empty when signed out.
func (c *Controller) IDToken() string {
	if cur := c.Current(); cur != nil {
		return cur.Session.IDToken
	}
	return ""
}

// SignIn authenticates with the identity provider. When the provider asks for
// a new password the challenge is returned and no session is established.
func (c *Controller) SignIn(ctx context.Context, email, password string) (*identity.NewPasswordChallenge, error) {
	if err := identity.ValidateSignIn(email, password); err != nil {
		return nil, err
	}
	res, err := c.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if res.Challenge != nil {
		return res.Challenge, nil
	}
	if res.Session == nil {
		return nil, errors.Unauthorized("Authentication failed: Invalid response", "")
	}
	return nil, c.establish(*res.Session)
}

// CompleteNewPassword answers a NEW_PASSWORD_REQUIRED challenge and signs in.
func (c *Controller) CompleteNewPassword(ctx context.Context, challenge identity.NewPasswordChallenge, newPassword, confirm string) error {
	if err := identity.ValidateNewPassword(newPassword, confirm); err != nil {
		return err
	}
	session, err := c.provider.RespondToNewPasswordChallenge(ctx, challenge, newPassword)
	if err != nil {
		return err
	}
	return c.establish(session)
}

// SignOut drops the session and tears down the timer.
func (c *Controller) SignOut() error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.Lock()
	c.clearLocked()
	c.mu.Unlock()
	return c.store.Clear()
}

// RefreshIfNeeded refreshes the current session when it is close to expiry.
// Failures sign the user out and are not returned.
func (c *Controller) RefreshIfNeeded(ctx context.Context) {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}
	gen, snapshot := c.gen, c.current.Session
	c.mu.Unlock()

	c.refresh(ctx, gen, snapshot)
}

func (c *Controller) establish(session sessions.Session) error {
	user := sessions.UserFromIDToken(session.IDToken, c.now())
	if user == nil {
		return errors.Unauthorized("Authentication failed: Invalid ID token", "")
	}
	stored := &sessions.Stored{Session: session, User: *user}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	if err := c.store.Set(session, *user); err != nil {
		return fmt.Errorf("[Controller SignIn] failed to persist session: %w", err)
	}

	c.mu.Lock()
	c.adoptLocked(stored)
	c.mu.Unlock()
	return nil
}

func (c *Controller) refresh(ctx context.Context, gen uint64, snapshot sessions.Session) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if !c.isCurrent(gen) {
		c.metrics.RecordSessionRefresh("superseded")
		return
	}
	if !c.ShouldRefresh(snapshot) {
		return
	}

	session, err := c.provider.Refresh(ctx, snapshot.RefreshToken)
	var user *sessions.User
	if err == nil {
		if user = sessions.UserFromIDToken(session.IDToken, c.now()); user == nil {
			err = errors.Unauthorized("Failed to extract user from refreshed token", "")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.gen != gen {
		log.Debug().Msg("discarding refresh result for a superseded session")
		c.metrics.RecordSessionRefresh("discarded")
		return
	}

	if err == nil {
		err = c.store.Set(session, *user)
	}
	if err != nil {
		log.Err(err).Msg("session refresh failed, signing out")
		c.metrics.RecordSessionRefresh("failure")
		c.clearLocked()
		if clearErr := c.store.Clear(); clearErr != nil {
			log.Err(clearErr).Msg("failed to clear session store")
		}
		return
	}

	log.Debug().Str("email", user.Email).Time("expires_at", session.ExpiresAt).Msg("session refreshed")
	c.metrics.RecordSessionRefresh("success")
	c.adoptLocked(&sessions.Stored{Session: session, User: *user})
}

func (c *Controller) isCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.stopped && c.current != nil && c.gen == gen
}

func (c *Controller) adoptLocked(stored *sessions.Stored) {
	c.current = stored
	c.gen++
	c.scheduleLocked(c.gen, stored.Session)
}

func (c *Controller) clearLocked() {
	c.current = nil
	c.gen++
	c.stopTimerLocked()
}

// scheduleLocked replaces the timer with one bound to snapshot. Nothing is
// scheduled before Start or after Stop.
func (c *Controller) scheduleLocked(gen uint64, snapshot sessions.Session) {
	c.stopTimerLocked()
	if c.stopped || c.baseCtx == nil {
		return
	}

	ctx, cancel := context.WithCancel(c.baseCtx)
	c.timerCancel = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.refresh(ctx, gen, snapshot)
			}
		}
	}()
}

func (c *Controller) stopTimerLocked() {
	if c.timerCancel != nil {
		c.timerCancel()
		c.timerCancel = nil
	}
}

// TimerActive reports whether a refresh timer is scheduled.
func (c *Controller) TimerActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timerCancel != nil
}
