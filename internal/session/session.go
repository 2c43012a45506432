// Package session derives and publishes the access-relevant view of a
// signed-in member: the cached profile and the admin flag.
//
// Both values are published together through a single pointer swap, so a
// gate never observes a new profile paired with an old admin flag. Lookup
// failures fail closed: a missing profile reads as an unverified member and
// a failed role lookup reads as "not admin".
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/samajportal/apiserver/internal/access"
	"github.com/samajportal/apiserver/types"
)

// ProfileSource loads a member profile.
type ProfileSource interface {
	GetProfile(ctx context.Context, memberID int) (types.Profile, error)
}

// RoleSource answers role membership questions.
type RoleSource interface {
	HasRole(ctx context.Context, memberID int, role types.Role) (bool, error)
}

// State is an immutable snapshot of a session.
type State struct {
	Authenticated bool
	MemberID      int
	TokenID       string
	Profile       *types.Profile
	IsAdmin       bool

	// Degraded is set when the profile could not be loaded.
	Degraded bool
}

// Anonymous is the state of a caller without a session.
var Anonymous = State{}

// Subject converts the state into gate input.
func (s State) Subject() access.Subject {
	if !s.Authenticated {
		return access.Subject{}
	}
	status := types.VerificationNone
	if s.Profile != nil && s.Profile.VerificationStatus != "" {
		status = s.Profile.VerificationStatus
	}
	return access.Subject{
		Authenticated: true,
		Status:        status,
		IsAdmin:       s.IsAdmin,
	}
}

// Evaluate runs the gate for f against this state.
func (s State) Evaluate(f access.Feature) (access.Decision, error) {
	return access.Evaluate(f, s.Subject())
}

// Resolver builds session states from the profile and role stores.
type Resolver struct {
	profiles ProfileSource
	roles    RoleSource
	logger   *zap.Logger
}

// NewResolver constructs a Resolver over the profile and role stores.
func NewResolver(profiles ProfileSource, roles RoleSource, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{profiles: profiles, roles: roles, logger: logger}
}

// Resolve loads the profile and admin flag for memberID.
func (r *Resolver) Resolve(ctx context.Context, memberID int, tokenID string) State {
	st := State{
		Authenticated: true,
		MemberID:      memberID,
		TokenID:       tokenID,
	}

	profile, err := r.profiles.GetProfile(ctx, memberID)
	if err != nil {
		r.logger.Warn("session profile lookup failed; treating member as unverified",
			zap.Int("member_id", memberID), zap.Error(err))
		st.Degraded = true
	} else {
		st.Profile = &profile
	}

	isAdmin, err := r.roles.HasRole(ctx, memberID, types.RoleAdmin)
	if err != nil {
		r.logger.Warn("session role lookup failed; admin access denied",
			zap.Int("member_id", memberID), zap.Error(err))
		isAdmin = false
	}
	st.IsAdmin = isAdmin

	return st
}

// Provider holds the current session state of one client.
type Provider struct {
	resolver *Resolver

	current atomic.Pointer[State]
	epoch   atomic.Uint64

	// mu serialises the epoch check with the store.
	mu sync.Mutex
}

// NewProvider constructs a Provider that starts anonymous.
func NewProvider(resolver *Resolver) *Provider {
	p := &Provider{resolver: resolver}
	anon := Anonymous
	p.current.Store(&anon)
	return p
}

// Current returns the latest published state.
func (p *Provider) Current() State {
	return *p.current.Load()
}

// Establish resolves and publishes the session for memberID. A result that
// completes after a later Establish or Teardown started is discarded.
func (p *Provider) Establish(ctx context.Context, memberID int, tokenID string) State {
	e := p.epoch.Add(1)
	st := p.resolver.Resolve(ctx, memberID, tokenID)
	if !p.publishIfCurrent(e, st) {
		return p.Current()
	}
	return st
}

// Refresh re-derives the profile and admin flag for the current member.
// It is a no-op for anonymous sessions.
func (p *Provider) Refresh(ctx context.Context) State {
	cur := p.Current()
	if !cur.Authenticated {
		return cur
	}
	return p.Establish(ctx, cur.MemberID, cur.TokenID)
}

// Teardown ends the session. The profile and admin flag are withdrawn
// before revoke invalidates the identity token, and the anonymous state is
// published last. The session ends even when revoke fails; its error is
// returned.
func (p *Provider) Teardown(ctx context.Context, revoke func(ctx context.Context, s State) error) error {
	e := p.epoch.Add(1)
	cur := p.Current()

	withdrawn := State{
		Authenticated: cur.Authenticated,
		MemberID:      cur.MemberID,
		TokenID:       cur.TokenID,
	}
	p.publishIfCurrent(e, withdrawn)

	var err error
	if revoke != nil && cur.Authenticated {
		err = revoke(ctx, cur)
	}

	p.publishIfCurrent(e, Anonymous)
	return err
}

func (p *Provider) publishIfCurrent(epoch uint64, st State) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.epoch.Load() != epoch {
		return false
	}
	p.current.Store(&st)
	return true
}

type ctxKey struct{}

// WithProvider returns a context carrying p.
func WithProvider(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the provider stored in ctx, if any.
func FromContext(ctx context.Context) (*Provider, bool) {
	p, ok := ctx.Value(ctxKey{}).(*Provider)
	return p, ok
}

// CurrentFromContext returns the session state in ctx, or Anonymous.
func CurrentFromContext(ctx context.Context) State {
	if p, ok := FromContext(ctx); ok {
		return p.Current()
	}
	return Anonymous
}
