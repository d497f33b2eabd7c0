package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// DefaultExpiryMargin is subtracted from every renewed expiry.
const DefaultExpiryMargin = 30 * time.Second

// defaultLifetime applies when a token response carries no expires_in.
const defaultLifetime = time.Hour

// renewTimeout bounds one refresh exchange.
const renewTimeout = 30 * time.Second

// Store is the persistence boundary the lifecycle reads and writes through.
type Store interface {
	Get(identity string) (*models.Credential, error)
	Put(cred *models.Credential) error
	GetClientSecretPair() (*models.ClientSecretPair, error)
	PutClientSecretPair(pair *models.ClientSecretPair) error
}

// Lifecycle hands out credentials that are valid at the moment of use.
//
// Credentials are read through an in-memory cache that is filled from the [Store] at most
// once per identity. Renewal runs at most once at a time per identity; concurrent callers
// share its result.
type Lifecycle struct {
	store   Store
	renewer Renewer
	margin  time.Duration
	logger  *log.Logger
	now     func() time.Time

	mu    sync.Mutex
	creds map[string]*models.Credential
	pair  *models.ClientSecretPair

	group singleflight.Group
}

// LifecycleOpts contains configuration options for creating a Lifecycle.
type LifecycleOpts struct {
	Store   Store
	Renewer Renewer
	Margin  time.Duration
	Logger  *log.Logger
}

// NewLifecycle creates a [Lifecycle]. A nil Renewer falls back to an [OAuthRenewer] against
// the default token endpoint.
func NewLifecycle(opts LifecycleOpts) *Lifecycle {
	if opts.Renewer == nil {
		opts.Renewer = &OAuthRenewer{}
	}
	if opts.Margin <= 0 {
		opts.Margin = DefaultExpiryMargin
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Lifecycle{
		store:   opts.Store,
		renewer: opts.Renewer,
		margin:  opts.Margin,
		logger:  opts.Logger,
		now:     time.Now,
		creds:   make(map[string]*models.Credential),
	}
}

// Authorize returns a credential for identity that is unexpired at the time of the call.
//
// Errors wrap [shared.ErrNotFound] when nothing is stored for identity,
// [shared.ErrRenewalRejected] when the token endpoint refuses the refresh secret and
// [shared.ErrStorage] when the store cannot be read or written.
func (l *Lifecycle) Authorize(ctx context.Context, identity string) (*models.Credential, error) {
	cred, err := l.load(identity)
	if err != nil {
		return nil, err
	}

	if !cred.Expired(l.now()) {
		return cred, nil
	}

	// The renewal outlives the caller that started it so callers sharing it are not failed by
	// that caller's cancellation.
	ch := l.group.DoChan(identity, func() (any, error) {
		renewCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), renewTimeout)
		defer cancel()
		return l.renew(renewCtx, identity)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			l.logger.Debug("shared in-flight renewal", "identity", identity)
		}
		renewed := *res.Val.(*models.Credential)
		return &renewed, nil
	}
}

// Handoff stores the first credential for an identity, and the client pair when given.
// It replaces anything cached for the identity.
func (l *Lifecycle) Handoff(ctx context.Context, cred *models.Credential, pair *models.ClientSecretPair) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if pair != nil {
		if err := l.store.PutClientSecretPair(pair); err != nil {
			return err
		}
		l.mu.Lock()
		p := *pair
		l.pair = &p
		l.mu.Unlock()
	}

	if err := l.store.Put(cred); err != nil {
		return err
	}
	l.cache(cred)

	l.logger.Info("stored credential", "identity", cred.Identity, "expires_at", cred.ExpiresAt.Format(time.RFC3339))
	return nil
}

// TokenSource adapts the lifecycle to [oauth2.TokenSource] so an [oauth2.Transport] can
// authorize each request for identity.
func (l *Lifecycle) TokenSource(ctx context.Context, identity string) oauth2.TokenSource {
	return &lifecycleSource{ctx: ctx, lifecycle: l, identity: identity}
}

// ExpiryFor converts a token endpoint expiry into the stored expiry.
func (l *Lifecycle) ExpiryFor(tok *oauth2.Token) time.Time {
	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = l.now().Add(defaultLifetime)
	}
	return expiry.Add(-l.margin)
}

// renew re-checks the cache first: a renewal that finished between the caller's expiry
// check and joining the group has already done the work.
func (l *Lifecycle) renew(ctx context.Context, identity string) (*models.Credential, error) {
	current, err := l.load(identity)
	if err != nil {
		return nil, err
	}
	if !current.Expired(l.now()) {
		return current, nil
	}

	pair, err := l.clientPair()
	if err != nil {
		return nil, err
	}

	l.logger.Debug("renewing credential", "identity", identity, "expired_at", current.ExpiresAt.Format(time.RFC3339))

	tok, err := l.renewer.Renew(ctx, pair, current.RefreshSecret)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		l.logger.Warn("renewal rejected", "identity", identity, "error", err)
		return nil, fmt.Errorf("%w: %v", shared.ErrRenewalRejected, err)
	}

	renewed := &models.Credential{
		Identity:      identity,
		AccessSecret:  tok.AccessToken,
		RefreshSecret: tok.RefreshToken,
		Scopes:        current.Scopes,
		ExpiresAt:     l.ExpiryFor(tok),
	}
	if renewed.RefreshSecret == "" {
		renewed.RefreshSecret = current.RefreshSecret
	}
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		renewed.Scopes = models.ParseScopes(scope)
	}

	if renewed.AccessSecret == "" {
		return nil, fmt.Errorf("%w: token response carried no access token", shared.ErrRenewalRejected)
	}

	if err := l.store.Put(renewed); err != nil {
		return nil, err
	}
	l.cache(renewed)

	l.logger.Info("renewed credential", "identity", identity, "expires_at", renewed.ExpiresAt.Format(time.RFC3339))
	return renewed, nil
}

func (l *Lifecycle) load(identity string) (*models.Credential, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cred, ok := l.creds[identity]; ok {
		c := *cred
		return &c, nil
	}

	cred, err := l.store.Get(identity)
	if err != nil {
		return nil, err
	}

	l.creds[identity] = cred
	c := *cred
	return &c, nil
}

func (l *Lifecycle) cache(cred *models.Credential) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := *cred
	l.creds[cred.Identity] = &c
}

func (l *Lifecycle) clientPair() (*models.ClientSecretPair, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pair != nil {
		return l.pair, nil
	}

	pair, err := l.store.GetClientSecretPair()
	if err != nil {
		return nil, err
	}
	l.pair = pair
	return pair, nil
}

type lifecycleSource struct {
	ctx       context.Context
	lifecycle *Lifecycle
	identity  string
}

func (s *lifecycleSource) Token() (*oauth2.Token, error) {
	cred, err := s.lifecycle.Authorize(s.ctx, s.identity)
	if err != nil {
		return nil, err
	}

	return &oauth2.Token{
		AccessToken:  cred.AccessSecret,
		TokenType:    "Bearer",
		RefreshToken: cred.RefreshSecret,
		Expiry:       cred.ExpiresAt,
	}, nil
}
