// Package auth resolves HTTP requests to workbench accounts and
// answers per-account file visibility questions.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/crypto/bcrypt"

	"github.com/hashicorp-forge/workbench/internal/config"
)

// GuestName is the account name reported for unauthenticated requests
// when the guest account is enabled.
const GuestName = "guest"

// Provider resolves requests to accounts. It owns the process-wide
// visibility cache; the API core only ever reads through User values.
type Provider struct {
	cfg   *config.Config
	log   hclog.Logger
	cache *ristretto.Cache[string, bool]
}

// NewProvider builds a provider from the configuration snapshot.
func NewProvider(cfg *config.Config, log hclog.Logger) (*Provider, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, bool]{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("error building visibility cache: %w", err)
	}

	return &Provider{
		cfg:   cfg,
		log:   log,
		cache: cache,
	}, nil
}

// Close releases the visibility cache.
func (p *Provider) Close() {
	p.cache.Close()
}

// Resolve returns the account acting on a request, or nil when none
// resolves. Requests without credentials map to the guest account if it
// is enabled; requests with wrong credentials never fall back to guest.
func (p *Provider) Resolve(r *http.Request) *User {
	name, pass, ok := r.BasicAuth()
	if !ok {
		return p.guest()
	}

	for _, u := range p.cfg.Users {
		if u.Name != name {
			continue
		}
		if !checkPassword(u, pass) {
			p.log.Warn("failed authentication attempt",
				"user", name, "remote", r.RemoteAddr)
			return nil
		}
		return &User{
			name:     u.Name,
			files:    u.Files,
			exclude:  u.Exclude,
			provider: p,
		}
	}

	p.log.Warn("authentication attempt for unknown account",
		"user", name, "remote", r.RemoteAddr)
	return nil
}

func (p *Provider) guest() *User {
	if !p.cfg.Guest.IsEnabled() {
		return nil
	}
	u := &User{
		name:     GuestName,
		guest:    true,
		provider: p,
	}
	if p.cfg.Guest != nil {
		u.files = p.cfg.Guest.Files
		u.exclude = p.cfg.Guest.Exclude
	}
	return u
}

func checkPassword(u *config.User, pass string) bool {
	if u.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword(
			[]byte(u.PasswordHash), []byte(pass)) == nil
	}
	return subtle.ConstantTimeCompare(
		[]byte(u.Password), []byte(pass)) == 1
}

// User is a resolved account.
type User struct {
	name     string
	guest    bool
	files    []string
	exclude  []string
	provider *Provider
}

// Name returns the account's display name.
func (u *User) Name() string {
	return u.name
}

// IsGuest reports whether this is the anonymous account.
func (u *User) IsGuest() bool {
	return u.guest
}

// IsFileVisible reports whether the workspace-relative path is visible
// to this account. An empty files pattern list means everything is
// visible; exclude patterns then carve holes. Results are cached per
// account and path.
func (u *User) IsFileVisible(ctx context.Context, relPath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	key := u.name + "\x00" + relPath
	if visible, ok := u.provider.cache.Get(key); ok {
		return visible, nil
	}

	visible, err := u.matches(relPath)
	if err != nil {
		return false, err
	}

	u.provider.cache.Set(key, visible, 1)
	return visible, nil
}

func (u *User) matches(relPath string) (bool, error) {
	included := len(u.files) == 0
	for _, pattern := range u.files {
		ok, err := doublestar.Match(pattern, relPath)
		if err != nil {
			return false, fmt.Errorf("invalid files pattern %q: %w", pattern, err)
		}
		if ok {
			included = true
			break
		}
	}
	if !included {
		return false, nil
	}

	for _, pattern := range u.exclude {
		ok, err := doublestar.Match(pattern, relPath)
		if err != nil {
			return false, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		if ok {
			return false, nil
		}
	}
	return true, nil
}
