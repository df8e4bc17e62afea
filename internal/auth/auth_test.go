package auth

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hashicorp-forge/workbench/internal/config"
)

func testProvider(t *testing.T, cfg *config.Config) *Provider {
	t.Helper()
	p, err := NewProvider(cfg, hclog.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestProvider_Resolve(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		Users: []*config.User{
			{Name: "alice", Password: "secret"},
			{Name: "bob", PasswordHash: string(hash)},
		},
	}
	p := testProvider(t, cfg)

	t.Run("no credentials resolves guest", func(t *testing.T) {
		u := p.Resolve(httptest.NewRequest("GET", "/api", nil))
		require.NotNil(t, u)
		assert.True(t, u.IsGuest())
		assert.Equal(t, GuestName, u.Name())
	})

	t.Run("plaintext password", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api", nil)
		req.SetBasicAuth("alice", "secret")
		u := p.Resolve(req)
		require.NotNil(t, u)
		assert.False(t, u.IsGuest())
		assert.Equal(t, "alice", u.Name())
	})

	t.Run("bcrypt hash", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api", nil)
		req.SetBasicAuth("bob", "hunter2")
		u := p.Resolve(req)
		require.NotNil(t, u)
		assert.Equal(t, "bob", u.Name())
	})

	t.Run("wrong password does not fall back to guest", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api", nil)
		req.SetBasicAuth("alice", "nope")
		assert.Nil(t, p.Resolve(req))
	})

	t.Run("unknown account", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api", nil)
		req.SetBasicAuth("mallory", "secret")
		assert.Nil(t, p.Resolve(req))
	})
}

func TestProvider_GuestDisabled(t *testing.T) {
	disabled := false
	cfg := &config.Config{
		Guest: &config.Guest{Enabled: &disabled},
	}
	p := testProvider(t, cfg)

	assert.Nil(t, p.Resolve(httptest.NewRequest("GET", "/api", nil)))
}

func TestUser_IsFileVisible(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Config{
		Users: []*config.User{
			{
				Name:     "alice",
				Password: "secret",
				Files:    []string{"docs/**", "*.md"},
				Exclude:  []string{"docs/private/**"},
			},
			{Name: "bob", Password: "secret"},
		},
	}
	p := testProvider(t, cfg)

	resolve := func(name string) *User {
		req := httptest.NewRequest("GET", "/api", nil)
		req.SetBasicAuth(name, "secret")
		u := p.Resolve(req)
		require.NotNil(t, u)
		return u
	}

	alice := resolve("alice")
	bob := resolve("bob")

	tests := []struct {
		user *User
		path string
		want bool
	}{
		{alice, "docs/guide.md", true},
		{alice, "docs/deep/nested/file.txt", true},
		{alice, "readme.md", true},
		{alice, "src/main.go", false},
		{alice, "docs/private/salary.md", false},
		// No patterns means everything is visible.
		{bob, "docs/guide.md", true},
		{bob, "anything/at/all", true},
	}

	for _, tt := range tests {
		visible, err := tt.user.IsFileVisible(ctx, tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, visible,
			"user %s path %s", tt.user.Name(), tt.path)
	}

	// Cached answers stay stable.
	visible, err := alice.IsFileVisible(ctx, "docs/guide.md")
	require.NoError(t, err)
	assert.True(t, visible)
}
