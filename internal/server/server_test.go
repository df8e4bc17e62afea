package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/workbench/internal/config"
)

func testServer(t *testing.T, opts Options) *Server {
	t.Helper()

	cfg := &config.Config{
		Server:    &config.Server{Addr: "127.0.0.1:0"},
		Workspace: &config.Workspace{Root: t.TempDir()},
	}
	if opts.FS != nil {
		cfg.Workspace.Root = "/ws"
	}

	srv, err := New(cfg, hclog.NewNullLogger(), opts)
	require.NoError(t, err)
	return srv
}

func TestServer_StartStopIdempotence(t *testing.T) {
	srv := testServer(t, Options{})

	started, err := srv.Start()
	require.NoError(t, err)
	assert.True(t, started)

	addr := srv.Addr()
	require.NotEmpty(t, addr)

	// A second start is a no-op, not an error, and opens no second
	// socket.
	started, err = srv.Start()
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, addr, srv.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stopped, err := srv.Stop(ctx)
	require.NoError(t, err)
	assert.True(t, stopped)

	stopped, err = srv.Stop(ctx)
	require.NoError(t, err)
	assert.False(t, stopped)
}

func TestServer_BindFailure(t *testing.T) {
	// Occupy a port, then point the server at it.
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	cfg := &config.Config{
		Server:    &config.Server{Addr: taken.Addr().String()},
		Workspace: &config.Workspace{Root: t.TempDir()},
	}
	srv, err := New(cfg, hclog.NewNullLogger(), Options{})
	require.NoError(t, err)

	started, err := srv.Start()
	assert.Error(t, err)
	assert.False(t, started)
	assert.Empty(t, srv.Addr(), "a failed start leaves the server stopped")
}

func TestServer_ServesWorkspace(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/ws", 0o755))
	require.NoError(t, afero.WriteFile(
		fs, "/ws/hello.txt", []byte("hi there"), 0o644))

	srv := testServer(t, Options{FS: fs})

	started, err := srv.Start()
	require.NoError(t, err)
	require.True(t, started)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Stop(ctx)
	}()

	base := fmt.Sprintf("http://%s", srv.Addr())

	t.Run("root resource", func(t *testing.T) {
		resp, err := http.Get(base + "/api")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var env struct {
			Code int            `json:"code"`
			Data map[string]any `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		assert.Equal(t, 0, env.Code)
		assert.NotEmpty(t, env.Data["time"])
	})

	t.Run("file over the wire", func(t *testing.T) {
		resp, err := http.Get(base + "/api/workspace/hello.txt")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "file", resp.Header.Get("X-Workbench-Type"))
	})

	t.Run("outside the api", func(t *testing.T) {
		resp, err := http.Get(base + "/somewhere")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
