package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_BodyExclusivity(t *testing.T) {
	c := NewContext(&RequestContext{})

	// Fresh contexts hold an empty success envelope.
	resp, ok := c.Response()
	require.True(t, ok)
	assert.Equal(t, 0, resp.Code)
	_, _, ok = c.Raw()
	assert.False(t, ok)

	// Switching to raw content discards the envelope.
	c.SetRaw([]byte("hello"), "text/html")
	_, ok = c.Response()
	assert.False(t, ok)
	content, mime, ok := c.Raw()
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), content)
	assert.Equal(t, "text/html", mime)

	// And back again.
	c.SetResponse(Response{Code: 1, Msg: "nope"})
	_, _, ok = c.Raw()
	assert.False(t, ok)
	resp, ok = c.Response()
	require.True(t, ok)
	assert.Equal(t, 1, resp.Code)
}

func TestContext_WriteAppends(t *testing.T) {
	c := NewContext(&RequestContext{})

	c.Write([]byte("hello, "))
	c.Write([]byte("world"))

	content, _, ok := c.Raw()
	require.True(t, ok)
	assert.Equal(t, "hello, world", string(content))

	_, ok = c.Response()
	assert.False(t, ok, "write must discard the structured envelope")
}

func TestContext_TerminalStates(t *testing.T) {
	tests := []struct {
		name       string
		transition func(*Context)
		wantStatus int
	}{
		{"not found", (*Context).NotFound, http.StatusNotFound},
		{"method not allowed", (*Context).MethodNotAllowed, http.StatusMethodNotAllowed},
		{"unauthorized", (*Context).Unauthorized, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewContext(&RequestContext{})
			tt.transition(c)

			assert.Equal(t, tt.wantStatus, c.Status())
			_, ok := c.Response()
			assert.False(t, ok, "terminal states carry no body")
			_, _, ok = c.Raw()
			assert.False(t, ok)
		})
	}
}

func TestContext_UnauthorizedChallenges(t *testing.T) {
	c := NewContext(&RequestContext{})
	c.Unauthorized()
	assert.Contains(t, c.Headers().Get("WWW-Authenticate"), "Basic")
}
