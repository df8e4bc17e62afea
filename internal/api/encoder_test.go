package api

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoder_Encode(t *testing.T) {
	var enc Encoder

	// Big enough that both schemes shrink it.
	payload := []byte(strings.Repeat("workbench ", 200))

	t.Run("gzip", func(t *testing.T) {
		out, scheme := enc.Encode(payload, "gzip")
		require.Equal(t, "gzip", scheme)
		assert.Less(t, len(out), len(payload))

		zr, err := gzip.NewReader(bytes.NewReader(out))
		require.NoError(t, err)
		decoded, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, payload, decoded)
	})

	t.Run("deflate", func(t *testing.T) {
		out, scheme := enc.Encode(payload, "deflate")
		require.Equal(t, "deflate", scheme)

		fr := flate.NewReader(bytes.NewReader(out))
		decoded, err := io.ReadAll(fr)
		require.NoError(t, err)
		assert.Equal(t, payload, decoded)
	})

	t.Run("client order wins", func(t *testing.T) {
		_, scheme := enc.Encode(payload, "deflate, gzip")
		assert.Equal(t, "deflate", scheme)
	})

	t.Run("quality zero is skipped", func(t *testing.T) {
		_, scheme := enc.Encode(payload, "gzip;q=0, deflate")
		assert.Equal(t, "deflate", scheme)
	})

	t.Run("no supported scheme", func(t *testing.T) {
		out, scheme := enc.Encode(payload, "br, zstd")
		assert.Empty(t, scheme)
		assert.Equal(t, payload, out)
	})

	t.Run("empty accept-encoding", func(t *testing.T) {
		out, scheme := enc.Encode(payload, "")
		assert.Empty(t, scheme)
		assert.Equal(t, payload, out)
	})

	t.Run("incompressible payload passes through", func(t *testing.T) {
		tiny := []byte("x")
		out, scheme := enc.Encode(tiny, "gzip, deflate")
		assert.Empty(t, scheme)
		assert.Equal(t, tiny, out)
	})

	t.Run("empty payload passes through", func(t *testing.T) {
		out, scheme := enc.Encode(nil, "gzip")
		assert.Empty(t, scheme)
		assert.Empty(t, out)
	})
}
