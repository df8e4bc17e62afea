package api

import (
	"bytes"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

// Encoder compresses response payloads according to the request's
// Accept-Encoding header. Compression is best-effort: on any failure,
// or when compressing would not shrink the payload, the original bytes
// are returned with an empty scheme and the response goes out
// uncompressed.
type Encoder struct{}

// Encode returns the payload to send and the Content-Encoding header
// value, which is empty when the payload is unmodified. Schemes are
// tried in the order the client listed them.
func (Encoder) Encode(payload []byte, acceptEncoding string) ([]byte, string) {
	if len(payload) == 0 {
		return payload, ""
	}

	for _, scheme := range acceptedSchemes(acceptEncoding) {
		compressed, ok := compress(scheme, payload)
		if ok && len(compressed) < len(payload) {
			return compressed, scheme
		}
	}
	return payload, ""
}

// acceptedSchemes parses an Accept-Encoding value into the supported
// schemes, preserving client order and dropping q=0 entries.
func acceptedSchemes(acceptEncoding string) []string {
	var schemes []string
	for _, part := range strings.Split(acceptEncoding, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "gzip" && name != "deflate" {
			continue
		}
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if strings.TrimSpace(q) == "0" {
				continue
			}
		}
		schemes = append(schemes, name)
	}
	return schemes
}

func compress(scheme string, payload []byte) ([]byte, bool) {
	var buf bytes.Buffer

	switch scheme {
	case "gzip":
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(payload); err != nil {
			return nil, false
		}
		if err := w.Close(); err != nil {
			return nil, false
		}
	case "deflate":
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, false
		}
		if _, err := w.Write(payload); err != nil {
			return nil, false
		}
		if err := w.Close(); err != nil {
			return nil, false
		}
	default:
		return nil, false
	}

	return buf.Bytes(), true
}
