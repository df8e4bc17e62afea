package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/workbench/internal/auth"
	"github.com/hashicorp-forge/workbench/internal/config"
)

// Prefix is the path prefix every API request must carry.
const Prefix = "/api"

// UserResolver resolves the acting account for a request, or nil when
// none resolves.
type UserResolver interface {
	Resolve(r *http.Request) *auth.User
}

// Dispatcher routes inbound requests to modules and drives the
// response pipeline. It is the http.Handler the server mounts.
type Dispatcher struct {
	cfg     *config.Config
	log     hclog.Logger
	users   UserResolver
	modules ModuleResolver
	enc     Encoder
}

// NewDispatcher wires a dispatcher from its collaborators.
func NewDispatcher(
	cfg *config.Config,
	log hclog.Logger,
	users UserResolver,
	modules ModuleResolver,
) *Dispatcher {
	return &Dispatcher{
		cfg:     cfg,
		log:     log,
		users:   users,
		modules: modules,
	}
}

// handlerFunc is one verb handler of one module.
type handlerFunc func(ctx context.Context, c *Context) error

// ServeHTTP handles one request end to end. Every request receives
// exactly one terminal response; no failure in here may take the
// listener down.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.New()

	// Resolve the acting account before any routing. Requests nobody
	// vouches for never reach module lookup, let alone handler code.
	user := d.users.Resolve(r)

	rc := &RequestContext{
		ID:         reqID,
		Config:     d.cfg,
		User:       user,
		Method:     strings.ToLower(r.Method),
		Time:       time.Now().UTC(),
		URL:        r.URL,
		Params:     flattenQuery(r.URL.Query()),
		RemoteAddr: r.RemoteAddr,
	}
	c := NewContext(rc)
	c.SetHeader("X-Request-Id", reqID.String())

	if user == nil {
		c.Unauthorized()
		d.send(w, r, c)
		return
	}

	segments, ok := apiSegments(r.URL.EscapedPath())
	if !ok {
		c.NotFound()
		d.send(w, r, c)
		return
	}

	var handler handlerFunc
	if len(segments) == 0 {
		handler = d.root
	} else {
		rc.Segments = segments[1:]

		// A module name that fails to decode, or that no module is
		// registered under, reads as not-found. A registered module
		// without the request's verb is a distinct outcome: 405.
		moduleName, err := url.PathUnescape(segments[0])
		if err == nil {
			if m, found := d.modules.Lookup(moduleName); found {
				handler = verbHandler(m, rc.Method)
				if handler == nil {
					c.MethodNotAllowed()
					d.send(w, r, c)
					return
				}
			}
		}
		if handler == nil {
			c.NotFound()
			d.send(w, r, c)
			return
		}
	}

	if err := d.invoke(r.Context(), c, handler); err != nil {
		// The error goes to the operator log only; the client gets a
		// generic envelope.
		d.log.Error("handler error",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", reqID,
			"error", err,
		)
		c.SetStatus(http.StatusInternalServerError)
		c.SetResponse(Response{Code: -1, Msg: "internal server error"})
	}

	d.send(w, r, c)
}

// invoke runs a handler, converting panics into errors so a broken
// module cannot crash the listener.
func (d *Dispatcher) invoke(
	ctx context.Context, c *Context, handler handlerFunc,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, c)
}

// root is the built-in handler for /api with no further segments.
func (d *Dispatcher) root(_ context.Context, c *Context) error {
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		host = c.Request.RemoteAddr
	}

	data := map[string]any{
		"addr": host,
		"time": c.Request.Time.Format(TimestampFormat),
	}
	if !c.Request.User.IsGuest() {
		data["me"] = map[string]any{
			"name": c.Request.User.Name(),
		}
	}

	c.RespondData(data)
	return nil
}

// send writes the accumulated response: payload determination, content
// negotiation, headers, status, body. Write failures are logged and
// swallowed; the client is already gone.
func (d *Dispatcher) send(w http.ResponseWriter, r *http.Request, c *Context) {
	var payload []byte
	var contentType string

	if resp, ok := c.Response(); ok {
		b, err := json.Marshal(resp)
		if err != nil {
			d.log.Error("error marshaling response envelope",
				"request_id", c.Request.ID, "error", err)
			c.SetStatus(http.StatusInternalServerError)
		} else {
			payload = b
			contentType = "application/json; charset=utf-8"
		}
	} else if content, mime, ok := c.Raw(); ok {
		payload = content
		contentType = mime
		if contentType == "" {
			contentType = "text/plain; charset=utf-8"
		}
	}

	header := w.Header()
	for key, values := range c.Headers() {
		header[key] = values
	}

	if payload != nil {
		encoded, scheme := d.enc.Encode(payload, r.Header.Get("Accept-Encoding"))
		if scheme != "" {
			header.Set("Content-Encoding", scheme)
		}
		payload = encoded
		header.Set("Content-Type", contentType)
		header.Set("Content-Length", strconv.Itoa(len(payload)))
	}

	w.WriteHeader(c.Status())

	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			d.log.Warn("error writing response",
				"request_id", c.Request.ID, "error", err)
		}
	}
}

// apiSegments canonicalizes a raw URL path and strips the API prefix,
// returning the remaining non-empty, still percent-encoded segments.
// The prefix comparison is case-insensitive.
func apiSegments(path string) ([]string, bool) {
	path = strings.ReplaceAll(path, "\\", "/")

	norm := strings.ToLower(path)
	if norm != Prefix && !strings.HasPrefix(norm, Prefix+"/") {
		return nil, false
	}

	var segments []string
	for _, seg := range strings.Split(path[len(Prefix):], "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments, true
}

// verbHandler returns the module's handler for the method, or nil when
// the module does not support it.
func verbHandler(m Module, method string) handlerFunc {
	switch method {
	case "get":
		if h, ok := m.(Getter); ok {
			return h.Get
		}
	case "post":
		if h, ok := m.(Poster); ok {
			return h.Post
		}
	case "put":
		if h, ok := m.(Putter); ok {
			return h.Put
		}
	case "delete":
		if h, ok := m.(Deleter); ok {
			return h.Delete
		}
	}
	return nil
}

// flattenQuery keeps the first value of each GET parameter.
func flattenQuery(values url.Values) map[string]string {
	params := make(map[string]string, len(values))
	for key := range values {
		params[key] = values.Get(key)
	}
	return params
}
