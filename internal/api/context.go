// Package api implements the request dispatch and response pipeline:
// inbound requests are parsed into a module and verb, routed to a
// registered handler, and the handler's result is serialized,
// compressed and written back.
package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/hashicorp-forge/workbench/internal/auth"
	"github.com/hashicorp-forge/workbench/internal/config"
)

// TimestampFormat is the wire format for all timestamps in API
// payloads, always rendered in UTC.
const TimestampFormat = "2006-01-02 15:04:05"

// Response is the JSON envelope for structured API responses. Code 0
// conventionally means success.
type Response struct {
	Code int    `json:"code"`
	Data any    `json:"data,omitempty"`
	Msg  string `json:"msg,omitempty"`
}

// RequestContext is the immutable view of one inbound request. It is
// built once by the dispatcher, before any handler runs, and is never
// mutated afterwards.
type RequestContext struct {
	// ID correlates log lines with the X-Request-Id response header.
	ID uuid.UUID

	// Config is the configuration snapshot the server was started with.
	Config *config.Config

	// User is the resolved acting account. The dispatcher guarantees it
	// is non-nil before any handler is invoked.
	User *auth.User

	// Method is the lower-cased HTTP method name.
	Method string

	// Time is the UTC timestamp taken when the request was accepted.
	Time time.Time

	// URL is the parsed request URL.
	URL *url.URL

	// Params maps GET parameter names to their first value.
	Params map[string]string

	// Segments are the raw, still percent-encoded path segments after
	// the module name.
	Segments []string

	// RemoteAddr is the requesting peer's address.
	RemoteAddr string
}

// body is the sum type behind Context: a response is either a
// structured JSON envelope or raw content, never both.
type body interface {
	isBody()
}

type structuredBody struct {
	resp Response
}

type rawBody struct {
	content []byte
	mime    string
}

func (structuredBody) isBody() {}
func (rawBody) isBody()        {}

// Context accumulates the response for one API invocation. It starts
// out holding an empty success envelope; handlers either replace that
// envelope or switch to raw content, and the two states are mutually
// exclusive by construction.
type Context struct {
	// Request is the request this response belongs to.
	Request *RequestContext

	status  int
	headers http.Header
	body    body
}

// NewContext returns a response context for the given request.
func NewContext(rc *RequestContext) *Context {
	return &Context{
		Request: rc,
		status:  http.StatusOK,
		headers: make(http.Header),
		body:    structuredBody{resp: Response{Code: 0}},
	}
}

// Status returns the HTTP status code that will be sent.
func (c *Context) Status() int {
	return c.status
}

// SetStatus overrides the HTTP status code.
func (c *Context) SetStatus(code int) {
	c.status = code
}

// SetHeader sets a response header.
func (c *Context) SetHeader(key, value string) {
	c.headers.Set(key, value)
}

// Headers returns the accumulated response headers.
func (c *Context) Headers() http.Header {
	return c.headers
}

// SetResponse replaces the structured envelope, discarding any raw
// content set earlier.
func (c *Context) SetResponse(resp Response) {
	c.body = structuredBody{resp: resp}
}

// RespondData is shorthand for a success envelope carrying data.
func (c *Context) RespondData(data any) {
	c.SetResponse(Response{Code: 0, Data: data})
}

// Response returns the structured envelope, if one is set.
func (c *Context) Response() (Response, bool) {
	if b, ok := c.body.(structuredBody); ok {
		return b.resp, true
	}
	return Response{}, false
}

// SetRaw replaces the response with raw content and an optional MIME
// type, discarding any structured envelope set earlier.
func (c *Context) SetRaw(content []byte, mime string) {
	c.body = rawBody{content: content, mime: mime}
}

// Raw returns the raw content and MIME type, if set.
func (c *Context) Raw() ([]byte, string, bool) {
	if b, ok := c.body.(rawBody); ok {
		return b.content, b.mime, true
	}
	return nil, "", false
}

// Write appends to the raw content. If the context still holds a
// structured envelope, it is discarded first.
func (c *Context) Write(p []byte) {
	b, ok := c.body.(rawBody)
	if !ok {
		b = rawBody{}
	}
	b.content = append(b.content, p...)
	c.body = b
}

// NotFound puts the context into the terminal 404 state. No body is
// sent, so nothing about the reason can leak to the client.
func (c *Context) NotFound() {
	c.status = http.StatusNotFound
	c.body = nil
}

// MethodNotAllowed puts the context into the terminal 405 state.
func (c *Context) MethodNotAllowed() {
	c.status = http.StatusMethodNotAllowed
	c.body = nil
}

// Unauthorized puts the context into the terminal 401 state and asks
// the client for basic credentials.
func (c *Context) Unauthorized() {
	c.status = http.StatusUnauthorized
	c.headers.Set("WWW-Authenticate", `Basic realm="workbench"`)
	c.body = nil
}
