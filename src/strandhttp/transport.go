// Package strandhttp implements the strand transport over HTTP.
//
// Operations are POSTed to /sync/query, /sync/mutation and /sync/action;
// snapshot cursors are fetched from /sync/ts. Responses carrying HTTP 422
// are application-level results and are parsed through the standard
// success/error envelope rather than treated as transport failures.
package strandhttp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jmalloc/twelf/src/twelf"
	"github.com/strand/strand-go/src/internal/wire"
	"github.com/strand/strand-go/src/strand"
)

// maxResponseBody bounds how much of a response body is read.
const maxResponseBody = 8 << 20

// Option configures a Transport.
type Option func(*Transport)

// WithHTTPClient overrides the HTTP client used by the transport.
func WithHTTPClient(h *http.Client) Option {
	return func(t *Transport) {
		if h != nil {
			t.client = h
		}
	}
}

// WithLogger sets the target for the transport's logs.
func WithLogger(l twelf.Logger) Option {
	return func(t *Transport) {
		if l == nil {
			panic("logger must not be nil")
		}
		t.logger = l
	}
}

// WithHeader adds a default header sent with every request.
func WithHeader(key, value string) Option {
	return func(t *Transport) {
		t.headers.Add(key, value)
	}
}

// WithStrictValidation controls whether success envelopes without a value
// field are rejected.
func WithStrictValidation(strict bool) Option {
	return func(t *Transport) {
		t.strict = strict
	}
}

// Transport is an HTTP implementation of strand.Transport.
type Transport struct {
	base    *url.URL
	client  *http.Client
	headers http.Header
	logger  twelf.Logger
	strict  bool

	mutex     sync.Mutex
	connected bool
	closed    bool
	states    chan strand.ConnectionState
}

// New returns a transport for the service at baseURL.
func New(baseURL string, opts ...Option) (*Transport, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("base URL is required")
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	t := &Transport{
		base: base,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		headers: http.Header{},
		logger:  &twelf.StandardLogger{},
		strict:  true,
		states:  make(chan strand.ConnectionState, 16),
	}

	for _, o := range opts {
		o(t)
	}

	return t, nil
}

// executeBody is the wire shape of an operation request.
type executeBody struct {
	Name string            `json:"name"`
	Args any               `json:"args"`
	TS   string            `json:"ts,omitempty"`
	Meta map[string]string `json:"meta,omitempty"`
}

// Execute implements strand.Transport.
func (t *Transport) Execute(ctx context.Context, req *strand.Request) (*strand.Response, error) {
	body, err := wire.Codec{}.Marshal(executeBody{
		Name: req.Name,
		Args: req.Args,
		TS:   req.Cursor,
		Meta: req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	status, data, err := t.post(ctx, "sync/"+req.Kind.String(), body)
	if err != nil {
		t.setConnected(false)
		return nil, &strand.TransportError{Err: err}
	}

	t.setConnected(true)

	// 422 carries an application-level envelope; it must reach the
	// success/error discriminator rather than fail as a transport error.
	if (status >= 200 && status < 300) || status == http.StatusUnprocessableEntity {
		return strand.ParseResponse(data, t.strict)
	}

	logUnexpectedStatus(t.logger, req.Name, status)

	return nil, &strand.TransportError{StatusCode: status, Body: data}
}

// SnapshotCursor implements strand.Transport. The endpoint returns
// {"ts": "<opaque-string>"}; the cursor is passed back unchanged on
// subsequent consistent reads.
func (t *Transport) SnapshotCursor(ctx context.Context) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint("sync/ts"), nil)
	if err != nil {
		return "", err
	}
	t.decorate(httpReq)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		t.setConnected(false)
		return "", &strand.TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", &strand.TransportError{Err: err}
	}

	t.setConnected(true)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &strand.TransportError{StatusCode: resp.StatusCode, Body: data}
	}

	var payload struct {
		TS string `json:"ts"`
	}
	if err := wire.DecodeBytes(data, &payload); err != nil {
		return "", &strand.ValidationError{Reason: "timestamp response is malformed", Err: err}
	}
	if payload.TS == "" {
		return "", &strand.ValidationError{Reason: "timestamp response carries no cursor"}
	}

	return payload.TS, nil
}

// ConnectionStates implements strand.Transport. HTTP has no link state, so
// transitions are inferred from request outcomes: Connected after a
// successful exchange, Disconnected after a network-level failure.
func (t *Transport) ConnectionStates() <-chan strand.ConnectionState {
	return t.states
}

// Close implements strand.Transport.
func (t *Transport) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.closed {
		t.closed = true
		close(t.states)
	}

	return nil
}

func (t *Transport) post(ctx context.Context, p string, body []byte) (int, []byte, error) {
	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		t.endpoint(p),
		bytes.NewReader(body),
	)
	if err != nil {
		return 0, nil, err
	}

	t.decorate(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode, data, nil
}

func (t *Transport) endpoint(p string) string {
	ref := *t.base
	ref.Path = strings.TrimSuffix(ref.Path, "/") + "/" + p

	return ref.String()
}

func (t *Transport) decorate(req *http.Request) {
	for key, values := range t.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
}

// setConnected emits a connection state transition when the inferred state
// changes.
func (t *Transport) setConnected(connected bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.closed || t.connected == connected {
		return
	}

	t.connected = connected

	state := strand.Connected
	if !connected {
		state = strand.Disconnected
	}

	select {
	case t.states <- state:
	default:
	}
}
