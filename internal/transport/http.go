// Package transport implements admin.Conn over HTTP.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukerupert/certadmin/internal/admin"
	"github.com/dukerupert/certadmin/internal/nvpair"
	"github.com/google/uuid"
)

// Query parameters carried on every request.
const (
	ParamOpType    = "OP_TYPE"
	ParamScope     = "OP_SCOPE"
	ParamRequestID = "RS_ID"

	OpRead   = "OP_READ"
	OpModify = "OP_MODIFY"

	HeaderRequestID = "X-Request-Id"
)

const maxBody = 1 << 20

// Options configure an HTTP connection.
type Options struct {
	User     string
	Password string
	// Timeout bounds a single round trip. Zero means 30 seconds.
	Timeout time.Duration
	// Client overrides the http.Client; Timeout is ignored when set.
	Client *http.Client
}

// HTTPConn is an authenticated admin connection to one server.
type HTTPConn struct {
	base   *url.URL
	user   string
	pass   string
	client *http.Client
}

// NewHTTPConn validates baseURL and returns a connection. No request is made.
func NewHTTPConn(baseURL string, opts Options) (*HTTPConn, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server url %q: missing host", baseURL)
	}

	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &HTTPConn{
		base:   u,
		user:   opts.User,
		pass:   opts.Password,
		client: client,
	}, nil
}

// Host returns the server host name without port.
func (c *HTTPConn) Host() string {
	return c.base.Hostname()
}

func (c *HTTPConn) Read(ctx context.Context, dest admin.Destination, scope admin.Scope, rid admin.RequestID, names *nvpair.Set) (*nvpair.Set, error) {
	body, err := c.roundTrip(ctx, OpRead, dest, scope, rid, names)
	if err != nil {
		return nil, err
	}
	set, err := nvpair.Decode(strings.TrimSpace(body))
	if err != nil {
		return nil, admin.TransportError("undecodable response", err)
	}
	return set, nil
}

func (c *HTTPConn) Modify(ctx context.Context, dest admin.Destination, scope admin.Scope, rid admin.RequestID, updates *nvpair.Set) error {
	_, err := c.roundTrip(ctx, OpModify, dest, scope, rid, updates)
	return err
}

func (c *HTTPConn) endpoint(op string, dest admin.Destination, scope admin.Scope, rid admin.RequestID) string {
	u := c.base.JoinPath(string(dest))
	q := url.Values{}
	q.Set(ParamOpType, op)
	q.Set(ParamScope, string(scope))
	q.Set(ParamRequestID, string(rid))
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *HTTPConn) roundTrip(ctx context.Context, op string, dest admin.Destination, scope admin.Scope, rid admin.RequestID, set *nvpair.Set) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint(op, dest, scope, rid), strings.NewReader(nvpair.Encode(set)))
	if err != nil {
		return "", admin.ProtocolError(fmt.Sprintf("building request: %v", err))
	}
	req.Header.Set("Content-Type", nvpair.ContentType)
	req.Header.Set(HeaderRequestID, uuid.NewString())
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", admin.TransportError(transportMessage(err), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return "", admin.TransportError("reading response", err)
	}
	if len(data) > maxBody {
		return "", admin.TransportError(fmt.Sprintf("response exceeds %d bytes", maxBody), nil)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return string(data), nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", admin.ProtocolError(statusMessage(resp, data))
	default:
		return "", admin.TransportError(statusMessage(resp, data), nil)
	}
}

func statusMessage(resp *http.Response, body []byte) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return resp.Status
	}
	return msg
}

func transportMessage(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return "request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "request canceled"
	}
	return err.Error()
}
