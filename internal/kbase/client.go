// Package kbase implements the narrative collaborator interfaces against the
// platform's HTTP services: auth, workspace, groups and the method store.
package kbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/katistix/narratives/internal/async"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrTooLarge     = errors.New("response too large")
)

// DefaultMaxResponseBytes bounds a single response body. Workspace listings
// for busy accounts run to several megabytes.
const DefaultMaxResponseBytes = 32 << 20

// Options configures a Client.
type Options struct {
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger

	// MaxResponseBytes defaults to DefaultMaxResponseBytes.
	MaxResponseBytes int64
}

// Client carries the token, HTTP client and logger shared by every service.
type Client struct {
	http    *http.Client
	token   string
	log     *zap.Logger
	maxBody int64
}

func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxBody := opts.MaxResponseBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxResponseBytes
	}
	return &Client{http: hc, token: opts.Token, log: log, maxBody: maxBody}
}

type rpcRequest struct {
	Version string `json:"version"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      string `json:"id"`
}

type rpcError struct {
	Name    string `json:"name"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// Call invokes a JSON-RPC 1.1 method and decodes the result array into result.
func (c *Client) Call(ctx context.Context, endpoint, method string, params []any, result any) error {
	id := uuid.NewString()
	body, err := json.Marshal(rpcRequest{Version: "1.1", Method: method, Params: params, ID: id})
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	raw, status, err := c.send(ctx, http.MethodPost, endpoint, id, method, body)
	if err != nil {
		return err
	}

	var resp rpcResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		if status >= 400 {
			return statusFailure(status, "")
		}
		return &async.Failure{Description: fmt.Sprintf("Invalid response from %s", method), Err: err}
	}
	if resp.Error != nil {
		f := &async.Failure{Description: resp.Error.Message, Err: statusErr(status)}
		if f.Description == "" {
			f.Description = resp.Error.Name
		}
		return f
	}
	if status >= 400 {
		return statusFailure(status, "")
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return &async.Failure{Description: fmt.Sprintf("Invalid response from %s", method), Err: err}
	}
	return nil
}

type restError struct {
	Error struct {
		HTTPCode int    `json:"httpcode"`
		Message  string `json:"message"`
		AppError string `json:"apperror"`
	} `json:"error"`
}

// Do performs a REST request. in, when not nil, is sent as a JSON body and the
// JSON response is decoded into out.
func (c *Client) Do(ctx context.Context, method, endpoint string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	id := uuid.NewString()
	raw, status, err := c.send(ctx, method, endpoint, id, method+" "+endpoint, body)
	if err != nil {
		return err
	}
	if status >= 400 {
		var re restError
		_ = json.Unmarshal(raw, &re)
		msg := re.Error.Message
		if msg == "" {
			msg = re.Error.AppError
		}
		return statusFailure(status, msg)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &async.Failure{Description: "Invalid response from " + hostOf(endpoint), Err: err}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, endpoint, id, label string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", id)
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", label), zap.String("request_id", id), zap.Error(err))
		return nil, 0, &async.Failure{Description: "Could not reach " + hostOf(endpoint), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, resp.StatusCode, &async.Failure{Description: "Connection to " + hostOf(endpoint) + " was interrupted", Err: err}
	}
	if int64(len(raw)) > c.maxBody {
		c.log.Warn("response too large",
			zap.String("method", label), zap.String("request_id", id), zap.Int64("limit", c.maxBody))
		return nil, resp.StatusCode, &async.Failure{Description: "Response from " + hostOf(endpoint) + " is too large", Err: ErrTooLarge}
	}

	fields := []zap.Field{
		zap.String("method", label),
		zap.String("request_id", id),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	}
	if resp.StatusCode >= 400 {
		c.log.Warn("request returned error status", fields...)
	} else {
		c.log.Debug("request completed", fields...)
	}
	return raw, resp.StatusCode, nil
}

func statusErr(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		if status >= 400 {
			return fmt.Errorf("http status %d", status)
		}
		return nil
	}
}

func statusFailure(status int, msg string) error {
	if msg == "" {
		switch status {
		case http.StatusUnauthorized, http.StatusForbidden:
			msg = "You are not authorized to perform this action"
		case http.StatusNotFound:
			msg = "The requested resource was not found"
		default:
			msg = fmt.Sprintf("Service responded with %d %s", status, http.StatusText(status))
		}
	}
	return &async.Failure{Description: msg, Err: statusErr(status)}
}

func hostOf(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	return u.Host
}
