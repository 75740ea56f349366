package odoo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/rpc"
	"regexp"
	"strconv"
	"time"

	"github.com/kolo/xmlrpc"
	"go.uber.org/zap"
)

// XMLRPCClient talks to Odoo through the legacy XML-RPC endpoints
// {url}/xmlrpc/2/common and {url}/xmlrpc/2/object.
type XMLRPCClient struct {
	creds     credentials
	transport http.RoundTripper
	timeout   time.Duration
	logger    *zap.Logger
}

var _ Client = (*XMLRPCClient)(nil)

// NewXMLRPC creates an XMLRPCClient.
func NewXMLRPC(rawURL, db, username, apiKey string, opts ...Option) (*XMLRPCClient, error) {
	creds, err := newCredentials(rawURL, db, username, apiKey)
	if err != nil {
		return nil, err
	}
	s := newSettings(opts)

	// kolo/xmlrpc builds its own http.Client around a RoundTripper, so the
	// transport and timeout of the configured client are carried over apart.
	transport := s.httpClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &XMLRPCClient{
		creds:     creds,
		transport: transport,
		timeout:   s.httpClient.Timeout,
		logger:    s.logger,
	}, nil
}

// call runs one XML-RPC method on the given endpoint. kolo/xmlrpc has no
// context support, so the blocking call runs in a goroutine and the caller
// returns early when ctx is done or the client timeout elapses.
func (c *XMLRPCClient) call(ctx context.Context, endpoint, method string, args []interface{}, reply interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	select {
	case <-ctx.Done():
		return &TransportError{Err: ctx.Err()}
	default:
	}

	capture := &statusCapture{next: c.transport}
	rpcClient, err := xmlrpc.NewClient(fmt.Sprintf("%s/xmlrpc/2/%s", c.creds.url, endpoint), capture)
	if err != nil {
		return &TransportError{Err: err}
	}

	callChan := make(chan error, 1)
	go func() {
		defer rpcClient.Close()
		callChan <- rpcClient.Call(method, args, reply)
	}()

	select {
	case <-ctx.Done():
		return &TransportError{Err: ctx.Err()}
	case err := <-callChan:
		return translateXMLRPCError(err, capture.body)
	}
}

// statusCapture keeps the body of a non-2xx response, which kolo/xmlrpc
// discards after reporting the status code.
type statusCapture struct {
	next http.RoundTripper
	body string
}

func (s *statusCapture) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := s.next.RoundTrip(req)
	if err != nil || (resp.StatusCode >= 200 && resp.StatusCode <= 299) {
		return resp, err
	}

	b, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	_ = resp.Body.Close()
	if readErr == nil {
		s.body = string(b)
	}
	resp.Body = io.NopCloser(bytes.NewReader(b))
	return resp, nil
}

var badStatusPattern = regexp.MustCompile(`bad status code - (\d+)`)

// translateXMLRPCError maps kolo/xmlrpc errors onto TransportError / ProtocolError.
// body is the captured response body of a non-2xx reply, if any.
func translateXMLRPCError(err error, body string) error {
	if err == nil {
		return nil
	}

	var fault xmlrpc.FaultError
	if errors.As(err, &fault) {
		return parseFault(fault.Code, fault.String)
	}

	// Faults returned by the server reach us as rpc.ServerError text.
	var serverErr rpc.ServerError
	if errors.As(err, &serverErr) && faultPattern.MatchString(string(serverErr)) {
		return parseFault(0, string(serverErr))
	}

	if matches := badStatusPattern.FindStringSubmatch(err.Error()); len(matches) == 2 {
		status, _ := strconv.Atoi(matches[1])
		return &TransportError{StatusCode: status, Body: body, Err: err}
	}
	return &TransportError{Err: err}
}

// Authenticate implements Client.
func (c *XMLRPCClient) Authenticate(ctx context.Context) (int64, error) {
	c.logger.Debug("Authenticating with Odoo over XML-RPC",
		zap.String("db", c.creds.db),
		zap.String("username", c.creds.username),
		zap.String("op", "Authenticate"),
	)

	var reply interface{}
	err := c.call(ctx, "common", "authenticate", []interface{}{c.creds.db, c.creds.username, c.creds.apiKey, map[string]interface{}{}}, &reply)
	if err != nil {
		c.logger.Error("Odoo authentication call failed",
			zap.Error(err),
			zap.String("db", c.creds.db),
			zap.String("op", "Authenticate"),
		)
		return 0, err
	}

	if accepted, isBool := reply.(bool); reply == nil || (isBool && !accepted) {
		c.logger.Warn("Odoo rejected the service account credentials",
			zap.String("db", c.creds.db),
			zap.String("username", c.creds.username),
			zap.String("op", "Authenticate"),
		)
		return 0, nil
	}
	uid, ok := AsInt64(reply)
	if !ok {
		return 0, fmt.Errorf("%w: unexpected authenticate result %v", ErrInvalidResponse, reply)
	}

	c.logger.Info("Successfully authenticated with Odoo",
		zap.Int64("uid", uid),
		zap.String("db", c.creds.db),
		zap.String("op", "Authenticate"),
	)
	return uid, nil
}

// SearchRead implements Client.
func (c *XMLRPCClient) SearchRead(ctx context.Context, uid int64, model Model, domain Domain, fields Fields) ([]Record, error) {
	c.logger.Debug("Performing Odoo search_read over XML-RPC",
		zap.String("model", string(model)),
		zap.Int("conditions", len(domain)),
		zap.Strings("fields", fields),
		zap.String("op", "SearchRead"),
	)

	args, kwargs := searchReadArgs(domain, fields)
	var reply interface{}
	if err := c.call(ctx, "object", "execute_kw", executeKwArgs(c.creds, uid, model, "search_read", args, kwargs), &reply); err != nil {
		c.logger.Error("Failed to execute Odoo search_read",
			zap.Error(err),
			zap.String("model", string(model)),
			zap.String("op", "SearchRead"),
		)
		return nil, fmt.Errorf("search_read on model '%s': %w", model, err)
	}

	records := []Record{}
	switch rows := reply.(type) {
	case nil, bool:
	case []interface{}:
		for _, row := range rows {
			m, ok := row.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("search_read on model '%s': %w: row of type %T", model, ErrInvalidResponse, row)
			}
			records = append(records, Record(m))
		}
	default:
		return nil, fmt.Errorf("search_read on model '%s': %w: result of type %T", model, ErrInvalidResponse, reply)
	}

	c.logger.Info("Odoo search_read completed",
		zap.String("model", string(model)),
		zap.Int("records_count", len(records)),
		zap.String("op", "SearchRead"),
	)
	return records, nil
}

// Write implements Client.
func (c *XMLRPCClient) Write(ctx context.Context, uid int64, model Model, id int64, values Values) (bool, error) {
	c.logger.Debug("Performing Odoo write over XML-RPC",
		zap.String("model", string(model)),
		zap.Int64("id", id),
		zap.Strings("fields", valueKeys(values)),
		zap.String("op", "Write"),
	)

	var reply interface{}
	if err := c.call(ctx, "object", "execute_kw", executeKwArgs(c.creds, uid, model, "write", writeArgs(id, values), nil), &reply); err != nil {
		c.logger.Error("Failed to execute Odoo write",
			zap.Error(err),
			zap.String("model", string(model)),
			zap.Int64("id", id),
			zap.String("op", "Write"),
		)
		return false, fmt.Errorf("write on model '%s' id %d: %w", model, id, err)
	}

	success, _ := reply.(bool)
	c.logger.Info("Odoo write completed",
		zap.String("model", string(model)),
		zap.Int64("id", id),
		zap.Bool("success", success),
		zap.String("op", "Write"),
	)
	return success, nil
}
