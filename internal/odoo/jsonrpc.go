package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"go.uber.org/zap"
)

// maxResponseBody bounds how much of an upstream response is read into memory.
const maxResponseBody = 16 << 20

// JSONRPCClient talks to Odoo through the JSON-RPC 2.0 endpoint at {url}/jsonrpc.
type JSONRPCClient struct {
	creds      credentials
	httpClient *http.Client
	logger     *zap.Logger
	nextID     atomic.Int64
}

var _ Client = (*JSONRPCClient)(nil)

// NewJSONRPC creates a JSONRPCClient. rawURL is the Odoo base URL without the
// /jsonrpc suffix.
func NewJSONRPC(rawURL, db, username, apiKey string, opts ...Option) (*JSONRPCClient, error) {
	creds, err := newCredentials(rawURL, db, username, apiKey)
	if err != nil {
		return nil, err
	}
	s := newSettings(opts)
	return &JSONRPCClient{
		creds:      creds,
		httpClient: s.httpClient,
		logger:     s.logger,
	}, nil
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string        `json:"service"`
	Method  string        `json:"method"`
	Args    []interface{} `json:"args"`
}

type rpcResponse struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

// call performs one JSON-RPC round trip and returns the raw "result" member.
func (c *JSONRPCClient) call(ctx context.Context, service, method string, args []interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON-RPC request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.creds.url+"/jsonrpc", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build JSON-RPC request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var envelope rpcResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if envelope.Error != nil {
		pe := &ProtocolError{
			Code:    envelope.Error.Code,
			Message: envelope.Error.Message,
			Data:    envelope.Error.Data,
		}
		pe.Kind = classify(pe.detail())
		return nil, pe
	}
	return envelope.Result, nil
}

// Authenticate implements Client.
func (c *JSONRPCClient) Authenticate(ctx context.Context) (int64, error) {
	c.logger.Debug("Authenticating with Odoo",
		zap.String("db", c.creds.db),
		zap.String("username", c.creds.username),
		zap.String("op", "Authenticate"),
	)

	raw, err := c.call(ctx, "common", "authenticate", []interface{}{c.creds.db, c.creds.username, c.creds.apiKey, map[string]interface{}{}})
	if err != nil {
		c.logger.Error("Odoo authentication call failed",
			zap.Error(err),
			zap.String("db", c.creds.db),
			zap.String("op", "Authenticate"),
		)
		return 0, err
	}

	uid, err := decodeUID(raw)
	if err != nil {
		return 0, err
	}
	if uid == 0 {
		c.logger.Warn("Odoo rejected the service account credentials",
			zap.String("db", c.creds.db),
			zap.String("username", c.creds.username),
			zap.String("op", "Authenticate"),
		)
		return 0, nil
	}

	c.logger.Info("Successfully authenticated with Odoo",
		zap.Int64("uid", uid),
		zap.String("db", c.creds.db),
		zap.String("op", "Authenticate"),
	)
	return uid, nil
}

// SearchRead implements Client.
func (c *JSONRPCClient) SearchRead(ctx context.Context, uid int64, model Model, domain Domain, fields Fields) ([]Record, error) {
	c.logger.Debug("Performing Odoo search_read",
		zap.String("model", string(model)),
		zap.Int("conditions", len(domain)),
		zap.Strings("fields", fields),
		zap.String("op", "SearchRead"),
	)

	args, kwargs := searchReadArgs(domain, fields)
	raw, err := c.call(ctx, "object", "execute_kw", executeKwArgs(c.creds, uid, model, "search_read", args, kwargs))
	if err != nil {
		c.logger.Error("Failed to execute Odoo search_read",
			zap.Error(err),
			zap.String("model", string(model)),
			zap.String("op", "SearchRead"),
		)
		return nil, fmt.Errorf("search_read on model '%s': %w", model, err)
	}

	records, err := decodeRecords(raw)
	if err != nil {
		return nil, fmt.Errorf("search_read on model '%s': %w", model, err)
	}

	c.logger.Info("Odoo search_read completed",
		zap.String("model", string(model)),
		zap.Int("records_count", len(records)),
		zap.String("op", "SearchRead"),
	)
	return records, nil
}

// Write implements Client.
func (c *JSONRPCClient) Write(ctx context.Context, uid int64, model Model, id int64, values Values) (bool, error) {
	c.logger.Debug("Performing Odoo write",
		zap.String("model", string(model)),
		zap.Int64("id", id),
		zap.Strings("fields", valueKeys(values)),
		zap.String("op", "Write"),
	)

	raw, err := c.call(ctx, "object", "execute_kw", executeKwArgs(c.creds, uid, model, "write", writeArgs(id, values), nil))
	if err != nil {
		c.logger.Error("Failed to execute Odoo write",
			zap.Error(err),
			zap.String("model", string(model)),
			zap.Int64("id", id),
			zap.String("op", "Write"),
		)
		return false, fmt.Errorf("write on model '%s' id %d: %w", model, id, err)
	}

	var success bool
	if err := json.Unmarshal(raw, &success); err != nil {
		// Anything other than a JSON boolean is not a confirmation.
		success = false
	}

	c.logger.Info("Odoo write completed",
		zap.String("model", string(model)),
		zap.Int64("id", id),
		zap.Bool("success", success),
		zap.String("op", "Write"),
	)
	return success, nil
}

// decodeUID interprets the authenticate result: an integer uid, or false/null on rejection.
func decodeUID(raw json.RawMessage) (int64, error) {
	if isFalsy(raw) {
		return 0, nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if b, ok := v.(bool); ok && !b {
		return 0, nil
	}
	uid, ok := AsInt64(v)
	if !ok {
		return 0, fmt.Errorf("%w: unexpected authenticate result %s", ErrInvalidResponse, string(raw))
	}
	return uid, nil
}

// decodeRecords treats a falsy result the same as an empty list.
func decodeRecords(raw json.RawMessage) ([]Record, error) {
	if isFalsy(raw) {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func isFalsy(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 ||
		bytes.Equal(trimmed, []byte("null")) ||
		bytes.Equal(trimmed, []byte("false")) ||
		bytes.Equal(trimmed, []byte("[]"))
}

func valueKeys(values Values) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	return keys
}
