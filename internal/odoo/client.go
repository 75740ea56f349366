package odoo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Client is the subset of the Odoo external API this service relies on.
// Implementations hold the base URL, database, service account and API key;
// every call is a single remote round trip without retries.
type Client interface {
	// Authenticate returns the uid of the service account, or 0 when Odoo
	// rejected the credentials.
	Authenticate(ctx context.Context) (int64, error)

	// SearchRead returns the records of model matching domain, limited to fields.
	// It never returns nil on success; no match is an empty slice.
	SearchRead(ctx context.Context, uid int64, model Model, domain Domain, fields Fields) ([]Record, error)

	// Write patches exactly one record and reports whether Odoo confirmed it.
	Write(ctx context.Context, uid int64, model Model, id int64, values Values) (bool, error)
}

// Protocol selects the wire format used to talk to Odoo.
type Protocol string

const (
	// ProtocolJSONRPC posts JSON-RPC 2.0 envelopes to /jsonrpc.
	ProtocolJSONRPC Protocol = "jsonrpc"
	// ProtocolXMLRPC uses the /xmlrpc/2/common and /xmlrpc/2/object endpoints.
	ProtocolXMLRPC Protocol = "xmlrpc"
)

// credentials are the connection parameters shared by both transports.
type credentials struct {
	url      string
	db       string
	username string
	apiKey   string
}

// settings collects what the functional options configure.
type settings struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*settings)

// WithHTTPClient sets the *http.Client used for upstream requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *settings) {
		s.httpClient = httpClient
	}
}

// WithLogger sets the zap logger. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		httpClient: http.DefaultClient,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.httpClient == nil {
		s.httpClient = http.DefaultClient
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

func newCredentials(rawURL, db, username, apiKey string) (credentials, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return credentials{}, fmt.Errorf("failed to parse Odoo URL: %w", err)
	}
	if parsedURL.Scheme != "https" && parsedURL.Scheme != "http" {
		return credentials{}, fmt.Errorf("invalid Odoo URL scheme: %q, must be http or https", parsedURL.Scheme)
	}
	return credentials{
		url:      strings.TrimRight(rawURL, "/"),
		db:       db,
		username: username,
		apiKey:   apiKey,
	}, nil
}

// New builds a Client for the given protocol. An empty protocol means JSON-RPC.
func New(protocol Protocol, rawURL, db, username, apiKey string, opts ...Option) (Client, error) {
	switch protocol {
	case "", ProtocolJSONRPC:
		return NewJSONRPC(rawURL, db, username, apiKey, opts...)
	case ProtocolXMLRPC:
		return NewXMLRPC(rawURL, db, username, apiKey, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, protocol)
	}
}

// executeKwArgs builds the positional arguments of object.execute_kw:
// (db, uid, password, model, method, args, kwargs).
func executeKwArgs(c credentials, uid int64, model Model, method string, args []interface{}, kwargs map[string]interface{}) []interface{} {
	if kwargs == nil {
		// execute_kw always expects a kwargs dictionary, even if empty.
		kwargs = map[string]interface{}{}
	}
	return []interface{}{c.db, uid, c.apiKey, string(model), method, args, kwargs}
}

func searchReadArgs(domain Domain, fields Fields) ([]interface{}, map[string]interface{}) {
	return []interface{}{domain.ToRPC()}, map[string]interface{}{"fields": fields.ToRPC()}
}

func writeArgs(id int64, values Values) []interface{} {
	return []interface{}{[]int64{id}, values.ToRPC()}
}
