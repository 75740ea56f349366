// Package handler implements the passenger portal endpoint: a single POST
// route that loads or saves the passengers of one booking token in Odoo.
package handler

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgivlv/passenger-portal/internal/config"
	"github.com/georgivlv/passenger-portal/internal/odoo"
)

// Actions accepted in the request body.
const (
	ActionLoad = "load"
	ActionSave = "save"
)

// Request is a transport-neutral HTTP request.
type Request struct {
	Method    string
	Headers   map[string]string
	Body      []byte
	RequestID string
}

// Response is a transport-neutral HTTP response.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// ClientFactory builds the upstream client for one request from validated
// configuration.
type ClientFactory func(cfg config.OdooConfig, logger *zap.Logger) (odoo.Client, error)

// NewOdooClient is the default ClientFactory.
func NewOdooClient(cfg config.OdooConfig, logger *zap.Logger) (odoo.Client, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.SkipTLSVerify {
		logger.Warn("TLS certificate verification is disabled for Odoo",
			zap.String("url", cfg.URL),
			zap.String("op", "NewOdooClient"),
		)
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		httpClient.Transport = transport
	}

	return odoo.New(
		odoo.Protocol(cfg.Protocol),
		cfg.URL, cfg.DB, cfg.Username, cfg.APIKey,
		odoo.WithHTTPClient(httpClient),
		odoo.WithLogger(logger),
	)
}

// Handler serves load and save requests. It holds no per-request state and is
// safe for concurrent use.
type Handler struct {
	cfg       config.Config
	logger    *zap.Logger
	validate  *validator.Validate
	newClient ClientFactory
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithClientFactory replaces how upstream clients are built, mainly for tests.
func WithClientFactory(f ClientFactory) Option {
	return func(h *Handler) {
		h.newClient = f
	}
}

// New creates a Handler. cfg is copied; it is not re-read per request.
func New(cfg config.Config, opts ...Option) *Handler {
	validate := validator.New()
	// notblank rejects values that are empty once surrounding whitespace is ignored.
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	h := &Handler{
		cfg:       cfg,
		logger:    zap.NewNop(),
		validate:  validate,
		newClient: NewOdooClient,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	return h
}

// requestBody is the JSON payload of a POST.
type requestBody struct {
	Action     string                   `json:"action"`
	Token      string                   `json:"token" validate:"notblank"`
	Passengers []map[string]interface{} `json:"passengers"`
}

// Handle runs one request through the state machine and always returns a
// complete response with CORS headers set.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	logger := h.logger.With(
		zap.String("request_id", req.RequestID),
		zap.String("method", req.Method),
	)

	resp := h.dispatch(ctx, req, logger)
	h.applyCORS(resp.Headers, header(req.Headers, "Origin"))

	logger.Info("Request completed", zap.Int("status", resp.StatusCode))
	return resp
}

func (h *Handler) dispatch(ctx context.Context, req Request, logger *zap.Logger) Response {
	switch strings.ToUpper(req.Method) {
	case http.MethodOptions:
		return Response{StatusCode: http.StatusNoContent, Headers: map[string]string{}}
	case http.MethodPost:
	default:
		return errorResponse(http.StatusMethodNotAllowed, "Method not allowed", "")
	}

	var body requestBody
	if err := json.Unmarshal(req.Body, &body); err != nil {
		logger.Info("Rejected malformed request body", zap.Error(err))
		return errorResponse(http.StatusBadRequest, "Invalid JSON body", "")
	}
	body.Action = strings.TrimSpace(body.Action)
	if err := h.validate.Struct(body); err != nil {
		return errorResponse(http.StatusBadRequest, "Missing token", "")
	}

	logger = logger.With(zap.String("action", body.Action), zap.Int("token_length", len(body.Token)))

	if err := h.cfg.Odoo.Validate(); err != nil {
		logger.Error("Odoo configuration is incomplete", zap.Error(err))
		return errorResponse(http.StatusInternalServerError, "Server configuration error", err.Error())
	}
	client, err := h.newClient(h.cfg.Odoo, logger)
	if err != nil {
		logger.Error("Failed to create Odoo client", zap.Error(err))
		return errorResponse(http.StatusInternalServerError, "Server configuration error", err.Error())
	}

	uid, err := client.Authenticate(ctx)
	if err != nil {
		logger.Error("Odoo authentication failed", zap.Error(err))
		return internalError(err)
	}
	if uid == 0 {
		return errorResponse(http.StatusUnauthorized, "Authentication with Odoo failed", "")
	}

	s := session{
		client:         client,
		uid:            uid,
		token:          body.Token,
		passengerModel: odoo.Model(h.cfg.Odoo.PassengerModel),
		departureModel: odoo.Model(h.cfg.Odoo.DepartureModel),
		logger:         logger,
	}

	switch body.Action {
	case ActionLoad:
		return s.load(ctx)
	case ActionSave:
		return s.save(ctx, body.Passengers)
	default:
		return errorResponse(http.StatusBadRequest, "Unknown action", "")
	}
}

// session carries what load and save share after authentication.
type session struct {
	client         odoo.Client
	uid            int64
	token          string
	passengerModel odoo.Model
	departureModel odoo.Model
	logger         *zap.Logger
}

// header looks a header up case-insensitively; API Gateway lower-cases names.
func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
