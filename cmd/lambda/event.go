package main

import (
	"context"
	"encoding/base64"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/georgivlv/passenger-portal/internal/handler"
)

// serveEvent converts an API Gateway proxy event into a handler.Request and the
// handler's answer back into a proxy response.
func serveEvent(ctx context.Context, h *handler.Handler, logger *zap.Logger, event events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			logger.Warn("Failed to decode base64 request body", zap.Error(err))
			// An undecodable body is handed on as empty and rejected as malformed.
			decoded = nil
		}
		body = decoded
	}

	headers := make(map[string]string, len(event.Headers)+len(event.MultiValueHeaders))
	for name, values := range event.MultiValueHeaders {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}
	for name, value := range event.Headers {
		headers[name] = value
	}

	resp := h.Handle(ctx, handler.Request{
		Method:    event.HTTPMethod,
		Headers:   headers,
		Body:      body,
		RequestID: event.RequestContext.RequestID,
	})

	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       string(resp.Body),
	}
}
