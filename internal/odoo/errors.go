package odoo

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Common Odoo client errors.
var (
	// ErrTransport indicates the upstream could not be reached or answered with a
	// non-2xx HTTP status.
	ErrTransport = errors.New("odoo: transport failure")

	// ErrOdooRPC is returned when Odoo answered but reported an RPC-level error.
	ErrOdooRPC = errors.New("odoo: RPC call failed")

	// ErrInvalidResponse is returned when the Odoo RPC response is
	// malformed or not in the expected format.
	ErrInvalidResponse = errors.New("odoo: invalid RPC response")

	// ErrInvalidModel indicates that the model does not exist upstream.
	ErrInvalidModel = errors.New("odoo: invalid model")

	// ErrUnsupportedProtocol is returned by New for an unknown protocol name.
	ErrUnsupportedProtocol = errors.New("odoo: unsupported protocol")
)

// TransportError carries the HTTP status and body of a failed upstream exchange.
// StatusCode is 0 when no response was received at all.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface for TransportError.
func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: HTTP %d: %v: %s", ErrTransport, e.StatusCode, e.Err, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d: %s", ErrTransport, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s: %v", ErrTransport, e.Err)
	}
}

// Is makes errors.Is(err, ErrTransport) match any TransportError.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// Unwrap exposes the underlying network error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is the error payload Odoo returned inside a successful HTTP
// response: a JSON-RPC error envelope or an XML-RPC fault.
type ProtocolError struct {
	Code    int
	Message string
	// Data is the "data" member of the JSON-RPC error (exception name, debug
	// traceback, arguments). It is nil for XML-RPC faults.
	Data map[string]interface{}
	// Kind refines the error when the message identifies a known failure (ErrInvalidModel).
	Kind error
}

// Error implements the error interface for ProtocolError.
func (e *ProtocolError) Error() string {
	msg := e.Message
	if detail := e.detail(); detail != "" && detail != msg {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	return fmt.Sprintf("%s: code %d: %s", ErrOdooRPC, e.Code, msg)
}

// Is makes errors.Is match ErrOdooRPC and the refined Kind.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrOdooRPC || (e.Kind != nil && target == e.Kind)
}

func (e *ProtocolError) detail() string {
	if e.Data == nil {
		return ""
	}
	if m, ok := e.Data["message"].(string); ok {
		return m
	}
	return ""
}

// faultPattern matches both "Fault 1: 'msg'" and the "Fault(1): msg" form
// kolo/xmlrpc produces once a fault has passed through net/rpc as a string.
var faultPattern = regexp.MustCompile(`(?s)^Fault ?\(?(-?\d+)\)?: (.*)$`)

// parseFault turns the textual form of an XML-RPC fault into a ProtocolError.
// The code and message are recovered from the text when possible.
func parseFault(code int, text string) *ProtocolError {
	message := text
	if matches := faultPattern.FindStringSubmatch(text); len(matches) == 3 {
		if c, err := strconv.Atoi(matches[1]); err == nil {
			code = c
		}
		message = matches[2]
		if len(message) >= 2 && strings.HasPrefix(message, "'") && strings.HasSuffix(message, "'") {
			message = message[1 : len(message)-1]
		}
	}

	return &ProtocolError{Code: code, Message: message, Kind: classify(message)}
}

// classify recognises upstream messages that map onto a more specific sentinel.
func classify(message string) error {
	if strings.Contains(message, "The model does not exist") ||
		strings.Contains(message, "No model named") ||
		strings.Contains(message, "not found in registry") {
		return ErrInvalidModel
	}
	return nil
}
