package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindRemoteAPI
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindRemoteAPI:
		return "remote_api"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// TransportError means the remote never produced a response: dial, dns,
// timeout or a broken body. Callers may retry.
type TransportError struct {
	Message string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: timed out: %v", e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func newTransportError(msg string, err error) *TransportError {
	return &TransportError{
		Message: msg,
		Timeout: isTimeout(err),
		Err:     err,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// RemoteAPIError is a response from the inference api that carries a failure.
type RemoteAPIError struct {
	StatusCode int
	Message    string
	// EstimatedTime is set by the api while the model is loading, in seconds.
	EstimatedTime float64
	Body          []byte
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("inference api returned status %d: %s", e.StatusCode, e.Message)
}

type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

func KindOf(err error) Kind {
	var transportErr *TransportError
	var remoteErr *RemoteAPIError
	var inputErr *InvalidInputError

	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &inputErr):
		return KindInvalidInput
	case errors.As(err, &remoteErr):
		return KindRemoteAPI
	case errors.As(err, &transportErr):
		return KindTransport
	default:
		return KindUnknown
	}
}

func IsTimeout(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr) && transportErr.Timeout
}

type apiError struct {
	Error         json.RawMessage `json:"error"`
	EstimatedTime float64         `json:"estimated_time"`
}

// parseAPIError decodes {"error": ...}. The field is either a string or a list
// of strings depending on the failure.
func parseAPIError(data []byte) (msg string, estimated float64, ok bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", 0, false
	}

	var apiErr apiError
	if err := json.Unmarshal(trimmed, &apiErr); err != nil || len(apiErr.Error) == 0 || string(apiErr.Error) == "null" {
		return "", 0, false
	}

	var single string
	if err := json.Unmarshal(apiErr.Error, &single); err == nil {
		return single, apiErr.EstimatedTime, true
	}

	var list []string
	if err := json.Unmarshal(apiErr.Error, &list); err == nil {
		return strings.Join(list, "; "), apiErr.EstimatedTime, true
	}

	return strings.TrimSpace(string(apiErr.Error)), apiErr.EstimatedTime, true
}

func newRemoteAPIError(status int, data []byte) *RemoteAPIError {
	msg, estimated, ok := parseAPIError(data)
	if !ok {
		msg = strings.TrimSpace(string(data))
	}

	if msg == "" {
		msg = http.StatusText(status)
	}

	if msg == "" {
		msg = "unknown error"
	}

	return &RemoteAPIError{
		StatusCode:    status,
		Message:       msg,
		EstimatedTime: estimated,
		Body:          data,
	}
}

func embeddedRemoteError(status int, data []byte) *RemoteAPIError {
	msg, estimated, ok := parseAPIError(data)
	if !ok {
		return nil
	}

	return &RemoteAPIError{
		StatusCode:    status,
		Message:       msg,
		EstimatedTime: estimated,
		Body:          data,
	}
}
