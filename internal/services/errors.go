package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/spotx/internal/shared"
)

const maxErrorBody = 4 << 10

// GatewayError is a non-success response from the playback service. It matches
// [shared.ErrGateway] with errors.Is, and [shared.ErrNoDevice] when the service reports no
// active device.
type GatewayError struct {
	Status  int
	Body    string
	Message string
	Reason  string
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("spotify API error: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("spotify API error: status %d", e.Status)
}

func (e *GatewayError) Unwrap() error {
	return shared.ErrGateway
}

func (e *GatewayError) Is(target error) bool {
	return target == shared.ErrNoDevice && e.Reason == "NO_ACTIVE_DEVICE"
}

// RateLimited reports whether the service throttled the request.
func (e *GatewayError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

// newGatewayError reads a bounded error body and extracts the service's error object when
// present.
func newGatewayError(resp *http.Response) *GatewayError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	ge := &GatewayError{Status: resp.StatusCode, Body: string(body)}

	var payload struct {
		Error struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
			Reason  string `json:"reason"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		ge.Message = payload.Error.Message
		ge.Reason = payload.Error.Reason
	}
	return ge
}
