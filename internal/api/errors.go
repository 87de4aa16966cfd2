// ABOUTME: Typed HTTP error and the ordered error-message extraction rules
// ABOUTME: Normalizes the backend's variable error payload shapes into one message

package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GenericErrorMessage is the fallback when no message can be extracted
// from an error payload.
const GenericErrorMessage = "request failed"

// Error is a non-2xx response from the remote API.
type Error struct {
	Status    int
	Message   string
	RequestID string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// detailItem is one entry of a validation-error array.
type detailItem struct {
	Msg     string `json:"msg"`
	Message string `json:"message"`
}

// errorPayload covers the shapes the backend is known to produce: a detail
// string, a detail array of validation items, or a message string.
type errorPayload struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

// ExtractErrorMessage applies the ordered extraction rules to an error
// response body: detail string, detail array joined, message string, raw
// string body, generic fallback. It never fails.
func ExtractErrorMessage(body []byte) string {
	if len(body) == 0 {
		return GenericErrorMessage
	}

	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := messageFromDetail(payload.Detail); msg != "" {
			return msg
		}
		if payload.Message != "" {
			return payload.Message
		}
	}

	// A bare JSON string body ("...") or raw text
	var s string
	if err := json.Unmarshal(body, &s); err == nil && s != "" {
		return s
	}
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" && !strings.HasPrefix(trimmed, "{") {
		return trimmed
	}
	return GenericErrorMessage
}

// messageFromDetail handles the two detail shapes: string and array of items.
func messageFromDetail(detail json.RawMessage) string {
	if len(detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(detail, &s); err == nil {
		return s
	}

	var items []detailItem
	if err := json.Unmarshal(detail, &items); err == nil && len(items) > 0 {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			switch {
			case item.Msg != "":
				parts = append(parts, item.Msg)
			case item.Message != "":
				parts = append(parts, item.Message)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
	}
	return ""
}
