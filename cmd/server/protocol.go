package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nickyhof/DocQL/db"
	"github.com/nickyhof/DocQL/sql"
)

// Request is the JSON form of a line. A plain statement line is accepted too.
type Request struct {
	Query string `json:"query"`
}

// Response is written as one JSON line per request. Type is the result kind
// on success and the error kind on failure.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

type AuthResponse struct {
	Authenticated bool   `json:"authenticated"`
	Identity      string `json:"identity"`
	ExpiresIn     int    `json:"expires_in,omitempty"`
}

const (
	errorTypeUnsupported = "unsupported_operation"
	errorTypeMalformed   = "malformed_statement"
	errorTypeAdapter     = "adapter_failure"
	errorTypeAuth        = "auth"
	errorTypeRateLimited = "rate_limited"
	errorTypeInternal    = "internal"
)

// EncodeResponse serializes a Response to JSON with a newline.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeRequest parses a JSON request from a byte slice.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	err := json.Unmarshal(data, &req)
	return req, err
}

func resultResponse(result db.Result) Response {
	data, err := json.Marshal(result)
	if err != nil {
		return errorResponse(errorTypeInternal, err)
	}
	return Response{
		Success: true,
		Type:    result.Type().String(),
		Result:  data,
	}
}

func errorResponse(kind string, err error) Response {
	return Response{
		Success: false,
		Type:    kind,
		Error:   err.Error(),
	}
}

// executionError maps an engine error to its response and HTTP status.
func executionError(err error) (Response, int) {
	switch {
	case errors.Is(err, sql.ErrUnsupportedOperation):
		return errorResponse(errorTypeUnsupported, err), http.StatusBadRequest
	case errors.Is(err, sql.ErrMalformedStatement):
		return errorResponse(errorTypeMalformed, err), http.StatusBadRequest
	case errors.Is(err, db.ErrAdapterFailure):
		return errorResponse(errorTypeAdapter, err), http.StatusBadGateway
	default:
		return errorResponse(errorTypeInternal, err), http.StatusInternalServerError
	}
}
