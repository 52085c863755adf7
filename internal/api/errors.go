package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is. Every typed error below unwraps to one of them.
var (
	ErrNetwork    = errors.New("network error")
	ErrServer     = errors.New("server error")
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)

// NetworkError means the request never reached the server or no response
// came back.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("api: %s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() []error { return []error{ErrNetwork, e.Err} }

// ServerError is a 5xx or otherwise unexpected response.
type ServerError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *ServerError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("api: %s: server error %d: %s", e.Op, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("api: %s: server error %d: %v", e.Op, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("api: %s: server error %d", e.Op, e.StatusCode)
	}
}

func (e *ServerError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrServer, e.Err}
	}
	return []error{ErrServer}
}

// ValidationError is a 4xx rejection of a create or update body.
type ValidationError struct {
	Op         string
	StatusCode int
	Messages   []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("api: %s: rejected with status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("api: %s: %s", e.Op, strings.Join(e.Messages, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError means the operation targeted an id the server does not have.
type NotFoundError struct {
	Op      string
	ID      int
	Message string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("api: %s: job %d not found", e.Op, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// UserMessage picks the text shown to the user for err: whatever the server
// reported when it said something, otherwise fallback.
func UserMessage(err error, fallback string) string {
	var ve *ValidationError
	if errors.As(err, &ve) && len(ve.Messages) > 0 {
		return strings.Join(ve.Messages, "; ")
	}
	var nf *NotFoundError
	if errors.As(err, &nf) && nf.Message != "" {
		return nf.Message
	}
	var se *ServerError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}

type errorBody struct {
	Error json.RawMessage `json:"error"`
}

// serverMessages extracts the "error" field of an error body, which the API
// sends either as a string or as a list of strings.
func serverMessages(payload []byte) []string {
	var body errorBody
	if err := json.Unmarshal(payload, &body); err != nil || len(body.Error) == 0 {
		return nil
	}

	var single string
	if err := json.Unmarshal(body.Error, &single); err == nil {
		if single = strings.TrimSpace(single); single != "" {
			return []string{single}
		}
		return nil
	}

	var list []string
	if err := json.Unmarshal(body.Error, &list); err == nil {
		var out []string
		for _, m := range list {
			if m = strings.TrimSpace(m); m != "" {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}
