package llm

import "errors"

// Common LLM client errors.
var (
	// ErrEmptyResponse indicates the LLM returned an empty response.
	ErrEmptyResponse = errors.New("the LLM returned an empty response")

	// ErrInvalidModel indicates an invalid model was specified.
	ErrInvalidModel = errors.New("invalid model specified")
)

// RateLimitError represents a rate limit error with optional custom message.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	if e.Message == "" {
		return "rate limit exceeded, try again later"
	}
	return e.Message
}

// Is implements errors.Is support so wrapped rate limit errors still match.
func (e *RateLimitError) Is(target error) bool {
	_, ok := target.(*RateLimitError)
	return ok
}

// NewRateLimitError creates a new rate limit error with optional custom message.
func NewRateLimitError(message ...string) *RateLimitError {
	err := &RateLimitError{}
	if len(message) > 0 {
		err.Message = message[0]
	}
	return err
}

// EmptyResponseError represents an empty response error.
type EmptyResponseError struct {
	Message string
}

func (e *EmptyResponseError) Error() string {
	return e.Message
}

// Is implements errors.Is support for EmptyResponseError.
func (e *EmptyResponseError) Is(target error) bool {
	_, ok := target.(*EmptyResponseError)
	return ok
}

// NewEmptyResponseError creates a new empty response error.
func NewEmptyResponseError(message string) *EmptyResponseError {
	return &EmptyResponseError{Message: message}
}
