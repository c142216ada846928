package ai

import "errors"

var (
	// ErrMalformedResponse indicates model output could not be decoded as JSON.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrEmptyResponse indicates the model returned no choices.
	ErrEmptyResponse = errors.New("empty model response")
)
