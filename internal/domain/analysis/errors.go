package analysis

import "errors"

var (
	// ErrEmptyText is returned when a submission carries no ToS text.
	ErrEmptyText = errors.New("no text provided")
	// ErrMalformedResponse is returned when the model output is not a JSON object.
	ErrMalformedResponse = errors.New("failed to parse AI response")
)
