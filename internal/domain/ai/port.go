package ai

import (
	"context"
	"encoding/json"
)

// Request is a single structured-output generation call.
type Request struct {
	Prompt      string
	SchemaName  string
	Schema      json.Marshaler
	Temperature float32
}

type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}
