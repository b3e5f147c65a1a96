// Package provider defines the port for the model provider API.
package provider

import "context"

// Request is one model invocation.
type Request struct {
	Model       string
	System      string
	Input       string
	MaxTokens   int
	Temperature float64
}

// Usage is the provider-reported token consumption for one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is the settled outcome of a request.
type Response struct {
	Text  string
	Usage Usage
}

// StreamCallbacks receive incremental stream data. OnText is invoked once per
// text chunk in arrival order; OnUsage whenever usage information becomes
// available, including at stream end. Either callback may be nil.
type StreamCallbacks struct {
	OnText  func(text string)
	OnUsage func(u Usage)
}

// Provider is the port interface for the LLM API.
type Provider interface {
	// Complete performs a batch request and returns the full response.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Stream performs a streaming request, delivering chunks through cb
	// before returning the final response. Callbacks stop when ctx is
	// canceled.
	Stream(ctx context.Context, req Request, cb StreamCallbacks) (*Response, error)
}
