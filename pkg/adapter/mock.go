package adapter

import (
	"context"
	"fmt"
)

// Mock returns scripted responses for local runs and tests, recording every
// request it sees.
type Mock struct {
	Queue    []*ChatResponse
	Err      error
	Requests []*ChatRequest
}

// NewMock creates an empty mock adapter.
func NewMock() *Mock {
	return &Mock{}
}

// Enqueue appends a scripted reply. Replies are served in order.
func (a *Mock) Enqueue(resp *ChatResponse) *Mock {
	a.Queue = append(a.Queue, resp)
	return a
}

// EnqueueText appends a plain text reply.
func (a *Mock) EnqueueText(text string) *Mock {
	return a.Enqueue(&ChatResponse{Content: text})
}

// Name returns the adapter identifier.
func (a *Mock) Name() string {
	return "mock"
}

// Models returns the list of supported mock models.
func (a *Mock) Models() []string {
	return []string{"mock-1"}
}

// Chat records the request and pops the next scripted reply.
func (a *Mock) Chat(_ context.Context, req *ChatRequest) (*ChatResponse, error) {
	a.Requests = append(a.Requests, req)
	if a.Err != nil {
		return nil, a.Err
	}
	if len(a.Queue) == 0 {
		return nil, fmt.Errorf("mock adapter: no scripted response left")
	}
	resp := a.Queue[0]
	a.Queue = a.Queue[1:]
	return resp, nil
}
