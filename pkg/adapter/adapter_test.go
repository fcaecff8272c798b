package adapter

import (
	"context"
	"errors"
	"testing"
)

func TestNew_UnknownProvider(t *testing.T) {
	if _, err := New(Config{Provider: "watson"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNew_RequiresKeys(t *testing.T) {
	for _, provider := range []string{"openai", "anthropic", "google"} {
		if _, err := New(Config{Provider: provider}); err == nil {
			t.Errorf("%s: expected error without API key", provider)
		}
	}
}

func TestMock_ServesQueueInOrder(t *testing.T) {
	m := NewMock().EnqueueText("first").EnqueueText("second")

	resp, err := m.Chat(context.Background(), &ChatRequest{Model: "mock-1"})
	if err != nil || resp.Content != "first" {
		t.Fatalf("Chat = %v/%v, want first", resp, err)
	}
	resp, err = m.Chat(context.Background(), &ChatRequest{Model: "mock-1"})
	if err != nil || resp.Content != "second" {
		t.Fatalf("Chat = %v/%v, want second", resp, err)
	}
	if _, err := m.Chat(context.Background(), &ChatRequest{}); err == nil {
		t.Error("exhausted queue should error")
	}
	if len(m.Requests) != 3 {
		t.Errorf("recorded %d requests, want 3", len(m.Requests))
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.DeadlineExceeded, true},
		{context.Canceled, false},
		{&CallError{Status: 429}, true},
		{&CallError{Status: 503}, true},
		{&CallError{Status: 400}, false},
		{&CallError{Temporary: true}, true},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
