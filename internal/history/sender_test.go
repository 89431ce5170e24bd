package history

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSender_Send(t *testing.T) {
	t.Parallel()
	var received *Record
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %q", ct)
		}
		var rec Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		received = &rec
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSender(5 * time.Second)
	rec := record("alice", "hello")

	if err := sender.Send(context.Background(), server.URL, rec, SendOptions{}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if received == nil || received.Owner != "alice" || received.Text != "hello" {
		t.Errorf("sink received wrong record: %+v", received)
	}
}

func TestSender_Signature(t *testing.T) {
	t.Parallel()
	const key = "test-signing-key"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mac := hmac.New(sha256.New, []byte(key))
		mac.Write(body)
		want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
		if got := r.Header.Get("X-Signature-256"); got != want {
			t.Errorf("signature mismatch: got %q, want %q", got, want)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSender(5 * time.Second)
	err := sender.Send(context.Background(), server.URL, record("alice", "signed"), SendOptions{SigningKey: key})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
}

func TestSender_NoSignatureWithoutKey(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Signature-256") != "" {
			t.Error("expected no signature header")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSender(5 * time.Second)
	if err := sender.Send(context.Background(), server.URL, record("alice", "plain"), SendOptions{}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
}

func TestSender_HTTPError(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sender := NewSender(5 * time.Second)
	err := sender.Send(context.Background(), server.URL, record("alice", "x"), SendOptions{})

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", httpErr.StatusCode)
	}
	if IsClientError(err) {
		t.Error("502 must not be classified as a client error")
	}
}

func TestIsClientError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"400", &HTTPError{StatusCode: 400}, true},
		{"404", &HTTPError{StatusCode: 404}, true},
		{"500", &HTTPError{StatusCode: 500}, false},
		{"503", &HTTPError{StatusCode: 503}, false},
		{"other error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsClientError(tt.err); got != tt.want {
				t.Errorf("IsClientError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
