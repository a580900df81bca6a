package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInstrumentedClient_PostJSON(t *testing.T) {
	var got map[string]string
	var contentType, auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewInstrumentedClient(
		WithBaseURL(srv.URL),
		WithProviderName("webhook"),
		WithHeaders(map[string]string{"Authorization": "Bearer t"}),
	)
	if err != nil {
		t.Fatalf("NewInstrumentedClient: %v", err)
	}

	resp, err := client.NewRequest().
		SetBody(map[string]string{"event": "opportunity"}).
		Post(context.Background(), "/events")
	if err != nil {
		t.Fatalf("Post: %v", err)
	}

	if resp.StatusCode != http.StatusAccepted || resp.IsError() {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if contentType != "application/json" {
		t.Errorf("content-type = %q", contentType)
	}
	if auth != "Bearer t" {
		t.Errorf("authorization = %q", auth)
	}
	if got["event"] != "opportunity" {
		t.Errorf("body = %v", got)
	}
}

func TestInstrumentedClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewInstrumentedClient()
	if err != nil {
		t.Fatalf("NewInstrumentedClient: %v", err)
	}

	resp, err := client.NewRequest().Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !resp.IsError() {
		t.Error("expected error status")
	}
	if len(resp.Body()) == 0 {
		t.Error("expected body to be read")
	}
}
