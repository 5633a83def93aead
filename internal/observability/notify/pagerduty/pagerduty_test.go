package pagerduty

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/target/mmk-jobitems/internal/observability/notify"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error when routing key missing")
	}
}

func TestBuildEventDefaults(t *testing.T) {
	client, err := NewClient(Config{RoutingKey: "key", Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	event := client.buildEvent(notify.FetchFailurePayload{
		EventID:    "evt-1",
		JobItemID:  123,
		CacheKey:   `["job-item",123]`,
		Error:      "boom",
		ErrorClass: "remote_5xx",
		Metadata:   map[string]string{"error": "ignored", "region": "us"},
	})

	if event["dedup_key"] != "job-item:123" {
		t.Fatalf("unexpected dedup key %v", event["dedup_key"])
	}

	payloadSection, ok := event["payload"].(map[string]any)
	if !ok {
		t.Fatalf("expected payload section")
	}
	if payloadSection["severity"] != notify.SeverityError {
		t.Fatalf("expected default severity, got %v", payloadSection["severity"])
	}
	if payloadSection["source"] != "jobitems" {
		t.Fatalf("expected default source, got %v", payloadSection["source"])
	}
	if payloadSection["summary"] != "Job item 123 fetch failed: remote_5xx" {
		t.Fatalf("unexpected summary %v", payloadSection["summary"])
	}

	custom, ok := payloadSection["custom_details"].(map[string]any)
	if !ok {
		t.Fatalf("expected custom details")
	}
	for _, key := range []string{"event_id", "job_item_id", "cache_key", "error", "error_class", "region"} {
		if _, exists := custom[key]; !exists {
			t.Fatalf("expected key %s in custom details", key)
		}
	}
	if custom["error"] != "boom" {
		t.Fatalf("metadata must not override built-in fields, got %v", custom["error"])
	}
}

func TestSendFetchFailureUsesEndpoint(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewClient(Config{RoutingKey: "key", Endpoint: srv.URL, Client: srv.Client()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	payload := notify.FetchFailurePayload{JobItemID: 5, Severity: "WARNING"}
	if err := client.SendFetchFailure(context.Background(), payload); err != nil {
		t.Fatalf("SendFetchFailure error: %v", err)
	}
	if got["routing_key"] != "key" || got["event_action"] != "trigger" {
		t.Fatalf("unexpected event %v", got)
	}
	section, _ := got["payload"].(map[string]any)
	if section["severity"] != notify.SeverityWarning {
		t.Fatalf("expected lower-cased severity, got %v", section["severity"])
	}
}
