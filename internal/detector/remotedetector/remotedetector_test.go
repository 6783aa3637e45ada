package remotedetector_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hfi/privacy-gateway/internal/detector"
	"github.com/hfi/privacy-gateway/internal/detector/remotedetector"
)

func fastConfig(baseURL string) remotedetector.Config {
	return remotedetector.Config{
		BaseURL:      baseURL,
		Attempts:     3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func TestNew_SucceedsWhenNoAPIKeyRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/info" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"supported_labels":  []string{"email", "person"},
			"default_threshold": 0.6,
			"api_key_required":  false,
		})
	}))
	defer srv.Close()

	d, err := remotedetector.New(context.Background(), fastConfig(srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if d == nil {
		t.Fatal("New() returned nil detector")
	}
}

func TestNew_FailsWhenAPIKeyRequiredButMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"api_key_required": true})
	}))
	defer srv.Close()

	if _, err := remotedetector.New(context.Background(), fastConfig(srv.URL)); err == nil {
		t.Error("New() with required api key and none configured succeeded, want error")
	}
}

func TestDetect_ConvertsEntitiesPerText(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"api_key_required": false})
	})
	mux.HandleFunc("/detect", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Texts []string `json:"texts"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]any{
			"entities": [][]map[string]any{
				{{"start": 0, "end": 4, "text": "John", "label": "person", "score": 0.9}},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d, err := remotedetector.New(context.Background(), fastConfig(srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	entities, err := d.Detect(context.Background(), []string{"John is here"}, 0.5)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(entities) != 1 || len(entities[0]) != 1 || entities[0][0].Text != "John" {
		t.Errorf("Detect() = %+v, want one John entity", entities)
	}
}

func TestDetect_NilTextsIsInvalidInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"api_key_required": false})
	}))
	defer srv.Close()

	d, err := remotedetector.New(context.Background(), fastConfig(srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := d.Detect(context.Background(), nil, 0.5); err != detector.ErrInvalidInput {
		t.Errorf("Detect(nil) error = %v, want ErrInvalidInput", err)
	}
}

func TestDetect_RetriesOn5xxThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"api_key_required": false})
	})
	mux.HandleFunc("/detect", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"entities": [][]map[string]any{{}}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d, err := remotedetector.New(context.Background(), fastConfig(srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := d.Detect(context.Background(), []string{"hi"}, 0.5); err != nil {
		t.Fatalf("Detect() error = %v, want success after retry", err)
	}
	if calls.Load() < 2 {
		t.Errorf("server was called %d times, want at least 2 (one retry)", calls.Load())
	}
}

func TestDetect_4xxIsUnrecoverableAndNotRetried(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"api_key_required": false})
	})
	mux.HandleFunc("/detect", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d, err := remotedetector.New(context.Background(), fastConfig(srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := d.Detect(context.Background(), []string{"hi"}, 0.5); err == nil {
		t.Error("Detect() with 4xx response succeeded, want error")
	}
	if calls.Load() != 1 {
		t.Errorf("server was called %d times, want exactly 1 (no retry on 4xx)", calls.Load())
	}
}

func TestDetect_AttachesAuthorizationHeaderWhenAPIKeySet(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"api_key_required": true})
	})
	mux.HandleFunc("/detect", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"entities": [][]map[string]any{{}}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := fastConfig(srv.URL)
	cfg.APIKey = "secret-token"
	d, err := remotedetector.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := d.Detect(context.Background(), []string{"hi"}, 0.5); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization header = %q, want %q", gotAuth, "Bearer secret-token")
	}
}
