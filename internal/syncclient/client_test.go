package syncclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBatchSync_SendsItemsAndDecodesResults(t *testing.T) {
	var gotAuth string
	var gotReq BatchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/sync/batch" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"taskId":"tk-1","success":true,"serverData":{"id":"srv-1"}},{"taskId":"tk-2","success":false,"error":"bad title"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "secret", 0)
	resp, err := c.BatchSync(context.Background(), &BatchRequest{Items: []BatchItem{
		{TaskID: "tk-1", Operation: "create", Data: json.RawMessage(`{"title":"a"}`)},
		{TaskID: "tk-2", Operation: "update", Data: json.RawMessage(`{"title":""}`)},
	}})
	if err != nil {
		t.Fatalf("BatchSync failed: %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(gotReq.Items) != 2 || string(gotReq.Items[0].Data) != `{"title":"a"}` {
		t.Errorf("request items = %+v", gotReq.Items)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(resp.Results))
	}
	if !resp.Results[0].Success || string(resp.Results[0].ServerData) != `{"id":"srv-1"}` {
		t.Errorf("results[0] = %+v", resp.Results[0])
	}
	if resp.Results[1].Success || resp.Results[1].Error != "bad title" {
		t.Errorf("results[1] = %+v", resp.Results[1])
	}
}

func TestBatchSync_Non2xxIsError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{"unauthorized", 401, `{"error":{"code":"unauthorized","message":"bad key"}}`, ErrUnauthorized, "bad key"},
		{"forbidden", 403, `{"error":{"code":"forbidden","message":"nope"}}`, ErrForbidden, "nope"},
		{"server error", 500, `{"error":{"code":"internal","message":"db down"}}`, nil, "internal: db down"},
		{"plain body", 502, `bad gateway`, nil, "HTTP 502: bad gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, "", 0).BatchSync(context.Background(), &BatchRequest{})
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ok.Close()

	if err := New(ok.URL, "", 0).Health(context.Background()); err != nil {
		t.Errorf("Health on 204 = %v, want nil", err)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	if err := New(down.URL, "", 0).Health(context.Background()); !errors.Is(err, ErrUnhealthy) {
		t.Errorf("Health on 503 = %v, want ErrUnhealthy", err)
	}
}

func TestHealth_RespectsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := New(slow.URL, "", 0).Health(ctx); err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Health took %v, want it bounded by ctx", elapsed)
	}
}
