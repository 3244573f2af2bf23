package httpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Do(t *testing.T) {
	var gotMethod, gotPath, gotType string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/threshold":
			if r.Method == http.MethodPut {
				w.Write(gotBody)
				return
			}
			w.Write([]byte(`{"value":2000}`))
		case "/api/bad":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"value is required"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/", 0)
	ctx := context.Background()

	var th struct {
		Value float64 `json:"value"`
	}
	if err := c.Get(ctx, "/api/threshold", &th); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if th.Value != 2000 || gotMethod != http.MethodGet {
		t.Errorf("Get = %+v via %s", th, gotMethod)
	}

	if err := c.Put(ctx, "/api/threshold", map[string]float64{"value": 1500}, &th); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if th.Value != 1500 || gotType != "application/json" || string(gotBody) != `{"value":1500}` {
		t.Errorf("Put = %+v, content-type %q, body %s", th, gotType, gotBody)
	}

	var raw json.RawMessage
	if err := c.Get(ctx, "/api/threshold", &raw); err != nil {
		t.Fatalf("Get raw: %v", err)
	}
	if string(raw) != `{"value":2000}` {
		t.Errorf("raw = %s", raw)
	}

	err := c.Post(ctx, "/api/bad", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Post error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message != "value is required" {
		t.Errorf("APIError = %+v", apiErr)
	}
	if gotPath != "/api/bad" {
		t.Errorf("path = %q", gotPath)
	}

	err = c.Delete(ctx, "/nope", nil)
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound || apiErr.Message != "" {
		t.Errorf("Delete error = %v", err)
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, 0)
	if err := c.Get(context.Background(), "/api/status", nil); err == nil {
		t.Error("Get on a closed server should fail")
	}
}
