package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"watchtower/internal/platform/config"
	perr "watchtower/internal/platform/errors"
	pnet "watchtower/internal/platform/net"
	phttp "watchtower/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) phttp.Envelope {
	t.Helper()
	var env phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v (%s)", err, rec.Body.String())
	}
	return env
}

func TestNewServer_DefaultAddrAndRoutes(t *testing.T) {
	optCalled := false
	srv := phttp.NewServer(config.New().Prefix("CORE_"), func(*chi.Mux) { optCalled = true })
	if !optCalled {
		t.Fatal("option not invoked")
	}
	if srv.Addr() != ":4000" {
		t.Fatalf("addr = %q", srv.Addr())
	}

	r := srv.Router()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-MW", "yes")
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/api/v1", func(v1 phttp.Router) {
		v1.Group(func(g phttp.Router) {
			g.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "pong") })
		})
		v1.Post("/echo", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusAccepted) })
	})
	r.Handle("/raw", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) }))

	cases := []struct {
		method, path string
		want         int
	}{
		{"GET", "/api/v1/ping", http.StatusOK},
		{"POST", "/api/v1/echo", http.StatusAccepted},
		{"GET", "/raw", http.StatusTeapot},
		{"GET", "/missing", http.StatusNotFound},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		r.Mux().ServeHTTP(rec, httptest.NewRequest(c.method, c.path, nil))
		if rec.Code != c.want {
			t.Fatalf("%s %s = %d, want %d", c.method, c.path, rec.Code, c.want)
		}
		if rec.Header().Get("X-MW") != "yes" {
			t.Fatalf("%s %s missing middleware header", c.method, c.path)
		}
	}
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	t.Setenv("CORE_OPS_PORT", "127.0.0.1:0")
	srv := phttp.NewServer(config.New().Prefix("CORE_"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestServer_RunListenError(t *testing.T) {
	t.Setenv("CORE_OPS_PORT", "not-an-addr")
	srv := phttp.NewServer(config.New().Prefix("CORE_"))
	if err := srv.Run(context.Background()); err == nil {
		t.Fatal("expected listen error")
	}
}

func TestGetJSON_OKAndError(t *testing.T) {
	m := chi.NewRouter()
	r := phttp.AdaptChi(m)
	phttp.GetJSON(r, "/ok", func(*http.Request) (any, error) {
		return map[string]int{"n": 3}, nil
	})
	phttp.GetJSON(r, "/bad", func(*http.Request) (any, error) {
		return nil, perr.WithField(perr.InvalidArgf("limit must be positive"), "limit")
	})
	phttp.GetJSON(r, "/boom", func(*http.Request) (any, error) {
		return nil, errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/ok", nil)
	req = req.WithContext(pnet.WithRequest(req.Context(), "rid-1"))
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, req)
	env := decode(t, rec)
	if rec.Code != http.StatusOK || env.RequestID != "rid-1" {
		t.Fatalf("ok: %d %+v", rec.Code, env)
	}
	if d, _ := env.Data.(map[string]any); d["n"] != float64(3) {
		t.Fatalf("data = %#v", env.Data)
	}

	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("GET", "/bad", nil))
	env = decode(t, rec)
	if rec.Code != http.StatusBadRequest || env.Code != perr.ErrorCodeInvalidArgument || env.Field != "limit" {
		t.Fatalf("bad: %d %+v", rec.Code, env)
	}

	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("GET", "/boom", nil))
	env = decode(t, rec)
	if rec.Code != http.StatusInternalServerError || env.Error != "boom" {
		t.Fatalf("boom: %d %+v", rec.Code, env)
	}
	if rec.Header().Get("Content-Type") != "application/json; charset=utf-8" {
		t.Fatalf("content type = %q", rec.Header().Get("Content-Type"))
	}
}
