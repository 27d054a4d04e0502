package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/trivia-quiz/internal/config"
)

type fakeRoutes struct{}

func (fakeRoutes) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /hello", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hi"))
	})
}

func TestBaseRoutes(t *testing.T) {
	srv := NewHTTPServer(&config.App{HTTPAddr: ":0"}, zerolog.Nop(), nil, fakeRoutes{})
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	for _, path := range []string{"/healthz", "/v1/ping", "/metrics", "/hello"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestPingReportsRedisFailure(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	srv := NewHTTPServer(&config.App{HTTPAddr: ":0"}, zerolog.Nop(), client, nil)
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/ping")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
