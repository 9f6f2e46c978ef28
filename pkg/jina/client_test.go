package jina

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server) Client {
	return NewClient("test-key",
		WithBaseURL(srv.URL),
		WithSearchBaseURL(srv.URL),
		WithRetry(3, time.Millisecond),
	)
}

func TestRead_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/https://acme.com/about", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "markdown", r.Header.Get("X-Return-Format"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":200,"data":{"title":"About Acme","url":"https://acme.com/about","content":"# Acme\nWe make widgets.","usage":{"tokens":42}}}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv).Read(context.Background(), "https://acme.com/about")
	require.NoError(t, err)
	assert.Equal(t, "About Acme", resp.Data.Title)
	assert.Contains(t, resp.Data.Content, "widgets")
	assert.Equal(t, 42, resp.Data.Usage.Tokens)
}

func TestRead_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Read(context.Background(), "https://acme.com/missing")
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestRead_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{bad`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Read(context.Background(), "https://acme.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal response")
}

func TestRead_RetryOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"code":200,"data":{"content":"ok"}}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv).Read(context.Background(), "https://acme.com")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Data.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRead_RetryExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Read(context.Background(), "https://acme.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 503")
	assert.Equal(t, int32(3), calls.Load())
}

func TestRead_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient("k", WithBaseURL(srv.URL), WithRetry(3, time.Hour)).Read(ctx, "https://acme.com")
	require.Error(t, err)
}

func TestSearch_WithSiteFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "linkedin.com", r.URL.Query().Get("site"))
		_, _ = w.Write([]byte(`{"code":200,"data":[{"title":"Acme | LinkedIn","url":"https://www.linkedin.com/company/acme"}]}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv).Search(context.Background(), "Acme Corp", WithSiteFilter("linkedin.com"))
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "https://www.linkedin.com/company/acme", resp.Data[0].URL)
}

func TestSearch_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	resp, err := newTestClient(srv).Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("k").(*httpClient)
	assert.Equal(t, "https://r.jina.ai", c.baseURL)
	assert.Equal(t, 3, c.maxAttempts)
	assert.Equal(t, 30*time.Second, c.http.Timeout)
}

func TestRetryableStatusCode(t *testing.T) {
	assert.True(t, retryableStatusCode(429))
	assert.True(t, retryableStatusCode(502))
	assert.False(t, retryableStatusCode(404))
	assert.False(t, retryableStatusCode(422))
}
