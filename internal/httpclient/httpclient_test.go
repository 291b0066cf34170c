package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gobrucego/o8fed/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturnsBodyOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"abc"`)
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := New("test", Config{RetryAttempts: 0}, nil)
	res, err := c.Get(context.Background(), srv.URL, "")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(res.Body))
	assert.Equal(t, `"abc"`, res.ETag)
	assert.False(t, res.NotModified)
}

func TestGetSendsIfNoneMatchAndSurfacesNotModified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"etag1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	c := New("test", Config{RetryAttempts: 0}, nil)
	res, err := c.Get(context.Background(), srv.URL, `"etag1"`)
	require.NoError(t, err)
	assert.True(t, res.NotModified)
}

func TestGetNeverRetriesNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New("test", Config{RetryAttempts: 3, BackoffBase: time.Millisecond}, nil)
	_, err := c.Get(context.Background(), srv.URL, "")
	require.Error(t, err)
	assert.True(t, provider.IsKind(err, provider.KindNotFound))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetRetriesOnServerErrorThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New("test", Config{RetryAttempts: 3, BackoffBase: time.Millisecond}, nil)
	res, err := c.Get(context.Background(), srv.URL, "")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(res.Body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetSurfacesAuthFailedWithoutRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("test", Config{RetryAttempts: 3, BackoffBase: time.Millisecond}, nil)
	_, err := c.Get(context.Background(), srv.URL, "")
	require.Error(t, err)
	assert.True(t, provider.IsKind(err, provider.KindAuthFailed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestBackoffDelayStaysWithinCap(t *testing.T) {
	d := backoffDelay(time.Second, 10)
	assert.LessOrEqual(t, d, maxBackoff)
}
