package fetch

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

func TestFetch_Success(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`deleted "[[$1]]"`))
	}))
	defer srv.Close()

	c := New(WithUserAgent("rcwatch-test/0"))
	text, err := c.Fetch(context.Background(), srv.URL+"/w/index.php?title=MediaWiki:Deletedarticle&action=raw")
	require.NoError(t, err)
	assert.Equal(t, `deleted "[[$1]]"`, text)
	assert.Equal(t, "rcwatch-test/0", gotUA)
}

func TestFetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := New().Fetch(context.Background(), srv.URL+"/missing")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestFetch_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("no user agent"))
	}))
	defer srv.Close()

	_, err := New(WithBaseDelay(time.Millisecond)).Fetch(context.Background(), srv.URL)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Equal(t, "no user agent", se.Body)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	text, err := New(WithBaseDelay(time.Millisecond)).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(WithBaseDelay(time.Millisecond)).Fetch(context.Background(), srv.URL)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, int32(maxRetries+1), calls.Load())
}

func TestFetch_ContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(WithBaseDelay(time.Hour)).Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackoffDelay(t *testing.T) {
	c := New()
	assert.Equal(t, time.Second, c.backoffDelay(1, nil))
	assert.Equal(t, 4*time.Second, c.backoffDelay(3, nil))
	assert.Equal(t, 7*time.Second, c.backoffDelay(1, &StatusError{StatusCode: 429, retryAfter: "7"}))
	assert.Equal(t, 2*time.Second, c.backoffDelay(2, &StatusError{StatusCode: 429, retryAfter: "soon"}))
}
