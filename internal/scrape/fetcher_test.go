package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchHTMLSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := NewFetcher(3, time.Millisecond)
	f.sleep = func(time.Duration) {}

	body, err := f.FetchHTML(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", body)
}

func TestFetchHTMLRetriesOn429WithDoublingBackoff(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("finally"))
	}))
	defer srv.Close()

	f := NewFetcher(5, 10*time.Millisecond)
	var sleeps []time.Duration
	f.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	body, err := f.FetchHTML(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "finally", body)
	assert.EqualValues(t, 3, calls.Load())

	// Each sleep is jittered within [base, 2*base) and the base doubles.
	require.Len(t, sleeps, 2)
	assert.GreaterOrEqual(t, sleeps[0], 10*time.Millisecond)
	assert.Less(t, sleeps[0], 20*time.Millisecond)
	assert.GreaterOrEqual(t, sleeps[1], 20*time.Millisecond)
	assert.Less(t, sleeps[1], 40*time.Millisecond)
}

func TestFetchHTMLExhaustsRetryBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewFetcher(2, time.Millisecond)
	f.sleep = func(time.Duration) {}

	_, err := f.FetchHTML(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestFetchHTMLFailsFastOnOtherErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewFetcher(5, time.Millisecond)
	f.sleep = func(time.Duration) {}

	_, err := f.FetchHTML(context.Background(), srv.URL)
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}
