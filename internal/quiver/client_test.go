package quiver

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

	"github.com/openquiver/congresstrader/internal/timeutil"
)

func day(t *testing.T) time.Time {
	t.Helper()
	d, err := timeutil.EnsureDate("2024-02-16")
	require.NoError(t, err)
	return d
}

func TestGetFilingsByDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bulk/congresstrading", r.URL.Path)
		assert.Equal(t, "20240216", r.URL.Query().Get("date"))
		assert.Equal(t, "Token test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"Ticker":"AAPL","Name":"Jane Doe","Transaction":"Purchase","Filed":"2024-02-16","Traded":"2024-02-10","Party":"D"},
			{"Ticker":"MSFT","Name":"John Roe","Transaction":"Sale","Filed":"2024-02-16"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	filings, err := c.GetFilingsByDate(context.Background(), day(t))
	require.NoError(t, err)
	require.Len(t, filings, 2)

	assert.Equal(t, "AAPL", filings[0].Ticker)
	assert.Equal(t, "Jane Doe", filings[0].Name)
	assert.Equal(t, "Purchase", filings[0].Transaction)
	require.NotNil(t, filings[0].Party)
	assert.Equal(t, "D", *filings[0].Party)
	assert.NotEmpty(t, filings[0].Raw, "raw JSON should be captured")

	assert.Nil(t, filings[1].Party, "absent party should stay nil")
	assert.Empty(t, filings[1].Traded)
}

func TestGetFilingsByDateEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	filings, err := c.GetFilingsByDate(context.Background(), day(t))
	require.NoError(t, err)
	assert.Empty(t, filings)
}

func TestGetFilingsByDateNonArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"detail":"throttled"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	filings, err := c.GetFilingsByDate(context.Background(), day(t))
	require.NoError(t, err)
	assert.Empty(t, filings)
}

func TestGetFilingsByDateRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"Ticker":"NVDA","Name":"Jane Doe","Transaction":"Purchase","Filed":"2024-02-16"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	filings, err := c.GetFilingsByDate(context.Background(), day(t))
	require.NoError(t, err)
	assert.Len(t, filings, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetFilingsByDateTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"no such endpoint"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	_, err := c.GetFilingsByDate(context.Background(), day(t))
	require.Error(t, err)

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusNotFound, terr.StatusCode)
	assert.Contains(t, terr.Body, "no such endpoint")
	assert.Contains(t, terr.URL, "date=20240216")
}
