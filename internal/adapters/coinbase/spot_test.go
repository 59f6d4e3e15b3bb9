package coinbase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_Spot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"amount":"77543.21","currency":"USD"}}`))
	}))
	defer srv.Close()

	px, err := NewFeed(srv.URL).Spot(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 77543.21, px, 1e-9)
}

func TestFeed_SpotBadAmount(t *testing.T) {
	for _, body := range []string{
		`{"data":{"amount":"","currency":"USD"}}`,
		`{"data":{"amount":"-1","currency":"USD"}}`,
		`{"data":{"amount":"abc","currency":"USD"}}`,
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		_, err := NewFeed(srv.URL).Spot(context.Background())
		assert.Error(t, err, body)
		srv.Close()
	}
}

func TestFeed_SpotHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewFeed(srv.URL).Spot(context.Background())
	assert.Error(t, err)
}
