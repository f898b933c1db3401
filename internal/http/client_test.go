package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Get(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("exd/root.exl\n"))
	}))
	defer srv.Close()

	client := NewClient("", 0)
	body, err := client.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "exd/root.exl\n", string(body))
	assert.Equal(t, DefaultUserAgent, gotUA)
}

func TestClient_GetCustomUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	_, err := NewClient("tester/1.0", time.Second).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "tester/1.0", gotUA)
}

func TestClient_GetNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient("", 0).Get(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrStatus)
	assert.Contains(t, err.Error(), "404")
}

func TestClient_GetCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient("", 0).Get(ctx, srv.URL)
	require.ErrorIs(t, err, context.Canceled)
}
