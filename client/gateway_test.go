package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authedGateway(t *testing.T, serverURL string) *Gateway {
	t.Helper()
	store := NewSessionStore(NewMemoryStorage())
	require.NoError(t, store.Login("t1", testIdentity("admin")))
	return NewGateway(serverURL, store)
}

func TestGatewayAttachesBearerAndContentType(t *testing.T) {
	var gotAuth, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"success":true,"data":{"ok":true}}`))
	}))
	defer server.Close()

	gateway := authedGateway(t, server.URL)
	require.NoError(t, gateway.Get(context.Background(), "/members", nil))

	assert.Equal(t, "Bearer t1", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
}

func TestGatewayEmptyBearerWhenUnauthenticated(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	gateway := NewGateway(server.URL, NewSessionStore(NewMemoryStorage()))
	require.NoError(t, gateway.Get(context.Background(), "/settings", nil))

	// The wire value is "Bearer " + empty token; the HTTP layer trims the
	// trailing space before the handler sees it.
	assert.Equal(t, "Bearer", strings.TrimSpace(gotAuth))
}

func TestGatewayErrorNormalization(t *testing.T) {
	cases := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{
			name:        "non-2xx with server message",
			status:      http.StatusForbidden,
			body:        `{"success":false,"message":"Insufficient permissions"}`,
			wantMessage: "Insufficient permissions",
		},
		{
			name:        "non-2xx without parseable message",
			status:      http.StatusBadGateway,
			body:        `upstream exploded`,
			wantMessage: "API error: 502",
		},
		{
			name:        "2xx carrying success false",
			status:      http.StatusOK,
			body:        `{"success":false,"message":"Member not found"}`,
			wantMessage: "Member not found",
		},
		{
			name:        "2xx success false without message",
			status:      http.StatusOK,
			body:        `{"success":false}`,
			wantMessage: "API error: 200",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			gateway := authedGateway(t, server.URL)
			err := gateway.Post(context.Background(), "/members", map[string]string{}, nil)

			var reqErr *RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tc.status, reqErr.Status)
			assert.Equal(t, tc.wantMessage, reqErr.Message)
		})
	}
}

func TestGatewayDecodesData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"name":"GymDesk","capacity":150}}`))
	}))
	defer server.Close()

	gateway := authedGateway(t, server.URL)

	var out struct {
		Name     string `json:"name"`
		Capacity int    `json:"capacity"`
	}
	require.NoError(t, gateway.Get(context.Background(), "/settings", &out))
	assert.Equal(t, "GymDesk", out.Name)
	assert.Equal(t, 150, out.Capacity)
}

func TestGatewayRetriesGetOnceOnTransportError(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			// Drop the connection without a response
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	gateway := authedGateway(t, server.URL)
	require.NoError(t, gateway.Get(context.Background(), "/members", nil))
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestGatewayDoesNotRetryNonIdempotentVerbs(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		conn.Close()
	}))
	defer server.Close()

	gateway := authedGateway(t, server.URL)
	err := gateway.Post(context.Background(), "/finance/transactions", map[string]string{}, nil)

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestGatewayContextCancellation(t *testing.T) {
	var attempts int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		<-release
	}))
	defer server.Close()
	defer close(release)

	gateway := authedGateway(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := gateway.Get(ctx, "/members", nil)
	require.Error(t, err)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	// A canceled request must not be retried
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestGatewayTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	store := NewSessionStore(NewMemoryStorage())
	require.NoError(t, store.Login("t1", testIdentity("admin")))
	gateway := NewGateway(server.URL, store)
	gateway.client.Timeout = 100 * time.Millisecond

	err := gateway.Post(context.Background(), "/members", nil, nil)
	require.Error(t, err)
}
