package connectivity

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnlineViaDial(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	p := &Probe{Timeout: time.Second, DialAddr: ln.Addr().String(), HTTPURL: "http://127.0.0.1:1"}
	assert.True(t, p.Online(context.Background()))
}

func TestOnlineViaHTTPFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// Port 1 refuses the dial, forcing the HTTP fallback.
	p := &Probe{Timeout: time.Second, DialAddr: "127.0.0.1:1", HTTPURL: srv.URL}
	assert.True(t, p.Online(context.Background()))
}

func TestOffline(t *testing.T) {
	p := &Probe{Timeout: 200 * time.Millisecond, DialAddr: "127.0.0.1:1", HTTPURL: "http://127.0.0.1:1"}
	assert.False(t, p.Online(context.Background()))
}

func TestStatic(t *testing.T) {
	assert.True(t, Static(true).Online(context.Background()))
	assert.False(t, Static(false).Online(context.Background()))
}
