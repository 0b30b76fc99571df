package httpc

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient_Timeout(t *testing.T) {
	c := NewClient(2 * time.Second)
	if c.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", c.Timeout)
	}
	if c.Transport == nil {
		t.Error("Transport should be set")
	}
}

func TestNewClient_TimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	if _, err := NewClient(50 * time.Millisecond).Get(srv.URL); err == nil {
		t.Error("expected timeout error")
	}
}

func TestClient_Shared(t *testing.T) {
	if Client.Timeout != DefaultTimeout {
		t.Errorf("Client.Timeout = %v, want %v", Client.Timeout, DefaultTimeout)
	}
}
