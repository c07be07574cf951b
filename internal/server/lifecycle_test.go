package server

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestManagedServerLifecycle(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	m := NewManagedServer("api", DefaultServerConfig("127.0.0.1:0", handler, zap.New(core)))
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	resp, err := http.Get("http://" + m.Addr())
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}

	started := logs.FilterMessage("starting server").All()
	if len(started) != 1 {
		t.Fatalf("expected 1 start entry, got %d", len(started))
	}
	if got := started[0].ContextMap()["component"]; got != "api" {
		t.Errorf("component = %v, want api", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.Shutdown(ctx)

	select {
	case err, ok := <-m.Err():
		if ok && err != nil {
			t.Errorf("serve error after shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Err channel not closed after shutdown")
	}
}

func TestManagedServerStartFailsOnBusyAddress(t *testing.T) {
	first := NewManagedServer("first", DefaultServerConfig("127.0.0.1:0", http.NotFoundHandler(), zap.NewNop()))
	if err := first.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer first.Shutdown(context.Background())

	second := NewManagedServer("second", DefaultServerConfig(first.Addr(), http.NotFoundHandler(), zap.NewNop()))
	if err := second.Start(); err == nil {
		second.Shutdown(context.Background())
		t.Error("expected error binding a busy address")
	}
}
