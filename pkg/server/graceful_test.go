package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	orderviztls "github.com/dd0wney/cluso-orderviz/pkg/tls"
)

func startServer(t *testing.T, handler http.Handler) (*GracefulServer, string, context.CancelFunc, <-chan error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	gs := NewGracefulServer(ln.Addr().String(), handler, nil)
	gs.SetShutdownTimeout(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Serve(ctx, ln) }()
	return gs, "http://" + ln.Addr().String(), cancel, done
}

func TestGracefulServer_ServesUntilCancelled(t *testing.T) {
	gs, url, cancel, done := startServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
	if !gs.IsShuttingDown() {
		t.Error("IsShuttingDown() = false after cancel")
	}
	if err := gs.Shutdown(time.Second); err != nil {
		t.Errorf("second Shutdown() = %v", err)
	}
}

func TestGracefulServer_SIGHUPReloads(t *testing.T) {
	var reloads atomic.Int32
	gs, _, cancel, done := startServer(t, http.NotFoundHandler())
	gs.SetConfigReloadFunc(func() error {
		reloads.Add(1)
		return nil
	})
	time.Sleep(50 * time.Millisecond)

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGHUP); err != nil {
		t.Fatalf("Failed to send SIGHUP: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for reloads.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if reloads.Load() != 1 {
		t.Errorf("reloads = %d, want 1", reloads.Load())
	}
	if gs.IsShuttingDown() {
		t.Error("Server should not be shutting down after SIGHUP")
	}

	cancel()
	<-done
}

func TestGracefulServer_ReloadConfig(t *testing.T) {
	gs := NewGracefulServer(":0", http.NotFoundHandler(), nil)

	if err := gs.ReloadConfig(); err != nil {
		t.Errorf("ReloadConfig() without func = %v", err)
	}

	want := errors.New("bad config")
	gs.SetConfigReloadFunc(func() error { return want })
	if err := gs.ReloadConfig(); !errors.Is(err, want) {
		t.Errorf("ReloadConfig() = %v, want %v", err, want)
	}
}

func TestGracefulServer_RunListenError(t *testing.T) {
	gs := NewGracefulServer("256.0.0.1:bad", http.NotFoundHandler(), nil)
	if err := gs.Run(context.Background()); err == nil {
		t.Error("Run() with a bad address should fail")
	}
}

func TestGracefulServer_ServesTLS(t *testing.T) {
	tc, leaf, err := orderviztls.ServerConfig(orderviztls.Config{SelfSigned: true, Hosts: []string{"127.0.0.1"}})
	if err != nil {
		t.Fatalf("ServerConfig: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	gs := NewGracefulServer(ln.Addr().String(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.Proto)
	}), nil)
	gs.SetTLSConfig(tc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Serve(ctx, ln) }()
	defer func() {
		cancel()
		<-done
	}()

	roots := x509.NewCertPool()
	roots.AddCert(leaf)
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: roots}}}
	resp, err := client.Get("https://" + ln.Addr().String())
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.TLS == nil {
		t.Error("response was not served over TLS")
	}
}
