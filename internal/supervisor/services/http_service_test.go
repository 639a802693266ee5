// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/splay/internal/logging"
)

//nolint:gochecknoinits // quiet logs for the package tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

var _ suture.Service = (*HTTPServerService)(nil)

// fakeServer blocks in ListenAndServe until Shutdown, unless listenErr is
// set, in which case it fails right away like a taken port.
type fakeServer struct {
	listenErr   error
	shutdownErr error

	listening chan struct{}
	stopped   chan struct{}
	listens   atomic.Int32
	shutdowns atomic.Int32
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		listening: make(chan struct{}, 8),
		stopped:   make(chan struct{}),
	}
}

func (f *fakeServer) ListenAndServe() error {
	f.listens.Add(1)
	select {
	case f.listening <- struct{}{}:
	default:
	}
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stopped
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	if f.shutdowns.Add(1) == 1 {
		close(f.stopped)
	}
	return f.shutdownErr
}

func (f *fakeServer) waitListening(t *testing.T) {
	t.Helper()
	select {
	case <-f.listening:
	case <-time.After(time.Second):
		t.Fatal("server never started listening")
	}
}

func TestNewHTTPServerService_Timeout(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{3 * time.Second, 3 * time.Second},
		{0, DefaultShutdownTimeout},
		{-time.Second, DefaultShutdownTimeout},
	}
	for _, tt := range tests {
		svc := NewHTTPServerService(newFakeServer(), tt.in)
		if svc.shutdownTimeout != tt.want {
			t.Errorf("timeout %v: got %v, want %v", tt.in, svc.shutdownTimeout, tt.want)
		}
		if svc.String() != "http-server" {
			t.Errorf("String() = %q", svc.String())
		}
	}
}

func TestHTTPServerService_Serve(t *testing.T) {
	t.Run("drains on cancel", func(t *testing.T) {
		srv := newFakeServer()
		svc := NewHTTPServerService(srv, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()
		srv.waitListening(t)
		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return")
		}
		if srv.listens.Load() != 1 || srv.shutdowns.Load() != 1 {
			t.Errorf("listens=%d shutdowns=%d, want 1 each", srv.listens.Load(), srv.shutdowns.Load())
		}
	})

	t.Run("port in use", func(t *testing.T) {
		srv := newFakeServer()
		srv.listenErr = errors.New("listen tcp :8090: bind: address already in use")
		err := NewHTTPServerService(srv, time.Second).Serve(context.Background())
		if !errors.Is(err, srv.listenErr) {
			t.Errorf("Serve() = %v, want wrapped listen error", err)
		}
	})

	t.Run("shutdown error", func(t *testing.T) {
		srv := newFakeServer()
		srv.shutdownErr = errors.New("context deadline exceeded")
		svc := NewHTTPServerService(srv, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()
		srv.waitListening(t)
		cancel()

		if err := <-done; !errors.Is(err, srv.shutdownErr) {
			t.Errorf("Serve() = %v, want shutdown error", err)
		}
	})
}

func TestHTTPServerService_RestartedBySupervisor(t *testing.T) {
	srv := newFakeServer()
	srv.listenErr = errors.New("bind: address already in use")

	sup := suture.New("api-layer", suture.Spec{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          time.Second,
	})
	sup.Add(NewHTTPServerService(srv, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	srv.waitListening(t)
	srv.waitListening(t)
	cancel()
	<-errCh

	if got := srv.listens.Load(); got < 2 {
		t.Errorf("listens = %d, want a restart after the failure", got)
	}
}

func TestHTTPServerService_RealServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	server := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"success":"true"}`))
		}),
		ReadHeaderTimeout: time.Second,
	}
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	var resp *http.Response
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err = http.Post("http://"+addr+"/buckets/demo", "application/json", nil)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
