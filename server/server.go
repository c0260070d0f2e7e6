package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"k8s.io/klog/v2"

	"github.com/CloudDetail/kubecrud/monitoring"
)

type HTTPServer struct {
	srvMux *http.ServeMux
	server *http.Server

	listenAddr string

	mu       sync.Mutex
	listener net.Listener

	// pattern -> handler, lets callers mount the routes on another server
	HandlerMap map[string]http.HandlerFunc
}

func NewHTTPServer(listenAddr string) *HTTPServer {
	return &HTTPServer{
		srvMux:     http.NewServeMux(),
		listenAddr: listenAddr,
		HandlerMap: map[string]http.HandlerFunc{},
	}
}

func (s *HTTPServer) SetListenAddr(listenAddr string) {
	s.listenAddr = listenAddr
}

// RegisterHandler mounts handler on a ServeMux pattern such as
// "GET /pod/{name}/{namespace}/{$}". Requests are counted per pattern.
func (s *HTTPServer) RegisterHandler(pattern string, handler http.HandlerFunc) {
	klog.V(1).InfoS("register handler", "addr", s.listenAddr, "pattern", pattern)
	s.srvMux.Handle(pattern, monitoring.InstrumentHandler(pattern, handler))
	s.HandlerMap[pattern] = handler
}

func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.srvMux.ServeHTTP(w, r)
}

// Addr returns the bound address once the server started, the configured one before.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.listenAddr
}

// StartHttpServer binds the listener and serves in the background.
func (s *HTTPServer) StartHttpServer() error {
	if len(s.listenAddr) == 0 {
		klog.InfoS("listenAddr is empty, skip http server start")
		return nil
	} else if len(s.HandlerMap) == 0 {
		klog.InfoS("no handler registered, skip http server start")
		return nil
	}

	listener, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = listener
	s.server = &http.Server{Handler: s.srvMux}
	srv := s.server
	s.mu.Unlock()

	klog.InfoS("start http server", "addr", listener.Addr().String())
	go func() {
		err := srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			klog.ErrorS(err, "http server stopped")
		}
	}()
	return nil
}

// Stop waits for in-flight requests until ctx expires.
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}
