package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"k8s.io/klog/v2"

	"github.com/CloudDetail/kubecrud/configs"
	"github.com/CloudDetail/kubecrud/export"
	"github.com/CloudDetail/kubecrud/handler"
	"github.com/CloudDetail/kubecrud/monitoring"
	"github.com/CloudDetail/kubecrud/server"
	"github.com/CloudDetail/kubecrud/source/apiserver"
)

type Service interface {
	Run() error
	Stop() error

	// Handlers lets callers mount the routes on their own server.
	Handlers() map[string]http.HandlerFunc
}

// CRUDService serves the resource routes over one HTTP server.
type CRUDService struct {
	httpServer  *server.HTTPServer
	watchServer *export.WatchServer
	gateway     *apiserver.Gateway

	shutdownTimeout time.Duration
}

var _ Service = &CRUDService{}

func CreateServiceFromConfig(config *configs.CRUDConfig) (Service, error) {
	clients, err := apiserver.NewClients(apiserver.APIConfig{
		AuthType:     apiserver.AuthType(config.KubeSource.KubeAuthType),
		AuthFilePath: config.KubeSource.KubeAuthConfig,
		QPS:          config.KubeSource.QPS,
		Burst:        config.KubeSource.Burst,
		Timeout:      config.KubeSource.Timeout.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("build kubernetes clients: %w", err)
	}
	return BuildService(config, clients), nil
}

// BuildService wires the routes on top of already built clients.
func BuildService(config *configs.CRUDConfig, clients *apiserver.Clients) *CRUDService {
	var httpServer *server.HTTPServer
	if config.HttpServer != nil && config.HttpServer.Port > 0 {
		httpServer = server.NewHTTPServer(fmt.Sprintf(":%d", config.HttpServer.Port))
	} else {
		httpServer = server.NewHTTPServer("")
	}

	var opts []apiserver.GatewayOption
	if config.Gateway != nil && config.Gateway.LegacyErrorMapping {
		klog.InfoS("legacy error mapping enabled")
		opts = append(opts, apiserver.WithLegacyErrorMapping(true))
	}
	gateway := apiserver.NewGateway(clients.Dynamic, opts...)

	svc := &CRUDService{
		httpServer:      httpServer,
		gateway:         gateway,
		shutdownTimeout: configs.DefaultShutdownTimeout,
	}
	if config.HttpServer != nil && config.HttpServer.ShutdownTimeout.Duration > 0 {
		svc.shutdownTimeout = config.HttpServer.ShutdownTimeout.Duration
	}

	handler.New(gateway, clients).Register(httpServer)

	if config.Watch != nil && config.Watch.EnableWatchServer {
		svc.watchServer = export.NewWatchServer(gateway, config.Watch.HeartbeatInterval.Duration)
		httpServer.RegisterHandler("GET /watch_resources/{namespace}/{kind}", svc.watchServer.WatchWithWS)
	}
	if config.Monitoring != nil && config.Monitoring.EnableMetrics {
		httpServer.RegisterHandler("GET /metrics", monitoring.Handler().ServeHTTP)
	}
	return svc
}

func (s *CRUDService) Run() error {
	return s.httpServer.StartHttpServer()
}

// Stop ends the watch streams, then drains the HTTP server within the
// configured shutdown timeout.
func (s *CRUDService) Stop() error {
	if s.watchServer != nil {
		s.watchServer.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return s.httpServer.Stop(ctx)
}

func (s *CRUDService) Handlers() map[string]http.HandlerFunc {
	return s.httpServer.HandlerMap
}

func (s *CRUDService) Addr() string {
	return s.httpServer.Addr()
}

func (s *CRUDService) Gateway() *apiserver.Gateway {
	return s.gateway
}
