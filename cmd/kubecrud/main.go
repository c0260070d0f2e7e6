package main

import (
	"context"
	goflag "flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	_ "k8s.io/client-go/plugin/pkg/client/auth"
	"k8s.io/klog/v2"

	"github.com/CloudDetail/kubecrud/configs"
	"github.com/CloudDetail/kubecrud/source"
)

type options struct {
	configPath         string
	port               int
	kubeconfig         string
	legacyErrorMapping bool
}

func (o *options) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.configPath, "config", "", "Path to the YAML config file.")
	fs.IntVar(&o.port, "port", 0, "HTTP port, overrides http_server.port.")
	fs.StringVar(&o.kubeconfig, "kubeconfig", "", "Path to a kubeconfig, overrides kube_source.kube_auth_config.")
	fs.BoolVar(&o.legacyErrorMapping, "legacy-error-mapping", false,
		"Report every upstream failure except 404 and 409 as an invalid manifest.")
}

// apply lets explicitly set flags win over the config file.
func (o *options) apply(fs *pflag.FlagSet, cfg *configs.CRUDConfig) {
	if fs.Changed("port") {
		cfg.HttpServer.Port = o.port
	}
	if fs.Changed("kubeconfig") {
		cfg.KubeSource.KubeAuthConfig = o.kubeconfig
	}
	if fs.Changed("legacy-error-mapping") {
		cfg.Gateway.LegacyErrorMapping = o.legacyErrorMapping
	}
}

func main() {
	if err := run(); err != nil {
		klog.ErrorS(err, "kubecrud exited")
		klog.Flush()
		os.Exit(1)
	}
}

func run() error {
	opts := &options{}
	fs := pflag.NewFlagSet("kubecrud", pflag.ExitOnError)
	opts.addFlags(fs)
	klogFlags := goflag.NewFlagSet("klog", goflag.ExitOnError)
	klog.InitFlags(klogFlags)
	fs.AddGoFlagSet(klogFlags)
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}
	defer klog.Flush()

	cfg, err := configs.Load(opts.configPath)
	if err != nil {
		return err
	}
	opts.apply(fs, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	svc, err := source.CreateServiceFromConfig(cfg)
	if err != nil {
		return err
	}
	if err := svc.Run(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	klog.InfoS("kubecrud started", "port", cfg.HttpServer.Port,
		"watch", cfg.Watch.EnableWatchServer, "metrics", cfg.Monitoring.EnableMetrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	klog.InfoS("shutting down", "timeout", cfg.HttpServer.ShutdownTimeout.Duration)
	return svc.Stop()
}
