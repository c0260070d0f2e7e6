package configs

import (
	"errors"
	"fmt"
	"os"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"
)

const (
	AuthTypeInCluster  = "serviceAccount"
	AuthTypeKubeConfig = "kubeConfig"

	// K8sEnvironmentEnv set to "True" switches to the in-cluster service account.
	K8sEnvironmentEnv = "K8S_ENVIRONMENT"

	DefaultPort              = 5000
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultKubeTimeout       = 30 * time.Second
	DefaultQPS               = 50
	DefaultBurst             = 100
	DefaultHeartbeatInterval = 30 * time.Second
)

func DefaultConfig() *CRUDConfig {
	cfg := &CRUDConfig{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the YAML file at path and fills zero values with defaults.
// An empty path yields the defaults.
func Load(path string) (*CRUDConfig, error) {
	cfg := &CRUDConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.UnmarshalStrict(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyDefaults(cfg)
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *CRUDConfig) {
	if cfg.HttpServer == nil {
		cfg.HttpServer = &HTTPServerConfig{}
	}
	if cfg.HttpServer.Port == 0 {
		cfg.HttpServer.Port = DefaultPort
	}
	if cfg.HttpServer.ShutdownTimeout.Duration == 0 {
		cfg.HttpServer.ShutdownTimeout = metav1.Duration{Duration: DefaultShutdownTimeout}
	}

	if cfg.KubeSource == nil {
		cfg.KubeSource = &KubeSourceConfig{}
	}
	if cfg.KubeSource.KubeAuthType == "" {
		cfg.KubeSource.KubeAuthType = AuthTypeKubeConfig
	}
	if cfg.KubeSource.QPS == 0 {
		cfg.KubeSource.QPS = DefaultQPS
	}
	if cfg.KubeSource.Burst == 0 {
		cfg.KubeSource.Burst = DefaultBurst
	}
	if cfg.KubeSource.Timeout.Duration == 0 {
		cfg.KubeSource.Timeout = metav1.Duration{Duration: DefaultKubeTimeout}
	}

	if cfg.Gateway == nil {
		cfg.Gateway = &GatewayConfig{}
	}
	if cfg.Watch == nil {
		cfg.Watch = &WatchConfig{}
	}
	if cfg.Watch.HeartbeatInterval.Duration == 0 {
		cfg.Watch.HeartbeatInterval = metav1.Duration{Duration: DefaultHeartbeatInterval}
	}
	if cfg.Monitoring == nil {
		cfg.Monitoring = &MonitoringConfig{}
	}
}

func applyEnv(cfg *CRUDConfig) {
	if os.Getenv(K8sEnvironmentEnv) == "True" {
		cfg.KubeSource.KubeAuthType = AuthTypeInCluster
	}
}

func (c *CRUDConfig) Validate() error {
	var errs []error
	if c.HttpServer.Port < 0 || c.HttpServer.Port > 65535 {
		errs = append(errs, fmt.Errorf("http_server.port %d out of range", c.HttpServer.Port))
	}
	switch c.KubeSource.KubeAuthType {
	case AuthTypeInCluster, AuthTypeKubeConfig:
	default:
		errs = append(errs, fmt.Errorf("kube_source.kube_auth_type %q is not one of %s, %s",
			c.KubeSource.KubeAuthType, AuthTypeInCluster, AuthTypeKubeConfig))
	}
	if c.KubeSource.QPS < 0 || c.KubeSource.Burst < 0 {
		errs = append(errs, errors.New("kube_source.qps and kube_source.burst must not be negative"))
	}
	return errors.Join(errs...)
}
