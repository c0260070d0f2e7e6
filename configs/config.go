package configs

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

type CRUDConfig struct {
	HttpServer *HTTPServerConfig `json:"http_server" mapstructure:"http_server"`
	KubeSource *KubeSourceConfig `json:"kube_source" mapstructure:"kube_source"`
	Gateway    *GatewayConfig    `json:"gateway" mapstructure:"gateway"`
	Watch      *WatchConfig      `json:"watch" mapstructure:"watch"`
	Monitoring *MonitoringConfig `json:"monitoring" mapstructure:"monitoring"`
}

type HTTPServerConfig struct {
	Port            int             `json:"port" mapstructure:"port"`
	ShutdownTimeout metav1.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

type KubeSourceConfig struct {
	// serviceAccount or kubeConfig
	KubeAuthType string `json:"kube_auth_type" mapstructure:"kube_auth_type"`
	// kubeconfig path, only used with kubeConfig auth
	KubeAuthConfig string `json:"kube_auth_config" mapstructure:"kube_auth_config"`

	QPS     float32         `json:"qps" mapstructure:"qps"`
	Burst   int             `json:"burst" mapstructure:"burst"`
	Timeout metav1.Duration `json:"timeout" mapstructure:"timeout"`
}

type GatewayConfig struct {
	// LegacyErrorMapping turns every upstream status except 404 and 409 into
	// an invalid manifest error, like the first release did.
	LegacyErrorMapping bool `json:"legacy_error_mapping" mapstructure:"legacy_error_mapping"`
}

type WatchConfig struct {
	EnableWatchServer bool            `json:"enable_watch_server" mapstructure:"enable_watch_server"`
	HeartbeatInterval metav1.Duration `json:"heartbeat_interval" mapstructure:"heartbeat_interval"`
}

type MonitoringConfig struct {
	EnableMetrics bool `json:"enable_metrics" mapstructure:"enable_metrics"`
}
