package apiserver

import (
	"fmt"
	"time"

	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/klog/v2"
)

type AuthType string

const (
	AuthTypeInCluster  AuthType = "serviceAccount"
	AuthTypeKubeConfig AuthType = "kubeConfig"
)

type APIConfig struct {
	AuthType AuthType
	// AuthFilePath is the kubeconfig path, empty means the default loading rules
	// ($KUBECONFIG, then ~/.kube/config).
	AuthFilePath string

	QPS     float32
	Burst   int
	Timeout time.Duration
}

// Clients bundles the handles built once at startup. Both are safe for
// concurrent use and never replaced afterwards.
type Clients struct {
	Dynamic   dynamic.Interface
	Clientset kubernetes.Interface
	Host      string
}

func NewClients(cfg APIConfig) (*Clients, error) {
	restConfig, err := restConfigFor(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.QPS > 0 {
		restConfig.QPS = cfg.QPS
	}
	if cfg.Burst > 0 {
		restConfig.Burst = cfg.Burst
	}
	if cfg.Timeout > 0 {
		restConfig.Timeout = cfg.Timeout
	}

	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("create clientset: %w", err)
	}

	klog.InfoS("kubernetes client ready", "host", restConfig.Host, "authType", cfg.AuthType)
	return &Clients{
		Dynamic:   dynamicClient,
		Clientset: clientset,
		Host:      restConfig.Host,
	}, nil
}

func restConfigFor(cfg APIConfig) (*rest.Config, error) {
	switch cfg.AuthType {
	case AuthTypeInCluster:
		restConfig, err := rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("load in-cluster config: %w", err)
		}
		return restConfig, nil
	case AuthTypeKubeConfig, "":
		loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
		if cfg.AuthFilePath != "" {
			loadingRules.ExplicitPath = cfg.AuthFilePath
		}
		kubeConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{})
		restConfig, err := kubeConfig.ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("load kubeconfig: %w", err)
		}
		return restConfig, nil
	default:
		return nil, fmt.Errorf("unknown kube auth type %q", cfg.AuthType)
	}
}

// Ping asks the API server for its version. Readiness probes use it.
func (c *Clients) Ping() error {
	_, err := c.Clientset.Discovery().ServerVersion()
	return err
}
