package client

// MessageResponse is the body of every write response and every error.
type MessageResponse struct {
	Message string `json:"message"`
}

const (
	MsgCreated = "Resource created."
	MsgUpdated = "Resource updated."
	MsgDeleted = "Resource deleted."
)

// ResourceList is the body of /list_resources, the names of the listed items.
type ResourceList struct {
	Resources []string `json:"resources"`
}

type NamespaceMetadata struct {
	Name string `json:"name"`
}

type NamespaceSpec struct {
	Finalizers []string `json:"finalizers"`
}

type Namespace struct {
	Metadata   NamespaceMetadata `json:"metadata"`
	Status     string            `json:"status"`
	Kind       string            `json:"kind"`
	Spec       NamespaceSpec     `json:"spec"`
	APIVersion string            `json:"api_version"`
}

type PodMetadata struct {
	Name      string            `json:"name"`
	Labels    map[string]string `json:"labels"`
	Namespace string            `json:"namespace"`
}

type ContainerPort struct {
	ContainerPort int32 `json:"container_port"`
}

type Container struct {
	Name  string          `json:"name"`
	Image string          `json:"image"`
	Ports []ContainerPort `json:"ports"`
}

type PodSpec struct {
	ServiceAccount     string      `json:"service_account"`
	NodeName           string      `json:"node_name"`
	SecurityContext    any         `json:"security_context"`
	ServiceAccountName string      `json:"service_account_name"`
	Containers         []Container `json:"containers"`
}

type ContainerStatus struct {
	Ready bool   `json:"ready"`
	Image string `json:"image"`
}

type PodStatus struct {
	Phase             string            `json:"phase"`
	ContainerStatuses []ContainerStatus `json:"container_statuses"`
	PodIP             string            `json:"pod_ip"`
	HostIP            string            `json:"host_ip"`
}

type Pod struct {
	Metadata   PodMetadata `json:"metadata"`
	Status     PodStatus   `json:"status"`
	Kind       string      `json:"kind"`
	Spec       PodSpec     `json:"spec"`
	APIVersion string      `json:"api_version"`
}

type ServiceMetadata struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

type ServicePort struct {
	Port       int32  `json:"port"`
	Protocol   string `json:"protocol"`
	TargetPort string `json:"target_port"`
}

type ServiceSpec struct {
	Selector  map[string]string `json:"selector"`
	ClusterIP string            `json:"cluster_ip"`
	Type      string            `json:"type"`
	Ports     []ServicePort     `json:"ports"`
}

type Service struct {
	Metadata   ServiceMetadata `json:"metadata"`
	Kind       string          `json:"kind"`
	Spec       ServiceSpec     `json:"spec"`
	APIVersion string          `json:"api_version"`
}
