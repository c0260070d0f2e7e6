package resource

import (
	"strings"

	"k8s.io/apimachinery/pkg/runtime/schema"
)

type Kind string

const (
	PodKind       Kind = "Pod"
	ServiceKind   Kind = "Service"
	NamespaceKind Kind = "Namespace"
)

// APIVersion is shared by every supported kind, all of them live in the core group.
const APIVersion = "v1"

var supportedKinds = []Kind{PodKind, ServiceKind, NamespaceKind}

var kindResources = map[Kind]string{
	PodKind:       "pods",
	ServiceKind:   "services",
	NamespaceKind: "namespaces",
}

// SupportedKinds returns the kinds in a stable order.
func SupportedKinds() []Kind {
	kinds := make([]Kind, len(supportedKinds))
	copy(kinds, supportedKinds)
	return kinds
}

// ParseKind matches s against the supported kinds ignoring case.
func ParseKind(s string) (Kind, bool) {
	for _, kind := range supportedKinds {
		if strings.EqualFold(s, string(kind)) {
			return kind, true
		}
	}
	return "", false
}

func (k Kind) String() string {
	return string(k)
}

func (k Kind) IsSupported() bool {
	_, ok := kindResources[k]
	return ok
}

// Namespaced reports whether resources of this kind live inside a namespace.
func (k Kind) Namespaced() bool {
	return k != NamespaceKind
}

func (k Kind) APIVersion() string {
	return APIVersion
}

func (k Kind) GroupVersionResource() schema.GroupVersionResource {
	return schema.GroupVersionResource{Version: APIVersion, Resource: kindResources[k]}
}

func (k Kind) GroupVersionKind() schema.GroupVersionKind {
	return schema.GroupVersionKind{Version: APIVersion, Kind: string(k)}
}

// ListKind is the kind name the API server uses for collections, e.g. PodList.
func (k Kind) ListKind() string {
	return string(k) + "List"
}
