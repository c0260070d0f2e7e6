package resource

import (
	"encoding/json"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Manifest is an open JSON document describing a resource. Shapes differ per
// kind, so it stays a generic mapping and callers use the accessors below.
type Manifest map[string]any

const (
	metadataKey   = "metadata"
	nameKey       = "name"
	namespaceKey  = "namespace"
	labelsKey     = "labels"
	kindKey       = "kind"
	apiVersionKey = "apiVersion"
)

// Normalize injects the identity fields the server owns. metadata.name, kind
// and apiVersion are always overwritten, metadata.namespace only when
// namespace is non-empty. The input map is modified in place and returned.
func Normalize(m Manifest, name string, kind Kind, namespace string) Manifest {
	if m == nil {
		m = Manifest{}
	}
	metadata, ok := m[metadataKey].(map[string]any)
	if !ok {
		metadata = map[string]any{}
		m[metadataKey] = metadata
	}
	if namespace != "" {
		metadata[namespaceKey] = namespace
	}
	metadata[nameKey] = name
	m[kindKey] = string(kind)
	m[apiVersionKey] = kind.APIVersion()
	return m
}

func (m Manifest) Name() string {
	return m.metadataString(nameKey)
}

func (m Manifest) Namespace() string {
	return m.metadataString(namespaceKey)
}

func (m Manifest) Kind() string {
	kind, _ := m[kindKey].(string)
	return kind
}

func (m Manifest) APIVersion() string {
	version, _ := m[apiVersionKey].(string)
	return version
}

// Labels returns metadata.labels, skipping values that are not strings.
func (m Manifest) Labels() map[string]string {
	metadata, _ := m[metadataKey].(map[string]any)
	raw, _ := metadata[labelsKey].(map[string]any)
	if raw == nil {
		return nil
	}
	labels := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			labels[k] = s
		}
	}
	return labels
}

func (m Manifest) metadataString(key string) string {
	metadata, _ := m[metadataKey].(map[string]any)
	value, _ := metadata[key].(string)
	return value
}

func (m Manifest) Unstructured() *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: m}
}

func FromUnstructured(obj *unstructured.Unstructured) Manifest {
	if obj == nil {
		return nil
	}
	return Manifest(obj.Object)
}

// Into converts the manifest into a typed API object such as *corev1.Pod.
// It goes through JSON so numbers decoded from request bodies as float64 fit
// integer fields.
func (m Manifest) Into(obj any) error {
	data, err := json.Marshal(map[string]any(m))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, obj)
}
