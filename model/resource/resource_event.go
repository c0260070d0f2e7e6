package resource

import "k8s.io/apimachinery/pkg/watch"

type ResOperation string

const (
	AddOP    ResOperation = "ADDED"
	UpdateOP ResOperation = "MODIFIED"
	DeleteOP ResOperation = "DELETED"
)

// ResourceEvent is one change observed on a watched collection.
type ResourceEvent struct {
	Kind      Kind         `json:"kind"`
	Namespace string       `json:"namespace,omitempty"`
	Operation ResOperation `json:"operation"`
	Res       Manifest     `json:"resource"`
}

// OperationFor maps a watch event type. Bookmark and error events have no
// operation.
func OperationFor(t watch.EventType) (ResOperation, bool) {
	switch t {
	case watch.Added:
		return AddOP, true
	case watch.Modified:
		return UpdateOP, true
	case watch.Deleted:
		return DeleteOP, true
	}
	return "", false
}

// WatchRequest is the first frame a websocket client sends. It may narrow
// the operations it wants, an empty list means all.
type WatchRequest struct {
	Operations []ResOperation `json:"operations"`
}
