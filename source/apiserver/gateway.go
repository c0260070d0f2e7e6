package apiserver

import (
	"context"
	"encoding/json"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"
	"k8s.io/klog/v2"

	"github.com/CloudDetail/kubecrud/model/resource"
	"github.com/CloudDetail/kubecrud/monitoring"
)

const (
	opGet    = "get"
	opList   = "list"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
	opWatch  = "watch"
)

// Gateway maps (kind, verb) onto exactly one cluster API call. It holds no
// state besides the client handle and is safe for concurrent use.
type Gateway struct {
	client     dynamic.Interface
	translator ErrorTranslator
}

type GatewayOption func(*Gateway)

func WithLegacyErrorMapping(legacy bool) GatewayOption {
	return func(g *Gateway) {
		g.translator.Legacy = legacy
	}
}

func NewGateway(client dynamic.Interface, opts ...GatewayOption) *Gateway {
	g := &Gateway{client: client}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) resourceFor(kind resource.Kind, namespace string) dynamic.ResourceInterface {
	res := g.client.Resource(kind.GroupVersionResource())
	if kind.Namespaced() {
		return res.Namespace(namespace)
	}
	return res
}

func (g *Gateway) Get(ctx context.Context, kind resource.Kind, name, namespace string) (resource.Manifest, error) {
	if err := checkRequest(kind, name); err != nil {
		return nil, err
	}
	ctx, span := monitoring.StartClusterSpan(ctx, opGet, kind.String(), name, namespace)
	defer span.End()

	obj, err := g.resourceFor(kind, namespace).Get(ctx, name, metav1.GetOptions{})
	if err = g.finish(opGet, kind, err); err != nil {
		monitoring.RecordSpanError(span, err)
		return nil, err
	}
	return resource.FromUnstructured(obj), nil
}

// List resolves kind ignoring case. The Namespace kind is cluster scoped and
// lists every namespace whatever namespace is passed.
func (g *Gateway) List(ctx context.Context, kind string, namespace string) ([]resource.Manifest, error) {
	k, ok := resource.ParseKind(kind)
	if !ok {
		return nil, resource.NewDomainError(resource.ErrUnsupportedKind, 0, nil)
	}
	ctx, span := monitoring.StartClusterSpan(ctx, opList, k.String(), "", namespace)
	defer span.End()

	list, err := g.resourceFor(k, namespace).List(ctx, metav1.ListOptions{})
	if err = g.finish(opList, k, err); err != nil {
		monitoring.RecordSpanError(span, err)
		return nil, err
	}
	items := make([]resource.Manifest, 0, len(list.Items))
	for i := range list.Items {
		items = append(items, resource.Manifest(list.Items[i].Object))
	}
	return items, nil
}

// Create normalizes manifest before submitting it, so name, namespace, kind
// and apiVersion always come from the request path.
func (g *Gateway) Create(ctx context.Context, kind resource.Kind, name, namespace string, manifest resource.Manifest) error {
	if err := checkRequest(kind, name); err != nil {
		return err
	}
	if !kind.Namespaced() {
		namespace = ""
	}
	manifest = resource.Normalize(manifest, name, kind, namespace)

	ctx, span := monitoring.StartClusterSpan(ctx, opCreate, kind.String(), name, namespace)
	defer span.End()

	_, err := g.resourceFor(kind, namespace).Create(ctx, manifest.Unstructured(), metav1.CreateOptions{})
	if err = g.finish(opCreate, kind, err); err != nil {
		monitoring.RecordSpanError(span, err)
		return err
	}
	return nil
}

// Update submits patch unchanged as a JSON merge patch.
func (g *Gateway) Update(ctx context.Context, kind resource.Kind, name, namespace string, patch resource.Manifest) error {
	if err := checkRequest(kind, name); err != nil {
		return err
	}
	if patch == nil {
		patch = resource.Manifest{}
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return resource.NewDomainError(resource.ErrInvalidManifest, 0, err)
	}

	ctx, span := monitoring.StartClusterSpan(ctx, opUpdate, kind.String(), name, namespace)
	defer span.End()

	_, err = g.resourceFor(kind, namespace).Patch(ctx, name, types.MergePatchType, data, metav1.PatchOptions{})
	if err = g.finish(opUpdate, kind, err); err != nil {
		monitoring.RecordSpanError(span, err)
		return err
	}
	return nil
}

func (g *Gateway) Delete(ctx context.Context, kind resource.Kind, name, namespace string) error {
	if err := checkRequest(kind, name); err != nil {
		return err
	}
	ctx, span := monitoring.StartClusterSpan(ctx, opDelete, kind.String(), name, namespace)
	defer span.End()

	err := g.resourceFor(kind, namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err = g.finish(opDelete, kind, err); err != nil {
		monitoring.RecordSpanError(span, err)
		return err
	}
	return nil
}

// Watch streams changes of kind in namespace until ctx is done or the
// upstream watch ends. The returned channel is closed in both cases.
func (g *Gateway) Watch(ctx context.Context, kind string, namespace string) (<-chan resource.ResourceEvent, error) {
	k, ok := resource.ParseKind(kind)
	if !ok {
		return nil, resource.NewDomainError(resource.ErrUnsupportedKind, 0, nil)
	}
	spanCtx, span := monitoring.StartClusterSpan(ctx, opWatch, k.String(), "", namespace)
	defer span.End()

	watcher, err := g.resourceFor(k, namespace).Watch(spanCtx, metav1.ListOptions{})
	if err = g.finish(opWatch, k, err); err != nil {
		monitoring.RecordSpanError(span, err)
		return nil, err
	}

	events := make(chan resource.ResourceEvent)
	go func() {
		defer close(events)
		defer watcher.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.ResultChan():
				if !ok {
					return
				}
				op, known := resource.OperationFor(event.Type)
				if !known {
					continue
				}
				obj, isUnstructured := event.Object.(*unstructured.Unstructured)
				if !isUnstructured {
					continue
				}
				select {
				case events <- resource.ResourceEvent{
					Kind:      k,
					Namespace: obj.GetNamespace(),
					Operation: op,
					Res:       resource.FromUnstructured(obj),
				}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, nil
}

func (g *Gateway) finish(operation string, kind resource.Kind, err error) error {
	if err == nil {
		monitoring.RecordClusterRequest(operation, kind.String(), "ok")
		return nil
	}
	translated := g.translator.Translate(err)
	errKind, _ := resource.KindOf(translated)
	monitoring.RecordClusterRequest(operation, kind.String(), errKind.String())
	klog.V(2).InfoS("cluster request failed", "operation", operation, "kind", kind, "reason", errKind, "err", err)
	return translated
}

func checkRequest(kind resource.Kind, name string) error {
	if !kind.IsSupported() {
		return resource.NewDomainError(resource.ErrUnsupportedKind, 0, nil)
	}
	if name == "" {
		return resource.NewDomainError(resource.ErrInvalidManifest, 0, nil)
	}
	return nil
}
