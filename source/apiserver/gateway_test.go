package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/watch"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/CloudDetail/kubecrud/model/resource"
	"github.com/CloudDetail/kubecrud/monitoring"
)

func newFakeDynamic(objs ...runtime.Object) *dynamicfake.FakeDynamicClient {
	listKinds := map[schema.GroupVersionResource]string{}
	for _, kind := range resource.SupportedKinds() {
		listKinds[kind.GroupVersionResource()] = kind.ListKind()
	}
	return dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), listKinds, objs...)
}

func object(kind resource.Kind, name, namespace string) runtime.Object {
	return resource.Normalize(resource.Manifest{}, name, kind, namespace).Unstructured()
}

func podManifest(ports ...int64) resource.Manifest {
	containerPorts := make([]any, 0, len(ports))
	for _, p := range ports {
		containerPorts = append(containerPorts, map[string]any{"containerPort": p})
	}
	return resource.Manifest{
		"metadata": map[string]any{
			"labels": map[string]any{"app": "web"},
		},
		"spec": map[string]any{
			"containers": []any{
				map[string]any{
					"name":  "web",
					"image": "nginx:1.25",
					"ports": containerPorts,
				},
			},
		},
	}
}

func TestGatewayCreateThenGet(t *testing.T) {
	ctx := context.Background()
	gw := NewGateway(newFakeDynamic(object(resource.NamespaceKind, "team-a", "")))

	tests := []struct {
		kind      resource.Kind
		name      string
		namespace string
	}{
		{resource.PodKind, "web-1", "team-a"},
		{resource.ServiceKind, "web", "team-a"},
		{resource.NamespaceKind, "team-b", ""},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			require.NoError(t, gw.Create(ctx, tt.kind, tt.name, tt.namespace, resource.Manifest{}))

			got, err := gw.Get(ctx, tt.kind, tt.name, tt.namespace)
			require.NoError(t, err)
			assert.Equal(t, tt.name, got.Name())
			assert.Equal(t, tt.kind.String(), got.Kind())
			assert.Equal(t, "v1", got.APIVersion())
			assert.Equal(t, tt.namespace, got.Namespace())
		})
	}
}

func TestGatewayCreateOverridesIdentity(t *testing.T) {
	ctx := context.Background()
	client := newFakeDynamic()
	gw := NewGateway(client)

	m := podManifest(80, 443)
	m["kind"] = "Deployment"
	m["apiVersion"] = "apps/v1"
	m["metadata"].(map[string]any)["name"] = "spoofed"
	m["metadata"].(map[string]any)["namespace"] = "team-a"

	require.NoError(t, gw.Create(ctx, resource.PodKind, "web-1", "team-a", m))

	actions := client.Actions()
	require.Len(t, actions, 1)
	created := actions[0].(k8stesting.CreateAction).GetObject()
	submitted, err := runtime.DefaultUnstructuredConverter.ToUnstructured(created)
	require.NoError(t, err)

	want := map[string]any{
		"kind":       "Pod",
		"apiVersion": "v1",
		"metadata": map[string]any{
			"name":      "web-1",
			"namespace": "team-a",
			"labels":    map[string]any{"app": "web"},
		},
		"spec": map[string]any{
			"containers": []any{
				map[string]any{
					"name":  "web",
					"image": "nginx:1.25",
					"ports": []any{
						map[string]any{"containerPort": int64(80)},
						map[string]any{"containerPort": int64(443)},
					},
				},
			},
		},
	}
	if diff := cmp.Diff(want, submitted); diff != "" {
		t.Errorf("submitted manifest mismatch (-want +got):\n%s", diff)
	}

	got, err := gw.Get(ctx, resource.PodKind, "web-1", "team-a")
	require.NoError(t, err)
	spec := got["spec"].(map[string]any)
	ports := spec["containers"].([]any)[0].(map[string]any)["ports"].([]any)
	assert.Len(t, ports, 2)
}

func TestGatewayCreateConflict(t *testing.T) {
	ctx := context.Background()
	gw := NewGateway(newFakeDynamic(object(resource.NamespaceKind, "team-a", "")))

	err := gw.Create(ctx, resource.NamespaceKind, "team-a", "", nil)
	assert.True(t, resource.IsAlreadyExists(err))
	assert.Equal(t, resource.MsgAlreadyExists, err.Error())
}

func TestGatewayGetNotFound(t *testing.T) {
	gw := NewGateway(newFakeDynamic())

	_, err := gw.Get(context.Background(), resource.NamespaceKind, "team-a", "")
	require.Error(t, err)
	assert.True(t, resource.IsNotFound(err))
	assert.Equal(t, resource.MsgNotFound, err.Error())
}

func TestGatewayNamespaceLifecycle(t *testing.T) {
	ctx := context.Background()
	gw := NewGateway(newFakeDynamic())

	_, err := gw.Get(ctx, resource.NamespaceKind, "team-a", "")
	assert.True(t, resource.IsNotFound(err))

	require.NoError(t, gw.Create(ctx, resource.NamespaceKind, "team-a", "", nil))
	_, err = gw.Get(ctx, resource.NamespaceKind, "team-a", "")
	require.NoError(t, err)

	require.NoError(t, gw.Delete(ctx, resource.NamespaceKind, "team-a", ""))
	_, err = gw.Get(ctx, resource.NamespaceKind, "team-a", "")
	assert.True(t, resource.IsNotFound(err))

	err = gw.Delete(ctx, resource.NamespaceKind, "team-a", "")
	assert.True(t, resource.IsNotFound(err))
}

func TestGatewayList(t *testing.T) {
	ctx := context.Background()
	gw := NewGateway(newFakeDynamic(
		object(resource.NamespaceKind, "team-a", ""),
		object(resource.NamespaceKind, "team-b", ""),
		object(resource.PodKind, "web-1", "team-a"),
		object(resource.PodKind, "web-2", "team-a"),
		object(resource.PodKind, "other", "team-b"),
		object(resource.ServiceKind, "web", "team-a"),
	))

	pods, err := gw.List(ctx, "pod", "team-a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"web-1", "web-2"}, names(pods))

	for _, kind := range []string{"POD", "Pod", "pOd"} {
		got, err := gw.List(ctx, kind, "team-a")
		require.NoError(t, err)
		assert.ElementsMatch(t, names(pods), names(got), kind)
	}

	services, err := gw.List(ctx, "service", "team-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, names(services))

	namespaces, err := gw.List(ctx, "Namespace", "ignored")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"team-a", "team-b"}, names(namespaces))

	empty, err := gw.List(ctx, "pod", "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGatewayListUnsupportedKind(t *testing.T) {
	client := newFakeDynamic()
	gw := NewGateway(client)

	_, err := gw.List(context.Background(), "deployment", "team-a")
	require.Error(t, err)
	assert.True(t, resource.IsUnsupportedKind(err))
	assert.Equal(t, resource.MsgUnsupportedKind, err.Error())
	assert.Empty(t, client.Actions())
}

func TestGatewayUpdate(t *testing.T) {
	ctx := context.Background()
	client := newFakeDynamic()
	gw := NewGateway(client)
	require.NoError(t, gw.Create(ctx, resource.PodKind, "web-1", "team-a", podManifest(80)))

	patch := resource.Manifest{
		"metadata": map[string]any{"labels": map[string]any{"app": "api", "tier": "backend"}},
	}
	require.NoError(t, gw.Update(ctx, resource.PodKind, "web-1", "team-a", patch))

	last := client.Actions()[len(client.Actions())-1].(k8stesting.PatchAction)
	assert.Equal(t, types.MergePatchType, last.GetPatchType())
	assert.Equal(t, "web-1", last.GetName())
	assert.JSONEq(t, `{"metadata":{"labels":{"app":"api","tier":"backend"}}}`, string(last.GetPatch()))

	got, err := gw.Get(ctx, resource.PodKind, "web-1", "team-a")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"app": "api", "tier": "backend"}, got.Labels())
	assert.Equal(t, "web-1", got.Name())
}

func TestGatewayUpdateMissing(t *testing.T) {
	gw := NewGateway(newFakeDynamic())
	err := gw.Update(context.Background(), resource.ServiceKind, "web", "team-a", resource.Manifest{})
	assert.True(t, resource.IsNotFound(err))
}

func TestGatewayEmptyName(t *testing.T) {
	client := newFakeDynamic()
	gw := NewGateway(client)
	ctx := context.Background()

	_, err := gw.Get(ctx, resource.PodKind, "", "team-a")
	assert.True(t, resource.IsInvalidManifest(err))
	assert.True(t, resource.IsInvalidManifest(gw.Create(ctx, resource.PodKind, "", "team-a", nil)))
	assert.True(t, resource.IsInvalidManifest(gw.Update(ctx, resource.PodKind, "", "team-a", nil)))
	assert.True(t, resource.IsInvalidManifest(gw.Delete(ctx, resource.PodKind, "", "team-a")))
	assert.True(t, resource.IsUnsupportedKind(gw.Delete(ctx, resource.Kind("Deployment"), "x", "team-a")))
	assert.Empty(t, client.Actions())
}

func TestGatewayTranslatesUpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		legacy bool
		want   resource.ErrKind
	}{
		{"unavailable", apierrors.NewServiceUnavailable("down"), false, resource.ErrUnavailable},
		{"internal", apierrors.NewInternalError(errors.New("etcd")), false, resource.ErrUnavailable},
		{"internal legacy", apierrors.NewInternalError(errors.New("etcd")), true, resource.ErrInvalidManifest},
		{"bad request", apierrors.NewBadRequest("bad"), false, resource.ErrInvalidManifest},
		{"transport", errors.New("connection refused"), true, resource.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeDynamic()
			client.PrependReactor("*", "*", func(action k8stesting.Action) (bool, runtime.Object, error) {
				return true, nil, tt.err
			})
			gw := NewGateway(client, WithLegacyErrorMapping(tt.legacy))

			_, err := gw.Get(context.Background(), resource.PodKind, "web-1", "team-a")
			kind, ok := resource.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, kind)

			kind, _ = resource.KindOf(gw.Create(context.Background(), resource.PodKind, "web-1", "team-a", nil))
			assert.Equal(t, tt.want, kind)
			assert.Len(t, client.Actions(), 2)
		})
	}
}

func TestGatewayWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gw := NewGateway(newFakeDynamic())

	events, err := gw.Watch(ctx, "POD", "team-a")
	require.NoError(t, err)

	require.NoError(t, gw.Create(ctx, resource.PodKind, "web-1", "team-a", podManifest(80)))
	require.NoError(t, gw.Update(ctx, resource.PodKind, "web-1", "team-a", resource.Manifest{
		"metadata": map[string]any{"labels": map[string]any{"app": "api"}},
	}))
	require.NoError(t, gw.Delete(ctx, resource.PodKind, "web-1", "team-a"))

	var ops []resource.ResOperation
	for len(ops) < 3 {
		select {
		case event := <-events:
			assert.Equal(t, resource.PodKind, event.Kind)
			assert.Equal(t, "web-1", event.Res.Name())
			ops = append(ops, event.Operation)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out, got %v", ops)
		}
	}
	assert.Equal(t, []resource.ResOperation{resource.AddOP, resource.UpdateOP, resource.DeleteOP}, ops)

	cancel()
	select {
	case _, open := <-events:
		assert.False(t, open)
	case <-time.After(5 * time.Second):
		t.Fatal("events channel not closed after cancel")
	}
}

func TestGatewayWatchIsTraced(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	prev := monitoring.Tracer
	monitoring.Tracer = tp.Tracer("kubecrud")
	t.Cleanup(func() { monitoring.Tracer = prev })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := newFakeDynamic()
	gw := NewGateway(client)

	_, err := gw.Watch(ctx, "service", "team-a")
	require.NoError(t, err)

	client.PrependWatchReactor("services", func(k8stesting.Action) (bool, watch.Interface, error) {
		return true, nil, apierrors.NewServiceUnavailable("apiserver down")
	})
	_, err = gw.Watch(ctx, "service", "team-a")
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	for _, s := range spans {
		assert.Equal(t, "Gateway.watch", s.Name)
	}
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
}

func TestGatewayWatchUnsupportedKind(t *testing.T) {
	_, err := NewGateway(newFakeDynamic()).Watch(context.Background(), "configmap", "team-a")
	assert.True(t, resource.IsUnsupportedKind(err))
}

func names(items []resource.Manifest) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name())
	}
	return out
}

func TestManifestSurvivesJSONRoundTrip(t *testing.T) {
	// request bodies reach the gateway through encoding/json, numbers as float64
	var m resource.Manifest
	require.NoError(t, json.Unmarshal([]byte(`{"spec":{"containers":[{"name":"web","image":"nginx","ports":[{"containerPort":8080}]}]}}`), &m))

	gw := NewGateway(newFakeDynamic())
	require.NoError(t, gw.Create(context.Background(), resource.PodKind, "web-1", "team-a", m))
	got, err := gw.Get(context.Background(), resource.PodKind, "web-1", "team-a")
	require.NoError(t, err)
	assert.Equal(t, "web-1", got.Name())
}
