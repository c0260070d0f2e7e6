// Package handler is the HTTP routing layer. It decodes requests, calls the
// resource gateway and renders manifests and domain errors as JSON.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/CloudDetail/kubecrud/client"
	"github.com/CloudDetail/kubecrud/model/resource"
)

// ResourceGateway is the subset of the cluster gateway the routes need.
type ResourceGateway interface {
	Get(ctx context.Context, kind resource.Kind, name, namespace string) (resource.Manifest, error)
	List(ctx context.Context, kind string, namespace string) ([]resource.Manifest, error)
	Create(ctx context.Context, kind resource.Kind, name, namespace string, manifest resource.Manifest) error
	Update(ctx context.Context, kind resource.Kind, name, namespace string, patch resource.Manifest) error
	Delete(ctx context.Context, kind resource.Kind, name, namespace string) error
}

// Pinger reports whether the cluster API answers.
type Pinger interface {
	Ping() error
}

type Registrar interface {
	RegisterHandler(pattern string, handler http.HandlerFunc)
}

type Handler struct {
	gateway ResourceGateway
	pinger  Pinger
}

func New(gateway ResourceGateway, pinger Pinger) *Handler {
	return &Handler{gateway: gateway, pinger: pinger}
}

// Register mounts every route on srv.
func (h *Handler) Register(srv Registrar) {
	srv.RegisterHandler("GET /list_resources/{namespace}/{kind}", h.ListResources)

	const namespacePath = "/namespace/{name}/{$}"
	srv.RegisterHandler("GET "+namespacePath, h.get(resource.NamespaceKind, projectNamespace))
	srv.RegisterHandler("POST "+namespacePath, h.create(resource.NamespaceKind))
	srv.RegisterHandler("DELETE "+namespacePath, h.delete(resource.NamespaceKind))
	srv.RegisterHandler(namespacePath, methodNotAllowed(http.MethodGet, http.MethodPost, http.MethodDelete))

	const podPath = "/pod/{name}/{namespace}/{$}"
	srv.RegisterHandler("GET "+podPath, h.get(resource.PodKind, projectPod))
	srv.RegisterHandler("POST "+podPath, h.create(resource.PodKind))
	srv.RegisterHandler("PUT "+podPath, h.update(resource.PodKind))
	srv.RegisterHandler("DELETE "+podPath, h.delete(resource.PodKind))
	srv.RegisterHandler(podPath, methodNotAllowed(http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete))

	const servicePath = "/service/{name}/{namespace}/{$}"
	srv.RegisterHandler("GET "+servicePath, h.get(resource.ServiceKind, projectService))
	srv.RegisterHandler("POST "+servicePath, h.create(resource.ServiceKind))
	srv.RegisterHandler("PUT "+servicePath, h.update(resource.ServiceKind))
	srv.RegisterHandler("DELETE "+servicePath, h.delete(resource.ServiceKind))
	srv.RegisterHandler(servicePath, methodNotAllowed(http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete))

	srv.RegisterHandler("GET /healthz", h.Healthz)
	srv.RegisterHandler("GET /readyz", h.Readyz)

	// Unmatched paths end here instead of the mux's plain-text 404 and
	// trailing-slash redirects.
	srv.RegisterHandler("/", NotFound)
}

func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusNotFound, resource.MsgNotFound)
}

func methodNotAllowed(allowed ...string) http.HandlerFunc {
	allow := strings.Join(allowed, ", ")
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", allow)
		writeMessage(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	}
}

func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	items, err := h.gateway.List(r.Context(), r.PathValue("kind"), r.PathValue("namespace"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name())
	}
	writeJSON(w, http.StatusOK, client.ResourceList{Resources: names})
}

func (h *Handler) get(kind resource.Kind, project func(resource.Manifest) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, namespace := pathParams(r)
		manifest, err := h.gateway.Get(r.Context(), kind, name, namespace)
		if err != nil {
			writeError(w, r, err)
			return
		}
		dto, err := project(manifest)
		if err != nil {
			writeError(w, r, resource.NewDomainError(resource.ErrUnavailable, 0, err))
			return
		}
		writeJSON(w, http.StatusOK, dto)
	}
}

// create ignores the body for namespaces, only the name matters there.
func (h *Handler) create(kind resource.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, namespace := pathParams(r)
		manifest := resource.Manifest{}
		if kind.Namespaced() {
			var err error
			if manifest, err = decodeManifest(r); err != nil {
				writeError(w, r, err)
				return
			}
		}
		if err := h.gateway.Create(r.Context(), kind, name, namespace, manifest); err != nil {
			writeError(w, r, err)
			return
		}
		writeMessage(w, http.StatusAccepted, client.MsgCreated)
	}
}

func (h *Handler) update(kind resource.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, namespace := pathParams(r)
		patch, err := decodeManifest(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := h.gateway.Update(r.Context(), kind, name, namespace, patch); err != nil {
			writeError(w, r, err)
			return
		}
		writeMessage(w, http.StatusAccepted, client.MsgUpdated)
	}
}

func (h *Handler) delete(kind resource.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, namespace := pathParams(r)
		if err := h.gateway.Delete(r.Context(), kind, name, namespace); err != nil {
			writeError(w, r, err)
			return
		}
		writeMessage(w, http.StatusAccepted, client.MsgDeleted)
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(); err != nil {
			writeError(w, r, resource.NewDomainError(resource.ErrUnavailable, 0, err))
			return
		}
	}
	h.Healthz(w, r)
}

// namespace is empty for the Namespace routes.
func pathParams(r *http.Request) (name, namespace string) {
	return r.PathValue("name"), r.PathValue("namespace")
}
