package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"k8s.io/klog/v2"

	"github.com/CloudDetail/kubecrud/client"
	"github.com/CloudDetail/kubecrud/model/resource"
)

const maxBodyBytes = 1 << 20

const msgMethodNotAllowed = "Method not allowed."

// decodeManifest reads a JSON object body. Anything else is an invalid manifest.
func decodeManifest(r *http.Request) (resource.Manifest, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, resource.NewDomainError(resource.ErrInvalidManifest, 0, err)
	}
	if len(data) > maxBodyBytes {
		return nil, resource.NewDomainError(resource.ErrInvalidManifest, 0, errors.New("request body too large"))
	}
	var manifest resource.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, resource.NewDomainError(resource.ErrInvalidManifest, 0, err)
	}
	if manifest == nil {
		return nil, resource.NewDomainError(resource.ErrInvalidManifest, 0, errors.New("request body is not a JSON object"))
	}
	return manifest, nil
}

// StatusCode maps a domain error onto the HTTP status the routes answer with.
func StatusCode(err error) int {
	var domainErr *resource.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusServiceUnavailable
	}
	switch domainErr.Kind {
	case resource.ErrNotFound, resource.ErrUnsupportedKind:
		return http.StatusNotFound
	case resource.ErrAlreadyExists:
		return http.StatusConflict
	case resource.ErrInvalidManifest:
		if domainErr.Code == http.StatusUnprocessableEntity {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusCode(err)
	message := err.Error()
	var domainErr *resource.DomainError
	if !errors.As(err, &domainErr) {
		message = resource.MsgUnavailable
	}

	if code >= http.StatusInternalServerError {
		klog.ErrorS(err, "request failed", "method", r.Method, "path", r.URL.Path, "code", code)
	} else {
		klog.V(1).InfoS("request rejected", "method", r.Method, "path", r.URL.Path, "code", code, "err", errors.Unwrap(err))
	}
	writeMessage(w, code, message)
}

func writeMessage(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, client.MessageResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		klog.ErrorS(err, "write response body")
	}
}
