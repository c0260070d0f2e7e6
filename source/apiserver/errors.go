package apiserver

import (
	"errors"
	"net/http"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/CloudDetail/kubecrud/model/resource"
)

// ErrorTranslator turns a failed cluster API call into exactly one
// *resource.DomainError.
type ErrorTranslator struct {
	// Legacy maps every status other than 404 and 409 to InvalidManifest,
	// the behaviour of the first release of this service.
	Legacy bool
}

// Translate returns nil for a nil err.
func (t ErrorTranslator) Translate(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *resource.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var status apierrors.APIStatus
	if !errors.As(err, &status) {
		// the request never produced an API status (dial, TLS, timeout)
		return resource.NewDomainError(resource.ErrUnavailable, 0, err)
	}
	code := status.Status().Code
	return resource.NewDomainError(t.kindFor(code), code, err)
}

func (t ErrorTranslator) kindFor(code int32) resource.ErrKind {
	switch {
	case code == http.StatusNotFound:
		return resource.ErrNotFound
	case code == http.StatusConflict:
		return resource.ErrAlreadyExists
	case t.Legacy:
		return resource.ErrInvalidManifest
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return resource.ErrInvalidManifest
	default:
		return resource.ErrUnavailable
	}
}
