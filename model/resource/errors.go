package resource

import "errors"

// ErrKind classifies failures independent of HTTP.
type ErrKind int

const (
	ErrUnavailable     ErrKind = iota // anything the cluster could not serve
	ErrNotFound                       // 404
	ErrAlreadyExists                  // 409
	ErrInvalidManifest                // 400, 422
	ErrUnsupportedKind                // kind outside Pod, Service, Namespace
)

const (
	MsgNotFound        = "Provided resource not found or namespace does not exist."
	MsgAlreadyExists   = "Resource already exist."
	MsgInvalidManifest = "Invalid request body. Check if provided values are correct."
	MsgUnavailable     = "The service is unavailable."
	MsgUnsupportedKind = "Provided kind is not supported."
)

var kindMessages = map[ErrKind]string{
	ErrUnavailable:     MsgUnavailable,
	ErrNotFound:        MsgNotFound,
	ErrAlreadyExists:   MsgAlreadyExists,
	ErrInvalidManifest: MsgInvalidManifest,
	ErrUnsupportedKind: MsgUnsupportedKind,
}

var kindNames = map[ErrKind]string{
	ErrUnavailable:     "Unavailable",
	ErrNotFound:        "NotFound",
	ErrAlreadyExists:   "AlreadyExists",
	ErrInvalidManifest: "InvalidManifest",
	ErrUnsupportedKind: "UnsupportedKind",
}

func (k ErrKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// DomainError is the only error type the gateway hands to the routing layer.
type DomainError struct {
	Kind    ErrKind
	Message string
	// Code is the upstream status code, 0 when the failure never reached the API server.
	Code int32
	Err  error
}

func NewDomainError(kind ErrKind, code int32, err error) *DomainError {
	return &DomainError{
		Kind:    kind,
		Message: kindMessages[kind],
		Code:    code,
		Err:     err,
	}
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first DomainError in err's chain.
func KindOf(err error) (ErrKind, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind, true
	}
	return 0, false
}

func IsNotFound(err error) bool        { return isKind(err, ErrNotFound) }
func IsAlreadyExists(err error) bool   { return isKind(err, ErrAlreadyExists) }
func IsInvalidManifest(err error) bool { return isKind(err, ErrInvalidManifest) }
func IsUnavailable(err error) bool     { return isKind(err, ErrUnavailable) }
func IsUnsupportedKind(err error) bool { return isKind(err, ErrUnsupportedKind) }

func isKind(err error, kind ErrKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
