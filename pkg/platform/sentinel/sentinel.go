package sentinel

import "errors"

// Sentinel errors returned by stores and infrastructure clients. They describe
// the state of a resource, not whether a request was well formed; services
// translate them into pkg/domain-errors codes.
//
//   - ErrNotFound: no record with the requested key
//   - ErrConflict: a uniqueness constraint rejected the write
//   - ErrUnavailable: the backing system could not be reached
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
