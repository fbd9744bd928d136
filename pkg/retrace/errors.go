package retrace

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindRequestMalformed is a request that cannot be parsed.
	KindRequestMalformed
	// KindMappingUnavailable is a version whose mapping table cannot be found or read.
	KindMappingUnavailable
	// KindMappingCorrupt is a mapping table that was found but failed to parse.
	KindMappingCorrupt
)

func (k ErrorKind) String() string {
	switch k {
	case KindRequestMalformed:
		return "request_malformed"
	case KindMappingUnavailable:
		return "mapping_unavailable"
	case KindMappingCorrupt:
		return "mapping_corrupt"
	default:
		return "unknown"
	}
}

// Error is a failed resolution request.
type Error struct {
	Kind    ErrorKind
	Version string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRequestMalformed:
		return fmt.Sprintf("malformed request: %v", e.Err)
	case KindMappingUnavailable:
		return fmt.Sprintf("mapping unavailable for version %s: %v", e.Version, e.Err)
	case KindMappingCorrupt:
		return fmt.Sprintf("mapping corrupt for version %s: %v", e.Version, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Malformed returns a KindRequestMalformed error.
func Malformed(format string, args ...interface{}) error {
	return &Error{Kind: KindRequestMalformed, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of a resolution error, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
