package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Version is a concrete, downloadable tool version.
type Version struct {
	Number string `json:"version"`
	URL    string `json:"url"`
	// Checksum is the optional hex SHA-256 of the artifact.
	Checksum string `json:"sha256,omitempty"`
}

func (v Version) complete() bool {
	return strings.TrimSpace(v.Number) != "" && strings.TrimSpace(v.URL) != ""
}

// Backend maps a tool and a semver range to a concrete version.
type Backend interface {
	Resolve(ctx context.Context, tool, constraint string) (Version, error)
}

// Kind is the outcome class of a resolution.
type Kind int

const (
	Resolved Kind = iota
	// Unsatisfiable failures are permanent and never retried.
	Unsatisfiable
	// Transient failures are retried.
	Transient
)

func (k Kind) String() string {
	switch k {
	case Resolved:
		return "resolved"
	case Unsatisfiable:
		return "unsatisfiable"
	case Transient:
		return "transient"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Reason tags why a backend failed.
type Reason int

const (
	ReasonUnknown Reason = iota
	// ReasonNoMatch: no published version satisfies the range.
	ReasonNoMatch
	// ReasonInvalidConstraint: the range itself is malformed.
	ReasonInvalidConstraint
	// ReasonBackendData: the backend's own data could not be read.
	ReasonBackendData
)

func (r Reason) String() string {
	switch r {
	case ReasonNoMatch:
		return "no-match"
	case ReasonInvalidConstraint:
		return "invalid-constraint"
	case ReasonBackendData:
		return "backend-data"
	default:
		return "unknown"
	}
}

// Kind maps a failure reason onto the retry policy.
func (r Reason) Kind() Kind {
	switch r {
	case ReasonNoMatch, ReasonInvalidConstraint, ReasonBackendData:
		return Unsatisfiable
	default:
		return Transient
	}
}

// BackendError is a failure carrying an explicit reason tag.
type BackendError struct {
	Reason  Reason
	Message string
}

func (e *BackendError) Error() string {
	return e.Message
}

func errorf(reason Reason, format string, args ...any) error {
	return &BackendError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Messages understood by the text classifier. Backends that cannot return a
// BackendError are expected to print these.
const (
	NoResultMessage  = "No result"
	ParseErrorPrefix = "Could not parse"
	FetchErrorPrefix = "Could not get"
)

// ClassifyMessage classifies a plain failure text from a backend that does
// not tag its errors. Any text outside the known shapes is assumed transient,
// which also covers permanent errors in formats this function does not know.
func ClassifyMessage(msg string) Reason {
	msg = strings.TrimSpace(msg)
	switch {
	case msg == NoResultMessage:
		return ReasonNoMatch
	case strings.HasPrefix(msg, ParseErrorPrefix):
		return ReasonInvalidConstraint
	case strings.HasPrefix(msg, FetchErrorPrefix):
		return ReasonBackendData
	default:
		return ReasonUnknown
	}
}

// Classify returns the reason of err, preferring an explicit tag over the
// text classifier.
func Classify(err error) Reason {
	if err == nil {
		return ReasonUnknown
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be.Reason
	}
	return ClassifyMessage(err.Error())
}

// Outcome is the result of Resolver.Resolve. Version is only set when Kind is
// Resolved; Err is only set otherwise.
type Outcome struct {
	Kind     Kind
	Version  Version
	Reason   Reason
	Err      error
	Attempts int
}

// OK reports whether the outcome is Resolved.
func (o Outcome) OK() bool {
	return o.Kind == Resolved
}
