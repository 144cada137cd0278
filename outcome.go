package harvest

import (
	"errors"
	"fmt"
	"net/http"
)

// FailureKind classifies why an attempt or a descriptor failed.
type FailureKind string

// FailureKind constants.
const (
	// KindTransport is a connection, TLS or timeout error. Retryable.
	KindTransport FailureKind = "transport"
	// KindClient is a 4xx response. Not retryable.
	KindClient FailureKind = "client"
	// KindServer is a 5xx response. Retryable.
	KindServer FailureKind = "server"
	// KindStatus is any other non-200 status. Retryable.
	KindStatus FailureKind = "status"
	// KindCredential means the credential refresh itself failed.
	KindCredential FailureKind = "credential"
	// KindExhausted means every attempt was used without a 200.
	KindExhausted FailureKind = "exhausted"
	// KindProcess means the body was fetched but could not be processed.
	KindProcess FailureKind = "process"
	// KindCanceled means the context was canceled before a terminal outcome.
	KindCanceled FailureKind = "canceled"
)

// Retryable reports whether another attempt may change the outcome.
func (k FailureKind) Retryable() bool {
	switch k {
	case KindTransport, KindServer, KindStatus, KindCredential:
		return true
	default:
		return false
	}
}

// Outcome is the result of a single GET attempt. Exactly one of Body or
// Kind is meaningful: a zero Kind means the server answered with a 2xx.
type Outcome struct {
	Status int
	Body   []byte
	Kind   FailureKind
	Err    error
}

// OK reports whether the attempt returned HTTP 200.
func (o Outcome) OK() bool {
	return o.Kind == "" && o.Status == http.StatusOK
}

// ClassifyStatus maps an HTTP status code to a FailureKind.
// 2xx statuses return an empty kind.
func ClassifyStatus(status int) FailureKind {
	switch {
	case status >= 200 && status < 300:
		return ""
	case status >= 400 && status < 500:
		return KindClient
	case status >= 500 && status < 600:
		return KindServer
	default:
		return KindStatus
	}
}

// FetchError is the terminal failure for one descriptor.
type FetchError struct {
	Kind     FailureKind
	URL      string
	Status   int // last HTTP status observed, 0 if none
	Attempts int
	Err      error // last underlying error, if any
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s failure for %s", e.Kind, e.URL)
	if e.Attempts > 0 {
		msg += fmt.Sprintf(" after %d attempt(s)", e.Attempts)
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// FailureKindOf returns the kind of a FetchError found in err's chain,
// KindCanceled for context errors, or KindProcess otherwise.
func FailureKindOf(err error) FailureKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if isContextErr(err) {
		return KindCanceled
	}
	return KindProcess
}
