package rangehttp

import (
	"errors"
	"fmt"

	"github.com/tanq16/rangedl/internal/ranges"
)

// Error kinds. Every failure returned by this package matches exactly one of
// these with errors.Is, and every one of them aborts the download.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrMetadata      = errors.New("metadata error")
	ErrTransport     = errors.New("transport error")
	ErrProtocol      = errors.New("protocol error")
	ErrIO            = errors.New("io error")
)

var (
	ErrMissingLengthHeader = errors.New("response has no Content-Length header")
	ErrInvalidLengthValue  = errors.New("Content-Length is not a valid non-negative integer")
	ErrNotFound            = errors.New("resource not found (404)")
	ErrUnexpectedStatus    = errors.New("unexpected status code")
	ErrSizeMismatch        = errors.New("size mismatch")
)

// RangeError is a failure tied to one range of the plan.
type RangeError struct {
	Kind  error
	Range ranges.ByteRange
	Err   error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%v: range %s: %v", e.Kind, e.Range.Header(), e.Err)
}

func (e *RangeError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func rangeErr(kind error, r ranges.ByteRange, err error) error {
	return &RangeError{Kind: kind, Range: r, Err: err}
}

func metadataErr(err error) error {
	return fmt.Errorf("%w: %w", ErrMetadata, err)
}

func configErr(err error) error {
	return fmt.Errorf("%w: %w", ErrConfiguration, err)
}

func ioErr(err error) error {
	return fmt.Errorf("%w: %w", ErrIO, err)
}
