package bsp

import (
	"errors"
	"fmt"
)

var (
	ErrHeaderTooShort   = errors.New("header too short")
	ErrInvalidContainer = errors.New("invalid BSP container")
	ErrTruncatedLump    = errors.New("entity lump truncated")
	ErrIO               = errors.New("i/o failure")
)

// ErrorKind classifies a Parse failure.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindHeaderTooShort
	KindInvalidContainer
	KindTruncatedLump
	KindIO
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindHeaderTooShort:
		return "header_too_short"
	case KindInvalidContainer:
		return "invalid_container"
	case KindTruncatedLump:
		return "truncated_lump"
	case KindIO:
		return "io_failure"
	default:
		return fmt.Sprintf("kind_%d", int(k))
	}
}

// Kind reports the classification of err. Errors that did not come from this
// package are reported as KindIO.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrHeaderTooShort):
		return KindHeaderTooShort
	case errors.Is(err, ErrInvalidContainer):
		return KindInvalidContainer
	case errors.Is(err, ErrTruncatedLump):
		return KindTruncatedLump
	default:
		return KindIO
	}
}

// ParseError records the container path alongside the classified cause.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "bsp: " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func ioFailure(path string, cause error) error {
	return &ParseError{Path: path, Err: fmt.Errorf("%w: %w", ErrIO, cause)}
}
