package img2aa

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendNotReady signals that the recognition backend for the
	// selected mode is missing or has no model session.
	ErrBackendNotReady = errors.New("recognition backend not ready")
	// ErrNoFont signals a rebuild without a usable font face.
	ErrNoFont = errors.New("no font face")
	// ErrEmptyCharset signals a rebuild with no glyphs to recognize.
	ErrEmptyCharset = errors.New("empty character set")
	// ErrDimMismatch signals an embedding whose length differs from the
	// glyph database dimension.
	ErrDimMismatch = errors.New("embedding dimension mismatch")
	// ErrGlyphDBMismatch signals a prebuilt glyph database built for a
	// different font or character set.
	ErrGlyphDBMismatch = errors.New("glyph database does not match font or charset")
)

// InferenceError wraps a failure of a single backend call.
type InferenceError struct {
	Backend string
	Err     error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s inference: %v", e.Backend, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }
