package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for transport mapping and logging.
type Kind string

const (
	KindConfigNotFound         Kind = "config_not_found"
	KindSessionError           Kind = "session_error"
	KindAttachmentNotFound     Kind = "attachment_not_found"
	KindUnsupportedFileType    Kind = "unsupported_file_type"
	KindConversionFailure      Kind = "conversion_failure"
	KindRetrievalUploadFailure Kind = "retrieval_upload_failure"
	KindProviderCallFailure    Kind = "provider_call_failure"
	KindModeConflict           Kind = "mode_conflict"
	KindValidation             Kind = "validation_error"
)

// Error is the single user-facing error type: a kind, a safe message, and the
// wrapped cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from any error in the chain, or "" if none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// Is lets errors.Is match on kind via sentinel-style comparison.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}
