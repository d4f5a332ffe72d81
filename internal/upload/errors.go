package upload

import (
	"errors"
	"fmt"
)

// Validation errors. Their text is shown to the user verbatim.
var (
	ErrNoFolders          = errors.New("Please select folders to upload.")
	ErrInvalidFolderNames = errors.New("All folders must have valid names.")
)

// FallbackMessage is used when a failure carries no readable message.
const FallbackMessage = "Upload failed"

// errorMessage extracts a user-readable message from an upload failure.
func errorMessage(err error) string {
	if err == nil {
		return FallbackMessage
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return FallbackMessage
}

// PanicError wraps a value recovered from a panicking uploader.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok && err.Error() != "" {
		return err.Error()
	}
	return FallbackMessage
}

func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// String keeps the raw panic value for logs.
func (e *PanicError) String() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
