package convert

import "fmt"

// The three failure classes a conversion can signal. Each wraps its cause so
// callers can errors.As on the class and still unwrap the underlying error.

// OpenError means the source file is missing, unreadable, or not parseable
// as a NetCDF container.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open source %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// FilesystemError means the output directory could not be created.
type FilesystemError struct {
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("create output directory %s: %v", e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// WriteError means the destination rejected the artifact: an unwritable
// path, disk exhaustion, or a variable that does not serialize.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write artifact %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
