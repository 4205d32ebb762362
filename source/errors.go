package source

import "errors"

var (
	// ErrNotRegularFile is returned when a path names a directory or device.
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrBinaryContent is returned when input is not valid text.
	ErrBinaryContent = errors.New("input does not look like text")
)
