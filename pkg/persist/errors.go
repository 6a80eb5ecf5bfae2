// Package persist stores the location tree as a single JSON document
package persist

import "errors"

var (
	// ErrCorruptState indicates a stored document that cannot be parsed
	ErrCorruptState = errors.New("persist: corrupt state")

	// ErrIO indicates a failed or timed out read or write
	ErrIO = errors.New("persist: io error")

	// ErrNotExist is returned by stores when no document has been saved yet
	ErrNotExist = errors.New("persist: document does not exist")
)
