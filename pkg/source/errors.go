package source

import "fmt"

type ClosedError struct {
	Path string
}

func (e *ClosedError) Error() string {
	return fmt.Sprintf("source already closed for path %s", e.Path)
}

func NewErrClosed(path string) *ClosedError {
	return &ClosedError{
		Path: path,
	}
}
