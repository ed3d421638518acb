package errors

import stderrors "errors"

// Is, As and New re-export the standard library helpers so callers that
// import this package under its default name keep access to them.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

func New(text string) error {
	return stderrors.New(text)
}
