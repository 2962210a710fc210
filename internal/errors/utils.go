package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context, creating a SiteError if the
// input is not already one. Path and page context from an inner SiteError are
// preserved.
func Wrap(err error, errType ErrorType, code, message string) *SiteError {
	if err == nil {
		return nil
	}

	var se *SiteError
	if errors.As(err, &se) {
		return &SiteError{
			Type:    errType,
			Code:    code,
			Message: message,
			Cause:   se,
			Path:    se.Path,
			Page:    se.Page,
			Context: se.Context,
		}
	}

	return &SiteError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapIO wraps an error as an I/O error on path.
func WrapIO(err error, code, path string) *SiteError {
	se := Wrap(err, ErrorTypeIO, code, "filesystem operation failed")
	if se != nil {
		se.Path = path
	}
	return se
}

// WrapPage attaches the page being rendered to err. Other errors are wrapped
// with the page path in their message.
func WrapPage(err error, page string) error {
	if err == nil {
		return nil
	}

	var se *SiteError
	if errors.As(err, &se) {
		cp := *se
		cp.Page = page
		return &cp
	}

	return fmt.Errorf("rendering %s: %w", page, err)
}

// CollectErrors helper for common error collection patterns
func CollectErrors(errs ...error) []error {
	var collected []error
	for _, err := range errs {
		if err != nil {
			collected = append(collected, err)
		}
	}
	return collected
}

// FirstError returns the first non-nil error from a list
func FirstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
