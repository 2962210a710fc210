package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of build errors.
type ErrorType string

const (
	// ErrorTypeConfig covers duplicate bundle ids, destination collisions and
	// malformed rules. Always fatal, always raised before any write.
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeMissingSource is a non-optional copy or bundle source that does
	// not exist.
	ErrorTypeMissingSource ErrorType = "missing_source"
	// ErrorTypeTransform is a bundle transform that failed under the abort
	// policy.
	ErrorTypeTransform ErrorType = "transform"
	// ErrorTypeUnknownFilter is a template that used a filter nobody registered.
	ErrorTypeUnknownFilter ErrorType = "unknown_filter"
	ErrorTypeIO            ErrorType = "io"
)

// Sentinels for errors.Is. They match any SiteError of the same type.
var (
	ErrConfiguration = &SiteError{Type: ErrorTypeConfig}
	ErrMissingSource = &SiteError{Type: ErrorTypeMissingSource}
	ErrTransform     = &SiteError{Type: ErrorTypeTransform}
	ErrUnknownFilter = &SiteError{Type: ErrorTypeUnknownFilter}
	ErrIO            = &SiteError{Type: ErrorTypeIO}
)

// SiteError is a structured error type with context.
type SiteError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
	// Path is the source or destination path the error is about.
	Path string
	// Page is the template being rendered when the error surfaced.
	Page    string
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *SiteError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Page != "" {
		parts = append(parts, "page:"+e.Page)
	}

	if e.Path != "" {
		parts = append(parts, e.Path+":")
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *SiteError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison. A target without a code matches every
// error of its type.
func (e *SiteError) Is(target error) bool {
	var t *SiteError
	if !errors.As(target, &t) {
		return false
	}
	if e.Type != t.Type {
		return false
	}

	return t.Code == "" || e.Code == t.Code
}

// WithContext adds context information to the error.
func (e *SiteError) WithContext(key string, value interface{}) *SiteError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath sets the path the error refers to.
func (e *SiteError) WithPath(path string) *SiteError {
	e.Path = path

	return e
}

// WithPage records the page whose render produced the error.
func (e *SiteError) WithPage(page string) *SiteError {
	e.Page = page

	return e
}

// Error creation functions

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *SiteError {
	return &SiteError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewMissingSourceError creates an error for a required source that is absent.
func NewMissingSourceError(path string, cause error) *SiteError {
	return &SiteError{
		Type:    ErrorTypeMissingSource,
		Code:    ErrCodeMissingSource,
		Message: "required source does not exist",
		Cause:   cause,
		Path:    path,
	}
}

// NewTransformError creates a transform failure for the named bundle stage.
func NewTransformError(bundleID, transform string, cause error) *SiteError {
	return &SiteError{
		Type:    ErrorTypeTransform,
		Code:    ErrCodeTransformFailed,
		Message: fmt.Sprintf("bundle %q: transform %q failed", bundleID, transform),
		Cause:   cause,
	}
}

// NewUnknownFilterError creates an unknown filter error.
func NewUnknownFilterError(name string) *SiteError {
	return &SiteError{
		Type:    ErrorTypeUnknownFilter,
		Code:    ErrCodeUnknownFilter,
		Message: fmt.Sprintf("unknown filter %q", name),
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *SiteError {
	return &SiteError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsConfigurationError reports whether err is a configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsMissingSource reports whether err is a missing required source.
func IsMissingSource(err error) bool {
	return errors.Is(err, ErrMissingSource)
}

// IsTransformFailure reports whether err is a fatal transform failure.
func IsTransformFailure(err error) bool {
	return errors.Is(err, ErrTransform)
}

// IsUnknownFilter reports whether err is an unknown filter lookup.
func IsUnknownFilter(err error) bool {
	return errors.Is(err, ErrUnknownFilter)
}

// ErrorHandler provides centralized error reporting for the CLI.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs an error with fields appropriate to its type.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var se *SiteError
	if !errors.As(err, &se) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	switch se.Type {
	case ErrorTypeConfig, ErrorTypeMissingSource:
		h.logger.Error(ctx, err, "Configuration rejected before any write",
			"type", se.Type,
			"code", se.Code,
			"path", se.Path)
	case ErrorTypeUnknownFilter:
		h.logger.Error(ctx, err, "Render failed",
			"type", se.Type,
			"page", se.Page)
	default:
		h.logger.Error(ctx, err, "Build failed",
			"type", se.Type,
			"code", se.Code,
			"path", se.Path)
	}
}

// Common error codes.
const (
	ErrCodeDuplicateBundle  = "ERR_DUPLICATE_BUNDLE"
	ErrCodeCollision        = "ERR_DESTINATION_COLLISION"
	ErrCodeInvalidRule      = "ERR_INVALID_RULE"
	ErrCodeAbsolutePath     = "ERR_ABSOLUTE_PATH"
	ErrCodePathTraversal    = "ERR_PATH_TRAVERSAL"
	ErrCodeDuplicateFilter  = "ERR_DUPLICATE_FILTER"
	ErrCodeRegistryFrozen   = "ERR_REGISTRY_FROZEN"
	ErrCodeUnknownTransform = "ERR_UNKNOWN_TRANSFORM"
	ErrCodeUnknownRewrite   = "ERR_UNKNOWN_REWRITE"
	ErrCodeMissingSource    = "ERR_MISSING_SOURCE"
	ErrCodeTransformFailed  = "ERR_TRANSFORM_FAILED"
	ErrCodeUnknownFilter    = "ERR_UNKNOWN_FILTER"
	ErrCodeWriteFailed      = "ERR_WRITE_FAILED"
	ErrCodeReadFailed       = "ERR_READ_FAILED"
	ErrCodeRenderFailed     = "ERR_RENDER_FAILED"
)
