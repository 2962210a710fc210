package config

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/conneroisu/siteforge/internal/bundle"
	siteerrors "github.com/conneroisu/siteforge/internal/errors"
	"github.com/conneroisu/siteforge/internal/posttransform"
	"github.com/conneroisu/siteforge/internal/validation"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
	// Code is the error code reported when this error rejects a load.
	Code string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("❌ Validation Errors:\n")
		for _, err := range vr.Errors {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("    💡 %s\n", suggestion))
			}
		}
		builder.WriteString("\n")
	}

	if len(vr.Warnings) > 0 {
		builder.WriteString("⚠️  Validation Warnings:\n")
		for _, warning := range vr.Warnings {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", warning.Field, warning.Message))
			for _, suggestion := range warning.Suggestions {
				builder.WriteString(fmt.Sprintf("    💡 %s\n", suggestion))
			}
		}
	}

	return builder.String()
}

// validateConfig returns the first validation error as a configuration
// error, if any.
func validateConfig(config *Config) error {
	result := ValidateConfigWithDetails(config)
	if !result.HasErrors() {
		return nil
	}

	first := result.Errors[0]
	code := first.Code
	if code == "" {
		code = siteerrors.ErrCodeInvalidRule
	}
	return siteerrors.Wrap(&first, siteerrors.ErrorTypeConfig, code, "configuration rejected").
		WithPath(first.Field)
}

// ValidateConfigWithDetails checks every field and collects all problems.
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validateDirs(config, result)
	validateCopies(config, result)
	validateTransforms(config, result)
	validateBundles(config, result)
	validateWatch(config, result)
	validatePostTransforms(config, result)

	result.Valid = !result.HasErrors()

	return result
}

func validateDirs(config *Config, result *ValidationResult) {
	for field, value := range map[string]string{
		"input":  config.Input,
		"output": config.Output,
	} {
		if err := validation.ValidateRelativePath(value); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Value:   value,
				Message: err.Error(),
				Suggestions: []string{
					"Use a path relative to the project root, e.g. src or _site",
				},
			})
		}
	}

	if path.Clean(config.Input) == path.Clean(config.Output) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "output",
			Value:   config.Output,
			Message: "output directory must differ from input directory",
			Suggestions: []string{
				"Write the site to a dedicated directory such as _site",
			},
		})
	}

	for field, value := range map[string]string{
		"includes": config.Includes,
		"data":     config.Data,
	} {
		if value == "" {
			continue
		}
		if err := validation.ValidateRelativePath(value); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Value:   value,
				Message: fmt.Sprintf("must be relative to input: %v", err),
			})
		}
	}
}

func validateCopies(config *Config, result *ValidationResult) {
	for i, c := range config.Copy {
		field := fmt.Sprintf("copy[%d]", i)
		if err := validation.ValidateRelativePath(c.Source); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field + ".source",
				Value:   c.Source,
				Message: err.Error(),
			})
		}
		if err := validation.ValidateRelativePath(c.Destination); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field + ".destination",
				Value:   c.Destination,
				Message: err.Error(),
				Suggestions: []string{
					"Destinations are relative to the output directory and may not leave it",
				},
			})
		}
	}

	for _, name := range config.OptionalStatic {
		if strings.Contains(name, "/") || strings.Contains(name, "\\") || name == "" || name == ".." {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "optional_static",
				Value:   name,
				Message: "entries must be plain file names",
			})
		}
	}
}

func validateBundles(config *Config, result *ValidationResult) {
	seen := make(map[string]bool, len(config.Bundles))
	for i, b := range config.Bundles {
		field := fmt.Sprintf("bundles[%d]", i)
		if b.ID == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field + ".id",
				Message: "bundle id cannot be empty",
			})
		} else if seen[b.ID] {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field + ".id",
				Value:   b.ID,
				Message: fmt.Sprintf("bundle id %q declared twice", b.ID),
				Code:    siteerrors.ErrCodeDuplicateBundle,
				Suggestions: []string{
					"Bundle ids must be unique; merge the sources into one bundle or rename one",
				},
			})
		}
		seen[b.ID] = true

		if err := validation.ValidateRelativePath(b.Output); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field + ".output",
				Value:   b.Output,
				Message: err.Error(),
			})
		}
		if len(b.Sources) == 0 {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field + ".sources",
				Message: "bundle needs at least one source",
			})
		}
		if _, err := bundle.ParseFallbackPolicy(b.Fallback); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field + ".fallback",
				Value:   b.Fallback,
				Message: err.Error(),
			})
		}
		for _, name := range b.Transforms {
			if _, ok := config.Transforms[name]; !ok && name != "identity" {
				result.Errors = append(result.Errors, ValidationError{
					Field:   field + ".transforms",
					Value:   name,
					Message: fmt.Sprintf("unknown transform %q", name),
					Code:    siteerrors.ErrCodeUnknownTransform,
					Suggestions: []string{
						fmt.Sprintf("Declare it under transforms (known: %v)", transformNames(config)),
					},
				})
			}
		}
	}
}

func validateTransforms(config *Config, result *ValidationResult) {
	for name, t := range config.Transforms {
		field := "transforms." + name
		if err := validation.ValidateCommand(t.Command, nil); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field + ".command",
				Value:   t.Command,
				Message: err.Error(),
			})
			continue
		}
		for _, arg := range t.Args {
			if err := validation.ValidateArgument(arg); err != nil {
				result.Errors = append(result.Errors, ValidationError{
					Field:   field + ".args",
					Value:   arg,
					Message: err.Error(),
				})
			}
		}
	}
}

func validateWatch(config *Config, result *ValidationResult) {
	for _, dir := range config.Watch {
		if err := validation.ValidateRelativePath(dir); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "watch",
				Value:   dir,
				Message: err.Error(),
			})
		}
	}
	if len(config.Watch) == 0 {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "watch",
			Message: "no watch targets; siteforge watch will only react to the input directory",
		})
	}
}

func validatePostTransforms(config *Config, result *ValidationResult) {
	for i, pt := range config.PostTransforms {
		if _, err := posttransform.NewRule(pt.AppliesTo, pt.Rewrite); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   fmt.Sprintf("post_transforms[%d]", i),
				Value:   pt.Rewrite,
				Message: err.Error(),
				Code:    siteerrors.ErrCodeUnknownRewrite,
			})
		}
	}
}

func transformNames(config *Config) []string {
	names := []string{"identity"}
	for name := range config.Transforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
