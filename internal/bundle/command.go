package bundle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/conneroisu/siteforge/internal/validation"
)

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// CommandTransform pipes content through an external program: content on
// stdin, result on stdout. A program that is not installed yields
// ErrTransformUnavailable; a non-zero exit is an ordinary failure carrying
// stderr.
func CommandTransform(name, command string, args ...string) (Transform, error) {
	if err := validation.ValidateCommand(command, nil); err != nil {
		return Transform{}, fmt.Errorf("transform %q: %w", name, err)
	}
	for _, arg := range args {
		if err := validation.ValidateArgument(arg); err != nil {
			return Transform{}, fmt.Errorf("transform %q: invalid argument '%s': %w", name, arg, err)
		}
	}
	args = append([]string(nil), args...)

	fn := func(ctx context.Context, content []byte) ([]byte, error) {
		bin, err := lookPath(command)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %v", command, ErrTransformUnavailable, err)
		}

		cmd := exec.CommandContext(ctx, bin, args...)
		cmd.Stdin = bytes.NewReader(content)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%s interrupted: %w", command, ctx.Err())
			}
			var execErr *exec.Error
			if errors.As(err, &execErr) {
				return nil, fmt.Errorf("%s: %w: %v", command, ErrTransformUnavailable, err)
			}
			return nil, fmt.Errorf("%s failed: %w\nOutput: %s", command, err, strings.TrimSpace(stderr.String()))
		}

		return stdout.Bytes(), nil
	}

	return Transform{Name: name, Fn: fn}, nil
}
