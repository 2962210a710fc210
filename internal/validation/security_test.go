package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateArgument(t *testing.T) {
	testCases := []struct {
		arg     string
		wantErr bool
	}{
		{"--compress", false},
		{"--mangle", false},
		{"-o", false},
		{"; rm -rf /", true},
		{"$(whoami)", true},
		{"a|b", true},
		{"`id`", true},
	}

	for _, tc := range testCases {
		t.Run(tc.arg, func(t *testing.T) {
			err := ValidateArgument(tc.arg)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCommand(t *testing.T) {
	assert.NoError(t, ValidateCommand("csso", nil))
	assert.Error(t, ValidateCommand("", nil))
	assert.Error(t, ValidateCommand("csso;ls", nil))

	allowed := map[string]bool{"csso": true, "terser": true}
	assert.NoError(t, ValidateCommand("terser", allowed))
	assert.Error(t, ValidateCommand("curl", allowed))
}

func TestValidateRelativePath(t *testing.T) {
	testCases := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"simple file", "favicon.ico", false},
		{"nested", "assets/css/bundle.css", false},
		{"dot segments inside", "assets/./css/../js/a.js", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"absolute", "/etc/passwd", true},
		{"windows absolute", `C:\site\x`, true},
		{"escapes root", "../outside.txt", true},
		{"escapes after clean", "assets/../../x", true},
		{"parent only", "..", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRelativePath(tc.path)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCleanRelativePath(t *testing.T) {
	got, err := CleanRelativePath(`assets\css\..\js\app.js`)
	require.NoError(t, err)
	assert.Equal(t, "assets/js/app.js", got)

	_, err = CleanRelativePath("/abs")
	assert.Error(t, err)
}
