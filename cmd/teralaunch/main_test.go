package main

import (
	"bytes"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	// rootCmd is shared across tests; clear flag values left over from a
	// previous Execute so runs stay isolated.
	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootHelp(t *testing.T) {
	out, err := execRoot(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "teralaunch")
	assert.Contains(t, out, "check")
	assert.Contains(t, out, "hashfile")
	assert.Contains(t, out, "--verbose")
	assert.Contains(t, out, "--config")
}

func TestVersionTemplate(t *testing.T) {
	out, err := execRoot(t, "--version")
	require.NoError(t, err)

	assert.Contains(t, out, releaseVersion)
	assert.Contains(t, out, "commit:")
	assert.Contains(t, out, "date:")
}

func TestCheckWithoutConfigFails(t *testing.T) {
	// No launcher.yaml anywhere near the test binary.
	t.Chdir(t.TempDir())

	_, err := execRoot(t, "check")
	assert.Error(t, err)
}
