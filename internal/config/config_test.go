package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileMissingPathIsNotAnError(t *testing.T) {
	opt := Defaults()
	require.NoError(t, LoadFile(&opt, filepath.Join(t.TempDir(), "does-not-exist.yaml")))
	assert.Equal(t, Defaults(), opt)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracecore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_image: alpine:3.19\nverbose: true\n"), 0o644))

	opt := Defaults()
	require.NoError(t, LoadFile(&opt, path))

	assert.Equal(t, "alpine:3.19", opt.BaseImage)
	assert.True(t, opt.Verbose)
	assert.Equal(t, "./tracecore-out", opt.OutDir, "fields absent from the file keep their default")
}

func TestFlagsOverrideFileDefaults(t *testing.T) {
	opt := Defaults()
	opt.BaseImage = "alpine:3.19"

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	var configPath string
	BindFlags(fs, &opt, &configPath)

	require.NoError(t, fs.Parse([]string{"--base-image=debian:bookworm-slim", "--verbose"}))

	assert.Equal(t, "debian:bookworm-slim", opt.BaseImage)
	assert.True(t, opt.Verbose)
}
