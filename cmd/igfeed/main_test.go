package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igfeed/pkg/config"
	errs "igfeed/pkg/errors"
	"igfeed/pkg/instagram"
)

// executeCommand runs the root command with args and returns its stdout.
// Flag variables are reset first because cobra keeps them between runs.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configFile, logLevel, outputFormat = "", "", formatJSON
	username, sessionBackend, loginPassword = "", "", ""
	noRetry, quiet = false, false
	downloadMedia, downloadDir = false, ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--quiet"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestShortcodeCommands(t *testing.T) {
	out, err := executeCommand(t, "shortcode", "encode", "1466366616425783113_25025320")
	require.NoError(t, err)
	assert.Equal(t, "BRZlKsijN9J\n", out)

	out, err = executeCommand(t, "shortcode", "decode", "BRZlKsijN9J")
	require.NoError(t, err)
	assert.Equal(t, "1466366616425783113\n", out)
}

func TestShortcodeDecodeRejectsInvalidCode(t *testing.T) {
	_, err := executeCommand(t, "shortcode", "decode", "not*valid")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidArgument(err))
}

func TestUnknownOutputFormat(t *testing.T) {
	_, err := executeCommand(t, "--output", "xml", "shortcode", "decode", "B")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestOutputEncoders(t *testing.T) {
	media := instagram.Media{ID: "1", ShortCode: "B", Type: instagram.MediaTypeImage}

	encode, err := outputEncoder("json")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, encode(&buf, media))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "B", decoded["short_code"])
	assert.Equal(t, "image", decoded["type"])

	encode, err = outputEncoder("YAML")
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, encode(&buf, media))
	assert.Contains(t, buf.String(), "short_code: B\n")
	assert.Contains(t, buf.String(), "type: image\n")
}

func TestIsMediaID(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"1466366616425783113", true},
		{"1466366616425783113_25025320", true},
		{"BRZlKsijN9J", false},
		{"12_ab", false},
		{"_12", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isMediaID(tt.ref), tt.ref)
	}
}

func TestFeedFetcher(t *testing.T) {
	for _, kind := range []string{feedUser, feedTag, feedLocation} {
		fetch, err := feedFetcher(kind)
		require.NoError(t, err, kind)
		assert.NotNil(t, fetch)
	}

	_, err := feedFetcher("story")
	assert.Error(t, err)
}

func TestMaskSecrets(t *testing.T) {
	cfg := *config.DefaultConfig()
	cfg.Instagram.Password = "hunter2"
	cfg.Session.RedisPassword = "averylongredispassword"

	masked := maskSecrets(cfg)
	assert.Equal(t, "***", masked.Instagram.Password)
	assert.Equal(t, "av...rd", masked.Session.RedisPassword)
	assert.Equal(t, "", masked.Session.Passphrase)
	assert.Equal(t, "hunter2", cfg.Instagram.Password, "original is untouched")
}

func TestConfigInitWritesLoadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "igfeed.yaml")

	_, err := executeCommand(t, "config", "init", "--config", path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# igfeed configuration"))

	cfg := config.DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))
	assert.Equal(t, config.DefaultConfig().Feed, cfg.Feed)

	_, err = executeCommand(t, "config", "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
