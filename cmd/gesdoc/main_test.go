package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"gesdoc", "frobnicate"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "unknown command")
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"gesdoc", "help"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "sweep")
}

func TestOpenDBSchemeSelection(t *testing.T) {
	cases := []struct {
		dsn string
	}{
		{"postgres://gesdoc@localhost:5432/gesdoc?sslmode=disable"},
		{"postgresql://gesdoc@localhost:5432/gesdoc"},
		{"sqlite:///tmp/gesdoc.db"},
		{"/tmp/gesdoc.db"},
	}
	for _, tc := range cases {
		db, err := openDB(tc.dsn)
		require.NoError(t, err, tc.dsn)
		require.NotNil(t, db)
		_ = db.Close()
	}
}

func TestNewLoggerLevels(t *testing.T) {
	for _, level := range []string{"DEBUG", "INFO", "WARN", "ERROR", "", "bogus"} {
		logger := newLogger(level)
		require.NotNil(t, logger, level)
	}
	// Case-insensitive.
	require.NotNil(t, newLogger(strings.ToLower("WARN")))
}
