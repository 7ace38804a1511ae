package cmd

import (
	"testing"

	"gamecredits/config"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSteps(t *testing.T) {
	t.Parallel()

	steps, err := parseSteps(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, steps)

	steps, err = parseSteps([]string{"3"})
	require.NoError(t, err)
	assert.Equal(t, 3, steps)

	for _, bad := range []string{"0", "-2", "all"} {
		_, err := parseSteps([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestConfigureLogging(t *testing.T) {
	t.Cleanup(func() {
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.TextFormatter{})
	})

	cfg := config.NewTestConfig()
	cfg.LogLevel = "warn"
	cfg.LogFormat = "json"
	require.NoError(t, configureLogging(cfg))
	assert.Equal(t, log.WarnLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	cfg.LogLevel = "chatty"
	assert.Error(t, configureLogging(cfg))

	cfg.LogLevel = "info"
	cfg.LogFormat = "xml"
	assert.Error(t, configureLogging(cfg))
}

func TestRootCommand_Tree(t *testing.T) {
	t.Parallel()

	root := NewRootCommand()
	for _, path := range [][]string{
		{"serve"},
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "status"},
		{"stipends", "grant"},
		{"loans", "sweep"},
		{"ledger", "reconcile"},
	} {
		found, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], found.Name())
	}
}
