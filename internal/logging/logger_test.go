package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"stirka/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	logger, closer, err := New(config.LoggingConfig{}, config.AppConfig{Name: "stirka"})
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNew_Level(t *testing.T) {
	logger, _, err := New(config.LoggingConfig{Level: "debug"}, config.AppConfig{})
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	// Неопознанный уровень откатывается на info
	logger, _, err = New(config.LoggingConfig{Level: "loud"}, config.AppConfig{})
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stirka.log")

	logger, closer, err := New(
		config.LoggingConfig{Output: "file", FilePath: path},
		config.AppConfig{Name: "stirka", Environment: "test"},
	)
	require.NoError(t, err)
	require.NotNil(t, closer)

	logger.Info().Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "stirka", entry["app"])
	assert.Equal(t, "test", entry["env"])
}

func TestNew_FileOutputRequiresPath(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Output: "file"}, config.AppConfig{})
	assert.Error(t, err)
}
