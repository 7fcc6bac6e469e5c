package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Server.Address)
	require.Equal(t, "http://127.0.0.1:8000/api", cfg.Backend.URL)
	require.Equal(t, 5*time.Minute, cfg.Quiz.Duration)
	require.Equal(t, time.Second, cfg.Quiz.TickInterval)
	require.Equal(t, "memory", cfg.Cache.Driver)
	require.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := []byte("backend:\n  url: http://backend.test/api/\nquiz:\n  duration: 90s\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://backend.test/api", cfg.Backend.URL, "trailing slash trimmed")
	require.Equal(t, 90*time.Second, cfg.Quiz.Duration)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_RejectsNonPositiveQuizDuration(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("QUIZ_DURATION", "0s")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("QUIZDESK_TEST_VALUE=from-dotenv\n"), 0o600))
	t.Setenv("APP_ENV", "development")
	t.Setenv("QUIZDESK_TEST_VALUE", "")
	os.Unsetenv("QUIZDESK_TEST_VALUE")

	require.NoError(t, LoadEnvFile(path))
	require.Equal(t, "from-dotenv", os.Getenv("QUIZDESK_TEST_VALUE"))

	require.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env")))
}

func TestServerConfig_Loc(t *testing.T) {
	require.Equal(t, "Asia/Kolkata", ServerConfig{Location: "Asia/Kolkata"}.Loc().String())
	require.Equal(t, "IST", ServerConfig{Location: "Nowhere/Special"}.Loc().String())
	require.Equal(t, "IST", ServerConfig{}.Loc().String())
}
