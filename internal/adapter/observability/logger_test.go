package observability_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/observability"
	"github.com/fairyhunter13/cv-match-advisor/internal/config"
)

func TestSetupLoggerInstallsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := observability.SetupLogger(config.Config{AppEnv: "dev", OTELServiceName: "cv-match-advisor"}, "server")
	require.NotNil(t, logger)
	require.Same(t, logger, slog.Default())
	require.True(t, logger.Enabled(t.Context(), slog.LevelDebug))

	logger = observability.SetupLogger(config.Config{AppEnv: "prod"}, "worker")
	require.False(t, logger.Enabled(t.Context(), slog.LevelDebug))
	require.True(t, logger.Enabled(t.Context(), slog.LevelInfo))
}
