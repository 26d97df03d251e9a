package observability

import (
	"log/slog"
	"os"

	"github.com/fairyhunter13/cv-match-advisor/internal/config"
)

// SetupLogger installs a JSON slog logger tagged with the service, process
// (server or worker), and environment, and returns it. Dev runs log at
// debug, everything else at info.
func SetupLogger(cfg config.Config, process string) *slog.Logger {
	level := slog.LevelInfo
	if cfg.IsDev() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).With(
		slog.String("service", cfg.OTELServiceName),
		slog.String("process", process),
		slog.String("env", cfg.AppEnv),
	)
	slog.SetDefault(logger)
	return logger
}
