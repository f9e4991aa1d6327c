package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	"weatherstation-server/internal/config"
)

const devVersion = "dev"

// New builds the process logger. Dev builds write tint lines, colored only
// on a terminal; release builds write JSON. Both carry the same service
// attributes.
func New(cfg config.Config, version string, appName string) *slog.Logger {
	return newWithWriter(os.Stdout, cfg, version, appName)
}

func newWithWriter(w io.Writer, cfg config.Config, version string, appName string) *slog.Logger {
	h := newHandler(w, cfg, version).WithAttrs([]slog.Attr{
		slog.String("app", appName),
		slog.String("version", version),
		slog.String("env", cfg.AppEnv),
	})
	return slog.New(h)
}

func newHandler(w io.Writer, cfg config.Config, version string) slog.Handler {
	if version == devVersion {
		return tint.NewHandler(w, &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  true,
			TimeFormat: time.Kitchen,
			NoColor:    !isTerminal(w),
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
