package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/framesync/internal/logging"
	"github.com/aretw0/framesync/pkg/miniapp"
	"github.com/aretw0/framesync/pkg/persistence/middleware"
	"github.com/aretw0/framesync/pkg/ports"
	"golang.org/x/term"
)

// CreateLogger configures the application logger.
// In debug mode, it writes to Stderr (to separate from Stdout REPL output).
func CreateLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// LoadApp loads the mini-app manifest at path, or the demo app when path is empty.
func LoadApp(path string) (*miniapp.App, error) {
	if path == "" {
		return miniapp.Demo(), nil
	}
	app, err := miniapp.Load(path)
	if err != nil {
		return nil, fmt.Errorf("error loading mini-app: %w", err)
	}
	return app, nil
}

// SealStore wraps store with at-rest encryption when key is set.
// key and fallbacks are base64 AES-256 keys.
func SealStore(store ports.StateStore, key string, fallbacks []string) (ports.StateStore, error) {
	if key == "" {
		return store, nil
	}
	cfg := middleware.EncryptionConfig{}
	var err error
	if cfg.ActiveKey, err = middleware.ParseKey(key); err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	for i, fb := range fallbacks {
		k, err := middleware.ParseKey(fb)
		if err != nil {
			return nil, fmt.Errorf("fallback key %d: %w", i, err)
		}
		cfg.FallbackKeys = append(cfg.FallbackKeys, k)
	}
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	if err != nil {
		return nil, err
	}
	return mw(store), nil
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, io.EOF)
}

func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil // Exit 0 for interruptions
	}
	return err
}
