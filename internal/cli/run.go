package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aretw0/framesync"
	"github.com/aretw0/framesync/internal/presentation/tui"
	"github.com/aretw0/framesync/pkg/adapters/redis"
	"github.com/aretw0/framesync/pkg/domain"
	"github.com/aretw0/framesync/pkg/observability"
	"github.com/aretw0/framesync/pkg/ports"
)

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	URL       string
	Manifest  string
	Debug     bool
	JSON      bool
	SessionID string
	Fresh     bool
	RedisURL  string
	// EncryptionKey seals the stored history (base64 AES-256 key).
	EncryptionKey string
	Style         string // glamour style; "" picks one from the terminal
	ReadyTimeout  time.Duration

	In  io.Reader
	Out io.Writer
}

// Execute opens a page and runs the interactive REPL over it.
func Execute(ctx context.Context, opts RunOptions) error {
	logger := CreateLogger(opts.Debug)
	interactive := !opts.JSON && IsTerminal(opts.Out)

	app, err := LoadApp(opts.Manifest)
	if err != nil {
		return err
	}

	if interactive {
		tui.PrintBanner(opts.Out, framesync.Version)
	}

	style := opts.Style
	if style == "" && interactive {
		style = "auto"
	}
	var renderer ports.Renderer
	if !opts.JSON {
		renderer, err = tui.NewViewRenderer(opts.Out, style)
		if err != nil {
			return err
		}
	}

	pageOpts := []framesync.Option{
		framesync.WithLogger(logger),
		framesync.WithReadyTimeout(opts.ReadyTimeout),
	}
	if renderer != nil {
		pageOpts = append(pageOpts, framesync.WithRenderer(renderer))
	}
	if opts.Debug {
		pageOpts = append(pageOpts, framesync.WithLifecycleHooks(observability.LoggingHooks(logger)))
	}

	redisStore, err := openStore(opts.RedisURL)
	if err != nil {
		return err
	}
	var store ports.StateStore
	if redisStore != nil {
		defer redisStore.Close()
		if store, err = SealStore(redisStore, opts.EncryptionKey, nil); err != nil {
			return err
		}
	}

	if opts.SessionID != "" {
		pageOpts = append(pageOpts, framesync.WithSessionID(opts.SessionID))
		if store != nil {
			restored, err := restoreSession(ctx, store, opts.SessionID, opts.Fresh)
			if err != nil {
				return err
			}
			if restored != nil {
				pageOpts = append(pageOpts, framesync.WithSessionState(restored))
				if !opts.JSON {
					printSystemMessage(opts.Out, "Resuming session '%s' at %s", opts.SessionID, restored.Hash())
				}
			}
		}
	}

	page := framesync.New(app, pageOpts...)
	if err := page.Open(ctx, opts.URL); err != nil {
		return fmt.Errorf("error opening page: %w", err)
	}
	defer page.Close()

	repl := &REPL{
		Page:     page,
		Renderer: renderer,
		Out:      opts.Out,
		JSON:     opts.JSON,
	}
	if store != nil && opts.SessionID != "" {
		repl.AfterCommand = func(ctx context.Context, snap domain.Snapshot) error {
			return store.Save(ctx, opts.SessionID, snap.SessionState())
		}
		if err := repl.AfterCommand(ctx, page.Snapshot()); err != nil {
			return err
		}
	}

	if opts.JSON {
		repl.status(page.Snapshot())
	} else if page.Snapshot().View == nil {
		printSystemMessage(opts.Out, "Mini-app did not render. Type 'help' for commands.")
	} else {
		printSystemMessage(opts.Out, "Type 'help' for commands.")
	}

	return handleExecutionError(repl.Run(ctx, opts.In))
}

func openStore(url string) (*redis.Store, error) {
	if url == "" {
		return nil, nil
	}
	store, err := redis.New(url)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func restoreSession(ctx context.Context, store ports.StateStore, sessionID string, fresh bool) (*domain.SessionState, error) {
	if fresh {
		if err := store.Delete(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("failed to reset session: %w", err)
		}
		return nil, nil
	}
	state, err := store.Load(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return state, nil
}
