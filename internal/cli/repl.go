package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/framesync"
	"github.com/aretw0/framesync/internal/presentation/graph"
	"github.com/aretw0/framesync/pkg/domain"
	"github.com/aretw0/framesync/pkg/ports"
)

// ErrQuit is returned by Exec for the quit command.
var ErrQuit = errors.New("quit")

const helpText = `Commands:
  click <label>   follow a link on the current view
  back            browser back button
  forward         browser forward button
  hash <#!/path>  edit the address bar
  go <path>       navigate inside the mini-app
  show            print the current view
  history         list history entries
  graph           print the route graph (Mermaid)
  help            this text
  quit            leave
`

// REPL drives a page from line-oriented commands.
type REPL struct {
	Page     *framesync.Page
	Renderer ports.Renderer
	Out      io.Writer
	// JSON prints a snapshot after every command instead of text feedback.
	JSON bool
	// AfterCommand runs after each successful command, e.g. to persist state.
	AfterCommand func(ctx context.Context, snap domain.Snapshot) error
}

// Run reads commands from in until quit, EOF or ctx is done.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}
		readErr <- err
	}()

	for {
		if !r.JSON {
			fmt.Fprint(r.Out, "> ")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case line := <-lines:
			line, err := SanitizeLine(line)
			if err == nil {
				err = r.Exec(ctx, line)
			}
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.report(err)
			}
		}
	}
}

func (r *REPL) report(err error) {
	if r.JSON {
		json.NewEncoder(r.Out).Encode(map[string]string{"error": err.Error()})
		return
	}
	printSystemMessage(r.Out, "Error: %v", err)
}

// Exec runs a single command line.
func (r *REPL) Exec(ctx context.Context, line string) error {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
		return nil
	case "q", "quit", "exit":
		return ErrQuit
	case "help", "?":
		fmt.Fprint(r.Out, helpText)
		return nil
	case "click":
		if arg == "" {
			return errors.New("usage: click <label>")
		}
		if err := r.Page.Click(ctx, arg); err != nil {
			return err
		}
	case "back", "forward":
		traverse := r.Page.Back
		if cmd == "forward" {
			traverse = r.Page.Forward
		}
		moved, err := traverse(ctx)
		if err != nil {
			return err
		}
		if !moved && !r.JSON {
			printSystemMessage(r.Out, "No %s entry.", cmd)
		}
	case "hash":
		if arg == "" {
			return errors.New("usage: hash <#!/path>")
		}
		changed, err := r.Page.SetHash(ctx, arg)
		if err != nil {
			return err
		}
		if !changed && !r.JSON {
			printSystemMessage(r.Out, "Hash unchanged.")
		}
	case "go":
		if arg == "" {
			return errors.New("usage: go <path>")
		}
		if err := r.Page.NavigateGuest(ctx, domain.ParseRoute(arg)); err != nil {
			return err
		}
	case "show":
		return r.show(ctx)
	case "history":
		r.history()
		return nil
	case "graph":
		snap := r.Page.Snapshot()
		fmt.Fprint(r.Out, graph.GenerateMermaid(r.Page.App().Views(), graph.OverlayFromSnapshot(snap)))
		return nil
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}

	snap := r.Page.Snapshot()
	if r.AfterCommand != nil {
		if err := r.AfterCommand(ctx, snap); err != nil {
			return err
		}
	}
	r.status(snap)
	return nil
}

func (r *REPL) status(snap domain.Snapshot) {
	if r.JSON {
		json.NewEncoder(r.Out).Encode(snap)
		return
	}
	hash := snap.Hash
	if hash == "" {
		hash = "(no hash)"
	}
	printSystemMessage(r.Out, "%s", hash)
}

func (r *REPL) show(ctx context.Context) error {
	snap := r.Page.Snapshot()
	if snap.View == nil {
		printSystemMessage(r.Out, "Mini-app not rendered.")
		return nil
	}
	if r.Renderer != nil {
		if err := r.Renderer.Render(ctx, *snap.View); err != nil {
			return err
		}
	}
	r.status(snap)
	return nil
}

func (r *REPL) history() {
	snap := r.Page.Snapshot()
	for i, hash := range snap.Entries {
		marker := " "
		if i == snap.Index {
			marker = "*"
		}
		if hash == "" {
			hash = "(no hash)"
		}
		fmt.Fprintf(r.Out, "%s %d %s\n", marker, i, hash)
	}
}
