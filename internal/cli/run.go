package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/aretw0/maquette"
	"github.com/aretw0/maquette/internal/presentation/tui"
	"github.com/aretw0/maquette/pkg/domain"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	ConfigPath  string
	Instruction string
	Quiet       bool
	Debug       bool
}

// RunInstruction drives one instruction to a terminal session and renders the
// outcome.
func RunInstruction(opts RunOptions) error {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	logger := createLogger(opts.Debug)

	if !opts.Quiet {
		tui.PrintBanner(maquette.Version)
	}

	if cfg.APIKey == "" {
		key, err := promptAPIKey()
		if err != nil {
			return err
		}
		cfg.APIKey = key
	}

	agentOpts := []maquette.Option{}
	if !opts.Quiet {
		agentOpts = append(agentOpts, maquette.WithLifecycleHooks(progressHooks(os.Stdout)))
	}

	agent, closer, err := buildAgent(cfg, logger, agentOpts...)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := agent.Run(ctx, opts.Instruction)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Println(">>> Interrupted.")
			return nil
		}
		return err
	}

	return printOutcome(session, opts.Quiet)
}

// promptAPIKey asks for the key without echoing it. Falls back to a plain
// line read when stdin is not a terminal.
func promptAPIKey() (string, error) {
	fmt.Fprint(os.Stderr, "Gemini API key: ")
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read API key: %w", err)
		}
		key := strings.TrimSpace(string(raw))
		if key == "" {
			return "", fmt.Errorf("an API key is required")
		}
		return key, nil
	}

	var key string
	if _, err := fmt.Fscanln(os.Stdin, &key); err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return strings.TrimSpace(key), nil
}

func printOutcome(session *domain.Session, quiet bool) error {
	if quiet {
		fmt.Println(session.ID)
		if session.Status == domain.SessionFailed {
			return fmt.Errorf("session failed: %s", session.FailureKind)
		}
		return nil
	}

	fmt.Printf(">>> Session %s %s after %d turn(s).\n", session.ID, session.Status, len(session.Turns))

	if session.Status == domain.SessionFailed {
		if last := session.LastTurn(); last != nil && last.Result != nil && last.Result.ErrorTrace != "" {
			fmt.Println(last.Result.ErrorTrace)
		}
		return fmt.Errorf("session failed: %s", session.FailureKind)
	}

	if session.FinalAnswer != "" {
		render := tui.NewRenderer()
		out, err := render(session.FinalAnswer)
		if err != nil {
			fmt.Println(session.FinalAnswer)
			return nil
		}
		fmt.Print(out)
	}
	return nil
}
