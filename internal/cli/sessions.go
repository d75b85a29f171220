package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/maquette/internal/presentation/timeline"
	"github.com/aretw0/maquette/pkg/session"
)

// SessionOptions configures the sessions subcommands.
type SessionOptions struct {
	ConfigPath string
	ID         string
	JSON       bool
	Timeline   bool
	Debug      bool
}

// browseManager opens the archive without building a full agent: browsing
// needs no planner, channel or credentials, just the store.
func browseManager(cfg Config, debug bool) (*session.Manager, error) {
	store, locker, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}
	opts := []session.Option{session.WithLogger(createLogger(debug))}
	if locker != nil {
		opts = append(opts, session.WithLocker(locker))
	}
	return session.NewManager(store, opts...), nil
}

// ListSessions prints the identifiers of all archived sessions.
func ListSessions(opts SessionOptions) error {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	manager, err := browseManager(cfg, opts.Debug)
	if err != nil {
		return err
	}

	ids, err := manager.List(context.Background())
	if err != nil {
		return err
	}

	if opts.JSON {
		return json.NewEncoder(os.Stdout).Encode(ids)
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

// ShowSession prints one session's history, as JSON, a Mermaid timeline, or
// a plain turn listing.
func ShowSession(opts SessionOptions) error {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	manager, err := browseManager(cfg, opts.Debug)
	if err != nil {
		return err
	}

	sess, err := manager.Load(context.Background(), opts.ID)
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sess)
	}

	if opts.Timeline {
		fmt.Println(timeline.GenerateMermaid(sess))
		return nil
	}

	fmt.Printf("%s  %s  %q\n", sess.ID, sess.Status, sess.Instruction)
	for _, turn := range sess.Turns {
		fmt.Printf("  #%d %-20s %s\n", turn.Seq, turn.Kind, turn.Script.Category)
	}
	if sess.FinalAnswer != "" {
		fmt.Printf("  answer: %s\n", sess.FinalAnswer)
	}
	return nil
}

// RemoveSession deletes one session from the archive.
func RemoveSession(opts SessionOptions) error {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	manager, err := browseManager(cfg, opts.Debug)
	if err != nil {
		return err
	}

	if err := manager.Delete(context.Background(), opts.ID); err != nil {
		return err
	}
	fmt.Printf(">>> Session %q removed.\n", opts.ID)
	return nil
}
