package commands

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/network-plane/slash"
	slashcmds "github.com/network-plane/slash/commands"
	"github.com/network-plane/slash/internal/event"
	"github.com/network-plane/slash/internal/logging"
)

var (
	replVerbose bool
	replEvents  bool
	replWatch   bool
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive session",
	Long: `Start an interactive session. Plain lines are added to the conversation
buffer; lines starting with "/" run commands whose output is spliced in.

Meta commands:
  tasks           list executions
  cancel <id>     cancel an execution
  buffer          show the buffer and its sections
  exit, quit, q   leave`,
	RunE: runREPL,
}

func init() {
	replCmd.Flags().BoolVarP(&replVerbose, "verbose", "v", false, "Show output sections")
	replCmd.Flags().BoolVar(&replEvents, "events", false, "Log lifecycle events")
	replCmd.Flags().BoolVar(&replWatch, "watch", false, "Reload template commands when they change")
}

func runREPL(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if replEvents {
		if err := logEvents(ctx, a.bus); err != nil {
			return err
		}
	}
	if replWatch || a.cfg.Watch {
		startWatcher(ctx, a.loader)
	}

	if err := os.MkdirAll(filepath.Dir(a.cfg.HistoryFile), 0o755); err != nil {
		logging.Warn().Err(err).Msg("history disabled")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     a.cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	renderer := slash.NewRenderer(rl.Stdout())
	if replVerbose {
		renderer.SetLevel(slash.OutputVerbose)
	}
	repl := slash.NewREPL(a.engine,
		slash.WithRenderer(renderer),
		slash.WithWorkspace(a.workspace),
	)
	return repl.Run(ctx, rl)
}

func logEvents(ctx context.Context, bus *event.Bus) error {
	events, err := bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	log := logging.Component("events")
	go func() {
		for ev := range events {
			log.Info().
				Str("type", string(ev.Type)).
				Str("command", ev.Command).
				Str("invocation", ev.Invocation).
				Str("site", ev.Site).
				Int64("duration_ms", ev.DurationMS).
				Str("error", ev.Error).
				Msg("lifecycle")
		}
	}()
	return nil
}

func startWatcher(ctx context.Context, loader *slashcmds.Loader) {
	if info, err := os.Stat(loader.Dir()); err != nil || !info.IsDir() {
		logging.Debug().Str("dir", loader.Dir()).Msg("no commands directory to watch")
		return
	}
	w, err := slashcmds.NewWatcher(loader, 0)
	if err != nil {
		logging.Warn().Err(err).Msg("cannot watch commands directory")
		return
	}
	go func() {
		if err := w.Run(ctx); err != nil {
			logging.Warn().Err(err).Msg("watcher stopped")
		}
	}()
}
