package commands

import (
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/network-plane/slash"
)

var (
	runJSON    bool
	runVerbose bool
)

var runCmd = &cobra.Command{
	Use:   "run </command> [args...]",
	Short: "Run a single command and print its output",
	Long: `Run a single command and print its output.

Examples:
  slash run /workflow
  slash run /file 'internal/**/*.go'
  slash run /help --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOnce,
}

func init() {
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the output as JSON")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Show output sections")
}

func runOnce(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	name := strings.TrimPrefix(args[0], slash.Prefix)
	inv := a.invocation()
	inv.Name = name
	inv.Arguments = args[1:]
	out, err := a.engine.Run(ctx, inv)

	renderer := slash.NewRenderer(cmd.OutOrStdout())
	if runJSON {
		if err != nil {
			return err
		}
		return renderer.WriteJSON(out)
	}
	if err != nil {
		renderer.RenderError(err)
		return err
	}
	if runVerbose {
		renderer.SetLevel(slash.OutputVerbose)
	}
	renderer.RenderOutput(out)
	return nil
}
