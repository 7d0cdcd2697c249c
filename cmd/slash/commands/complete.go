package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/network-plane/slash"
)

var completeJSON bool

var completeCmd = &cobra.Command{
	Use:   "complete <partial line>",
	Short: "Print completions for a partially typed invocation",
	Long: `Print completions for a partially typed invocation. A trailing space
starts a new argument.

Examples:
  slash complete /wo
  slash complete '/file src/'
  slash complete '/review '`,
	Args: cobra.MinimumNArgs(1),
	RunE: runComplete,
}

func init() {
	completeCmd.Flags().BoolVar(&completeJSON, "json", false, "Print completions as JSON")
}

func runComplete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	line := strings.Join(args, " ")
	if !strings.HasPrefix(line, slash.Prefix) {
		line = slash.Prefix + line
	}
	name, partial := slash.SplitPartial(line)

	var results []slash.ArgumentCompletion
	if len(partial) == 0 {
		results = a.engine.Completer().CompleteCommand(name)
	} else {
		task := a.engine.Complete(cmd.Context(), name, slash.CompletionRequest{
			Arguments: partial,
			Workspace: slash.HandleOf(a.workspace),
		})
		results, err = task.Await(cmd.Context())
		if err != nil {
			return err
		}
	}

	renderer := slash.NewRenderer(cmd.OutOrStdout())
	if completeJSON {
		return renderer.WriteJSON(results)
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{r.NewText, r.Label, strconv.FormatBool(r.RunCommand)})
	}
	renderer.WriteTable([]string{"Text", "Label", "Runs"}, rows)
	return nil
}
