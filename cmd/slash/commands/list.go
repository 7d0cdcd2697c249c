package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/network-plane/slash"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		cmds := a.engine.Registry().Commands()
		rows := make([][]string, 0, len(cmds))
		for _, c := range cmds {
			rows = append(rows, []string{
				slash.Prefix + c.Name(),
				string(slash.IconOf(c)),
				strconv.FormatBool(c.RequiresArgument()),
				c.MenuText(),
			})
		}
		slash.NewRenderer(cmd.OutOrStdout()).WriteTable([]string{"Command", "Icon", "Needs arg", "Description"}, rows)
		return nil
	},
}
