package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/network-plane/slash"
)

// HelpName is the registry name of the help command.
const HelpName = "help"

type usager interface {
	Usage() string
}

// NewHelp returns a command listing everything registered in reg.
func NewHelp(reg *slash.Registry) *slash.TextCommand {
	return slash.NewTextCommand(HelpName, "List available commands",
		func(ctx context.Context, req slash.RunRequest) (string, error) {
			var b strings.Builder
			b.WriteString("Available commands:\n")
			for _, cmd := range reg.Commands() {
				usage := slash.FormatUsage(cmd, nil)
				if u, ok := cmd.(usager); ok {
					usage = u.Usage()
				}
				fmt.Fprintf(&b, "  %-24s %s\n", usage, cmd.MenuText())
			}
			return b.String(), nil
		},
		slash.WithIcon(slash.IconInfo),
		slash.WithLabel("Help"),
		slash.WithoutArguments(),
	)
}
