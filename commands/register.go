package commands

import "github.com/network-plane/slash"

// RegisterDefaults registers the built-in commands.
func RegisterDefaults(reg *slash.Registry, prompts PromptGenerator) error {
	for _, cmd := range []slash.Command{
		NewWorkflow(prompts),
		NewFile(),
		NewSymbols(),
		NewHelp(reg),
	} {
		if err := reg.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}
