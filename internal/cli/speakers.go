package cli

import (
	"github.com/spf13/cobra"
)

// speakersCommand lists the configured speaker registry.
func (c *CLI) speakersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "speakers",
		Short: "List the speakers and their portraits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := c.Config.Registry()
			names := reg.Names()
			if len(names) == 0 {
				printInfo("No speakers configured")
				return nil
			}
			for _, name := range names {
				portrait, _ := reg.Portrait(name)
				printKeyValue(name, portrait)
			}
			if c.Config.StrictSpeakers {
				printDetail("Strict: other speakers are rejected")
			}
			return nil
		},
	}
}
