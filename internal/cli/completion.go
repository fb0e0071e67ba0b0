package cli

import "github.com/spf13/cobra"

// completeScript completes the single script argument of build, edit,
// render and serve with .toml files.
func completeScript(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{"toml"}, cobra.ShellCompDirectiveFilterFileExt
}

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for storyline.

Script arguments of build, edit, render and serve complete to .toml files.

Bash:
  $ source <(storyline completion bash)
  $ storyline completion bash > /etc/bash_completion.d/storyline

Zsh:
  $ storyline completion zsh > "${fpath[1]}/_storyline"
  (compinit must be enabled; start a new shell afterwards)

Fish:
  $ storyline completion fish > ~/.config/fish/completions/storyline.fish

PowerShell:
  PS> storyline completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
