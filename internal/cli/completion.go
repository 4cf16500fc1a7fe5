package cli

import (
	"github.com/spf13/cobra"
)

func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for untwist.

To load completions:

Bash:
  $ source <(untwist completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ untwist completion bash > /etc/bash_completion.d/untwist
  # macOS:
  $ untwist completion bash > $(brew --prefix)/etc/bash_completion.d/untwist

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ untwist completion zsh > "${fpath[1]}/_untwist"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ untwist completion fish | source

  # To load completions for each session, execute once:
  $ untwist completion fish > ~/.config/fish/completions/untwist.fish

PowerShell:
  PS> untwist completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> untwist completion powershell > untwist.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(stdout)
			}
			return nil
		},
	}
	return cmd
}
