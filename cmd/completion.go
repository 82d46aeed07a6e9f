package cmd

import (
	"github.com/spf13/cobra"
)

// completionCmd represents the completion command.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for bikeguard.

To load completions:

Bash:
  $ source <(bikeguard completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ bikeguard completion bash > /etc/bash_completion.d/bikeguard
  # macOS:
  $ bikeguard completion bash > $(brew --prefix)/etc/bash_completion.d/bikeguard

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ bikeguard completion zsh > "${fpath[1]}/_bikeguard"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ bikeguard completion fish | source

  # To load completions for each session, execute once:
  $ bikeguard completion fish > ~/.config/fish/completions/bikeguard.fish

PowerShell:
  PS> bikeguard completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletionV2(out, true)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
