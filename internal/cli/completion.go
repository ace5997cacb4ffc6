package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/cem/pkg/optimization"
	"github.com/matzehuels/cem/pkg/pipeline"
	"github.com/matzehuels/cem/pkg/render/nodelink"
)

// Extensions offered when completing file arguments.
var (
	docExts      = []string{"json", "toml"}
	artifactExts = []string{pipeline.FormatSVG, pipeline.FormatPNG, pipeline.FormatDOT}
)

// completionCommand creates the shell completion command.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for cem.

Besides commands and flags, the scripts complete algorithm names, render
formats and views, and offer only .json and .toml files for input documents.

To load completions:

Bash:
  $ source <(cem completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ cem completion bash > /etc/bash_completion.d/cem
  # macOS:
  $ cem completion bash > $(brew --prefix)/etc/bash_completion.d/cem

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ cem completion zsh > "${fpath[1]}/_cem"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ cem completion fish | source

  # To load completions for each session, execute once:
  $ cem completion fish > ~/.config/fish/completions/cem.fish

PowerShell:
  PS> cem completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> cem completion powershell > cem.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}

	return cmd
}

// registerCompletions attaches argument and flag value completions to the
// subcommands of root.
func registerCompletions(root *cobra.Command) {
	docs := cobra.FixedCompletions(docExts, cobra.ShellCompDirectiveFilterFileExt)
	_ = root.RegisterFlagCompletionFunc("config",
		cobra.FixedCompletions([]string{"toml"}, cobra.ShellCompDirectiveFilterFileExt))

	for _, cmd := range root.Commands() {
		switch cmd.Name() {
		case "trails", "solve", "optimize", "render":
			cmd.ValidArgsFunction = firstArg(docs)
		}
		if cmd.Flags().Lookup("output") != nil {
			exts := docExts
			if cmd.Name() == "render" {
				exts = artifactExts
			}
			_ = cmd.RegisterFlagCompletionFunc("output",
				cobra.FixedCompletions(exts, cobra.ShellCompDirectiveFilterFileExt))
		}

		switch cmd.Name() {
		case "optimize":
			_ = cmd.RegisterFlagCompletionFunc("algorithm", fixedValues(algorithmNames()...))
		case "render":
			_ = cmd.RegisterFlagCompletionFunc("input", fixedValues(inputForm, inputTopology, inputResult))
			_ = cmd.RegisterFlagCompletionFunc("format", fixedValues(artifactExts...))
			_ = cmd.RegisterFlagCompletionFunc("view",
				fixedValues(string(nodelink.ViewXY), string(nodelink.ViewXZ), string(nodelink.ViewYZ)))
		}
	}
}

func fixedValues(values ...string) cobra.CompletionFunc {
	return cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp)
}

// firstArg completes the first positional argument with fn and nothing
// after it.
func firstArg(fn cobra.CompletionFunc) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return fn(cmd, args, toComplete)
	}
}

func algorithmNames() []string {
	var names []string
	for _, a := range optimization.Algorithms() {
		names = append(names, a.String())
	}
	return names
}
