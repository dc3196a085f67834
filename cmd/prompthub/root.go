package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "prompthub",
		Short:         "Versioned prompt store and sequential workflow runner",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `Prompt Hub keeps every prompt's content in a git-backed history,
mirrors the current revision into Postgres, and runs workspaces of prompts
as linear workflows where each step feeds the next.

Configuration comes from config.toml (or PROMPTHUB_CONFIG), an optional
config.<env>.toml overlay selected by PROMPTHUB_ENV, and PROMPTHUB_*
environment variables.`,
	}

	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "Write results as JSON")
	root.PersistentFlags().StringVar(&a.author, "author", "", "Author recorded on new revisions (default $PROMPTHUB_AUTHOR or the current user)")

	root.AddCommand(
		newHistoryCmd(a),
		newShowCmd(a),
		newDiffCmd(a),
		newSaveCmd(a),
		newRollbackCmd(a),
		newDeleteCmd(a),
		newImportCmd(a),
		newPromptsCmd(a),
		newWorkspaceCmd(a),
		newRunCmd(a),
		newRunsCmd(a),
		newModelsCmd(a),
		newMigrateCmd(a),
	)

	return root
}

// execute runs the command line against a and returns the exit code.
func execute(ctx context.Context, args []string, a *app) int {
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		root.PrintErrln("Error:", err)
		return exitCode(err)
	}
	return 0
}
