package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/prompthub/internal/workspaces"
	"github.com/JaimeStill/prompthub/pkg/pagination"
)

func newWorkspaceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Manage workspaces and their prompt sequences",
	}
	cmd.AddCommand(
		newWorkspaceCreateCmd(a),
		newWorkspaceListCmd(a),
		newWorkspaceShowCmd(a),
		newWorkspaceDeleteCmd(a),
		newWorkspaceAddCmd(a),
		newWorkspaceRemoveCmd(a),
		newWorkspaceReorderCmd(a),
		newWorkspaceSequenceCmd(a),
	)
	return cmd
}

func newWorkspaceCreateCmd(a *app) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := a.workspaces()
			if err != nil {
				return err
			}

			command := workspaces.CreateCommand{Name: args[0]}
			if description != "" {
				command.Description = &description
			}

			w, err := sys.Create(cmd.Context(), command)
			if err != nil {
				return err
			}
			return a.printWorkspace(w)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Workspace description")
	return cmd
}

func newWorkspaceListCmd(a *app) *cobra.Command {
	var (
		page, size   int
		search, sort string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workspaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := a.workspaces()
			if err != nil {
				return err
			}

			req := pagination.NewPageRequest(page, size, search, sort, a.cfg.Pagination)
			result, err := sys.List(cmd.Context(), req)
			if err != nil {
				return err
			}

			if a.asJSON {
				return a.printJSON(result)
			}

			rows := make([][]string, 0, len(result.Data))
			for _, w := range result.Data {
				rows = append(rows, []string{
					strconv.FormatInt(w.ID, 10),
					truncate(w.Name, 40),
					strconv.Itoa(len(w.Sequence)),
					w.UpdatedAt.Format("2006-01-02 15:04"),
				})
			}
			a.table([]string{"ID", "NAME", "STEPS", "UPDATED"}, rows)
			a.printf("page %d of %d (%d workspaces)\n", result.Page, result.TotalPages, result.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&size, "size", 0, "Page size (default pagination.default_page_size)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive match on name and description")
	cmd.Flags().StringVar(&sort, "sort", "", "Sort fields, e.g. -UpdatedAt")
	return cmd
}

func newWorkspaceShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <workspace-id>",
		Short: "Show a workspace's associated prompts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sys, err := a.workspaces()
			if err != nil {
				return err
			}

			assocs, err := sys.Associations(cmd.Context(), id)
			if err != nil {
				return err
			}

			if a.asJSON {
				return a.printJSON(assocs)
			}

			rows := make([][]string, 0, len(assocs))
			for _, as := range assocs {
				rows = append(rows, []string{
					strconv.Itoa(as.Position),
					strconv.FormatInt(as.PromptID, 10),
					truncate(as.PromptTitle, 50),
					as.AddedAt.Format("2006-01-02 15:04"),
				})
			}
			a.table([]string{"POS", "PROMPT", "TITLE", "ADDED"}, rows)
			return nil
		},
	}
}

func newWorkspaceDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <workspace-id>",
		Short: "Delete a workspace and its associations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sys, err := a.workspaces()
			if err != nil {
				return err
			}

			if err := sys.Delete(cmd.Context(), id); err != nil {
				return err
			}
			if !a.asJSON {
				a.printf("deleted workspace %d\n", id)
			}
			return nil
		},
	}
}

func newWorkspaceAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <workspace-id> <prompt-id>",
		Short: "Associate a prompt and append it to the sequence",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			sys, err := a.workspaces()
			if err != nil {
				return err
			}

			w, err := sys.AddPrompt(cmd.Context(), ids[0], ids[1])
			if err != nil {
				return err
			}
			return a.printWorkspace(w)
		},
	}
}

func newWorkspaceRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <workspace-id> <prompt-id>",
		Short: "Drop a prompt from the workspace and its sequence",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			sys, err := a.workspaces()
			if err != nil {
				return err
			}

			w, err := sys.RemovePrompt(cmd.Context(), ids[0], ids[1])
			if err != nil {
				return err
			}
			return a.printWorkspace(w)
		},
	}
}

func newWorkspaceReorderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <workspace-id> <prompt-id>...",
		Short: "Replace the sequence with the given prompt order",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			sys, err := a.workspaces()
			if err != nil {
				return err
			}

			w, err := sys.Reorder(cmd.Context(), ids[0], ids[1:])
			if err != nil {
				return err
			}
			return a.printWorkspace(w)
		},
	}
}

func newWorkspaceSequenceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sequence <workspace-id>",
		Short: "Print the executable prompt sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sys, err := a.workspaces()
			if err != nil {
				return err
			}

			def, err := sys.Definition(cmd.Context(), id)
			if err != nil {
				return err
			}

			if a.asJSON {
				return a.printJSON(def)
			}

			rows := make([][]string, 0, len(def.Prompts))
			for i, ref := range def.Prompts {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					strconv.FormatInt(ref.ID, 10),
					truncate(ref.Title, 50),
				})
			}
			a.table([]string{"STEP", "PROMPT", "TITLE"}, rows)
			return nil
		},
	}
}

func (a *app) printWorkspace(w *workspaces.Workspace) error {
	if a.asJSON {
		return a.printJSON(w)
	}

	seq := make([]string, 0, len(w.Sequence))
	for _, id := range w.Sequence {
		seq = append(seq, strconv.FormatInt(id, 10))
	}
	a.printf("workspace %d %q sequence %v\n", w.ID, w.Name, seq)
	return nil
}
