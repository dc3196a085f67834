package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/prompthub/internal/prompts"
	"github.com/JaimeStill/prompthub/pkg/pagination"
)

func newPromptsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Browse and create prompts in the relational snapshot",
	}
	cmd.AddCommand(newPromptsListCmd(a), newPromptsCreateCmd(a))
	return cmd
}

func newPromptsListCmd(a *app) *cobra.Command {
	var (
		page, size   int
		search, sort string
		category     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List prompts one page at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := a.prompts()
			if err != nil {
				return err
			}

			var filters prompts.Filters
			if category != "" {
				filters.Category = &category
			}

			req := pagination.NewPageRequest(page, size, search, sort, a.cfg.Pagination)
			result, err := sys.List(cmd.Context(), req, filters)
			if err != nil {
				return err
			}

			if a.asJSON {
				return a.printJSON(result)
			}

			rows := make([][]string, 0, len(result.Data))
			for _, p := range result.Data {
				commit := "-"
				if p.CurrentCommit != nil && len(*p.CurrentCommit) >= 7 {
					commit = (*p.CurrentCommit)[:7]
				}
				rows = append(rows, []string{
					strconv.FormatInt(p.ID, 10),
					truncate(p.Title, 40),
					p.Category,
					commit,
					p.UpdatedAt.Format("2006-01-02 15:04"),
				})
			}
			a.table([]string{"ID", "TITLE", "CATEGORY", "COMMIT", "UPDATED"}, rows)
			a.printf("page %d of %d (%d prompts)\n", result.Page, result.TotalPages, result.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&size, "size", 0, "Page size (default pagination.default_page_size)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive match on title and content")
	cmd.Flags().StringVar(&sort, "sort", "", "Sort fields, e.g. -UpdatedAt,Title")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Only prompts in this category")
	return cmd
}

func newPromptsCreateCmd(a *app) *cobra.Command {
	var (
		title, category string
		file            string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a prompt and commit its first revision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			sys, err := a.prompts()
			if err != nil {
				return err
			}

			p, err := sys.Create(cmd.Context(), prompts.CreateCommand{
				Title:    title,
				Content:  content,
				Category: category,
			})
			if err != nil {
				return err
			}

			pub := prompts.NewPublisher(sys, a.infra.Versions, a.infra.Logger)
			message := fmt.Sprintf("Initial commit for prompt #%d: %s", p.ID, p.Title)
			hash, err := pub.Save(cmd.Context(), p.ID, content, message, a.signature())
			if err != nil {
				return fmt.Errorf("prompt %d created without a revision: %w", p.ID, err)
			}

			if a.asJSON {
				p.CurrentCommit = &hash
				return a.printJSON(p)
			}
			a.printf("created prompt %d (%s)\n", p.ID, hash[:7])
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Prompt title")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category (default General)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read content from file")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Commit every relational prompt that has no history yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := a.publisher()
			if err != nil {
				return err
			}

			report, err := pub.Import(cmd.Context(), a.signature())

			if a.asJSON {
				if perr := a.printJSON(report); perr != nil {
					return perr
				}
			} else {
				a.printf("imported %d prompts, skipped %d with existing history\n",
					len(report.Imported), len(report.Skipped))
			}
			return err
		},
	}
}
