package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/JaimeStill/prompthub/internal/versions"
)

const defaultSaveMessage = "Update prompt"

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <prompt-id>",
		Short: "List a prompt's revisions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := a.versions()
			if err != nil {
				return err
			}

			revisions, err := store.History(cmd.Context(), id, limit)
			if err != nil {
				return err
			}

			if a.asJSON {
				return a.printJSON(revisions)
			}
			if len(revisions) == 0 {
				a.printf("prompt %d has no revisions\n", id)
				return nil
			}

			rows := make([][]string, 0, len(revisions))
			for _, r := range revisions {
				rows = append(rows, []string{
					r.ShortHash,
					r.Date.Format("2006-01-02 15:04:05"),
					r.Author,
					truncate(r.Message, 60),
				})
			}
			a.table([]string{"COMMIT", "DATE", "AUTHOR", "MESSAGE"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum revisions to list (default history_limit)")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var revision string

	cmd := &cobra.Command{
		Use:   "show <prompt-id>",
		Short: "Print a prompt's content at a revision or from the working copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := a.versions()
			if err != nil {
				return err
			}

			content, err := store.Read(cmd.Context(), id, revision)
			if err != nil {
				return err
			}

			if a.asJSON {
				return a.printJSON(map[string]any{
					"prompt_id": id,
					"revision":  revision,
					"content":   content,
				})
			}
			a.printf("%s", content)
			return nil
		},
	}

	cmd.Flags().StringVarP(&revision, "rev", "r", "", "Revision hash or prefix (default working copy)")
	return cmd
}

func newDiffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <prompt-id> <from> [to]",
		Short: "Show a unified diff between two revisions",
		Long: `Show a unified diff of a prompt between two revisions. When "to" is
omitted the working copy is compared.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := a.versions()
			if err != nil {
				return err
			}

			var to string
			if len(args) == 3 {
				to = args[2]
			}

			diff, err := store.Diff(cmd.Context(), id, args[1], to)
			if err != nil {
				return err
			}

			if a.asJSON {
				return a.printJSON(map[string]any{
					"prompt_id": id,
					"from":      args[1],
					"to":        to,
					"diff":      diff,
				})
			}
			a.println(a.renderDiff(diff))
			return nil
		},
	}
}

func (a *app) renderDiff(diff string) string {
	st := a.styles()
	if diff == versions.NoDifferences {
		return st.muted.Render(diff)
	}

	lines := strings.Split(strings.TrimSuffix(diff, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = st.header.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = st.warn.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = st.ok.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = st.fail.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func newSaveCmd(a *app) *cobra.Command {
	var (
		file      string
		message   string
		storeOnly bool
	)

	cmd := &cobra.Command{
		Use:   "save <prompt-id>",
		Short: "Commit new content for a prompt",
		Long: `Commit new content for a prompt and mirror it into the relational
snapshot. Content is read from --file, or from stdin when it is piped.
With --store-only the database is not touched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			content, err := readContent(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			var hash string
			if storeOnly {
				store, err := a.versions()
				if err != nil {
					return err
				}
				hash, err = store.Save(cmd.Context(), id, content, message, a.signature())
				if err != nil {
					return err
				}
			} else {
				pub, err := a.publisher()
				if err != nil {
					return err
				}
				hash, err = pub.Save(cmd.Context(), id, content, message, a.signature())
				if err != nil {
					return err
				}
			}

			return a.printCommit(id, hash)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read content from file")
	cmd.Flags().StringVarP(&message, "message", "m", defaultSaveMessage, "Commit message")
	cmd.Flags().BoolVar(&storeOnly, "store-only", false, "Commit to the version store without syncing the database")
	return cmd
}

func newRollbackCmd(a *app) *cobra.Command {
	var (
		message   string
		storeOnly bool
	)

	cmd := &cobra.Command{
		Use:   "rollback <prompt-id> <revision>",
		Short: "Restore a prompt to an earlier revision as a new commit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var hash string
			if storeOnly {
				store, err := a.versions()
				if err != nil {
					return err
				}
				hash, err = store.Rollback(cmd.Context(), id, args[1], message, a.signature())
				if err != nil {
					return err
				}
			} else {
				pub, err := a.publisher()
				if err != nil {
					return err
				}
				hash, err = pub.Rollback(cmd.Context(), id, args[1], message, a.signature())
				if err != nil {
					return err
				}
			}

			return a.printCommit(id, hash)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message (default \"Rollback to <revision>\")")
	cmd.Flags().BoolVar(&storeOnly, "store-only", false, "Roll back the version store without syncing the database")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "delete <prompt-id>",
		Short: "Remove a prompt's working copy, keeping its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := a.versions()
			if err != nil {
				return err
			}

			hash, err := store.Delete(cmd.Context(), id, message, a.signature())
			if err != nil {
				return err
			}
			if hash == "" && !a.asJSON {
				a.printf("prompt %d has no working copy\n", id)
				return nil
			}
			return a.printCommit(id, hash)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message (default \"Delete prompt <id>\")")
	return cmd
}

func (a *app) printCommit(id int64, hash string) error {
	if a.asJSON {
		return a.printJSON(map[string]any{
			"prompt_id":   id,
			"commit_hash": hash,
		})
	}
	a.println(hash)
	return nil
}

func readContent(stdin io.Reader, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(data), nil
	}

	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", errors.New("content required: pass --file or pipe it on stdin")
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
