package main

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

func newModelsCmd(a *app) *cobra.Command {
	var route string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models each configured provider offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			models := a.infra.Router.Models(cmd.Context())
			if route != "" {
				models = map[string][]string{route: models[route]}
			}

			if a.asJSON {
				return a.printJSON(models)
			}

			rows := [][]string{}
			for _, r := range a.infra.Router.Routes() {
				list, ok := models[r.Name]
				if !ok {
					continue
				}
				sorted := slices.Sorted(slices.Values(list))
				if len(sorted) == 0 {
					rows = append(rows, []string{r.Name, "-"})
					continue
				}
				rows = append(rows, []string{r.Name, strings.Join(sorted, "\n")})
			}
			a.table([]string{"PROVIDER", "MODELS"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&route, "provider", "p", "", "Only list this provider")
	return cmd
}
