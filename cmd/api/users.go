package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func newUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect staff accounts",
	}
	cmd.AddCommand(newUsersListCommand())
	return cmd
}

func newUsersListCommand() *cobra.Command {
	var (
		sortKey string
		order   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the team roster",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close(context.Background())

			team, err := rt.store.Identities.List(cmd.Context())
			if err != nil {
				return err
			}
			domain.SortIdentities(team, domain.IdentitySortKey(sortKey), domain.ParseSortDirection(order))

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tCREATED")
			for _, identity := range team {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", identity.ID, identity.Name, identity.Email, identity.Role, identity.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&sortKey, "sort", string(domain.IdentitySortCreatedAt), "sort key: created_at, name, email or role")
	cmd.Flags().StringVar(&order, "order", string(domain.SortDesc), "sort order: asc or desc")
	return cmd
}
