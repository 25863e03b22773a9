package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Mez0/TempBox/internal/models"
)

func newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account", "acc"},
		Short:   "Manage disposable mail accounts",
	}

	cmd.AddCommand(
		newAccountsListCmd(),
		newAccountsNewCmd(),
		newAccountsArchiveCmd(),
		newAccountsActivateCmd(),
		newAccountsDeleteCmd(),
	)
	return cmd
}

func newAccountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			list, err := a.repo.List(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(list))
			for _, account := range list {
				status := "active"
				if account.IsArchived {
					status = "archived"
				}
				rows = append(rows, []string{
					account.Address,
					status,
					account.CreatedAt.Format("2006-01-02 15:04"),
				})
			}
			return writeTable(cmd.OutOrStdout(), []string{"ADDRESS", "STATUS", "CREATED"}, rows)
		},
	}
}

func newAccountsNewCmd() *cobra.Command {
	var (
		address  string
		password string
	)

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a new disposable account",
		Long:  "Create a new account. With no flags a random address on the first available domain is used.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if address == "" {
				domains, err := a.client.Domains(ctx)
				if err != nil {
					return fmt.Errorf("fetch domains: %w", err)
				}
				if len(domains) == 0 {
					return fmt.Errorf("backend offers no domains")
				}
				address = randomLocalPart() + "@" + domains[0]
			}
			if password == "" {
				password = uuid.NewString()
			}

			account, err := a.accounts.Create(ctx, address, password)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", account.Address)
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "Full address to register (default: random)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (default: random)")
	return cmd
}

func newAccountsArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <address>",
		Short: "Archive an account, keeping it locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			account, err := resolveAccount(cmd, a, args[0])
			if err != nil {
				return err
			}
			if err := a.accounts.Archive(cmd.Context(), account); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived %s\n", account.Address)
			return nil
		},
	}
}

func newAccountsActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <address>",
		Short: "Activate an archived account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			account, err := resolveAccount(cmd, a, args[0])
			if err != nil {
				return err
			}
			if err := a.accounts.Activate(cmd.Context(), account); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Activated %s\n", account.Address)
			return nil
		},
	}
}

func newAccountsDeleteCmd() *cobra.Command {
	var keepRemote bool

	cmd := &cobra.Command{
		Use:   "delete <address>",
		Short: "Delete an account",
		Long:  "Delete an account from the backend and locally. With --local-only the backend account is left untouched.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			account, err := resolveAccount(cmd, a, args[0])
			if err != nil {
				return err
			}

			if keepRemote {
				err = a.accounts.Remove(cmd.Context(), account)
			} else {
				err = a.accounts.Delete(cmd.Context(), account)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", account.Address)
			return nil
		},
	}

	cmd.Flags().BoolVar(&keepRemote, "local-only", false, "Remove the local record only")
	return cmd
}

func newDomainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List domains available for new addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			domains, err := a.client.Domains(cmd.Context())
			if err != nil {
				return err
			}
			for _, domain := range domains {
				fmt.Fprintln(cmd.OutOrStdout(), domain)
			}
			return nil
		},
	}
}

// resolveAccount finds a stored account by address or id.
func resolveAccount(cmd *cobra.Command, a *app, key string) (models.Account, error) {
	list, err := a.repo.List(cmd.Context())
	if err != nil {
		return models.Account{}, err
	}
	for _, account := range list {
		if account.Address == key || account.ID == key {
			return account, nil
		}
	}
	return models.Account{}, fmt.Errorf("no account matching %q", key)
}

// randomLocalPart returns a short random mailbox name.
func randomLocalPart() string {
	return strings.ReplaceAll(uuid.NewString()[:13], "-", "")
}
