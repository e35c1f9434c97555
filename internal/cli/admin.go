package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"finbot/internal/core"
	"finbot/internal/format"
	"finbot/internal/media"
	"finbot/internal/storage"
)

// MessageHandler answers one message the way the webhook does.
type MessageHandler interface {
	HandleMessage(ctx context.Context, profileID, text string, ref *media.Ref) string
}

// AdminDeps is what the admin commands operate on.
type AdminDeps struct {
	Store storage.Store
	// Chat builds the assistant lazily so commands that only touch storage
	// work without an interpreter.
	Chat  func() (MessageHandler, error)
	Close func() error
}

// Opener creates AdminDeps once a command has been selected.
type Opener func(ctx context.Context) (*AdminDeps, error)

// NewAdminCommand returns the finbot-admin root command.
func NewAdminCommand(open Opener) *cobra.Command {
	var deps *AdminDeps

	root := &cobra.Command{
		Use:           "finbot-admin",
		Short:         "Manage finbot accounts and talk to the assistant locally",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			d, err := open(cmd.Context())
			if err != nil {
				return err
			}
			deps = d
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if deps != nil && deps.Close != nil {
				return deps.Close()
			}
			return nil
		},
	}

	get := func() *AdminDeps { return deps }
	root.AddCommand(
		accountsCommand(get),
		balancesCommand(get),
		undoCommand(get),
		chatCommand(get),
	)
	return root
}

func accountsCommand(deps func() *AdminDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List, add or import accounts",
	}

	var (
		iban, bank, company, balance string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Add one account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opening := decimal.Zero
			if strings.TrimSpace(balance) != "" {
				b, err := core.ParseAmount(balance)
				if err != nil {
					return fmt.Errorf("balance %q: %w", balance, err)
				}
				opening = b
			}
			a := core.Account{IBAN: iban, Bank: bank, Company: company, Balance: opening}
			if err := deps().Store.AddAccount(cmd.Context(), a); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", core.NormalizeIBAN(iban), format.AccountName(bank, company, "-"))
			return nil
		},
	}
	add.Flags().StringVar(&iban, "iban", "", "account IBAN")
	add.Flags().StringVar(&bank, "bank", "", "bank name")
	add.Flags().StringVar(&company, "company", "", "company owning the account")
	add.Flags().StringVar(&balance, "balance", "", "opening balance")
	_ = add.MarkFlagRequired("iban")

	list := &cobra.Command{
		Use:   "list",
		Short: "List every account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := deps().Store.ListAccounts(cmd.Context(), storage.AccountFilter{})
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "IBAN\tBANK\tCOMPANY\tBALANCE")
			for _, a := range accounts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.IBAN, a.Bank, a.Company, format.Amount(a.Balance))
			}
			return tw.Flush()
		},
	}

	imp := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import accounts from a YAML seed file, skipping known IBANs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := storage.LoadSeed(args[0])
			if err != nil {
				return err
			}
			added, err := storage.ImportAccounts(cmd.Context(), deps().Store, accounts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d accounts\n", added, len(accounts))
			return nil
		},
	}

	cmd.AddCommand(add, list, imp)
	return cmd
}

func balancesCommand(deps func() *AdminDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Show every balance and the grand total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := deps().Store.ListAccounts(cmd.Context(), storage.AccountFilter{})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), format.AllBalances(accounts))
			return nil
		},
	}
}

func undoCommand(deps func() *AdminDeps) *cobra.Command {
	var profile string
	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Delete the latest transaction of a profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store := deps().Store
			out := cmd.OutOrStdout()

			last, err := store.LastTransaction(ctx, profile)
			if errors.Is(err, core.ErrNotFound) {
				fmt.Fprintln(out, format.NothingToUndo)
				return nil
			}
			if err != nil {
				return err
			}
			if err := store.DeleteTransaction(ctx, last.ID); err != nil {
				return err
			}

			var account *core.Account
			if a, err := store.GetAccount(ctx, last.Account); err == nil {
				account = &a
			}
			fmt.Fprintln(out, format.Undone(last, account))
			return nil
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "", "profile id, e.g. whatsapp:+40700000000")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func chatCommand(deps func() *AdminDeps) *cobra.Command {
	var profile string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant from the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := deps()
			if d.Chat == nil {
				return ErrNoInterpreter
			}
			h, err := d.Chat()
			if err != nil {
				return err
			}
			return runChat(cmd, h, profile)
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "local:admin", "profile id the conversation runs as")
	return cmd
}

func runChat(cmd *cobra.Command, h MessageHandler, profile string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Type 'exit' or 'quit' to leave.")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		fmt.Fprintln(out, h.HandleMessage(cmd.Context(), profile, line, nil))
	}
	return scanner.Err()
}
