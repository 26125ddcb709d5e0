package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/nexgen/bankledger/internal/adapter/http/dto"
	"github.com/nexgen/bankledger/internal/domain"
)

func ibanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iban",
		Short: "Generate and validate German IBANs locally",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "generate <account-number>",
		Short: "Print the IBAN for an account number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			iban, err := domain.GenerateIBAN(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", iban, domain.FormatIBAN(iban))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate <iban>",
		Short: "Check an IBAN's format and check digits",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Accept the grouped form split over several arguments.
			var raw string
			for _, a := range args {
				raw += a
			}
			iban := domain.CompactIBAN(raw)
			if err := domain.ValidateIBAN(iban); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", domain.FormatIBAN(iban))
			return nil
		},
	})

	return cmd
}

func accountCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <account-number>",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var account dto.AccountResponse
			err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, "/api/v1/accounts/"+url.PathEscape(args[0]), nil, &account)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), account)
		},
	})

	return cmd
}

func transferCmd(opts *options) *cobra.Command {
	var (
		from, to, amount, currency string
	)

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer money between two IBANs",
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}

			req := dto.CreateTransferRequest{
				FromIBAN: domain.CompactIBAN(from),
				ToIBAN:   domain.CompactIBAN(to),
				Amount:   value,
				Currency: currency,
			}

			var result dto.TransferResultResponse
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodPost, "/api/v1/transfers", req, &result); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Source IBAN")
	cmd.Flags().StringVar(&to, "to", "", "Destination IBAN")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount, at most two decimals")
	cmd.Flags().StringVar(&currency, "currency", "EUR", "Currency of both accounts")
	for _, name := range []string{"from", "to", "amount"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func ledgerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkConsistency(cmd, opts)
		},
	})

	return cmd
}

func checkConsistency(cmd *cobra.Command, opts *options) error {
	out := cmd.OutOrStdout()

	var report dto.ConsistencyResponse
	err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, "/api/v1/ledger/consistency", nil, &report)

	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		fmt.Fprintf(out, "Consistency check FAILED\nBalances: %s\nEntries:  %s\n", report.TotalBalance, report.TotalEntries)
		return errors.New("ledger is inconsistent")
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Consistency check PASSED\n")
	fmt.Fprintf(out, "Consistent: %v\n", report.Consistent)
	fmt.Fprintf(out, "Status: %s\n", report.Status)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
