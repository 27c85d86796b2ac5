package main

import (
	"fmt"

	"github.com/DanielPopoola/atelier-orders/internal/app"
	"github.com/DanielPopoola/atelier-orders/internal/application/services"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/DanielPopoola/atelier-orders/internal/interfaces/rest"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func refundCmd() *cobra.Command {
	var (
		staff    string
		currency string
		reason   string
		method   string
	)

	cmd := &cobra.Command{
		Use:   "refund [order-code] [amount]",
		Short: "Record a refund against an order code or a free-text reference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}

			return withApp(cmd.Context(), func(a *app.App) error {
				refund, err := a.Refunds.RecordRefund(cmd.Context(), services.RecordRefundCommand{
					OrderCode: args[0],
					Amount:    amount,
					Currency:  domain.NormalizeCurrency(currency),
					Reason:    reason,
					Method:    domain.RefundMethod(method),
					StaffID:   staff,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, rest.ToRefundView(refund))
			})
		},
	}

	cmd.Flags().StringVar(&staff, "staff", "", "staff identity recording the refund")
	cmd.Flags().StringVar(&currency, "currency", string(domain.HomeCurrency), "refund currency")
	cmd.Flags().StringVar(&reason, "reason", "", "why the money went back")
	cmd.Flags().StringVar(&method, "method", string(domain.RefundBankTransfer), "bank_transfer, cash or provider")
	_ = cmd.MarkFlagRequired("staff")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}
