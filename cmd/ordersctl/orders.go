package main

import (
	"github.com/DanielPopoola/atelier-orders/internal/app"
	"github.com/DanielPopoola/atelier-orders/internal/application/services"
	"github.com/DanielPopoola/atelier-orders/internal/interfaces/rest"
	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [order-code]",
		Short: "Show an order with its sessions and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				order, err := a.Orders.GetOrderStatus(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, rest.ToAdminOrderView(order))
			})
		},
	}
}

func transitionCmd() *cobra.Command {
	var (
		staff  string
		note   string
		amount int64
	)

	cmd := &cobra.Command{
		Use:   "transition [order-code] [event]",
		Short: "Apply a staff lifecycle event to an order",
		Long: `Apply a staff lifecycle event such as AdminVerifiedPayment,
AdminMarksInProduction, AdminMarksReady, AdminMarksCompleted,
AdminMarksDelivered, AdminCancels or AdminQuotes.

Examples:
  ordersctl transition BOU-0325-030001 AdminMarksReady --staff kemi
  ordersctl transition CUS-0325-030002 AdminQuotes --staff kemi --amount 180000`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				order, err := a.Orders.GetOrderStatus(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				outcome, err := a.Orders.AdminTransition(cmd.Context(), services.AdminTransitionCommand{
					OrderID: order.ID,
					Event:   args[1],
					StaffID: staff,
					Note:    note,
					Amount:  amount,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, rest.ToAdminOrderView(outcome.Order))
			})
		},
	}

	cmd.Flags().StringVar(&staff, "staff", "", "staff identity recorded on the transition")
	cmd.Flags().StringVar(&note, "note", "", "free text kept in the order history")
	cmd.Flags().Int64Var(&amount, "amount", 0, "quoted price in whole naira, for AdminQuotes")
	_ = cmd.MarkFlagRequired("staff")
	return cmd
}
