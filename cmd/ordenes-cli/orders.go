package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/MikeMC777/ordenes-checkout/internal/identity"
	"github.com/MikeMC777/ordenes-checkout/internal/order"
)

func ordersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "orders", Short: "Inspect and override orders"}
	cmd.AddCommand(ordersSetStatusCmd())
	return cmd
}

func ordersSetStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <order-id> <status>",
		Short: "Set an order status as an operator",
		Long: `Set an order status as an operator. Accepted values: pending, processing,
shipped, delivered, cancelled. Payment status is never changed.`,
		Args: cobra.ExactArgs(2),
		RunE: withPool(func(ctx context.Context, cmd *cobra.Command, pool *pgxpool.Pool, args []string) error {
			op := &identity.Principal{UserID: "ordenes-cli", IsManager: true}
			o, err := order.NewService(order.NewPGRepo(pool), nil).UpdateStatus(ctx, op, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tstatus=%s payment=%s\n", o.ID, o.OrderNumber, o.Status, o.PaymentStatus)
			return nil
		}),
	}
}
