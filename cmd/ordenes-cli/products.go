package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/MikeMC777/ordenes-checkout/internal/apperr"
	"github.com/MikeMC777/ordenes-checkout/internal/product"
)

func productsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "products", Short: "Seed and reprice the catalog"}
	cmd.AddCommand(productsAddCmd(), productsSetPriceCmd())
	return cmd
}

func productsAddCmd() *cobra.Command {
	var (
		p     product.Product
		price string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product",
		RunE: withPool(func(ctx context.Context, cmd *cobra.Command, pool *pgxpool.Pool, _ []string) error {
			d, err := decimal.NewFromString(price)
			if err != nil {
				return apperr.Validation("invalid price")
			}
			p.ID, p.Price = uuid.NewString(), d
			if err := product.NewPGRepo(pool).Create(ctx, &p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\tstock=%d\n", p.ID, p.Name, p.Price.StringFixed(2), p.Stock)
			return nil
		}),
	}
	cmd.Flags().StringVar(&p.Name, "name", "", "product name")
	cmd.Flags().StringVar(&p.Description, "description", "", "description")
	cmd.Flags().StringVar(&price, "price", "", "unit price, e.g. 19.90")
	cmd.Flags().IntVar(&p.Stock, "stock", 0, "available units")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func productsSetPriceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-price <product-id> <price>",
		Short: "Change a product price (existing orders keep theirs)",
		Args:  cobra.ExactArgs(2),
		RunE: withPool(func(ctx context.Context, cmd *cobra.Command, pool *pgxpool.Pool, args []string) error {
			d, err := decimal.NewFromString(args[1])
			if err != nil {
				return apperr.Validation("invalid price")
			}
			if err := product.NewPGRepo(pool).SetPrice(ctx, args[0], d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s price=%s\n", args[0], d.StringFixed(2))
			return nil
		}),
	}
}
