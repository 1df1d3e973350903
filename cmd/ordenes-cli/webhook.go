package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/MikeMC777/ordenes-checkout/internal/config"
)

func webhookCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "webhook", Short: "Payment webhook helpers"}
	cmd.AddCommand(webhookSignCmd())
	return cmd
}

func webhookSignCmd() *cobra.Command {
	var (
		secret string
		file   string
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print a Stripe-Signature header for a payload",
		Example: `  ordenes-cli webhook sign --file event.json
  curl -X POST localhost:8082/api/webhooks/stripe \
    -H "Stripe-Signature: $(ordenes-cli webhook sign --file event.json)" --data-binary @event.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = config.Load().StripeWebhookSecret
			}
			if secret == "" {
				return fmt.Errorf("no webhook secret: pass --secret or set STRIPE_WEBHOOK_SECRET")
			}
			var (
				payload []byte
				err     error
			)
			if file == "" || file == "-" {
				payload, err = io.ReadAll(cmd.InOrStdin())
			} else {
				payload, err = os.ReadFile(file)
			}
			if err != nil {
				return err
			}
			signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
				Payload:   payload,
				Secret:    secret,
				Timestamp: time.Now(),
			})
			fmt.Fprintln(cmd.OutOrStdout(), signed.Header)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "webhook signing secret (default: STRIPE_WEBHOOK_SECRET)")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "payload file, - for stdin")
	return cmd
}
