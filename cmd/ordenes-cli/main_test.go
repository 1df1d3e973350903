package main

import (
	"bytes"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

func init() { log.SetOutput(io.Discard) }

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestWebhookSign_VerifiesAgainstSecret(t *testing.T) {
	payload := `{"id":"evt_1","object":"event","type":"checkout.session.completed"}`

	out, err := run(t, payload, "webhook", "sign", "--secret", "whsec_cli")
	require.NoError(t, err)

	header := strings.TrimSpace(out)
	assert.NoError(t, webhook.ValidatePayload([]byte(payload), header, "whsec_cli"))
	assert.Error(t, webhook.ValidatePayload([]byte(payload), header, "whsec_other"))
}

func TestWebhookSign_RequiresSecret(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	_, err := run(t, "{}", "webhook", "sign")
	assert.ErrorContains(t, err, "no webhook secret")
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"migrate"},
		{"users", "create"},
		{"users", "set-manager"},
		{"products", "add"},
		{"products", "set-price"},
		{"orders", "set-status"},
		{"webhook", "sign"},
	} {
		c, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], c.Name())
	}
}

func TestArgsValidation(t *testing.T) {
	_, err := run(t, "", "orders", "set-status", "only-one-arg")
	assert.Error(t, err)
	_, err = run(t, "", "products", "set-price", "p1")
	assert.Error(t, err)
}
