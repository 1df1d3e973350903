package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/MikeMC777/ordenes-checkout/internal/config"
	"github.com/MikeMC777/ordenes-checkout/internal/identity"
	"github.com/MikeMC777/ordenes-checkout/internal/user"
)

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Manage users"}
	cmd.AddCommand(usersCreateCmd(), usersSetManagerCmd())
	return cmd
}

func usersCreateCmd() *cobra.Command {
	var (
		in      user.CreateInput
		manager bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Example: `  ordenes-cli users create --username ana --email ana@example.com --password s3cret
  ordenes-cli users create --username ops --email ops@example.com --password s3cret --manager`,
		RunE: withPool(func(ctx context.Context, cmd *cobra.Command, pool *pgxpool.Pool, _ []string) error {
			if manager {
				in.Groups = append(in.Groups, user.GroupManager)
			}
			u, err := user.NewService(user.NewPGRepo(pool)).Create(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tmanager=%v superuser=%v\n", u.ID, u.Email, u.IsManager(), u.IsSuperuser())
			return nil
		}),
	}
	cmd.Flags().StringVar(&in.Username, "username", "", "username")
	cmd.Flags().StringVar(&in.Email, "email", "", "email")
	cmd.Flags().StringVar(&in.Password, "password", "", "password")
	cmd.Flags().BoolVar(&in.Superuser, "superuser", false, "grant superuser")
	cmd.Flags().BoolVar(&manager, "manager", false, "add to the Manager group")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func usersSetManagerCmd() *cobra.Command {
	var (
		revoke    bool
		redisAddr string
	)
	cmd := &cobra.Command{
		Use:   "set-manager <user-id>",
		Short: "Add a user to (or remove from) the Manager group",
		Long: `Add a user to (or remove from) the Manager group.

When a Redis address is known (--redis or REDIS_ADDR) the user's cached
principal is dropped so the order service sees the new role on the next
request instead of after PRINCIPAL_CACHE_TTL.`,
		Args: cobra.ExactArgs(1),
		RunE: withPool(func(ctx context.Context, cmd *cobra.Command, pool *pgxpool.Pool, args []string) error {
			if err := user.NewService(user.NewPGRepo(pool)).SetManager(ctx, args[0], !revoke); err != nil {
				return err
			}
			if redisAddr == "" {
				redisAddr = config.Load().RedisAddr
			}
			if err := forgetPrincipal(ctx, redisAddr, args[0]); err != nil {
				return fmt.Errorf("role updated but principal cache not cleared: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s manager=%v\n", args[0], !revoke)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "remove from the Manager group")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address of the principal cache (default: REDIS_ADDR)")
	return cmd
}

// forgetPrincipal is a no-op when no cache is configured.
func forgetPrincipal(ctx context.Context, addr, userID string) error {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	return identity.InvalidatePrincipal(ctx, rdb, userID)
}
