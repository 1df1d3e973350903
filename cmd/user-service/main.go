package main

import (
	"context"
	"log"
	"net"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/MikeMC777/ordenes-checkout/internal/config"
	"github.com/MikeMC777/ordenes-checkout/internal/db"
	"github.com/MikeMC777/ordenes-checkout/internal/identity"
	"github.com/MikeMC777/ordenes-checkout/internal/user"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("[db] connect: %v", err)
	}
	defer pool.Close()
	if cfg.RunMigrations {
		if err := db.Migrate(pool); err != nil {
			log.Fatalf("[db] migrate: %v", err)
		}
	}

	l, err := net.Listen("tcp", cfg.UserSvcListen)
	if err != nil {
		log.Fatal(err)
	}

	srv := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	identity.RegisterIdentityServer(srv, identity.NewServer(user.NewService(user.NewPGRepo(pool))))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		srv.GracefulStop()
	}()

	log.Printf("user-service listening on %s", cfg.UserSvcListen)
	if err := srv.Serve(l); err != nil {
		log.Fatalf("[grpc] %v", err)
	}
}
