package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/MikeMC777/ordenes-checkout/docs"
	"github.com/MikeMC777/ordenes-checkout/internal/cart"
	"github.com/MikeMC777/ordenes-checkout/internal/config"
	"github.com/MikeMC777/ordenes-checkout/internal/db"
	"github.com/MikeMC777/ordenes-checkout/internal/httpx"
	"github.com/MikeMC777/ordenes-checkout/internal/identity"
	"github.com/MikeMC777/ordenes-checkout/internal/metrics"
	ord "github.com/MikeMC777/ordenes-checkout/internal/order"
	"github.com/MikeMC777/ordenes-checkout/internal/outbox"
	"github.com/MikeMC777/ordenes-checkout/internal/payment"
	"github.com/MikeMC777/ordenes-checkout/internal/product"
	"github.com/MikeMC777/ordenes-checkout/internal/user"
)

type services struct {
	resolver identity.Resolver
	cart     cartAPI
	orders   orderAPI
	sessions sessionAPI
	webhooks webhookAPI
	metrics  *metrics.Metrics
}

func newRouter(s services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(), httpx.Metrics(s.metrics))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.InstanceName(docs.OrderSwaggerInfo.InstanceName())))

	// the gateway authenticates with its signature, not a user header
	r.POST("/api/webhooks/stripe", stripeWebhookHandler(s.webhooks))

	api := r.Group("/api", httpx.Identity(s.resolver))
	api.GET("/cart", getCartHandler(s.cart))
	api.POST("/cart/items", addCartItemHandler(s.cart))
	api.PUT("/cart/items/:product_id", setCartItemHandler(s.cart))
	api.DELETE("/cart/items/:product_id", removeCartItemHandler(s.cart))

	api.GET("/shipping-address", getAddressHandler(s.orders))
	api.PUT("/shipping-address", putAddressHandler(s.orders))
	api.DELETE("/shipping-address", deleteAddressHandler(s.orders))

	api.POST("/checkout", checkoutHandler(s.orders))
	api.GET("/orders", listOrdersHandler(s.orders))
	api.GET("/orders/:id", getOrderHandler(s.orders))
	api.PUT("/orders/:id/status", updateOrderStatusHandler(s.orders))
	api.POST("/orders/:id/payment-session", createPaymentSessionHandler(s.sessions))
	return r
}

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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("order", reg)

	var catalog product.Catalog = product.NewPGRepo(pool)
	if cfg.ProductSvcBaseURL != "" {
		catalog = product.NewHTTPClient(cfg.ProductSvcBaseURL)
	}

	var resolver identity.Resolver = user.NewService(user.NewPGRepo(pool))
	if cfg.UserSvcAddr != "" {
		cli, conn, err := identity.Dial(cfg.UserSvcAddr)
		if err != nil {
			log.Fatalf("[identity] dial %s: %v", cfg.UserSvcAddr, err)
		}
		defer conn.Close()
		resolver = cli
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		resolver = identity.NewCachedResolver(resolver, rdb, cfg.PrincipalCacheTTL)
	}

	orders := ord.NewService(ord.NewPGRepo(pool), m)
	gw := payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeAPIURL, cfg.GatewayTimeout)
	issuer := payment.NewIssuer(orders, catalog, gw, payment.IssuerConfig{
		SuccessURL: cfg.CheckoutSuccessURL,
		CancelURL:  cfg.CheckoutCancelURL,
	}, m)
	if cfg.StripeWebhookSecret == "" {
		log.Printf("[config] WARN STRIPE_WEBHOOK_SECRET is empty, webhooks will be rejected")
	}
	reconciler := payment.NewReconciler(cfg.StripeWebhookSecret, orders, m)

	if cfg.KafkaBrokers != "" {
		pub := outbox.NewKafkaPublisher(cfg.KafkaBrokers)
		defer pub.Close()
		go outbox.NewPoller(outbox.NewPGStore(pool), pub).Run(ctx)
	}

	r := newRouter(services{
		resolver: resolver,
		cart:     cart.NewService(cart.NewPGRepo(pool), catalog),
		orders:   orders,
		sessions: issuer,
		webhooks: reconciler,
		metrics:  m,
	})

	srv := &http.Server{Addr: cfg.OrderSvcAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Printf("order-service listening on %s", cfg.OrderSvcAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[http] %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[http] shutdown: %v", err)
	}
}
