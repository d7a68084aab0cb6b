// Package app wires configuration, storage, services, and the HTTP server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/medkart/pharma-backend/internal/auth"
	"github.com/medkart/pharma-backend/internal/domain/cart"
	"github.com/medkart/pharma-backend/internal/domain/order"
	"github.com/medkart/pharma-backend/internal/domain/product"
	"github.com/medkart/pharma-backend/internal/domain/user"
	"github.com/medkart/pharma-backend/internal/handler"
	"github.com/medkart/pharma-backend/internal/notify"
	"github.com/medkart/pharma-backend/internal/otp"
	"github.com/medkart/pharma-backend/internal/storage/postgres"
	"github.com/medkart/pharma-backend/internal/storage/redis"
	"github.com/medkart/pharma-backend/pkg/health"
	"github.com/medkart/pharma-backend/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)
	orderStore := postgres.NewOrderStore(pool)

	// OTP storage: Redis when configured, process memory otherwise.
	var otpStore otp.Store = otp.NewMemoryStore()
	if cfg.OTP.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.OTP.RedisAddr})
		defer client.Close()

		healthSvc.AddReadinessCheck("redis", 5*time.Second, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		otpStore = redis.NewOTPStore(client, 2*cfg.OTP.Expiry)
		lg.Info("Using Redis OTP storage", zap.String("addr", cfg.OTP.RedisAddr))
	}

	registry := otp.NewRegistry(otpStore, otp.Config{
		Expiry:     cfg.OTP.Expiry,
		BypassCode: cfg.OTP.TestBypassCode,
	})

	// Notifications.
	mailer := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		From:     cfg.SMTP.From,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
	})
	dispatcher := notify.NewDispatcher(mailer, userRepo, notify.Toggles{
		OrderPlaced: cfg.Notifications.OrderPlaced,
		OTPEmail:    cfg.Notifications.OTPEmail,
		LowStock:    cfg.Notifications.LowStock,
	}, cfg.Notifications.AdminEmail, lg)
	defer dispatcher.Close()

	// Domain services.
	tokens := auth.NewTokens([]byte(cfg.JWTSecret), cfg.TokenTTL)
	cartService := cart.NewService(cartRepo, productRepo)
	orderService := order.NewService(orderStore, dispatcher)
	registrationService := user.NewRegistrationService(userRepo, registry, tokens, dispatcher)

	// Low-stock sweep.
	go runLowStockSweep(ctx, productRepo, dispatcher, cfg.LowStock)

	// HTTP handlers.
	h := handler.New(productRepo, cartService, orderService, registrationService, tokens)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", otelhttp.NewHandler(h.Routes(), "pharma-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// runLowStockSweep periodically flags products at or below the configured
// threshold and hands them to the notifier.
func runLowStockSweep(ctx context.Context, products product.Repository, dispatcher *notify.Dispatcher, cfg LowStockConfig) {
	if cfg.Interval <= 0 {
		return
	}

	lg := zctx.From(ctx)
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			low, err := products.ListLowStock(ctx, cfg.Threshold)
			if err != nil {
				lg.Error("Low stock sweep failed", zap.Error(err))
				continue
			}
			if len(low) > 0 {
				lg.Info("Low stock products found", zap.Int("count", len(low)))
				dispatcher.LowStock(low)
			}
		}
	}
}
