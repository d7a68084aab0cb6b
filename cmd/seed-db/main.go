// Command seed-db populates the database with a pharmacy catalog and an admin
// account for local development.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medkart/pharma-backend/internal/auth"
	"github.com/medkart/pharma-backend/internal/domain/product"
	"github.com/medkart/pharma-backend/internal/domain/user"
	"github.com/medkart/pharma-backend/internal/storage/postgres"
)

func main() {
	var (
		databaseURL   string
		adminEmail    string
		adminPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&adminEmail, "admin-email", "admin@medkart.example", "admin account email")
	flag.StringVar(&adminPassword, "admin-password", "", "admin account password (or PHARMA_SEED_ADMIN_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("PHARMA_SEED_ADMIN_PASSWORD")
	}
	if adminPassword == "" {
		slog.Error("admin password is required: set --admin-password or PHARMA_SEED_ADMIN_PASSWORD")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, adminEmail, adminPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, adminEmail, adminPassword string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, postgres.NewProductRepository(pool)); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedAdmin(ctx, postgres.NewUserRepository(pool), adminEmail, adminPassword); err != nil {
		return errors.Wrap(err, "seed admin account")
	}
	return nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository) error {
	products := []product.Product{
		{
			ID:            "paracetamol-500",
			Name:          "Paracetamol 500mg",
			Description:   "Pain and fever relief, strip of 10 tablets",
			Category:      "painkillers",
			Price:         decimal.RequireFromString("10.00"),
			StockQuantity: 200,
			BundleOffer:   true,
			BundleBuyQty:  10,
			BundleFreeQty: 2,
			BundlePrice:   decimal.RequireFromString("50.00"),
		},
		{
			ID:            "ibuprofen-400",
			Name:          "Ibuprofen 400mg",
			Description:   "Anti-inflammatory, strip of 15 tablets",
			Category:      "painkillers",
			Price:         decimal.RequireFromString("18.50"),
			StockQuantity: 150,
		},
		{
			ID:            "cetirizine-10",
			Name:          "Cetirizine 10mg",
			Description:   "Antihistamine for allergy relief, strip of 10",
			Category:      "allergy",
			Price:         decimal.RequireFromString("7.25"),
			StockQuantity: 120,
			BundleOffer:   true,
			BundleBuyQty:  5,
			BundleFreeQty: 1,
			BundlePrice:   decimal.RequireFromString("30.00"),
		},
		{
			ID:            "vitamin-d3-60k",
			Name:          "Vitamin D3 60000 IU",
			Description:   "Weekly supplement, 4 capsules",
			Category:      "supplements",
			Price:         decimal.RequireFromString("32.00"),
			StockQuantity: 80,
		},
		{
			ID:            "ors-sachet",
			Name:          "ORS Rehydration Sachet",
			Description:   "Oral rehydration salts, 21g sachet",
			Category:      "first-aid",
			Price:         decimal.RequireFromString("2.50"),
			StockQuantity: 500,
		},
		{
			ID:            "bandage-roll",
			Name:          "Elastic Bandage Roll",
			Description:   "7.5cm x 4m compression bandage",
			Category:      "first-aid",
			Price:         decimal.RequireFromString("5.75"),
			StockQuantity: 60,
		},
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for i := range products {
		if err := products[i].ValidateBundle(); err != nil {
			return errors.Wrapf(err, "validate product %s", products[i].ID)
		}
		if err := repo.Upsert(ctx, &products[i]); err != nil {
			return errors.Wrapf(err, "upsert product %s", products[i].ID)
		}
		slog.Info("upserted product", slog.String("id", products[i].ID), slog.String("name", products[i].Name))
	}
	return nil
}

func seedAdmin(ctx context.Context, repo *postgres.UserRepository, email, password string) error {
	exists, err := repo.ExistsByEmail(ctx, email)
	if err != nil {
		return errors.Wrap(err, "check admin email")
	}
	if exists {
		slog.Info("admin account already exists", slog.String("email", email))
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return errors.Wrap(err, "hash admin password")
	}

	acct := &user.Account{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Admin",
		Role:         user.RoleAdmin,
		CreatedAt:    time.Now(),
	}
	if err := repo.Create(ctx, acct); err != nil {
		return errors.Wrap(err, "create admin account")
	}

	slog.Info("created admin account", slog.String("email", email))
	return nil
}
