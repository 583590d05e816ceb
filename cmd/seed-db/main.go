// Command seed-db runs migrations and loads demo products and coupons into
// the database. It is safe to run repeatedly: everything is upserted.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shopkit/pricing-engine/internal/storage/postgres"
)

const (
	upsertProductSQL = `INSERT INTO products (id, name, price, description, stock, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			description = EXCLUDED.description,
			stock = EXCLUDED.stock,
			active = TRUE,
			updated_at = now()`

	upsertCouponSQL = `INSERT INTO coupons
		(code, discount_type, value, start_at, end_at, min_cart_value, usage_limit, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			value = EXCLUDED.value,
			start_at = EXCLUDED.start_at,
			end_at = EXCLUDED.end_at,
			min_cart_value = EXCLUDED.min_cart_value,
			usage_limit = EXCLUDED.usage_limit,
			enabled = TRUE,
			updated_at = now()`
)

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Stock       int             `json:"stock"`
}

type demoCoupon struct {
	code         string
	discountType string
	value        string
	minCartValue string
	usageLimit   *int
}

func intPtr(v int) *int { return &v }

var demoCoupons = []demoCoupon{
	{code: "SAVE10", discountType: "percentage", value: "10", minCartValue: "50"},
	{code: "FLAT20", discountType: "flat", value: "20", minCartValue: "50"},
	{code: "WELCOME5", discountType: "flat", value: "5", minCartValue: "0", usageLimit: intPtr(1000)},
	{code: "HALFOFF", discountType: "percentage", value: "50", minCartValue: "100", usageLimit: intPtr(50)},
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
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

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		_, err := pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Price, p.Description, p.Stock)
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo coupons")

	// Demo coupons get a one-year validity window from seed time.
	start := time.Now().Add(-time.Hour)
	end := start.AddDate(1, 0, 0)

	for _, c := range demoCoupons {
		value, err := decimal.NewFromString(c.value)
		if err != nil {
			return errors.Wrapf(err, "parse value for coupon %s", c.code)
		}
		minCart, err := decimal.NewFromString(c.minCartValue)
		if err != nil {
			return errors.Wrapf(err, "parse min cart value for coupon %s", c.code)
		}

		_, err = pool.Exec(ctx, upsertCouponSQL,
			c.code, c.discountType, value, start, end, minCart, c.usageLimit,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}

		slog.Info("upserted coupon", slog.String("code", c.code))
	}

	return nil
}
