// Command catalog-ingest loads gzipped JSONL product feeds into the catalog.
// Feeds from different suppliers may overlap; per-file bloom filters are used
// to detect duplicate SKUs across feeds cheaply, keeping the first occurrence.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/medkart/pharma-backend/internal/domain/product"
	"github.com/medkart/pharma-backend/internal/storage/postgres"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	progressEvery = 50_000
)

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz product feeds")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz feeds found in %s", dataDir)
	}
	sort.Strings(files)

	// Pass 1: build one SKU bloom filter per feed, concurrently.
	slog.Info("pass 1: building SKU filters", slog.Int("files", len(files)))

	filters, err := buildSKUFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build SKU filters")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Pass 2: upsert feeds in order, skipping SKUs already seen in an
	// earlier feed or earlier in the same feed.
	repo := postgres.NewProductRepository(pool)
	var total, dups uint64
	for i, f := range files {
		n, d, err := ingestFeed(ctx, repo, f, filters[:i])
		if err != nil {
			return errors.Wrapf(err, "ingest %s", f)
		}
		total += n
		dups += d
		slog.Info("feed ingested",
			slog.String("file", filepath.Base(f)),
			slog.Uint64("products", n),
			slog.Uint64("duplicates_skipped", d),
		)
	}

	slog.Info("ingest summary", slog.Uint64("products", total), slog.Uint64("duplicates_skipped", dups))
	return nil
}

// buildSKUFilters creates one bloom filter of SKUs per feed, concurrently.
func buildSKUFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			var count uint64

			err := streamFeed(ctx, f, func(line []byte) error {
				sku, err := parseSKU(line)
				if err != nil {
					return err
				}
				filter.AddString(sku)
				if count++; count%progressEvery == 0 {
					slog.Info("pass 1 progress", slog.Int("file", i+1), slog.Uint64("skus", count))
				}
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "scan %s", files[i])
			}

			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// ingestFeed upserts one feed, skipping SKUs present in any earlier feed's
// filter or repeated within this feed. Returns upserted and skipped counts.
func ingestFeed(
	ctx context.Context,
	repo *postgres.ProductRepository,
	path string,
	earlier []*bloom.BloomFilter,
) (upserted, skipped uint64, _ error) {
	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)

	err := streamFeed(ctx, path, func(line []byte) error {
		p, err := parseProduct(line)
		if err != nil {
			return err
		}

		for _, f := range append(earlier, seen) {
			if f.TestString(p.ID) {
				slog.Warn("duplicate SKU skipped", slog.String("sku", p.ID))
				skipped++
				return nil
			}
		}
		seen.AddString(p.ID)

		if err := p.ValidateBundle(); err != nil {
			return errors.Wrapf(err, "product %s", p.ID)
		}
		if err := repo.Upsert(ctx, &p); err != nil {
			return err
		}
		upserted++
		return nil
	})
	return upserted, skipped, err
}

// streamFeed opens a gzipped JSONL file and calls fn for each non-empty line.
func streamFeed(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return errors.Wrapf(scanner.Err(), "scan %s", path)
}

// parseSKU extracts only the id field from a feed line.
func parseSKU(line []byte) (string, error) {
	var sku string
	d := jx.DecodeBytes(line)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key == "id" {
			var err error
			sku, err = d.Str()
			return err
		}
		return d.Skip()
	})
	if err != nil {
		return "", errors.Wrap(err, "parse feed line")
	}
	if sku == "" {
		return "", errors.New("feed line missing id")
	}
	return sku, nil
}

// parseProduct decodes a full product from a feed line.
func parseProduct(line []byte) (product.Product, error) {
	var p product.Product
	d := jx.DecodeBytes(line)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "price":
			p.Price, err = parseDecimal(d)
		case "stock_quantity":
			p.StockQuantity, err = d.Int()
		case "is_bundle_offer":
			p.BundleOffer, err = d.Bool()
		case "bundle_buy_quantity":
			p.BundleBuyQty, err = d.Int()
		case "bundle_free_quantity":
			p.BundleFreeQty, err = d.Int()
		case "bundle_price":
			p.BundlePrice, err = parseDecimal(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return product.Product{}, errors.Wrap(err, "parse feed line")
	}
	if p.ID == "" || p.Name == "" {
		return product.Product{}, errors.New("feed line missing id or name")
	}
	return p, nil
}

// parseDecimal accepts prices encoded as JSON numbers or strings.
func parseDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	}
}
