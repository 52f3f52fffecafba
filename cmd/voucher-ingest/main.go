// Command voucher-ingest bulk-loads voucher codes from gzipped campaign dumps
// (one code per line) into the vouchers table. Every file in the data
// directory is streamed concurrently; a bloom filter suppresses duplicate
// codes across files without holding every seen code in memory.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/bazarly/storefront/internal/domain/voucher"
	"github.com/bazarly/storefront/internal/repository"
)

const (
	bloomCapacity = 50_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	minCodeLen    = 6
	maxCodeLen    = 12
)

func main() {
	var (
		dataDir      string
		databaseURL  string
		discountType string
		value        string
		minPurchase  string
		maxUses      int
		validDays    int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.gz code dumps")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&discountType, "discount-type", "percentage", "discount type for ingested codes (percentage|flat)")
	flag.StringVar(&value, "value", "10", "discount value for ingested codes")
	flag.StringVar(&minPurchase, "min-purchase", "0", "minimum purchase for ingested codes")
	flag.IntVar(&maxUses, "max-uses", 1, "usage cap per code (0 = unlimited)")
	flag.IntVar(&validDays, "valid-days", 30, "validity window in days from now (0 = no expiry)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	rule, err := buildRuleTemplate(discountType, value, minPurchase, maxUses, validDays)
	if err != nil {
		slog.Error("invalid rule flags", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, rule); err != nil {
		slog.Error("voucher ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("voucher ingest completed successfully")
}

func buildRuleTemplate(discountType, value, minPurchase string, maxUses, validDays int) (voucher.Rule, error) {
	dt := voucher.DiscountType(discountType)
	if dt != voucher.DiscountPercentage && dt != voucher.DiscountFlat {
		return voucher.Rule{}, errors.Errorf("unsupported discount type %q", discountType)
	}

	v, err := decimal.NewFromString(value)
	if err != nil {
		return voucher.Rule{}, errors.Wrap(err, "parse value")
	}
	mp, err := decimal.NewFromString(minPurchase)
	if err != nil {
		return voucher.Rule{}, errors.Wrap(err, "parse min purchase")
	}

	rule := voucher.Rule{
		Type:        dt,
		Value:       v,
		MinPurchase: mp,
		MaxUses:     maxUses,
		Active:      true,
	}
	if validDays > 0 {
		until := time.Now().AddDate(0, 0, validDays)
		rule.ValidUntil = &until
	}
	return rule, nil
}

func run(ctx context.Context, dataDir, databaseURL string, template voucher.Rule) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "list data dir")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.gz files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := repository.NewVoucherRepository(pool)

	// Readers stream files concurrently; a single writer owns the bloom
	// filter and the upserts, so neither needs locking.
	codes := make(chan string, 1024)

	g, gctx := errgroup.WithContext(ctx)

	// The reader group gets its own context: it is cancelled as soon as the
	// readers finish, while the writer keeps draining the channel under gctx.
	readers, rctx := errgroup.WithContext(gctx)
	for i, f := range files {
		readers.Go(streamFile(rctx, i, f, codes))
	}
	g.Go(func() error {
		defer close(codes)
		return readers.Wait()
	})

	var written uint64
	g.Go(func() error {
		seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		for code := range codes {
			if seen.TestOrAddString(code) {
				continue
			}

			rule := template
			rule.Code = code
			if err := repo.Upsert(gctx, &rule); err != nil {
				return errors.Wrapf(err, "upsert voucher %s", code)
			}

			written++
			if written%progressEvery == 0 {
				slog.Info("write progress", slog.Uint64("written", written))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("vouchers written", slog.Uint64("count", written))
	return nil
}

// streamFile reads one gzipped dump and sends every plausible code on out.
func streamFile(ctx context.Context, idx int, path string, out chan<- string) func() error {
	return func() error {
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

		var count uint64
		scanner := bufio.NewScanner(gz)
		for scanner.Scan() {
			code := strings.ToUpper(strings.TrimSpace(scanner.Text()))
			if len(code) < minCodeLen || len(code) > maxCodeLen {
				continue
			}

			select {
			case out <- code:
			case <-ctx.Done():
				return ctx.Err()
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("read progress",
					slog.Int("file", idx+1),
					slog.Uint64("codes", count),
				)
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("file complete",
			slog.Int("file", idx+1),
			slog.Uint64("codes", count),
		)
		return nil
	}
}
