// Package main fills the configured store with fake batches and sales.
// Sales go through the allocation engine, so seeded data honours every
// stock invariant.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"shopstock/internal/app"
	"shopstock/internal/core/apperror"
	appctx "shopstock/internal/core/context"
	"shopstock/internal/core/types"
	"shopstock/internal/domain/allocation"
	"shopstock/internal/domain/stock"
	"shopstock/pkg/logger"
)

func main() {
	var (
		products = flag.Int("products", 5, "number of distinct brand/model pairs")
		batches  = flag.Int("batches", 20, "number of batches to create")
		sales    = flag.Int("sales", 50, "number of sales to allocate")
		days     = flag.Int("days", 30, "spread sales over this many past days")
		seed     = flag.Uint64("seed", 0, "random seed, 0 picks one")
	)
	flag.Parse()
	if *products <= 0 {
		fmt.Fprintln(os.Stderr, "-products must be positive")
		os.Exit(2)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to assemble application", "error", err)
	}
	defer func() { _ = application.Close() }()

	s := &seeder{
		faker:  gofakeit.New(*seed),
		stock:  application.Batches,
		engine: application.Engine,
		log:    log.WithComponent("seed"),
		now:    time.Now().UTC(),
	}

	keys := s.products(*products)
	if err := s.seedBatches(ctx, keys, *batches); err != nil {
		log.Fatalw("failed to seed batches", "error", err)
	}
	stats, err := s.seedSales(ctx, keys, *sales, *days)
	if err != nil {
		log.Fatalw("failed to seed sales", "error", err)
	}

	log.Infow("seed complete",
		"store", cfg.StoreBackend,
		"batches", *batches,
		"sales", stats.allocated,
		"top_ups", stats.toppedUp,
		"shortages", stats.shortages)

	if application.JWT != nil {
		token, expires, err := application.JWT.GenerateAccessToken(appctx.Session{
			UserID: "seed-admin",
			Role:   appctx.RoleAdmin,
		})
		if err != nil {
			log.Fatalw("failed to issue admin token", "error", err)
		}
		log.Infow("admin token issued", "token", token, "expires_at", expires)
	}
}

type seeder struct {
	faker  *gofakeit.Faker
	stock  *stock.Service
	engine *allocation.Engine
	log    *logger.Logger
	now    time.Time
}

type saleStats struct {
	allocated int
	toppedUp  int
	shortages int
}

func (s *seeder) products(n int) []stock.ProductKey {
	seen := make(map[stock.ProductKey]struct{}, n)
	keys := make([]stock.ProductKey, 0, n)
	for len(keys) < n {
		key := stock.ProductKey{
			Brand: s.faker.Company(),
			Model: fmt.Sprintf("%s-%d", strings.ToUpper(s.faker.LetterN(2)), s.faker.Number(100, 999)),
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

func (s *seeder) money(lo, hi float64) types.Money {
	return types.NewMoney(s.faker.Float64Range(lo, hi)).Round(2)
}

func (s *seeder) seedBatches(ctx context.Context, keys []stock.ProductKey, n int) error {
	for i := range n {
		key := keys[i%len(keys)]
		b, err := s.stock.Create(ctx, stock.CreateBatchRequest{
			Brand:    key.Brand,
			Model:    key.Model,
			Quantity: types.Quantity(s.faker.Number(1, 40)),
			UnitCost: s.money(5, 200),
		})
		if err != nil {
			return fmt.Errorf("create batch %d: %w", i, err)
		}
		s.log.Debugw("batch created", "id", b.ID, "brand", b.Brand, "model", b.Model, "quantity", b.InitialQuantity)
	}
	return nil
}

func (s *seeder) seedSales(ctx context.Context, keys []stock.ProductKey, n, days int) (saleStats, error) {
	var stats saleStats
	start := s.now.AddDate(0, 0, -days)
	for i := range n {
		key := keys[s.faker.Number(0, len(keys)-1)]
		qty := types.Quantity(s.faker.Number(1, 8))
		date := s.faker.DateRange(start, s.now).UTC().Truncate(24 * time.Hour)

		req := allocation.AllocateRequest{
			Brand:     key.Brand,
			Model:     key.Model,
			Quantity:  qty,
			UnitPrice: s.money(50, 400),
			Date:      date,
		}
		if s.faker.Number(1, 10) == 1 {
			req.TopUp = &allocation.TopUp{Quantity: qty, UnitCost: s.money(5, 200)}
		}

		res, err := s.engine.Allocate(ctx, req)
		switch {
		case apperror.IsInsufficientStock(err):
			stats.shortages++
			continue
		case err != nil:
			return stats, fmt.Errorf("allocate sale %d: %w", i, err)
		}
		stats.allocated++
		if res.TopUpBatch != nil {
			stats.toppedUp++
		}
	}
	return stats, nil
}
