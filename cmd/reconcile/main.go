package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/qs3c/laundry_go_server/config"
	"github.com/qs3c/laundry_go_server/internal/database"
	"github.com/qs3c/laundry_go_server/internal/pkg/logger"
	"github.com/qs3c/laundry_go_server/internal/repository"
	"github.com/qs3c/laundry_go_server/internal/service"
)

var (
	configPath = flag.String("config", "", "Config file path (defaults to $CONFIG_PATH or config.yaml)")
	dryRun     = flag.Bool("dry-run", true, "Dry run mode, only report drift")
	clientID   = flag.Int64("client", 0, "Reconcile a single client")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	log.Println("Starting ledger reconcile...")
	log.Printf("Mode: dry-run=%v", *dryRun)

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Sync()

	rules, err := cfg.Loyalty.ToRules()
	if err != nil {
		log.Fatalf("Invalid loyalty rules: %v", err)
	}

	db, err := database.NewDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	loyaltyService := service.NewLoyaltyService(db,
		repository.NewLedgerRepository(db),
		repository.NewAccrualRepository(db),
		rules, cfg, zlog)

	ctx := context.Background()
	ids := []int64{*clientID}
	if *clientID == 0 {
		if ids, err = loyaltyService.ListLedgerClients(ctx); err != nil {
			log.Fatalf("Failed to list ledgers: %v", err)
		}
	}

	checked, drifted, failed := 0, 0, 0
	for _, id := range ids {
		drift, err := loyaltyService.Reconcile(ctx, id, !*dryRun)
		if err != nil {
			log.Printf("  client %d: %v", id, err)
			failed++
			continue
		}
		checked++
		if !drift.WashesDiffer && !drift.WeightDiffers {
			continue
		}
		drifted++
		log.Printf("  client %d: washes %d -> %d, weight %s -> %s kg (free runs granted by journal: %d)",
			id,
			drift.Ledger.TotalWashes, drift.Replayed.TotalWashes,
			drift.Ledger.TotalWeightKg, drift.Replayed.TotalWeightKg,
			drift.GrantedTotal,
		)
	}

	log.Println(strings.Repeat("=", 60))
	log.Printf("Checked: %d", checked)
	log.Printf("Drifted: %d", drifted)
	log.Printf("Failed:  %d", failed)
	if *dryRun && drifted > 0 {
		log.Println("DRY RUN MODE - no ledger was changed")
		log.Println("Run with -dry-run=false to rewrite drifted ledgers from the journal")
	}
	log.Println(strings.Repeat("=", 60))

	if failed > 0 {
		os.Exit(1)
	}
}
