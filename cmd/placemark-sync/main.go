// Command placemark-sync runs data-layer maintenance against a local
// placemark database: the one-shot legacy import, bulk upload/download
// against the remote document store, remote counts, and remote wipe.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/scrypster/placemark/internal/config"
	"github.com/scrypster/placemark/internal/legacy"
	"github.com/scrypster/placemark/internal/remote/postgres"
	"github.com/scrypster/placemark/internal/storage/sqlite"
	"github.com/scrypster/placemark/internal/syncer"
	"github.com/scrypster/placemark/pkg/logger"
)

var (
	configPath = flag.String("config", "", "Path to config file (optional, uses env vars by default)")
	dbPath     = flag.String("db", "", "Path to database file (overrides config)")
	legacyPath = flag.String("legacy", "", "Path to legacy export file (overrides config)")
	owner      = flag.String("owner", "", "Remote owner ID (overrides config)")

	importCmd   = flag.Bool("import", false, "Run the legacy import and exit")
	uploadCmd   = flag.Bool("upload", false, "Upload all local data to the remote store and exit")
	downloadCmd = flag.Bool("download", false, "Replace local data with the remote snapshot and exit")
	countsCmd   = flag.Bool("counts", false, "Print local and remote record counts and exit")
	wipeCmd     = flag.Bool("wipe-remote", false, "Delete all remote data for the owner and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	dbPathFinal := cfg.DatabasePath()
	if *dbPath != "" {
		dbPathFinal = *dbPath
	}
	if *owner != "" {
		cfg.Remote.Owner = *owner
	}
	if *legacyPath != "" {
		cfg.Legacy.ExportPath = *legacyPath
	}

	logg := logger.New(cfg.Log.Level)

	store, err := sqlite.Open(dbPathFinal)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	switch {
	case *importCmd:
		flat, err := legacy.OpenFile(cfg.Legacy.ExportPath)
		if err != nil {
			log.Fatalf("Failed to open legacy export: %v", err)
		}
		importer := legacy.NewImporter(flat, store, logg)
		if err := importer.Run(ctx); err != nil {
			log.Fatalf("Legacy import failed: %v", err)
		}
		fmt.Println("Legacy import complete")

	case *uploadCmd:
		engine := newEngine(ctx, cfg, store, logg)
		if err := engine.UploadAll(ctx, cfg.Remote.Owner); err != nil {
			log.Fatalf("Upload failed: %v", err)
		}
		fmt.Println("Upload complete")

	case *downloadCmd:
		engine := newEngine(ctx, cfg, store, logg)
		if err := engine.DownloadAll(ctx, cfg.Remote.Owner); err != nil {
			log.Fatalf("Download failed: %v", err)
		}
		fmt.Println("Download complete")

	case *countsCmd:
		local, err := store.CountPlaces(ctx)
		if err != nil {
			log.Fatalf("Failed to count local places: %v", err)
		}
		fmt.Printf("Local places: %d\n", local)

		engine := newEngine(ctx, cfg, store, logg)
		counts, err := engine.Counts(ctx, cfg.Remote.Owner)
		if err != nil {
			log.Fatalf("Failed to count remote records: %v", err)
		}
		fmt.Printf("Remote places: %d, notes: %d, travel entries: %d\n",
			counts.Places, counts.Notes, counts.TravelEntries)

	case *wipeCmd:
		engine := newEngine(ctx, cfg, store, logg)
		if err := engine.DeleteAllRemoteData(ctx, cfg.Remote.Owner); err != nil {
			log.Fatalf("Remote wipe failed: %v", err)
		}
		fmt.Println("Remote data deleted")

	default:
		flag.Usage()
		os.Exit(2)
	}
}

// newEngine connects to the remote document store. Remote operations require
// a configured DSN and a non-empty owner.
func newEngine(ctx context.Context, cfg *config.Config, store *sqlite.RecordStore, logg *logrus.Logger) *syncer.Engine {
	if cfg.Remote.PostgresDSN == "" {
		log.Fatal("Remote operations require PLACEMARK_REMOTE_DSN (or remote.postgres_dsn in the config file)")
	}
	if cfg.Remote.Owner == "" {
		log.Fatal("Remote operations require an owner (-owner, PLACEMARK_OWNER, or remote.owner)")
	}

	remote, err := postgres.Open(ctx, cfg.Remote.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to remote store: %v", err)
	}

	return syncer.NewEngine(store, remote, logg)
}
