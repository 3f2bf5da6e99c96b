package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/DerekSmithEstrada/kingdom/internal/persistence/journal"
	"github.com/DerekSmithEstrada/kingdom/internal/persistence/s3mirror"
	"github.com/DerekSmithEstrada/kingdom/internal/persistence/savedb"
	"github.com/DerekSmithEstrada/kingdom/internal/sim/catalogs"
	"github.com/DerekSmithEstrada/kingdom/internal/sim/tuning"
	"github.com/DerekSmithEstrada/kingdom/internal/sim/village"
	"github.com/DerekSmithEstrada/kingdom/internal/transport/httpapi"
	"github.com/DerekSmithEstrada/kingdom/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		schemaPath = flag.String("schema", "", "path to buildings schema (default: ./schemas/buildings.schema.json if present)")
		disableDB  = flag.Bool("disable_db", false, "disable the save index database")
		loadLatest = flag.Bool("load_latest_save", true, "resume from the newest save in the data dir if present")

		mirrorEndpoint = flag.String("mirror_endpoint", "", "S3-compatible endpoint to mirror saves to (empty disables)")
		mirrorBucket   = flag.String("mirror_bucket", "", "bucket for the save mirror")
		mirrorPrefix   = flag.String("mirror_prefix", "", "object key prefix for the save mirror")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	sp := strings.TrimSpace(*schemaPath)
	if sp == "" {
		if _, err := os.Stat("./schemas/buildings.schema.json"); err == nil {
			sp = "./schemas/buildings.schema.json"
		}
	}
	catalog, err := catalogs.Load(*configDir, sp)
	if err != nil {
		logger.Fatalf("load catalog: %v", err)
	}
	logger.Printf("catalog: %d building types (digest %.12s)", len(catalog.Order), catalog.Digest)

	sim, err := village.New(village.Config{Catalog: catalog, Tuning: tune, Logger: logger})
	if err != nil {
		logger.Fatalf("simulation: %v", err)
	}

	saveDir := filepath.Join(*dataDir, "saves")
	_ = os.MkdirAll(saveDir, 0o755)

	var idx *savedb.Index
	if !*disableDB {
		idx, err = savedb.Open(filepath.Join(*dataDir, "saves.db"))
		if err != nil {
			logger.Fatalf("open save index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalog(catalog.Digest, len(catalog.Order)); err != nil {
			logger.Printf("index catalog: %v", err)
		}
	}

	var mirror *s3mirror.Mirror
	if *mirrorEndpoint != "" {
		client, err := s3mirror.NewClient(*mirrorEndpoint, *mirrorBucket,
			os.Getenv("MIRROR_ACCESS_KEY_ID"), os.Getenv("MIRROR_SECRET_ACCESS_KEY"))
		if err != nil {
			logger.Fatalf("save mirror: %v", err)
		}
		mirror = s3mirror.NewMirror(client, *dataDir, *mirrorPrefix, 2, 256, logger)
		defer mirror.Close()
	}

	feed := journal.NewWriter(filepath.Join(*dataDir, "events"), "events")
	defer feed.Close()

	persister := &gamePersister{
		sim:       sim,
		catalog:   catalog,
		dataDir:   *dataDir,
		saveDir:   saveDir,
		idx:       idx,
		mirror:    mirror,
		seasonDur: tune.Season.DurationSec,
		log:       logger,
	}

	if *loadLatest {
		path, err := persister.LoadLatest()
		if err != nil {
			logger.Fatalf("resume: %v", err)
		}
		if path != "" {
			logger.Printf("resumed from %s", path)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	hudStream := ws.NewServer(ws.SessionInfo{
		TickIntervalSec: tune.TickIntervalSec,
		CatalogDigest:   catalog.Digest,
		Seasons:         tune.Season.Seasons,
	}, logger)

	go runTicks(ctx, sim, tune, persister, idx, feed, hudStream, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	httpapi.NewServer(sim, catalog, persister, logger).Register(mux)
	mux.HandleFunc("/v1/ws", hudStream.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("http: %v", err)
	}

	// Final save on the way out.
	if path, err := persister.SaveNow(); err != nil {
		logger.Printf("final save: %v", err)
	} else {
		logger.Printf("final save %s", path)
	}
}

// runTicks is the real-time driver: one simulation tick per interval,
// HUD broadcast after each tick, autosave every N ticks.
func runTicks(ctx context.Context, sim *village.Simulation, tune tuning.Tuning, persister *gamePersister, idx *savedb.Index, feed *journal.Writer, hudStream *ws.Server, logger *log.Logger) {
	interval := time.Duration(tune.TickIntervalSec * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tickCount := 0
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			sim.Tick(dt)

			hud := sim.HUD()
			hudStream.Broadcast(hud.Version, hud)
			events := sim.DrainEvents()
			idx.RecordEvents(hud.Elapsed, events)
			for _, msg := range events {
				if err := feed.Append(hud.Elapsed, msg); err != nil {
					logger.Printf("event journal: %v", err)
				}
			}

			tickCount++
			if tune.AutosaveEveryTicks > 0 && tickCount%tune.AutosaveEveryTicks == 0 {
				if path, err := persister.SaveNow(); err != nil {
					logger.Printf("autosave: %v", err)
				} else {
					logger.Printf("autosave %s", path)
				}
			}
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
