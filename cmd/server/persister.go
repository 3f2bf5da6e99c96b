package main

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/DerekSmithEstrada/kingdom/internal/persistence/archive"
	"github.com/DerekSmithEstrada/kingdom/internal/persistence/s3mirror"
	"github.com/DerekSmithEstrada/kingdom/internal/persistence/save"
	"github.com/DerekSmithEstrada/kingdom/internal/persistence/savedb"
	"github.com/DerekSmithEstrada/kingdom/internal/sim/catalogs"
	"github.com/DerekSmithEstrada/kingdom/internal/sim/village"
)

// gamePersister bridges the simulation to disk: zstd save files plus the
// sqlite index, with optional season archiving and bucket mirroring.
// SaveNow is called from both the tick loop and the HTTP save endpoint,
// so it serializes internally.
type gamePersister struct {
	sim       *village.Simulation
	catalog   *catalogs.Catalog
	dataDir   string
	saveDir   string
	idx       *savedb.Index
	mirror    *s3mirror.Mirror
	seasonDur float64
	log       *log.Logger

	mu          sync.Mutex
	lastOrdinal int
}

func (p *gamePersister) SaveNow() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state := p.sim.ExportState()
	hud := p.sim.HUD()
	sv := save.New(state, p.catalog.Digest)
	path := filepath.Join(p.saveDir, save.FileName(state.Elapsed))
	if err := save.Write(path, sv); err != nil {
		return "", err
	}
	p.idx.RecordSave(savedb.SaveRow{
		Elapsed:      state.Elapsed,
		StateVersion: state.Version,
		Path:         path,
		Season:       hud.Season.Name,
		Population:   state.Workers.Total,
		Gold:         state.Inventory.Quantities["gold"],
		Buildings:    len(state.Buildings),
	})
	p.mirror.Enqueue(path)

	if ordinal := archive.SeasonOrdinal(state.Elapsed, p.seasonDur); ordinal > p.lastOrdinal {
		archived, err := archive.ArchiveSeasonSave(p.dataDir, path, sv, hud.Season.Name, ordinal)
		if err != nil {
			p.log.Printf("season archive: %v", err)
		} else {
			p.lastOrdinal = ordinal
			p.log.Printf("archived season %d save %s", ordinal, filepath.Base(archived))
			p.mirror.Enqueue(archived)
		}
	}
	return path, nil
}

// LoadLatest restores the newest save in the save directory. Returns ""
// without error when there are no saves yet.
func (p *gamePersister) LoadLatest() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	path, err := save.Latest(p.saveDir)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", nil
	}
	sv, err := save.Read(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if sv.Header.CatalogDigest != p.catalog.Digest {
		p.log.Printf("save %s was written against a different catalog (%.12s vs %.12s); loading anyway",
			filepath.Base(path), sv.Header.CatalogDigest, p.catalog.Digest)
	}
	if err := p.sim.ImportState(sv.State); err != nil {
		return "", fmt.Errorf("import %s: %w", path, err)
	}
	p.lastOrdinal = archive.SeasonOrdinal(sv.Header.Elapsed, p.seasonDur)
	return path, nil
}
