// Package archive copies one save per season into a long-lived archive
// directory. Autosaves rotate away; season archives stay so a balance
// change can be judged against the state each season started from.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/DerekSmithEstrada/kingdom/internal/persistence/save"
)

type SeasonArchiveMeta struct {
	Ordinal       int     `json:"season_ordinal"`
	Season        string  `json:"season"`
	Elapsed       float64 `json:"elapsed"`
	StateVersion  uint64  `json:"state_version"`
	Save          string  `json:"save"`
	CatalogDigest string  `json:"catalog_digest"`
	CreatedAt     string  `json:"created_at"`
}

// SeasonOrdinal maps elapsed simulation seconds to the absolute season
// count since the start of the run. Ordinal 0 is the opening season.
func SeasonOrdinal(elapsed, durationSec float64) int {
	if durationSec <= 0 {
		return 0
	}
	return int(math.Floor(elapsed / durationSec))
}

// ArchiveSeasonSave copies savePath into dataDir/archives/season_<NNNN>/
// with a meta.json beside it. Callers decide when a season boundary has
// been crossed; this only performs the copy.
func ArchiveSeasonSave(dataDir, savePath string, sv save.SaveV1, seasonName string, ordinal int) (string, error) {
	archiveDir := filepath.Join(dataDir, "archives", fmt.Sprintf("season_%04d", ordinal))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", err
	}

	dst := filepath.Join(archiveDir, filepath.Base(savePath))
	if err := copyFile(savePath, dst); err != nil {
		return "", err
	}

	meta := SeasonArchiveMeta{
		Ordinal:       ordinal,
		Season:        seasonName,
		Elapsed:       sv.Header.Elapsed,
		StateVersion:  sv.Header.StateVersion,
		Save:          filepath.Base(dst),
		CatalogDigest: sv.Header.CatalogDigest,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
