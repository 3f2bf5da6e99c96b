// Package save writes and reads compressed game saves. A save file is a
// one-line JSON header followed by a gob body, the whole stream zstd
// compressed; the header stays readable with zstdcat even when the body
// format moves.
package save

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/DerekSmithEstrada/kingdom/internal/sim/village"
)

const fileSuffix = ".save.zst"

type Header struct {
	Version       int     `json:"version"`
	Elapsed       float64 `json:"elapsed"`
	StateVersion  uint64  `json:"state_version"`
	CatalogDigest string  `json:"catalog_digest,omitempty"`
	SavedAt       string  `json:"saved_at"`
}

type SaveV1 struct {
	Header Header            `json:"header"`
	State  village.SaveState `json:"state"`
}

// New wraps a simulation export into a versioned save.
func New(state village.SaveState, catalogDigest string) SaveV1 {
	return SaveV1{
		Header: Header{
			Version:       1,
			Elapsed:       state.Elapsed,
			StateVersion:  state.Version,
			CatalogDigest: catalogDigest,
			SavedAt:       time.Now().UTC().Format(time.RFC3339),
		},
		State: state,
	}
}

// FileName derives the canonical file name for a save. Elapsed seconds
// are encoded zero-padded so lexical order matches chronological order.
func FileName(elapsed float64) string {
	return fmt.Sprintf("%012d%s", int64(elapsed*1000), fileSuffix)
}

func Write(path string, sv SaveV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 64*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(sv.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&sv); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func Read(path string) (SaveV1, error) {
	var sv SaveV1
	f, err := os.Open(path)
	if err != nil {
		return sv, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return sv, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// Skip the header line; the gob body carries the header too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&sv); err != nil {
		return sv, fmt.Errorf("gob decode: %w", err)
	}
	return sv, nil
}

// Latest returns the path of the newest save in dir, or "" when the
// directory holds none.
func Latest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}
