package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/DerekSmithEstrada/kingdom/internal/persistence/save"
)

func TestSeasonOrdinal(t *testing.T) {
	cases := []struct {
		elapsed, duration float64
		want              int
	}{
		{0, 180, 0},
		{179.9, 180, 0},
		{180, 180, 1},
		{540.5, 180, 3},
		{100, 0, 0},
	}
	for _, c := range cases {
		if got := SeasonOrdinal(c.elapsed, c.duration); got != c.want {
			t.Fatalf("SeasonOrdinal(%v, %v)=%d want %d", c.elapsed, c.duration, got, c.want)
		}
	}
}

func TestArchiveSeasonSave_CopiesSaveWithMeta(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "saves", "000000180000.save.zst")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	want := []byte("dummy save body")
	if err := os.WriteFile(src, want, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	sv := save.SaveV1{Header: save.Header{
		Version:       1,
		Elapsed:       180,
		StateVersion:  42,
		CatalogDigest: "abc123",
	}}

	dst, err := ArchiveSeasonSave(dir, src, sv, "Summer", 1)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read archived: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("archived content mismatch: got=%q want=%q", got, want)
	}

	raw, err := os.ReadFile(filepath.Join(filepath.Dir(dst), "meta.json"))
	if err != nil {
		t.Fatalf("read meta.json: %v", err)
	}
	var meta SeasonArchiveMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta.Ordinal != 1 || meta.Season != "Summer" {
		t.Fatalf("meta=%+v", meta)
	}
	if meta.StateVersion != 42 || meta.CatalogDigest != "abc123" {
		t.Fatalf("meta=%+v", meta)
	}
	if meta.Save != filepath.Base(src) {
		t.Fatalf("meta.Save=%q want %q", meta.Save, filepath.Base(src))
	}
}
