package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestWriter_AppendAndReadBack(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "feed")

	if err := w.Append(12.5, "trade wood paused: no stock"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Append(13.5, "season changed to Summer"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "feed-*.jsonl.zst"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one journal file, got %v (err=%v)", matches, err)
	}

	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var entries []Entry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("entries=%d want 2", len(entries))
	}
	if entries[0].Elapsed != 12.5 || entries[0].Message != "trade wood paused: no stock" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Message != "season changed to Summer" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
	if entries[0].At == "" {
		t.Fatalf("expected timestamp to be filled in")
	}
}
