package library

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/your-org/photovault/internal/models"
)

type stubLookup struct {
	byHash map[string]*models.MediaAsset
}

func (s *stubLookup) GetAssetByHash(ctx context.Context, hash string) (*models.MediaAsset, error) {
	if s.byHash == nil {
		return nil, nil
	}
	return s.byHash[hash], nil
}

func writePNG(t *testing.T, path string, seed uint8) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 24, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 24; x++ {
			img.Set(x, y, color.RGBA{R: seed, G: uint8(x * 10), B: uint8(y * 10), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestDiscoverFiltersAndDedups(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 1)
	writePNG(t, filepath.Join(dir, "b.png"), 2)

	// Same bytes, different name: in-pass duplicate.
	data, err := os.ReadFile(filepath.Join(dir, "a.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a-again.png"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	// Content-based detection: a JPEG extension does not make it a JPEG,
	// and a text file with a .png name stays excluded.
	if err := os.WriteFile(filepath.Join(dir, "fake.png"), []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "empty.png"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewScanner(&stubLookup{})
	candidates, stats, err := s.Discover(context.Background(), dir, 0)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(candidates))
	}
	if stats.Discovered != 3 {
		t.Errorf("Discovered = %d, want 3 (duplicate counts as discovered)", stats.Discovered)
	}
	if stats.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", stats.Duplicates)
	}
	if stats.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2 (empty file and wrong type)", stats.Skipped)
	}
	for _, c := range candidates {
		if c.Hash == "" || c.Size == 0 || c.MimeType != "image/png" {
			t.Errorf("incomplete candidate: %+v", c)
		}
	}
}

func TestDiscoverExcludesOnlyCompletedAssets(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "done.png"), 1)
	writePNG(t, filepath.Join(dir, "failed.png"), 2)
	writePNG(t, filepath.Join(dir, "fresh.png"), 3)

	hash := func(name string) string {
		s := NewScanner(&stubLookup{})
		cands, _, err := s.Discover(context.Background(), dir, 0)
		if err != nil {
			t.Fatal(err)
		}
		for _, c := range cands {
			if filepath.Base(c.Path) == name {
				return c.Hash
			}
		}
		t.Fatalf("no candidate named %s", name)
		return ""
	}

	lookup := &stubLookup{byHash: map[string]*models.MediaAsset{
		hash("done.png"):   {Status: models.AssetStatusCompleted},
		hash("failed.png"): {Status: models.AssetStatusFailed},
	}}

	s := NewScanner(lookup)
	candidates, stats, err := s.Discover(context.Background(), dir, 0)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	// A completed asset is skipped; a failed one gets another chance.
	names := make(map[string]bool)
	for _, c := range candidates {
		names[filepath.Base(c.Path)] = true
	}
	if len(candidates) != 2 || !names["failed.png"] || !names["fresh.png"] {
		t.Fatalf("candidates = %v, want failed.png and fresh.png", names)
	}
	if stats.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", stats.Duplicates)
	}
}

func TestDiscoverGroupsByDirectory(t *testing.T) {
	root := t.TempDir()
	subA := filepath.Join(root, "2024", "trip")
	subB := filepath.Join(root, "misc")
	for _, d := range []string{subA, subB} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writePNG(t, filepath.Join(subB, "x.png"), 1)
	writePNG(t, filepath.Join(subA, "y.png"), 2)
	writePNG(t, filepath.Join(subB, "z.png"), 3)
	writePNG(t, filepath.Join(subA, "w.png"), 4)

	s := NewScanner(&stubLookup{})
	candidates, _, err := s.Discover(context.Background(), root, 0)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(candidates) != 4 {
		t.Fatalf("candidates = %d, want 4", len(candidates))
	}

	// Files from the same directory must be contiguous.
	seen := make(map[string]bool)
	last := ""
	for _, c := range candidates {
		if c.Dir != last {
			if seen[c.Dir] {
				t.Fatalf("directory %s appears in two separate runs", c.Dir)
			}
			seen[c.Dir] = true
			last = c.Dir
		}
	}
}

func TestDiscoverUnreadableSubtreeIsIsolated(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	root := t.TempDir()
	good := filepath.Join(root, "good")
	locked := filepath.Join(root, "locked")
	for _, d := range []string{good, locked} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writePNG(t, filepath.Join(good, "visible.png"), 1)
	writePNG(t, filepath.Join(locked, "hidden.png"), 2)
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chmod(locked, 0o755); err != nil {
			t.Error(err)
		}
	})

	candidates, _, err := NewScanner(&stubLookup{}).Discover(context.Background(), root, 0)
	if err != nil {
		t.Fatalf("Discover: %v, unreadable subtree must not fail the scan", err)
	}
	if len(candidates) != 1 || filepath.Base(candidates[0].Path) != "visible.png" {
		t.Fatalf("candidates = %+v, want only the readable subtree's file", candidates)
	}
}

func TestDiscoverLimit(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		writePNG(t, filepath.Join(dir, string(rune('a'+i))+".png"), uint8(i))
	}

	s := NewScanner(&stubLookup{})
	candidates, _, err := s.Discover(context.Background(), dir, 3)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("candidates = %d, want limit of 3", len(candidates))
	}
}

func TestDiscoverBadRoot(t *testing.T) {
	if _, _, err := NewScanner(&stubLookup{}).Discover(context.Background(), filepath.Join(t.TempDir(), "missing"), 0); err == nil {
		t.Error("missing root should be an error")
	}

	file := filepath.Join(t.TempDir(), "file.png")
	writePNG(t, file, 1)
	if _, _, err := NewScanner(&stubLookup{}).Discover(context.Background(), file, 0); err == nil {
		t.Error("non-directory root should be an error")
	}
}

func TestDiscoverCancelled(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := NewScanner(&stubLookup{}).Discover(ctx, dir, 0); err == nil {
		t.Error("cancelled context should abort discovery")
	}
}
