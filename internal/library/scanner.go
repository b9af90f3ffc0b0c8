package library

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/gabriel-vasile/mimetype"

	"github.com/your-org/photovault/internal/models"
	"github.com/your-org/photovault/internal/observability"
)

// allowedTypes is the raster allowlist. Matching is content-based so a
// misnamed file (say a JPEG saved as .png) is still picked up.
var allowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/bmp",
	"image/tiff",
}

// AssetLookup is the slice of the persistence layer the scanner needs for
// its dedup check.
type AssetLookup interface {
	GetAssetByHash(ctx context.Context, hash string) (*models.MediaAsset, error)
}

// Candidate is a file the scanner decided needs processing.
type Candidate struct {
	Path     string
	Dir      string
	Hash     string
	Size     int64
	MimeType string
}

// Stats summarizes one discovery pass.
type Stats struct {
	// Discovered counts every readable file that matched the media
	// allowlist, including ones later excluded as duplicates.
	Discovered int
	Skipped    int
	Duplicates int
}

type Scanner struct {
	store AssetLookup
}

func NewScanner(store AssetLookup) *Scanner {
	return &Scanner{store: store}
}

// Discover walks root and returns the files that need processing: supported
// media types whose content hash has no completed asset record yet. The
// result is grouped by containing directory so batches stay directory-local.
// limit caps the number of candidates returned; 0 means unlimited.
//
// Running Discover twice over an unchanged, fully processed tree returns
// zero candidates on the second pass.
func (s *Scanner) Discover(ctx context.Context, root string, limit int) ([]Candidate, Stats, error) {
	var stats Stats

	info, err := os.Stat(root)
	if err != nil {
		return nil, stats, fmt.Errorf("stat scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, stats, fmt.Errorf("scan root %s is not a directory", root)
	}

	var candidates []Candidate
	seen := make(map[string]bool) // hashes already accepted this pass

	// Iterative walk with an explicit directory queue. A failure inside
	// one subtree ends discovery for that subtree only.
	dirs := []string{root}
	for len(dirs) > 0 {
		if ctx.Err() != nil {
			return nil, stats, ctx.Err()
		}
		if limit > 0 && len(candidates) >= limit {
			break
		}

		dir := dirs[0]
		dirs = dirs[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			slog.Warn("skipping unreadable directory", "dir", dir, "error", err)
			continue
		}

		for _, entry := range entries {
			if limit > 0 && len(candidates) >= limit {
				break
			}

			path := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				dirs = append(dirs, path)
				continue
			}

			cand, ok := s.examine(ctx, path, &stats, seen)
			if ok {
				candidates = append(candidates, cand)
			}
		}
	}

	// Group by containing directory. Files inside a directory keep their
	// traversal order; no ordering is promised beyond the grouping.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Dir < candidates[j].Dir
	})

	slog.Info("discovery finished",
		"root", root,
		"discovered", stats.Discovered,
		"to_process", len(candidates),
		"duplicates", stats.Duplicates,
		"skipped", stats.Skipped,
	)

	return candidates, stats, nil
}

// examine applies the per-file filters: size, media type, dedup. Skips are
// logged, never raised.
func (s *Scanner) examine(ctx context.Context, path string, stats *Stats, seen map[string]bool) (Candidate, bool) {
	fi, err := os.Stat(path)
	if err != nil {
		slog.Warn("skipping unreadable file", "path", path, "error", err)
		stats.Skipped++
		observability.FilesSkipped.WithLabelValues("unreadable").Inc()
		return Candidate{}, false
	}
	if fi.Size() == 0 {
		slog.Warn("skipping zero-length file", "path", path)
		stats.Skipped++
		observability.FilesSkipped.WithLabelValues("empty").Inc()
		return Candidate{}, false
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		slog.Warn("skipping unreadable file", "path", path, "error", err)
		stats.Skipped++
		observability.FilesSkipped.WithLabelValues("unreadable").Inc()
		return Candidate{}, false
	}
	if !isAllowedType(mtype) {
		stats.Skipped++
		observability.FilesSkipped.WithLabelValues("type").Inc()
		return Candidate{}, false
	}

	stats.Discovered++
	observability.FilesDiscovered.Inc()

	hash, err := hashFile(path)
	if err != nil {
		slog.Warn("skipping unreadable file", "path", path, "error", err)
		stats.Skipped++
		observability.FilesSkipped.WithLabelValues("unreadable").Inc()
		return Candidate{}, false
	}

	// Identical bytes already accepted earlier in this pass.
	if seen[hash] {
		stats.Duplicates++
		return Candidate{}, false
	}

	existing, err := s.store.GetAssetByHash(ctx, hash)
	if err != nil {
		slog.Warn("dedup lookup failed, treating file as new", "path", path, "error", err)
	} else if existing != nil && existing.Status == models.AssetStatusCompleted {
		stats.Duplicates++
		return Candidate{}, false
	}

	seen[hash] = true
	return Candidate{
		Path:     path,
		Dir:      filepath.Dir(path),
		Hash:     hash,
		Size:     fi.Size(),
		MimeType: mtype.String(),
	}, true
}

func isAllowedType(mtype *mimetype.MIME) bool {
	for _, allowed := range allowedTypes {
		if mtype.Is(allowed) {
			return true
		}
	}
	return false
}

// hashFile computes the SHA-256 content hash used as the dedup key.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
