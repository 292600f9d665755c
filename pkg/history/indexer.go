// Package history indexes the matrices written by past compute runs so that
// exposure can be tracked from one run to the next.
package history

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nikogura/penalty-matrix/pkg/export"
	"github.com/nikogura/penalty-matrix/pkg/penalty"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Indexer scans an output directory for stored matrices.
type Indexer struct {
	outputDir string
	indexPath string
	logger    *zap.Logger
	clock     func() time.Time
}

// NewIndexer creates a new indexer for outputDir.
func NewIndexer(outputDir string, logger *zap.Logger) (indexer *Indexer, err error) {
	if outputDir == "" {
		err = errors.New("output directory is required")
		return indexer, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	indexer = &Indexer{
		outputDir: outputDir,
		indexPath: filepath.Join(outputDir, IndexFile),
		logger:    logger,
		clock:     time.Now,
	}

	return indexer, err
}

// IndexPath returns the location of the index file.
func (idx *Indexer) IndexPath() (path string) {
	path = idx.indexPath
	return path
}

// Index scans every *.matrix.json file, writes the index and returns it.
// Unreadable matrices are skipped.
func (idx *Indexer) Index(ctx context.Context) (index Index, err error) {
	entries := []Entry{}

	err = filepath.Walk(idx.outputDir, func(path string, info os.FileInfo, walkErr error) (walkFuncErr error) {
		if walkErr != nil {
			walkFuncErr = walkErr
			return walkFuncErr
		}

		walkFuncErr = ctx.Err()
		if walkFuncErr != nil {
			return walkFuncErr
		}

		if info.IsDir() || !strings.HasSuffix(info.Name(), export.MatrixSuffix) {
			return walkFuncErr
		}

		matrix, loadErr := export.ReadJSON(path)
		if loadErr != nil {
			idx.logger.Warn("skipping unreadable matrix", zap.String("path", path), zap.Error(loadErr))
			return walkFuncErr
		}

		entries = append(entries, summarize(path, matrix))
		return walkFuncErr
	})
	if err != nil {
		err = errors.Wrapf(err, "failed to walk output directory: %s", idx.outputDir)
		return index, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CalculationTimestamp.Equal(entries[j].CalculationTimestamp) {
			return entries[i].CalculationTimestamp.After(entries[j].CalculationTimestamp)
		}
		return entries[i].Path < entries[j].Path
	})

	index = Index{
		Entries:   entries,
		UpdatedAt: idx.clock().UTC(),
		Version:   IndexVersion,
	}

	var data []byte
	data, err = json.MarshalIndent(index, "", "  ")
	if err != nil {
		err = errors.Wrap(err, "failed to marshal index")
		return index, err
	}

	err = export.WriteFileAtomic(idx.indexPath, data)
	if err != nil {
		err = errors.Wrap(err, "failed to write index")
		return index, err
	}

	idx.logger.Debug("matrix index written", zap.String("path", idx.indexPath), zap.Int("entries", len(entries)))

	return index, err
}

// LoadIndex loads the existing index from disk. A missing index is empty.
func (idx *Indexer) LoadIndex() (index Index, err error) {
	var data []byte
	data, err = os.ReadFile(idx.indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			index = Index{
				Entries: []Entry{},
				Version: IndexVersion,
			}
			err = nil
			return index, err
		}
		err = errors.Wrapf(err, "failed to read index file: %s", idx.indexPath)
		return index, err
	}

	err = json.Unmarshal(data, &index)
	if err != nil {
		err = errors.Wrapf(err, "failed to parse index file: %s", idx.indexPath)
		return index, err
	}

	return index, err
}

// LatestChange compares the two newest entries. ok is false with fewer than
// two runs.
func (index Index) LatestChange() (change Change, ok bool) {
	if len(index.Entries) < 2 {
		return change, ok
	}

	change = Change{
		Current:         index.Entries[0],
		Previous:        index.Entries[1],
		GrandTotalDelta: index.Entries[0].GrandTotal - index.Entries[1].GrandTotal,
		ValidatedDelta:  index.Entries[0].ValidatedCount - index.Entries[1].ValidatedCount,
		RejectedDelta:   index.Entries[0].RejectedCount - index.Entries[1].RejectedCount,
	}
	ok = true

	return change, ok
}

func summarize(path string, matrix *penalty.Matrix) (entry Entry) {
	entry = Entry{
		Path:                 path,
		CalculationTimestamp: matrix.CalculationTimestamp,
		ScheduleVersion:      matrix.ScheduleVersion,
		GrandTotal:           matrix.GrandTotal,
		TotalViolations:      matrix.TotalViolations,
		ValidatedCount:       matrix.ValidatedCount,
		RejectedCount:        matrix.RejectedCount,
		Documents:            len(matrix.Documents),
		MissingMappings:      len(matrix.MissingStatuteMappings),
	}

	for _, calc := range matrix.Calculations() {
		if calc.ManualReviewFlagged {
			entry.ManualReview++
		}
	}

	return entry
}
