package core

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/nvl/internal/logging"
)

// DefaultImportBatchSize is the number of rows sent per Add call.
const DefaultImportBatchSize = 25

// importRefreshTimeout bounds the store refresh that ends every import.
const importRefreshTimeout = 30 * time.Second

// RequiredImportColumns must be present in the header of every import file.
var RequiredImportColumns = []string{ColMaterialName, ColMaterialSpec}

// ImportResult reports what an import run did.
type ImportResult struct {
	RunID          string        `json:"runId"`
	FileName       string        `json:"fileName"`
	Total          int           `json:"total"`
	Valid          int           `json:"valid"`
	Processed      int           `json:"processed"`
	InvalidRows    []int         `json:"invalidRows"`
	Batches        int           `json:"batches"`
	FailedBatches  int           `json:"failedBatches"`
	// Unsubmitted and SkippedBatches count the rows never sent because the
	// run was cancelled or timed out.
	Unsubmitted    int           `json:"unsubmitted"`
	SkippedBatches int           `json:"skippedBatches"`
	Duration       time.Duration `json:"duration"`
}

// Warning describes skipped rows, "" when every row was valid.
func (r *ImportResult) Warning() string {
	if len(r.InvalidRows) == 0 {
		return ""
	}
	lines := make([]string, len(r.InvalidRows))
	for i, n := range r.InvalidRows {
		lines[i] = strconv.Itoa(n)
	}
	return fmt.Sprintf("Skipped %d rows missing %s or %s: %s",
		len(r.InvalidRows), ColMaterialName, ColMaterialSpec, strings.Join(lines, ", "))
}

// Summary is the notice shown after an import.
func (r *ImportResult) Summary() string {
	msg := fmt.Sprintf("Imported %d of %d rows from %s", r.Processed, r.Total, r.FileName)
	if r.FailedBatches > 0 {
		msg += fmt.Sprintf(" (%d of %d batches failed)", r.FailedBatches, r.Batches)
	}
	if r.Unsubmitted > 0 {
		msg += fmt.Sprintf("; import stopped early, %d rows in %d batches were not sent", r.Unsubmitted, r.SkippedBatches)
	}
	return msg
}

// Complete reports whether every valid row was submitted successfully.
func (r *ImportResult) Complete() bool {
	return r.FailedBatches == 0 && r.Unsubmitted == 0 && r.Processed > 0
}

// Importer validates spreadsheets and submits materials in batches.
type Importer struct {
	repo      MaterialWriter
	store     Refresher
	limiter   *ImportLimiter
	metrics   *Metrics
	batchSize int
	maxSize   int64
	prefix    string
}

// ImporterConfig tunes an Importer.
type ImporterConfig struct {
	BatchSize   int
	MaxFileSize int64
}

// NewImporter builds an importer; limiter and metrics may be nil.
func NewImporter(repo MaterialWriter, store Refresher, limiter *ImportLimiter, metrics *Metrics, cfg ImporterConfig) *Importer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultImportBatchSize
	}
	return &Importer{
		repo:      repo,
		store:     store,
		limiter:   limiter,
		metrics:   metrics,
		batchSize: cfg.BatchSize,
		maxSize:   cfg.MaxFileSize,
		prefix:    MaterialIDPrefix,
	}
}

// Parse checks the file and its required columns.
func (im *Importer) Parse(name string, data []byte) (*Sheet, error) {
	if err := CheckImportFile(name); err != nil {
		return nil, err
	}
	if im.maxSize > 0 && int64(len(data)) > im.maxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, len(data), im.maxSize)
	}

	sheet, err := ParseSheet(name, data)
	if err != nil {
		return nil, err
	}
	if missing := sheet.Missing(RequiredImportColumns...); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}
	return sheet, nil
}

// Preview parses the file and returns the first rows for confirmation.
func (im *Importer) Preview(name string, data []byte) (*PreviewResponse, error) {
	sheet, err := im.Parse(name, data)
	if err != nil {
		return nil, err
	}
	return buildPreview(name, sheet), nil
}

// Candidates splits sheet rows into valid materials and invalid row numbers.
func Candidates(sheet *Sheet) (valid []ImportCandidate, invalid []int) {
	for _, row := range sheet.Rows {
		cand := candidateFromRow(sheet, row)
		if !cand.Valid() {
			invalid = append(invalid, cand.Row)
			continue
		}
		valid = append(valid, cand)
	}
	sort.Ints(invalid)
	return valid, invalid
}

// Import parses the whole file again, drops invalid rows, assigns ids and
// submits the rest in sequential batches. A failed batch is logged and
// counted; later batches still run. The store is refreshed at the end.
func (im *Importer) Import(ctx context.Context, name string, data []byte) (*ImportResult, error) {
	start := time.Now()
	logger := logging.FromContext(ctx)

	sheet, err := im.Parse(name, data)
	if err != nil {
		return nil, err
	}

	if im.limiter != nil {
		if err := im.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer im.limiter.Release()
	}

	result := &ImportResult{
		RunID:       uuid.NewString(),
		FileName:    name,
		Total:       len(sheet.Rows),
		InvalidRows: []int{},
	}
	logger = logger.With("import_id", result.RunID, "file", name)

	valid, invalid := Candidates(sheet)
	if invalid != nil {
		result.InvalidRows = invalid
	}
	result.Valid = len(valid)

	if len(valid) == 0 {
		result.Duration = time.Since(start)
		im.metrics.ImportFinished(result)
		logger.Warn("import has no valid rows", "total", result.Total)
		return result, nil
	}

	rows, err := im.assignIDs(ctx, valid)
	if err != nil {
		return nil, err
	}

	for i := 0; i < len(rows); i += im.batchSize {
		if ctx.Err() != nil {
			result.Unsubmitted = len(rows) - i
			result.SkippedBatches = (result.Unsubmitted + im.batchSize - 1) / im.batchSize
			logger.Warn("import interrupted",
				"submitted", result.Processed,
				"unsubmitted", result.Unsubmitted,
				"error", ctx.Err(),
			)
			break
		}
		end := min(i+im.batchSize, len(rows))
		batch := rows[i:end]
		result.Batches++

		if err := im.repo.Add(ctx, batch); err != nil {
			result.FailedBatches++
			logger.Error("import batch failed", "batch", result.Batches, "rows", len(batch), "first_line", valid[i].Row, "error", err)
			continue
		}
		result.Processed += len(batch)
	}

	// rows already sent must show up even when the run was cut short
	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), importRefreshTimeout)
	defer cancel()
	if err := im.store.Refresh(refreshCtx); err != nil {
		logger.Warn("refresh after import failed", "error", err)
	}

	result.Duration = time.Since(start)
	im.metrics.ImportFinished(result)
	logger.Info("import complete",
		"total", result.Total,
		"processed", result.Processed,
		"invalid", len(result.InvalidRows),
		"failed_batches", result.FailedBatches,
		"unsubmitted", result.Unsubmitted,
		"duration", result.Duration,
	)
	return result, nil
}

// assignIDs gives every row without an id the next id from a sequence
// seeded by one fetch of the existing ids.
func (im *Importer) assignIDs(ctx context.Context, valid []ImportCandidate) ([]Material, error) {
	rows := make([]Material, len(valid))
	needIDs := false
	for i, c := range valid {
		rows[i] = c.Material
		if c.Material.ID == "" {
			needIDs = true
		}
	}
	if !needIDs {
		return rows, nil
	}

	existing, err := im.repo.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed import ids: %w", err)
	}
	seq := NewIDSequence(im.prefix, existing)
	for _, m := range rows {
		if m.ID != "" {
			seq.Reserve(m.ID)
		}
	}
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = seq.Next()
		}
	}
	return rows, nil
}
