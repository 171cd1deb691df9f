package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/catalog"
)

// Store persists catalog records. *postgres.CatalogRepository satisfies it.
type Store interface {
	Save(ctx context.Context, recs catalog.Records) error
}

// Importer converts catalog content from a Source into the YAML catalog
// layout or a Store.
type Importer struct {
	source Source
	logger *zap.Logger
}

// New constructs an Importer backed by the given Source.
//
// Precondition: source and logger must be non-nil.
func New(source Source, logger *zap.Logger) *Importer {
	return &Importer{source: source, logger: logger}
}

// load reads sourceDir and validates the result by building a Registry.
func (imp *Importer) load(sourceDir string) (catalog.Records, catalog.Counts, error) {
	t0 := time.Now()
	res, err := imp.source.Load(sourceDir)
	if err != nil {
		return catalog.Records{}, catalog.Counts{}, fmt.Errorf("loading source: %w", err)
	}
	for _, w := range res.Warnings {
		imp.logger.Warn("import warning", zap.String("detail", w))
	}
	reg, err := res.Records.Build()
	if err != nil {
		return catalog.Records{}, catalog.Counts{}, fmt.Errorf("imported catalog failed validation: %w", err)
	}
	counts := reg.Counts()
	imp.logger.Info("source loaded",
		zap.Int("moves", counts.Moves),
		zap.Int("inspirits", counts.Inspirits),
		zap.Int("yokai", counts.Yokai),
		zap.Int("attitudes", counts.Attitudes),
		zap.Int("equipment", counts.Equipment),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("elapsed", time.Since(t0)),
	)
	return res.Records, counts, nil
}

// Run loads sourceDir, validates it, and writes one YAML file per catalog
// table into outputDir.
//
// Precondition: outputDir must exist or be creatable.
// Postcondition: outputDir holds a catalog that catalog.LoadDirectory accepts,
// or an error is returned. Validation happens before any file is written.
func (imp *Importer) Run(sourceDir, outputDir string) (catalog.Counts, error) {
	recs, counts, err := imp.load(sourceDir)
	if err != nil {
		return counts, err
	}
	files, err := recs.Encode()
	if err != nil {
		return counts, fmt.Errorf("encoding catalog: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return counts, fmt.Errorf("creating output directory %s: %w", outputDir, err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		outPath := filepath.Join(outputDir, name)
		if err := os.WriteFile(outPath, files[name], 0644); err != nil {
			return counts, fmt.Errorf("writing %s: %w", outPath, err)
		}
		imp.logger.Info("wrote catalog file", zap.String("path", outPath), zap.Int("bytes", len(files[name])))
	}
	return counts, nil
}

// Publish loads sourceDir, validates it, and saves it to store.
func (imp *Importer) Publish(ctx context.Context, sourceDir string, store Store) (catalog.Counts, error) {
	recs, counts, err := imp.load(sourceDir)
	if err != nil {
		return counts, err
	}
	if err := store.Save(ctx, recs); err != nil {
		return counts, fmt.Errorf("saving catalog: %w", err)
	}
	imp.logger.Info("catalog published")
	return counts, nil
}
