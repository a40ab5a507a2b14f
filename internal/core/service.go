package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/nvl/internal/logging"
)

// ServiceConfig carries the tunables the service needs from configuration.
type ServiceConfig struct {
	MaterialTable string
	PackageTable  string
	PageSize      int
	Import        ImporterConfig
}

// Service is the entry point used by the web layer and the scheduler. The
// stores it owns are shared by every session.
type Service struct {
	Materials *Store[Material]
	Packages  *Store[Package]

	materialRepo *MaterialRepo
	packageRepo  *PackageRepo
	importer     *Importer
	limiter      *ImportLimiter
	images       ImageService
	metrics      *Metrics
	pageSize     int
}

// NewService wires repositories, stores and the importer over api.
// limiter and metrics may be nil.
func NewService(api TableAPI, imgs ImageService, limiter *ImportLimiter, metrics *Metrics, cfg ServiceConfig) *Service {
	materialRepo := NewMaterialRepo(api, cfg.MaterialTable)
	packageRepo := NewPackageRepo(api, cfg.PackageTable)

	s := &Service{
		Materials:    NewStore(cfg.MaterialTable, materialRepo.List),
		Packages:     NewStore(cfg.PackageTable, packageRepo.List),
		materialRepo: materialRepo,
		packageRepo:  packageRepo,
		limiter:      limiter,
		images:       imgs,
		metrics:      metrics,
		pageSize:     cfg.PageSize,
	}
	s.Materials.onRefresh = metrics.StoreRefreshed
	s.Packages.onRefresh = metrics.StoreRefreshed
	s.importer = NewImporter(materialRepo, s.Materials, limiter, metrics, cfg.Import)
	return s
}

// Importer returns the spreadsheet importer.
func (s *Service) Importer() *Importer { return s.importer }

// Limiter returns the import limiter, possibly nil.
func (s *Service) Limiter() *ImportLimiter { return s.limiter }

// Metrics returns the metrics sink, possibly nil.
func (s *Service) Metrics() *Metrics { return s.metrics }

// Images returns the image service.
func (s *Service) Images() ImageService { return s.images }

// NewMaterialScreen creates a per-session materials view-model.
func (s *Service) NewMaterialScreen() *MaterialScreen {
	return &MaterialScreen{
		Screen: NewScreen(s.Materials, MaterialFields, Material.Key, s.pageSize),
		Form:   NewFormController(s.materialRepo, s.Materials, s.images),
	}
}

// NewPackageScreen creates a per-session package view-model.
func (s *Service) NewPackageScreen() *PackageScreen {
	return &PackageScreen{Screen: NewScreen(s.Packages, PackageFields, Package.Key, s.pageSize)}
}

// RefreshAll reloads both stores; the first error is returned after both ran.
func (s *Service) RefreshAll(ctx context.Context) error {
	errM := s.Materials.Refresh(ctx)
	errP := s.Packages.Refresh(ctx)
	if errM != nil {
		return errM
	}
	return errP
}

// OpenForm opens the modal for a new material (id == "") or an existing one.
func (s *Service) OpenForm(screen *MaterialScreen, id string) error {
	if id == "" {
		return screen.Form.Open(nil)
	}
	m, ok := screen.Find(id)
	if !ok {
		return fmt.Errorf("open material %s: %w", id, ErrRecordNotFound)
	}
	return screen.Form.Open(&m)
}

// DeleteMaterial removes one material and refreshes the store either way.
func (s *Service) DeleteMaterial(ctx context.Context, screen *MaterialScreen, id string) error {
	err := s.materialRepo.Delete(ctx, id)
	s.refreshAfter(ctx, screen.Screen)
	return err
}

// BulkDeleteMaterials deletes the selection. The store is refreshed in every
// case; the selection is cleared only when all deletes succeeded.
func (s *Service) BulkDeleteMaterials(ctx context.Context, screen *MaterialScreen) (int, error) {
	ids := screen.SelectedIDs()
	err := BulkDelete(ctx, s.materialRepo, ids)
	if errors.Is(err, ErrNothingSelected) {
		return 0, err
	}
	if err == nil {
		screen.ClearSelection()
	}
	s.refreshAfter(ctx, screen.Screen)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// ExportSelection writes the selected materials as CSV in selection order.
func (s *Service) ExportSelection(w io.Writer, screen *MaterialScreen) (int, error) {
	rows := screen.Selected()
	if len(rows) == 0 {
		return 0, ErrNothingSelected
	}
	if err := ExportCSV(w, rows); err != nil {
		return 0, fmt.Errorf("export materials: %w", err)
	}
	return len(rows), nil
}

func (s *Service) refreshAfter(ctx context.Context, screen *Screen[Material]) {
	if err := screen.Refresh(ctx); err != nil {
		logging.FromContext(ctx).Warn("refresh after mutation failed", "store", s.Materials.Name(), "error", err)
	}
}
