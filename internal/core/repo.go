package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/nvl/internal/appsheet"
)

// TableAPI executes one remote table operation. *appsheet.Client implements it.
type TableAPI interface {
	Do(ctx context.Context, req appsheet.Request, out any) error
}

// MaterialRepo reads and writes the materials table.
type MaterialRepo struct {
	api   TableAPI
	table string
}

// NewMaterialRepo binds a repository to a table name.
func NewMaterialRepo(api TableAPI, table string) *MaterialRepo {
	return &MaterialRepo{api: api, table: table}
}

// List fetches every material.
func (r *MaterialRepo) List(ctx context.Context) ([]Material, error) {
	var rows []Material
	if err := r.api.Do(ctx, appsheet.Request{Table: r.table, Action: appsheet.ActionFind}, &rows); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return rows, nil
}

// IDs fetches the identifiers of every material straight from the table.
func (r *MaterialRepo) IDs(ctx context.Context) ([]string, error) {
	rows, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// Add inserts materials in a single call.
func (r *MaterialRepo) Add(ctx context.Context, rows []Material) error {
	if len(rows) == 0 {
		return nil
	}
	payload := make([]Material, len(rows))
	for i, m := range rows {
		payload[i] = m.forWrite()
	}
	if err := r.api.Do(ctx, appsheet.Request{Table: r.table, Action: appsheet.ActionAdd, Rows: payload}, nil); err != nil {
		return fmt.Errorf("add %d materials: %w", len(rows), err)
	}
	slog.Info("materials added", "table", r.table, "count", len(rows))
	return nil
}

// Edit updates a material keyed by its id.
func (r *MaterialRepo) Edit(ctx context.Context, m Material) error {
	if m.ID == "" {
		return fmt.Errorf("edit material: %w", ErrMissingID)
	}
	req := appsheet.Request{Table: r.table, Action: appsheet.ActionEdit, Rows: []Material{m.forWrite()}}
	if err := r.api.Do(ctx, req, nil); err != nil {
		return fmt.Errorf("edit material %s: %w", m.ID, err)
	}
	slog.Info("material updated", "table", r.table, "id", m.ID)
	return nil
}

// Delete removes a material by id.
func (r *MaterialRepo) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("delete material: %w", ErrMissingID)
	}
	key := map[string]string{ColMaterialID: id}
	req := appsheet.Request{Table: r.table, Action: appsheet.ActionDelete, Rows: []map[string]string{key}}
	if err := r.api.Do(ctx, req, nil); err != nil {
		return fmt.Errorf("delete material %s: %w", id, err)
	}
	slog.Info("material deleted", "table", r.table, "id", id)
	return nil
}

// PackageRepo reads the warehouse package table.
type PackageRepo struct {
	api   TableAPI
	table string
}

// NewPackageRepo binds a repository to a table name.
func NewPackageRepo(api TableAPI, table string) *PackageRepo {
	return &PackageRepo{api: api, table: table}
}

// Selector restricts Find to received packages on the server side.
func (r *PackageRepo) Selector() string {
	return fmt.Sprintf(`Filter(%s, [Loại giao dịch] = "%s")`, r.table, ReceivedTransaction)
}

// List fetches received packages. Rows of other transaction types are
// dropped locally as well, in case the selector is ignored.
func (r *PackageRepo) List(ctx context.Context) ([]Package, error) {
	var rows []Package
	req := appsheet.Request{Table: r.table, Action: appsheet.ActionFind, Selector: r.Selector()}
	if err := r.api.Do(ctx, req, &rows); err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}

	out := rows[:0]
	for _, p := range rows {
		if p.Received() {
			out = append(out, p)
		}
	}
	return out, nil
}
