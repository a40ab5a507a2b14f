// Package core holds the domain logic behind the materials (NVL) and
// warehouse tag (Thẻ Kho) admin screens.
//
// It is independent of HTTP: web handlers, the refresh scheduler and tests
// drive it through the same types.
//
// # Data flow
//
//	Store[T] ──Rows──▶ Filter ──▶ Paginate ──▶ View[T]
//	                        │
//	                        └──▶ Selection (ordered ids)
//
// A [Store] is a cache over one remote table. Every mutation (form submit,
// delete, import) goes through a repository and is followed by an explicit
// [Store.Refresh]; rows are never patched in place.
//
// # Screens
//
// [MaterialScreen] and [PackageScreen] are per-session view-models. All of
// their transitions (query, filter, page, selection) are guarded by a mutex
// and recompute the derived view on demand.
//
// # Import
//
// [Importer] parses .xlsx/.xlsm/.csv files, checks the required columns,
// drops invalid rows and submits the rest in fixed-size batches. A failed
// batch is logged and skipped; the result counts only submitted rows.
//
// # Error Handling
//
// Errors are wrapped with context on the way up. [MapError] turns any error
// into a [UserMessage] with a support code for the screen notices.
package core
