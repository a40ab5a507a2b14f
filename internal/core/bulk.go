package core

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Deleter removes one record by id.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// BulkDelete issues one delete per id, all at once, and waits for every call
// to finish. Any failure fails the whole operation; it does not say which ids
// were removed.
func BulkDelete(ctx context.Context, d Deleter, ids []string) error {
	if len(ids) == 0 {
		return ErrNothingSelected
	}

	var (
		g      errgroup.Group // no derived context: a failure must not cancel siblings
		failed atomic.Int32
	)
	for _, id := range ids {
		g.Go(func() error {
			if err := d.Delete(ctx, id); err != nil {
				failed.Add(1)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("bulk delete: %d of %d failed: %w", failed.Load(), len(ids), err)
	}
	return nil
}
