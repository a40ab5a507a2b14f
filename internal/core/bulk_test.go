package core

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDeleter struct {
	mu      sync.Mutex
	deleted []string
	fail    map[string]error
}

func (d *recordingDeleter) Delete(ctx context.Context, id string) error {
	if err := d.fail[id]; err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleted = append(d.deleted, id)
	return nil
}

func TestBulkDelete(t *testing.T) {
	tests := []struct {
		name        string
		ids         []string
		fail        map[string]error
		wantErr     error
		wantDeleted int
	}{
		{name: "nothing selected", wantErr: ErrNothingSelected},
		{name: "all succeed", ids: []string{"NVL001", "NVL002", "NVL003"}, wantDeleted: 3},
		{
			name:        "one failure does not stop siblings",
			ids:         []string{"NVL001", "NVL002", "NVL003"},
			fail:        map[string]error{"NVL002": errBoom},
			wantErr:     errBoom,
			wantDeleted: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &recordingDeleter{fail: tt.fail}
			err := BulkDelete(context.Background(), d, tt.ids)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Len(t, d.deleted, tt.wantDeleted)
		})
	}
}

func TestBulkDelete_ReportsFailureCount(t *testing.T) {
	d := &recordingDeleter{fail: map[string]error{"a": errBoom, "b": errBoom}}
	err := BulkDelete(context.Background(), d, []string{"a", "b", "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 failed")
}
