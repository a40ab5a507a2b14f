package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedCounter struct {
	countingRefresher
	name string
}

func (n *namedCounter) Name() string { return n.name }

func TestRefreshScheduler_RunOnceContinuesPastFailures(t *testing.T) {
	failing := &namedCounter{name: "DSNVL", countingRefresher: countingRefresher{err: errBoom}}
	ok := &namedCounter{name: "Kiện"}

	s, err := NewRefreshScheduler("@every 1h", time.Second, failing, ok)
	require.NoError(t, err)

	s.RunOnce()
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)
}

func TestRefreshScheduler_InvalidSpec(t *testing.T) {
	_, err := NewRefreshScheduler("every tuesday", 0)
	assert.Error(t, err)
}

func TestRefreshScheduler_StartStop(t *testing.T) {
	s, err := NewRefreshScheduler("*/5 * * * *", time.Second, &namedCounter{name: "x"})
	require.NoError(t, err)
	s.Start()

	ctx := s.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestRefreshScheduler_StoreIsNamedRefresher(t *testing.T) {
	var _ NamedRefresher = NewStore[Material]("DSNVL", func(context.Context) ([]Material, error) { return nil, nil })
}
