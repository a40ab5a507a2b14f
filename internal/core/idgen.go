package core

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// idDigits is the zero-padded width of the numeric suffix.
const idDigits = 3

// NextID returns prefix followed by the largest numeric suffix among ids
// carrying that prefix, plus one, zero-padded to three digits.
//
// Ids with another prefix or a non-numeric suffix are ignored. Two sessions
// creating records at the same time can compute the same id; the remote
// table is the only arbiter.
func NextID(prefix string, ids []string) string {
	return FormatID(prefix, MaxSuffix(prefix, ids)+1)
}

// FormatID renders prefix + n with at least three digits.
func FormatID(prefix string, n int) string {
	return fmt.Sprintf("%s%0*d", prefix, idDigits, n)
}

// MaxSuffix returns the largest numeric suffix of ids with prefix, or 0.
func MaxSuffix(prefix string, ids []string) int {
	highest := 0
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		suffix := id[len(prefix):]
		if !allDigits(suffix) {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// IDSequence hands out strictly increasing ids from a single seed fetch.
// Used by imports so a batch does not refetch per row.
type IDSequence struct {
	mu     sync.Mutex
	prefix string
	last   int
}

// NewIDSequence seeds a sequence from the ids that exist right now.
func NewIDSequence(prefix string, existing []string) *IDSequence {
	return &IDSequence{prefix: prefix, last: MaxSuffix(prefix, existing)}
}

// Next returns the next id.
func (s *IDSequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	return FormatID(s.prefix, s.last)
}

// Reserve marks an explicitly supplied id as used so later ids stay above it.
func (s *IDSequence) Reserve(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := MaxSuffix(s.prefix, []string{id}); n > s.last {
		s.last = n
	}
}
