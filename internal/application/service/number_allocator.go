package service

import (
	"context"
	"fmt"
	"time"

	"github.com/finveo/invoiceflow-api/internal/domain/repository"
	"github.com/finveo/invoiceflow-api/pkg/apperror"
)

// DefaultNumberWidth is the zero-padded sequence width after the period prefix
const DefaultNumberWidth = 3

// NumberAllocator hands out unique receipt numbers of the form
// YYYYMM + zero-padded sequence (e.g. 202601001). Uniqueness rests entirely
// on the sequence repository's atomic increment; the allocator holds no
// in-memory counter, so any number of instances can allocate concurrently.
// Gaps are possible when a caller crashes after allocating; duplicates are not.
type NumberAllocator struct {
	seqRepo repository.SequenceRepository
	width   int
	max     int64
}

// NewNumberAllocator creates a new number allocator. width is the sequence
// digit count; values below 1 fall back to the default.
func NewNumberAllocator(seqRepo repository.SequenceRepository, width int) *NumberAllocator {
	if width < 1 {
		width = DefaultNumberWidth
	}
	max := int64(1)
	for i := 0; i < width; i++ {
		max *= 10
	}
	return &NumberAllocator{
		seqRepo: seqRepo,
		width:   width,
		max:     max - 1,
	}
}

// Allocate returns the next receipt number for the period containing the
// given time. The period bucket is the calendar month in UTC. When a period's
// sequence overflows its width the allocation fails; it never wraps or
// borrows from a neighboring period.
func (a *NumberAllocator) Allocate(ctx context.Context, period time.Time) (string, error) {
	key := PeriodKey(period)

	n, err := a.seqRepo.NextValue(ctx, key)
	if err != nil {
		return "", fmt.Errorf("advance sequence %s: %w", key, err)
	}
	if n > a.max {
		return "", apperror.ErrAllocationExhausted
	}

	return fmt.Sprintf("%s%0*d", key, a.width, n), nil
}

// Current reports the last allocated sequence value for a period without
// advancing it. Zero means nothing has been allocated yet.
func (a *NumberAllocator) Current(ctx context.Context, period time.Time) (int64, error) {
	return a.seqRepo.Current(ctx, PeriodKey(period))
}

// PeriodKey returns the YYYYMM bucket key for a point in time, in UTC
func PeriodKey(t time.Time) string {
	return t.UTC().Format("200601")
}
