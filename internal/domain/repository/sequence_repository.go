package repository

import "context"

// SequenceRepository advances the per-period receipt number sequence.
// NextValue must be a single durable atomic increment-and-read: no two
// calls may ever observe the same value for the same period key, across
// any number of concurrent callers or instances. Gaps are acceptable
// (a crash after allocation leaks the value); duplicates are not.
type SequenceRepository interface {
	NextValue(ctx context.Context, periodKey string) (int64, error)
	Current(ctx context.Context, periodKey string) (int64, error)
}
