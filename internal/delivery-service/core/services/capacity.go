package services

import (
	"context"

	"dropx/internal/delivery-service/core/domain/model"
	"dropx/internal/delivery-service/core/ports"
)

// Remaining is the capacity arithmetic shared by the locked accept path and
// the display path: max_weight minus everything committed.
func Remaining(maxWeight, committedWeight float64) float64 {
	return maxWeight - committedWeight
}

// WouldExceed reports whether adding candidateWeight overshoots remaining.
func WouldExceed(candidateWeight, remaining float64) bool {
	return candidateWeight > remaining
}

// CapacityLedger is the display-path view of a post's remaining weight
// budget. Reads here take no lock and may lag a committing accept; the
// authoritative check runs inside the match transaction.
type CapacityLedger struct {
	posts ports.IPostRepo
}

func NewCapacityLedger(posts ports.IPostRepo) *CapacityLedger {
	return &CapacityLedger{posts: posts}
}

func (l *CapacityLedger) RemainingCapacity(ctx context.Context, post *model.DriverPost) (float64, error) {
	committed, err := l.posts.CommittedWeight(ctx, post.ID)
	if err != nil {
		return 0, err
	}
	return Remaining(post.MaxWeight, committed), nil
}
