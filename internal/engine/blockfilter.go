package engine

import (
	"context"
	"slices"

	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/repository"
)

// ExclusionSet is the set of user ids a viewer must never see.
type ExclusionSet map[uint64]struct{}

func (s ExclusionSet) Add(ids ...uint64) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

func (s ExclusionSet) Contains(id uint64) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members in ascending order.
func (s ExclusionSet) IDs() []uint64 {
	ids := make([]uint64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// BlockFilter synthesizes the symmetric effect of directional blocks.
type BlockFilter struct {
	*core
}

// ExclusionSet returns {viewer} ∪ blocked-by-viewer ∪ blockers-of-viewer.
func (f *BlockFilter) ExclusionSet(ctx context.Context, viewer uint64) (ExclusionSet, error) {
	related, err := f.repos.Blocks.Related(ctx, viewer)
	if err != nil {
		return nil, err
	}
	set := make(ExclusionSet, len(related)+1)
	set.Add(viewer)
	set.Add(related...)
	return set, nil
}

// IsBlocked reports whether a block edge exists in either direction.
func (f *BlockFilter) IsBlocked(ctx context.Context, a, b uint64) (bool, error) {
	return f.repos.Blocks.Exists(ctx, a, b)
}

// Block stores blocker → target.
//
// Behavior:
//   - self → InvalidTarget; unknown target → NotFound; repeat → Conflict.
//   - Both received-like counters are invalidated since counts skip blocked pairs.
func (f *BlockFilter) Block(ctx context.Context, blocker, target uint64) error {
	if blocker == target {
		return svcErr.InvalidTarget("cannot block yourself")
	}
	if err := f.requireUser(ctx, target, "user not found"); err != nil {
		return err
	}
	if err := f.repos.Blocks.Create(ctx, blocker, target); err != nil {
		if err == repository.ErrDuplicate {
			return svcErr.Conflict("user already blocked")
		}
		return err
	}
	f.invalidateLikeCounts(ctx, blocker, target)
	f.log.Info("user blocked", "blocker", blocker, "target", target)
	return nil
}

// Unblock removes blocker → target. Only the blocker's own edge can be removed;
// anything else, including the blocked party trying to lift it, is NotFound.
func (f *BlockFilter) Unblock(ctx context.Context, blocker, target uint64) error {
	if blocker == target {
		return svcErr.InvalidTarget("cannot unblock yourself")
	}
	deleted, err := f.repos.Blocks.Delete(ctx, blocker, target)
	if err != nil {
		return err
	}
	if !deleted {
		return svcErr.NotFound("block not found")
	}
	f.invalidateLikeCounts(ctx, blocker, target)
	f.log.Info("user unblocked", "blocker", blocker, "target", target)
	return nil
}
