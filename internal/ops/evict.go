package ops

import (
	"context"

	"github.com/hpungsan/tabstash/internal/group"
)

// Eviction reasons.
const (
	EvictReasonAge   = "age"
	EvictReasonCount = "count"
)

// EvictOutput contains the result of the Evict operation.
type EvictOutput struct {
	ByAge     []string `json:"by_age"`
	ByCount   []string `json:"by_count"`
	Remaining int      `json:"remaining"`
}

// Evicted returns the total number of removed groups.
func (o *EvictOutput) Evicted() int {
	return len(o.ByAge) + len(o.ByCount)
}

// Evict removes groups unused for longer than maxInactiveGroupAgeMs, then the
// least recently used groups until at most maxGroups remain. Evicted groups
// skip the recovery buffer.
func (e *Engine) Evict(ctx context.Context) (*EvictOutput, error) {
	var out *EvictOutput
	err := e.submit(ctx, "evict", func(tx *txn) error {
		out = evictGroups(tx.groups, tx.nowMillis(), tx.settings.MaxInactiveGroupAgeMs, tx.settings.MaxGroups)
		if out.Evicted() > 0 {
			tx.markGroups(out.ByAge...)
			tx.markGroups(out.ByCount...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.Evicted() > 0 {
		e.metrics.GroupsEvicted(EvictReasonAge, len(out.ByAge))
		e.metrics.GroupsEvicted(EvictReasonCount, len(out.ByCount))
		e.logger.Info("evicted groups", "by_age", len(out.ByAge), "by_count", len(out.ByCount), "remaining", out.Remaining)
	}
	return out, nil
}

// evictGroups deletes from c in place and reports what was removed.
func evictGroups(c group.Collection, now, maxAge int64, maxGroups int) *EvictOutput {
	out := &EvictOutput{ByAge: []string{}, ByCount: []string{}}

	for _, id := range group.OldestFirst(c) {
		if now-c[id].LastUsed() > maxAge {
			delete(c, id)
			out.ByAge = append(out.ByAge, id)
		}
	}

	if maxGroups > 0 && len(c) > maxGroups {
		excess := len(c) - maxGroups
		for _, id := range group.OldestFirst(c)[:excess] {
			delete(c, id)
			out.ByCount = append(out.ByCount, id)
		}
	}

	out.Remaining = len(c)
	return out
}
