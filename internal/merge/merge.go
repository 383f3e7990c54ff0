package merge

import (
	"context"
	"fmt"

	"github.com/skicluster/engine/internal/domain"
	"github.com/skicluster/engine/internal/domain/repository"
)

// Merge composes primary and others via composer, then persists the
// survivor, rewrites every other ski area's references to it, and
// removes the non-surviving records. Steps after composition run as one
// rewrite-then-remove sequence; the store's RewriteSkiAreaRefs is the
// exclusive-lock boundary that isolates it from concurrent markings.
func Merge(ctx context.Context, store repository.ClusterStore, composer Composer, primary *domain.MapObject, others []*domain.MapObject) (*domain.MapObject, bool, error) {
	merged, ok := composer(primary, others)
	if !ok {
		return nil, false, nil
	}

	if err := store.SaveSkiArea(ctx, merged); err != nil {
		return nil, false, fmt.Errorf("merge: persist survivor %s: %w", merged.ID, err)
	}

	all := append([]*domain.MapObject{primary}, others...)
	var oldIDs, removeKeys []string
	for _, a := range all {
		if a.Key == merged.Key {
			continue
		}
		oldIDs = append(oldIDs, a.ID)
		removeKeys = append(removeKeys, a.Key)
	}

	if len(oldIDs) > 0 {
		if err := store.RewriteSkiAreaRefs(ctx, oldIDs, merged.ID); err != nil {
			return nil, false, fmt.Errorf("merge: rewrite refs onto %s: %w", merged.ID, err)
		}
	}
	if len(removeKeys) > 0 {
		if err := store.RemoveBatch(ctx, removeKeys); err != nil {
			return nil, false, fmt.Errorf("merge: remove non-survivors: %w", err)
		}
	}

	return merged, true, nil
}
