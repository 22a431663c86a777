package database

import (
	"context"
)

// MarkSeen flips seen for every message in the owner's thread. Already-seen
// rows are skipped so the returned count reflects messages newly read.
func (r *messageRepo) MarkSeen(ctx context.Context, ownerID string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE messages SET seen = TRUE
		 WHERE owner_id = $1 AND seen = FALSE`,
		ownerID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
