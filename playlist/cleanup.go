package playlist

import (
	"context"
	"log/slog"
)

// Clean removes every bot-inserted track from the external playlist, restoring
// the curator's original contents. Entries are visited in cache order; each
// removal shifts all later real positions down by one, so the recorded Pos is
// compensated by the number of removals already performed in this pass.
//
// The cache entries themselves are dropped as they are removed. Returns how
// many tracks were removed; on a store error the pass stops and the remaining
// requested entries stay cached with their Pos shifted down by the removals
// that already happened, so a retry targets the right positions.
func (c *Cache) Clean(ctx context.Context, store Store, playlistID string) (int, error) {
	removed := 0
	kept := c.entries[:0]
	for i, e := range c.entries {
		if !e.Requested {
			kept = append(kept, e)
			continue
		}
		pos := e.Pos - removed
		if err := store.RemovePlaylistOccurrences(ctx, playlistID, e.Track.URI, []int{pos}); err != nil {
			rest := c.entries[i:]
			for j := range rest {
				if rest[j].Requested {
					rest[j].Pos -= removed
				}
			}
			kept = append(kept, rest...)
			c.entries = kept
			return removed, err
		}
		slog.Info("removed requested track", slog.String("uri", e.Track.URI), slog.Int("pos", pos))
		removed++
	}
	c.entries = kept
	return removed, nil
}
