// Package playlist holds the in-memory mirror of the external Spotify playlist
// and the queue-position arithmetic built on it. The cache is the source of
// truth for "which tracks did this bot insert, and where", so requested tracks
// can later be removed without disturbing the curator's original ordering.
//
// Position convention: ordinals handed around here are 1-based, matching the
// external API's insert-before offset (inserting at ordinal n lands the track
// directly after the first n tracks). An Entry's Pos is that same number,
// recorded at insertion time.
//
// Like ledger, the cache does no internal locking; all access is serialized by
// the owning session.
package playlist

import (
	"context"
	"errors"
)

// ErrNotFound signals that a track id is not in the tracked window, e.g. the
// currently playing track was removed by the curator since the last rebuild.
var ErrNotFound = errors.New("track not in playlist cache")

// Track is the external identity of one playlist item.
type Track struct {
	ID     string `json:"id"`
	URI    string `json:"uri"`
	Name   string `json:"name"`
	Artist string `json:"artist"`
}

// Entry is one cached playlist slot. Pos is only meaningful while Requested is
// true; it stays valid until the next structural change shifts it (cleanup
// compensates for its own removals, see Clean).
type Entry struct {
	Track     Track `json:"track"`
	Requested bool  `json:"requested"`
	Pos       int   `json:"pos,omitempty"`
}

// Store is the narrow playlist-mutation contract the cache consumes; the
// spotifyapi client implements it, tests substitute fakes.
type Store interface {
	PlaylistItems(ctx context.Context, playlistID string, offset, limit int) ([]Track, error)
	AddPlaylistItems(ctx context.Context, playlistID string, uris []string, position int) error
	RemovePlaylistOccurrences(ctx context.Context, playlistID, uri string, positions []int) error
}

// PageSize is the page bound for the paginated rebuild fetch (the external
// API caps playlist item pages at 100).
const PageSize = 100

type Cache struct {
	entries []Entry
}

func NewCache() *Cache {
	return &Cache{}
}

// Rebuild fetches the whole external playlist page by page until an empty page
// and replaces the cache contents atomically. Every entry starts unrequested.
// On error the previous contents are kept.
func (c *Cache) Rebuild(ctx context.Context, store Store, playlistID string) error {
	var entries []Entry
	offset := 0
	for {
		page, err := store.PlaylistItems(ctx, playlistID, offset, PageSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}
		for _, t := range page {
			entries = append(entries, Entry{Track: t})
		}
		offset += len(page)
	}
	c.entries = entries
	return nil
}

// Clear drops the cache without refetching (shutdown path).
func (c *Cache) Clear() {
	c.entries = nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int { return len(c.entries) }

// Pending returns how many cached entries are bot-inserted and not yet
// cleaned up.
func (c *Cache) Pending() int {
	n := 0
	for _, e := range c.entries {
		if e.Requested {
			n++
		}
	}
	return n
}

// IndexOf returns the 1-based ordinal of the first entry with the given track
// id, or ErrNotFound.
func (c *Cache) IndexOf(trackID string) (int, error) {
	for i, e := range c.entries {
		if e.Track.ID == trackID {
			return i + 1, nil
		}
	}
	return 0, ErrNotFound
}

// InsertAt inserts a requested track at the 1-based ordinal index, so it sits
// directly after the first index tracks. The index is clamped to the valid
// range; the entry records it as Pos.
func (c *Cache) InsertAt(index int, t Track) {
	if index < 0 {
		index = 0
	}
	if index > len(c.entries) {
		index = len(c.entries)
	}
	e := Entry{Track: t, Requested: true, Pos: index}
	c.entries = append(c.entries, Entry{})
	copy(c.entries[index+1:], c.entries[index:])
	c.entries[index] = e
}

// Entries returns a copy of the cache contents for dumps and the web console.
func (c *Cache) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}
