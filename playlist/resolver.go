package playlist

// ResolveInsertIndex computes where a new request belongs: directly after the
// currently playing track and after every request already pending behind it,
// so pending requests play in the order they were made.
//
// It walks the cache once: find the current track's ordinal ci, then advance
// ci past each requested entry sitting beyond it. The result is both the
// external insert-before offset and the cache insertion ordinal, without any
// refetch from the external service.
//
// Returns ErrNotFound when the current track is not in the cache (the playlist
// must be resynced before requests can be placed again).
func (c *Cache) ResolveInsertIndex(currentTrackID string) (int, error) {
	ci, err := c.IndexOf(currentTrackID)
	if err != nil {
		return 0, err
	}
	for i := ci; i < len(c.entries); i++ {
		if c.entries[i].Requested {
			ci++
		}
	}
	return ci, nil
}
