package buffer

import "errors"

// ErrNoFrameAvailable is returned by NewPage/FetchPage when every
// frame is pinned and the replacer has nothing evictable: the pool is
// exhausted (spec.md §7 "resource-exhausted").
var ErrNoFrameAvailable = errors.New("buffer: no frame available, every frame is pinned")
