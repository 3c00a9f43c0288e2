package embedcache

import "errors"

// ErrFallbackNotPersistable is returned when a caller tries to flush a
// hash-mix fallback embedding to durable storage. Fallback vectors are
// process-local and not comparable across processes, so persisting one
// would silently poison any offline index built from it.
var ErrFallbackNotPersistable = errors.New("embedcache: fallback embedding cannot be persisted")
