package redisx

import "time"

const (
	// Rendered aggregation view: view:{generation}:{name} -> JSON
	KeyView       = "view:%d:%s"
	KeyViewPrefix = "view:"

	// View generation, bumped on every invalidation
	KeyViewGen = "viewgen"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Recent lifecycle activity, newest first (list of JSON entries)
	KeyActivity = "activity:recent"
)

const ActivityLimit = 100

var (
	TTLView  = 30 * time.Second
	TTLDedup = 48 * time.Hour
)
