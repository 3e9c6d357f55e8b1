package ingestion

// Dedup is a fixed-capacity LRU set of processed command ids. Commands are
// applied by a single consumer goroutine, so no locking is needed. The window
// bounds memory; a duplicate arriving after eviction is applied again, which
// the at-least-once delivery contract already permits for old redeliveries.
type Dedup struct {
	capacity int
	seen     map[string]int // command id -> ring index
	ring     []string
	next     int
}

func NewDedup(capacity int) *Dedup {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Dedup{
		capacity: capacity,
		seen:     make(map[string]int, capacity),
		ring:     make([]string, capacity),
	}
}

// Seen reports whether id was already recorded, recording it if not.
func (d *Dedup) Seen(id string) bool {
	if _, ok := d.seen[id]; ok {
		return true
	}
	if old := d.ring[d.next]; old != "" {
		delete(d.seen, old)
	}
	d.ring[d.next] = id
	d.seen[id] = d.next
	d.next = (d.next + 1) % d.capacity
	return false
}

// Len returns the number of ids currently tracked.
func (d *Dedup) Len() int {
	return len(d.seen)
}
