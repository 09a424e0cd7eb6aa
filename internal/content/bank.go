package content

import (
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// emptyBankDuration is the dwell for the placeholder shown when no content
// is configured. Long enough to avoid hammering the surface, short enough
// that a fixed config shows up quickly.
const emptyBankDuration = 5

// Bank holds the active playlist and the rotation cursor.
//
// All methods are safe for concurrent use: the rotate loop, the refresh
// loop and the reload transaction go through the same mutex.
type Bank struct {
	mu     sync.Mutex
	items  []Item
	cursor int
}

// NewBank builds a bank over a copy of items with the cursor at 0.
func NewBank(items []Item) *Bank {
	return &Bank{items: slices.Clone(items)}
}

// Current returns the cursor position and the item under it. An empty bank
// yields position 0 and a synthesized error item, so the rotation loop
// always has something to show.
func (b *Bank) Current() (int, Item) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == 0 {
		return 0, Item{
			ID:       uuid.New().String(),
			Kind:     KindError,
			Source:   "no content configured",
			Duration: emptyBankDuration,
		}
	}
	if b.cursor >= len(b.items) {
		b.cursor = 0
	}
	return b.cursor, b.items[b.cursor]
}

// Advance moves the cursor to the next item, wrapping at the end, and
// returns the new position. Empty banks stay at 0.
func (b *Bank) Advance() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == 0 {
		b.cursor = 0
		return 0
	}
	b.cursor = (b.cursor + 1) % len(b.items)
	return b.cursor
}

// DurationFor returns the dwell in seconds for an item: the item's own
// duration when set, otherwise fallback, never less than 1.
func (b *Bank) DurationFor(item Item, fallback int) int {
	d := item.Duration
	if d <= 0 {
		d = fallback
	}
	if d < 1 {
		d = 1
	}
	return d
}

// SetItems replaces the playlist. The cursor follows the previously current
// item to its new position when its key survives the swap (first match on
// duplicate keys), otherwise it resets to 0.
func (b *Bank) SetItems(items []Item) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var currentKey Key
	hadCurrent := false
	if b.cursor < len(b.items) {
		currentKey = b.items[b.cursor].Key()
		hadCurrent = true
	}

	b.items = slices.Clone(items)
	b.cursor = 0
	if !hadCurrent {
		return
	}
	for i, it := range b.items {
		if it.Key() == currentKey {
			b.cursor = i
			return
		}
	}
}

// Diff describes how a prospective playlist differs from the active one,
// keyed by (kind, source). It informs logs and metrics; nothing acts on it.
type Diff struct {
	// Added holds items whose key is not in the active playlist.
	Added []Item
	// Removed holds active items whose key vanished.
	Removed []Item
	// Modified holds positions in the new playlist whose key persists but
	// whose duration or metadata changed.
	Modified []int
}

// Empty reports whether the diff carries no changes.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}

// Diff compares the active playlist against newItems. Duplicate keys on
// either side count once, first occurrence wins.
func (b *Bank) Diff(newItems []Item) Diff {
	b.mu.Lock()
	defer b.mu.Unlock()

	oldByKey := make(map[Key]Item, len(b.items))
	for _, it := range b.items {
		if _, ok := oldByKey[it.Key()]; !ok {
			oldByKey[it.Key()] = it
		}
	}

	var diff Diff
	newKeys := make(map[Key]bool, len(newItems))
	for i, it := range newItems {
		k := it.Key()
		if newKeys[k] {
			continue
		}
		newKeys[k] = true

		old, ok := oldByKey[k]
		if !ok {
			diff.Added = append(diff.Added, it)
			continue
		}
		if old.Duration != it.Duration || !maps.Equal(old.Metadata, it.Metadata) {
			diff.Modified = append(diff.Modified, i)
		}
	}

	seenRemoved := make(map[Key]bool)
	for _, it := range b.items {
		k := it.Key()
		if !newKeys[k] && !seenRemoved[k] {
			seenRemoved[k] = true
			diff.Removed = append(diff.Removed, it)
		}
	}
	return diff
}

// Len returns the playlist length.
func (b *Bank) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Cursor returns the current position.
func (b *Bank) Cursor() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor
}

// Items returns a copy of the playlist in order.
func (b *Bank) Items() []Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.items)
}

// Targets resolves every item in playlist order.
func (b *Bank) Targets() []string {
	items := b.Items()
	targets := make([]string, len(items))
	for i, it := range items {
		targets[i] = it.Resolve()
	}
	return targets
}
