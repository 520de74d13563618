// Package projection turns a post source into an ordered, row-indexable list.
package projection

import (
	"sort"

	"github.com/rcliao/postcache/internal/model"
	"github.com/rcliao/postcache/internal/remote"
)

// Source identifies where a List came from.
type Source int

const (
	None Source = iota
	Remote
	Local
)

func (s Source) String() string {
	switch s {
	case Remote:
		return "remote"
	case Local:
		return "local"
	default:
		return "none"
	}
}

// Item is one rendered row.
type Item struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// List is an immutable ordered view over one source. The zero value and a
// nil *List are both empty.
type List struct {
	source Source
	items  []Item
}

// FromPosts projects a fresh fetch, in response order. Duplicate ids
// collapse to their first position with the last title.
func FromPosts(posts []model.Post) *List {
	deduped := remote.Dedupe(posts)
	items := make([]Item, len(deduped))
	for i, p := range deduped {
		items[i] = Item{ID: p.ID, Title: p.Title}
	}
	return &List{source: Remote, items: items}
}

// FromRecords projects stored records in stored order.
func FromRecords(records []model.Record) *List {
	items := make([]Item, len(records))
	for i, r := range records {
		items[i] = Item{ID: int(r.ID), Title: r.TitleOrEmpty()}
	}
	return &List{source: Local, items: items}
}

// FromTitles projects an id to title mapping ordered by ascending id, so a
// dense 1..N mapping renders key row+1 at each row.
func FromTitles(src Source, m map[int]string) *List {
	items := make([]Item, 0, len(m))
	for id, title := range m {
		items = append(items, Item{ID: id, Title: title})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return &List{source: src, items: items}
}

// Source returns the list's origin.
func (l *List) Source() Source {
	if l == nil {
		return None
	}
	return l.source
}

// Count returns the number of rows.
func (l *List) Count() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// ItemAt returns the item at row, or false when row is out of range.
func (l *List) ItemAt(row int) (Item, bool) {
	if row < 0 || row >= l.Count() {
		return Item{}, false
	}
	return l.items[row], true
}

// Title returns the title at row, or "" when row is out of range.
func (l *List) Title(row int) string {
	it, _ := l.ItemAt(row)
	return it.Title
}

// Items returns a copy of all rows.
func (l *List) Items() []Item {
	out := make([]Item, l.Count())
	if l != nil {
		copy(out, l.items)
	}
	return out
}
