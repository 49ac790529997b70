package diag

// Bag collects error findings in insertion order, keeping at most one
// finding per category and at most max findings overall.
type Bag struct {
	items []ErrorFinding
	seen  map[string]struct{}
	max   int
}

// NewBag returns a Bag holding at most max findings; max <= 0 means no limit.
func NewBag(max int) *Bag {
	return &Bag{
		seen: make(map[string]struct{}),
		max:  max,
	}
}

// Add stores f unless its category is already present or the bag is full.
// Returns false when f was dropped.
func (b *Bag) Add(f ErrorFinding) bool {
	if _, dup := b.seen[f.Category]; dup {
		return false
	}
	if b.max > 0 && len(b.items) >= b.max {
		return false
	}
	b.seen[f.Category] = struct{}{}
	b.items = append(b.items, f)
	return true
}

// Has reports whether category was added.
func (b *Bag) Has(category string) bool {
	_, ok := b.seen[category]
	return ok
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns a copy of the findings; never nil.
func (b *Bag) Items() []ErrorFinding {
	out := make([]ErrorFinding, len(b.items))
	copy(out, b.items)
	return out
}

// Merge appends the findings of other that are not yet present.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	for _, f := range other.items {
		b.Add(f)
	}
}
