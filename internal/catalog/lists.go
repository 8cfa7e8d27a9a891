package catalog

// RecentCapacity is the number of recently played tracks remembered.
const RecentCapacity = 10

// Favorites is an unbounded set of track ids kept in insertion order.
// It is not safe for concurrent use.
type Favorites struct {
	ids []string
}

func NewFavorites(ids []string) *Favorites {
	f := &Favorites{}
	for _, id := range ids {
		if id != "" && !f.Has(id) {
			f.ids = append(f.ids, id)
		}
	}
	return f
}

func (f *Favorites) Has(id string) bool {
	for _, v := range f.ids {
		if v == id {
			return true
		}
	}
	return false
}

// Toggle adds or removes id and reports whether it is now a favorite.
func (f *Favorites) Toggle(id string) bool {
	for i, v := range f.ids {
		if v == id {
			f.ids = append(f.ids[:i], f.ids[i+1:]...)
			return false
		}
	}
	f.ids = append(f.ids, id)
	return true
}

// Retain drops ids for which keep returns false.
func (f *Favorites) Retain(keep func(id string) bool) {
	kept := f.ids[:0]
	for _, id := range f.ids {
		if keep(id) {
			kept = append(kept, id)
		}
	}
	f.ids = kept
}

func (f *Favorites) IDs() []string {
	out := make([]string, len(f.ids))
	copy(out, f.ids)
	return out
}

func (f *Favorites) Len() int {
	return len(f.ids)
}

// Recent is a most-recent-first list of played track ids, bounded to
// RecentCapacity. Replaying an id moves it to the front.
// It is not safe for concurrent use.
type Recent struct {
	ids []string
}

func NewRecent(ids []string) *Recent {
	r := &Recent{}
	for i := len(ids) - 1; i >= 0; i-- {
		if ids[i] != "" {
			r.Push(ids[i])
		}
	}
	return r
}

func (r *Recent) Push(id string) {
	for i, v := range r.ids {
		if v == id {
			r.ids = append(r.ids[:i], r.ids[i+1:]...)
			break
		}
	}
	r.ids = append([]string{id}, r.ids...)
	if len(r.ids) > RecentCapacity {
		r.ids = r.ids[:RecentCapacity]
	}
}

// Retain drops ids for which keep returns false.
func (r *Recent) Retain(keep func(id string) bool) {
	kept := r.ids[:0]
	for _, id := range r.ids {
		if keep(id) {
			kept = append(kept, id)
		}
	}
	r.ids = kept
}

func (r *Recent) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

func (r *Recent) Len() int {
	return len(r.ids)
}
