package reviews

import (
	"slices"
	"sync"
)

// Registry maps a product ID to the reviews submitted for it, oldest first.
//
// A single RWMutex guards the whole map: AddProduct, RemoveProduct and
// AddReview take it exclusively, the read operations share it. Slices handed
// back to callers are copies, so later writes never show through them.
type Registry struct {
	mu sync.RWMutex
	m  map[int][]string
}

var _ Store = (*Registry)(nil)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{m: map[int][]string{}}
}

// write runs fn holding the exclusive lock; the lock is released even if fn
// panics.
func (r *Registry) write(fn func(m map[int][]string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.m)
}

// read runs fn holding the shared lock. fn must not modify m.
func (r *Registry) read(fn func(m map[int][]string)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(r.m)
}

// AddProduct registers id with no reviews. It is a no-op if id is known.
func (r *Registry) AddProduct(id int) {
	r.write(func(m map[int][]string) {
		if _, ok := m[id]; !ok {
			m[id] = []string{}
		}
	})
}

// RemoveProduct drops id together with all of its reviews.
func (r *Registry) RemoveProduct(id int) {
	r.write(func(m map[int][]string) {
		delete(m, id)
	})
}

// AddReview appends text to the reviews of id, creating the product first
// when it is unknown.
func (r *Registry) AddReview(id int, text string) {
	r.write(func(m map[int][]string) {
		m[id] = append(m[id], text)
	})
}

// AllReviews returns the reviews of id in submission order. The result is
// never nil and is owned by the caller.
func (r *Registry) AllReviews(id int) []string {
	var out []string
	r.read(func(m map[int][]string) {
		out = make([]string, len(m[id]))
		copy(out, m[id])
	})
	return out
}

// LatestReview returns the most recent review of id, or false if it has none.
func (r *Registry) LatestReview(id int) (latest string, ok bool) {
	r.read(func(m map[int][]string) {
		if rs := m[id]; len(rs) > 0 {
			latest, ok = rs[len(rs)-1], true
		}
	})
	return latest, ok
}

// ProductsWithReviews returns, in ascending order, every product holding at
// least one review. Products added without reviews are left out.
func (r *Registry) ProductsWithReviews() []int {
	var out []int
	r.read(func(m map[int][]string) {
		out = make([]int, 0, len(m))
		for id, rs := range m {
			if len(rs) > 0 {
				out = append(out, id)
			}
		}
	})

	slices.Sort(out)
	return out
}

// Stats counts keys, reviewed products and reviews in one consistent view.
func (r *Registry) Stats() Stats {
	var st Stats
	r.read(func(m map[int][]string) {
		st.Products = len(m)
		for _, rs := range m {
			if len(rs) > 0 {
				st.ProductsWithReviews++
				st.Reviews += len(rs)
			}
		}
	})
	return st
}
