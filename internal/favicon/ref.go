package favicon

import "sync"

// Ref is an observable icon source. Subscribers run in subscription order
// whenever the value is reassigned. Deliveries never overlap: a Set made while
// another goroutine is delivering returns at once and that goroutine delivers
// the newest value after its current round, so subscribers always finish on
// the value Get returns.
type Ref struct {
	mu         sync.Mutex
	value      string
	subs       []subscription
	next       int
	dirty      bool // value changed since the last delivery round began
	delivering bool
}

type subscription struct {
	id int
	fn func(value string)
}

// NewRef creates a Ref holding value.
func NewRef(value string) *Ref {
	return &Ref{value: value}
}

// Get returns the current value.
func (r *Ref) Get() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

// Set assigns value and notifies subscribers. Assigning the current value is
// a no-op; use Refresh to re-announce it.
func (r *Ref) Set(value string) {
	r.mu.Lock()
	if value == r.value {
		r.mu.Unlock()
		return
	}
	r.value = value
	r.announceLocked()
}

// Refresh notifies subscribers with the current value, for sources whose
// content changed behind an unchanged reference.
func (r *Ref) Refresh() {
	r.mu.Lock()
	r.announceLocked()
}

// announceLocked is called with r.mu held and releases it.
func (r *Ref) announceLocked() {
	r.dirty = true
	if r.delivering {
		r.mu.Unlock()
		return
	}
	r.delivering = true
	for r.dirty {
		r.dirty = false
		value := r.value
		subs := r.snapshot()
		r.mu.Unlock()

		for _, s := range subs {
			s.fn(value)
		}
		r.mu.Lock()
	}
	r.delivering = false
	r.mu.Unlock()
}

// Subscribe registers fn and returns a function that removes it.
func (r *Ref) Subscribe(fn func(value string)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	id := r.next
	r.subs = append(r.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, s := range r.subs {
				if s.id == id {
					r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (r *Ref) snapshot() []subscription {
	out := make([]subscription, len(r.subs))
	copy(out, r.subs)
	return out
}
