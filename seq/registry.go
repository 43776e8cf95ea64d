package seq

// Registry is the routing table: the authoritative master queue plus the
// secondary queues keyed by tag. All transport and tempo operations apply to
// every queue so downstream consumers stay phase-locked to the master.
type Registry struct {
	master *Queue
	routes map[Tag]*Queue
}

func NewRegistry(master *Queue) *Registry {
	return &Registry{master: master, routes: make(map[Tag]*Queue)}
}

func (r *Registry) Master() *Queue { return r.master }

func (r *Registry) Route(tag Tag) (*Queue, bool) {
	q, ok := r.routes[tag]
	return q, ok
}

func (r *Registry) SetRoute(tag Tag, q *Queue) { r.routes[tag] = q }

// RemoveRoute returns false if the tag has no queue.
func (r *Registry) RemoveRoute(tag Tag) (*Queue, bool) {
	q, ok := r.routes[tag]
	if ok {
		delete(r.routes, tag)
	}
	return q, ok
}

func (r *Registry) Tags() []Tag {
	tags := make([]Tag, 0, len(r.routes))
	for tag := range r.routes {
		tags = append(tags, tag)
	}
	return tags
}

// Each visits the master queue and then every route.
func (r *Registry) Each(fn func(*Queue)) {
	fn(r.master)
	for _, q := range r.routes {
		fn(q)
	}
}

// The All operations are atomic from the caller's point of view: mutation
// happens only inside event dispatch, so no queue can be observed started
// while a sibling is still stopped.

func (r *Registry) StartAll()    { r.Each((*Queue).Start) }
func (r *Registry) StopAll()     { r.Each((*Queue).Stop) }
func (r *Registry) ContinueAll() { r.Each((*Queue).Continue) }

func (r *Registry) SetTempoAll(bpm float64) {
	r.Each(func(q *Queue) { q.SetTempo(bpm) })
}

// PopDue drains due events from every queue.
func (r *Registry) PopDue() []Event {
	var due []Event
	r.Each(func(q *Queue) { due = append(due, q.PopDue()...) })
	return due
}
