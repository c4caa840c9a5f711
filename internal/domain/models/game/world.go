package game

// Default caps for the DM's evolving memory. Configurable via
// WORLD_RECENT_EVENTS_CAP and WORLD_FACTS_CAP.
const (
	DefaultRecentEventsCap = 12
	DefaultWorldFactsCap   = 50
)

// WorldContext is the DM's evolving memory: capped FIFO lists of long-term
// facts and recent events, plus a map of named flags. The caps drop the
// oldest entry first.
type WorldContext struct {
	RecentEvents []string          `json:"recent_events"`
	WorldFacts   []string          `json:"world_facts"`
	Flags        map[string]string `json:"flags"`
}

// NewWorldContext returns an empty world context.
func NewWorldContext() *WorldContext {
	return &WorldContext{Flags: make(map[string]string)}
}

// AddRecentEvent appends a short-term event, dropping the oldest entry when
// the cap is exceeded. A limit of zero or below falls back to the default.
func (w *WorldContext) AddRecentEvent(event string, limit int) {
	if limit <= 0 {
		limit = DefaultRecentEventsCap
	}
	w.RecentEvents = appendCapped(w.RecentEvents, event, limit)
}

// AddWorldFact appends a long-term fact, dropping the oldest entry when the
// cap is exceeded.
func (w *WorldContext) AddWorldFact(fact string, limit int) {
	if limit <= 0 {
		limit = DefaultWorldFactsCap
	}
	w.WorldFacts = appendCapped(w.WorldFacts, fact, limit)
}

// SetFlag sets or overwrites a named flag.
func (w *WorldContext) SetFlag(key, value string) {
	if w.Flags == nil {
		w.Flags = make(map[string]string)
	}
	w.Flags[key] = value
}

// Clone returns a deep copy.
func (w *WorldContext) Clone() *WorldContext {
	out := &WorldContext{
		RecentEvents: append([]string(nil), w.RecentEvents...),
		WorldFacts:   append([]string(nil), w.WorldFacts...),
		Flags:        make(map[string]string, len(w.Flags)),
	}
	for k, v := range w.Flags {
		out.Flags[k] = v
	}
	return out
}

func appendCapped(list []string, item string, limit int) []string {
	list = append(list, item)
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list
}
