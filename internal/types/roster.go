package types

// Roster is an ordered, read-only snapshot of character profiles handed
// to the decision logic. Order is the candidate order used by the
// selection policies, so it must be stable across calls.
type Roster struct {
	order []string
	byID  map[string]*CharacterProfile
}

// NewRoster builds a roster preserving the given profile order.
// Duplicate identifiers keep the first profile seen.
func NewRoster(profiles []*CharacterProfile) *Roster {
	r := &Roster{byID: make(map[string]*CharacterProfile, len(profiles))}
	for _, p := range profiles {
		if p == nil || p.ID == "" {
			continue
		}
		if _, exists := r.byID[p.ID]; exists {
			continue
		}
		r.order = append(r.order, p.ID)
		r.byID[p.ID] = p
	}
	return r
}

// Lookup returns the profile for id, or false when absent.
func (r *Roster) Lookup(id string) (*CharacterProfile, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.byID[id]
	return p, ok
}

// IDs returns the identifiers in roster order.
func (r *Roster) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Names maps the given ids to display names, skipping unknown ids.
func (r *Roster) Names(ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.Lookup(id); ok {
			names = append(names, p.Name)
		}
	}
	return names
}

// Len reports the number of profiles in the roster.
func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}
