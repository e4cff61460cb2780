package confstore

import "sort"

// Set is an unordered collection of optional strings. A nil member is legal
// and survives the document round trip via the none sentinel.
type Set struct {
	members map[string]struct{}
	hasNil  bool
}

// NewSet builds a set from members; nil entries record the nil member.
func NewSet(members ...*string) Set {
	var s Set
	for _, member := range members {
		s.add(member)
	}
	return s
}

func (s *Set) add(member *string) {
	if member == nil {
		s.hasNil = true
		return
	}
	if s.members == nil {
		s.members = map[string]struct{}{}
	}
	s.members[*member] = struct{}{}
}

// Add inserts member into the set.
func (s *Set) Add(member *string) {
	s.add(member)
}

// Has reports membership; a nil argument asks about the nil member.
func (s Set) Has(member *string) bool {
	if member == nil {
		return s.hasNil
	}
	_, ok := s.members[*member]
	return ok
}

func (s Set) Len() int {
	n := len(s.members)
	if s.hasNil {
		n++
	}
	return n
}

// Members returns the contents sorted by value, with the nil member first
// when present. The order is deterministic but not part of the document
// contract.
func (s Set) Members() []*string {
	out := make([]*string, 0, s.Len())
	if s.hasNil {
		out = append(out, nil)
	}
	sorted := make([]string, 0, len(s.members))
	for member := range s.members {
		sorted = append(sorted, member)
	}
	sort.Strings(sorted)
	for _, member := range sorted {
		member := member
		out = append(out, &member)
	}
	return out
}

// Equal reports whether both sets hold the same members.
func (s Set) Equal(other Set) bool {
	if s.hasNil != other.hasNil || len(s.members) != len(other.members) {
		return false
	}
	for member := range s.members {
		if _, ok := other.members[member]; !ok {
			return false
		}
	}
	return true
}
