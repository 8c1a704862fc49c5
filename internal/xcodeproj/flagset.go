package xcodeproj

import "fmt"

// FlagSet is the ordered set of values bound to one build setting.
//
// There is no "set" operation. Replacing a value means removing every stale
// literal the caller knows about and adding the new one; stale values the
// caller does not name stay in the set.
type FlagSet struct {
	values []string
}

// NewFlagSet returns a set holding the distinct values in order.
func NewFlagSet(values ...string) *FlagSet {
	s := &FlagSet{}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add appends v unless it is already present. It reports whether the set
// changed.
func (s *FlagSet) Add(v string) bool {
	if s.Contains(v) {
		return false
	}
	s.values = append(s.values, v)
	return true
}

// Remove deletes v. It reports whether the set changed.
func (s *FlagSet) Remove(v string) bool {
	for i, existing := range s.values {
		if existing == v {
			s.values = append(s.values[:i], s.values[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether v is in the set.
func (s *FlagSet) Contains(v string) bool {
	for _, existing := range s.values {
		if existing == v {
			return true
		}
	}
	return false
}

// Len returns the number of values.
func (s *FlagSet) Len() int {
	return len(s.values)
}

// Values returns a copy of the values in insertion order.
func (s *FlagSet) Values() []string {
	out := make([]string, len(s.values))
	copy(out, s.values)
	return out
}

// decodeFlagSet reads a buildSettings value: a plain string or an array of
// strings.
func decodeFlagSet(raw any) (*FlagSet, error) {
	switch v := raw.(type) {
	case nil:
		return NewFlagSet(), nil
	case string:
		return NewFlagSet(v), nil
	case []any:
		s := NewFlagSet()
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected %T in flag list", item)
			}
			s.Add(str)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unexpected %T build setting value", raw)
	}
}

// encode returns the buildSettings representation of the set. ok is false
// when the set is empty and the setting should be dropped.
func (s *FlagSet) encode() (value any, ok bool) {
	switch len(s.values) {
	case 0:
		return nil, false
	case 1:
		return s.values[0], true
	default:
		list := make([]any, len(s.values))
		for i, v := range s.values {
			list[i] = v
		}
		return list, true
	}
}
