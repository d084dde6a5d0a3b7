package etree

import "iter"

// Attrib is an attribute mapping that preserves insertion order for
// iteration. All read accessors are nil-safe so an Element can leave its
// attribute storage unallocated until the first write.
type Attrib struct {
	keys   []string
	values map[string]string
}

func NewAttrib() *Attrib {
	return &Attrib{}
}

func (a *Attrib) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

func (a *Attrib) Get(key string) (string, bool) {
	if a == nil || a.values == nil {
		return "", false
	}
	v, ok := a.values[key]
	return v, ok
}

func (a *Attrib) Set(key, value string) {
	if a.values == nil {
		a.values = make(map[string]string)
	}
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

func (a *Attrib) Del(key string) bool {
	if a == nil || a.values == nil {
		return false
	}
	if _, ok := a.values[key]; !ok {
		return false
	}
	delete(a.values, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the attribute names in insertion order. The slice is a
// copy; mutating it does not affect the mapping.
func (a *Attrib) Keys() []string {
	if a == nil || len(a.keys) == 0 {
		return nil
	}
	return append([]string(nil), a.keys...)
}

// Iter yields (name, value) pairs in insertion order.
func (a *Attrib) Iter() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if a == nil {
			return
		}
		for _, k := range a.keys {
			if !yield(k, a.values[k]) {
				return
			}
		}
	}
}

func (a *Attrib) Clone() *Attrib {
	if a == nil {
		return nil
	}
	clone := &Attrib{}
	if a.values != nil {
		clone.values = make(map[string]string, len(a.values))
		clone.keys = append([]string(nil), a.keys...)
		for k, v := range a.values {
			clone.values[k] = v
		}
	}
	return clone
}
