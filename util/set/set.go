package set

import (
	"sort"
)

// Set is not thread safe
type Set[K comparable] map[K]struct{}

func New[K comparable](elems ...K) Set[K] {
	return make(Set[K], len(elems)).Insert(elems...)
}

func (s Set[K]) Insert(elems ...K) Set[K] {
	for _, el := range elems {
		s[el] = struct{}{}
	}
	return s
}

func (s Set[K]) Remove(elems ...K) Set[K] {
	for _, el := range elems {
		delete(s, el)
	}
	return s
}

func (s Set[K]) IsEmpty() bool {
	return len(s) == 0
}

// Contains nil-safe
func (s Set[K]) Contains(el K) bool {
	_, contains := s[el]
	return contains
}

// Ordered returns elements sorted by less. Nil for empty set
func (s Set[K]) Ordered(less func(el1, el2 K) bool) []K {
	if len(s) == 0 {
		return nil
	}
	ret := make([]K, 0, len(s))
	for el := range s {
		ret = append(ret, el)
	}
	sort.Slice(ret, func(i, j int) bool {
		return less(ret[i], ret[j])
	})
	return ret
}
