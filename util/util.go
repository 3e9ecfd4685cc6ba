package util

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Integer interface {
	int | uint16 | uint32 | uint64 | int16 | int32 | int64
}

var prn = message.NewPrinter(language.English)

// GoThousands formats integer with '_' as thousands separator
func GoThousands[T Integer](v T) string {
	return strings.Replace(prn.Sprintf("%d", v), ",", "_", -1)
}

func Keys[K comparable, V any](m map[K]V, filter ...func(k K) bool) []K {
	ret := make([]K, 0, len(m))
	if len(filter) == 0 {
		for k := range m {
			ret = append(ret, k)
		}
	} else {
		for k := range m {
			if filter[0](k) {
				ret = append(ret, k)
			}
		}
	}
	return ret
}

func KeysSorted[K comparable, V any](m map[K]V, less func(k1, k2 K) bool) []K {
	ret := Keys(m)
	sort.Slice(ret, func(i, j int) bool {
		return less(ret[i], ret[j])
	})
	return ret
}

func FilterSlice[T any](slice []T, filter func(el T) bool) []T {
	ret := slice[:0]
	for _, el := range slice {
		if filter(el) {
			ret = append(ret, el)
		}
	}
	var nilElem T
	for i := len(ret); i < len(slice); i++ {
		slice[i] = nilElem
	}
	return ret
}

func FindFirst[T any](slice []T, cond func(el T) bool) (T, bool) {
	for _, el := range slice {
		if cond(el) {
			return el, true
		}
	}
	var nilElem T
	return nilElem, false
}

// Find returns index of the first occurrence or -1
func Find[T comparable](lst []T, el T) int {
	for i, e := range lst {
		if e == el {
			return i
		}
	}
	return -1
}
