// Package multimap provides typed group-by combinators for building lookup tables
// from flat query results.
package multimap

// GroupBy buckets items by key, keeping the projected values in input order.
func GroupBy[T any, K comparable, V any](items []T, key func(T) K, value func(T) V) map[K][]V {
	grouped := make(map[K][]V)
	for _, item := range items {
		k := key(item)
		grouped[k] = append(grouped[k], value(item))
	}
	return grouped
}

// FirstBy keeps the first item seen for every key.
func FirstBy[T any, K comparable](items []T, key func(T) K) map[K]T {
	first := make(map[K]T, len(items))
	for _, item := range items {
		k := key(item)
		if _, ok := first[k]; ok {
			continue
		}
		first[k] = item
	}
	return first
}

// Keys returns the keys of items in input order with duplicates removed.
func Keys[T any, K comparable](items []T, key func(T) K) []K {
	seen := make(map[K]struct{}, len(items))
	keys := make([]K, 0, len(items))
	for _, item := range items {
		k := key(item)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}
