// Package listing holds the filters behind the admin list screens. Every
// filter is a pure predicate; a screen keeps the full collection and renders
// Apply(collection, filters...) on each request.
package listing

import (
	"strconv"
	"strings"
)

// Predicate reports whether a record stays in the projection.
type Predicate[T any] func(T) bool

// Apply keeps the records matching every predicate. Nil predicates are
// ignored, so unset filters can be passed straight through.
func Apply[T any](items []T, preds ...Predicate[T]) []T {
	active := preds[:0:0]
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}
	out := make([]T, 0, len(items))
next:
	for _, it := range items {
		for _, p := range active {
			if !p(it) {
				continue next
			}
		}
		out = append(out, it)
	}
	return out
}

// BySession matches records of one session. An empty or unparsable id means
// no filter.
func BySession[T any](raw string, sessionOf func(T) int) Predicate[T] {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return nil
	}
	return func(it T) bool { return sessionOf(it) == id }
}

// Search matches a case-insensitive substring in any of the given fields.
func Search[T any](term string, fields func(T) []string) Predicate[T] {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	return func(it T) bool {
		for _, f := range fields(it) {
			if strings.Contains(strings.ToLower(f), term) {
				return true
			}
		}
		return false
	}
}

// ByType matches an enum value exactly. "" and "all" mean no filter.
func ByType[T any, E ~string](raw string, typeOf func(T) E) Predicate[T] {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "all" {
		return nil
	}
	return func(it T) bool { return string(typeOf(it)) == raw }
}

// Filters is the query-string state of a list screen.
type Filters struct {
	Session string
	Search  string
	Type    string
}

func (f Filters) Active() bool {
	return strings.TrimSpace(f.Session) != "" || strings.TrimSpace(f.Search) != "" ||
		(f.Type != "" && f.Type != "all")
}
