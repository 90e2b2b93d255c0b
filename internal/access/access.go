// Package access implements the scheduler's data-access model: the
// machine-readable description of what a system reads and writes, and the
// conflict relation used to decide whether two systems may run
// concurrently.
package access

import "reflect"

// Query describes the access footprint of a single query parameter: the
// component types it requires (split into reads and writes) and the
// component types it excludes (weave fills these from a Without filter;
// With filter types go into Reads/Writes).
type Query struct {
	Reads    []reflect.Type
	Writes   []reflect.Type
	Excludes []reflect.Type
}

func (q Query) includes() []reflect.Type {
	all := make([]reflect.Type, 0, len(q.Reads)+len(q.Writes))
	all = append(all, q.Reads...)
	all = append(all, q.Writes...)
	return all
}

// Set is the AccessSet described in spec §3/§4.3: everything a system
// reads or writes, gathered during Initialize from every one of its
// parameters.
type Set struct {
	Commands bool

	Queries []Query

	ResourceReads  []reflect.Type
	ResourceWrites []reflect.Type

	ReadsAll  bool
	WritesAll bool
}

// AddQuery appends a query access entry.
func (s *Set) AddQuery(q Query) {
	s.Queries = append(s.Queries, q)
}

// AddResourceRead records a resource read.
func (s *Set) AddResourceRead(t reflect.Type) {
	s.ResourceReads = append(s.ResourceReads, t)
}

// AddResourceWrite records a resource write.
func (s *Set) AddResourceWrite(t reflect.Type) {
	s.ResourceWrites = append(s.ResourceWrites, t)
}

// Merge folds src's access into s, used when composing a FromParam tuple
// out of several child parameters.
func (s *Set) Merge(src Set) {
	s.Commands = s.Commands || src.Commands
	s.ReadsAll = s.ReadsAll || src.ReadsAll
	s.WritesAll = s.WritesAll || src.WritesAll
	s.Queries = append(s.Queries, src.Queries...)
	s.ResourceReads = append(s.ResourceReads, src.ResourceReads...)
	s.ResourceWrites = append(s.ResourceWrites, src.ResourceWrites...)
}

func containsType(list []reflect.Type, t reflect.Type) bool {
	for _, x := range list {
		if x == t {
			return true
		}
	}
	return false
}

func anyIntersect(a, b []reflect.Type) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	for _, t := range a {
		if containsType(b, t) {
			return true
		}
	}
	return false
}

func anyWrites(s Set) bool {
	if s.WritesAll || len(s.ResourceWrites) > 0 {
		return true
	}
	for _, q := range s.Queries {
		if len(q.Writes) > 0 {
			return true
		}
	}
	return false
}

// Conflicts implements the commutative conflict relation from spec §4.3.
//
//	either side has writes_all, OR (reads_all(A) ∧ any_writes(B)), OR symmetric;
//	any resource in A.writes intersects B.reads ∪ B.writes (or symmetric);
//	for any pair of queries, the component sets collide AND neither query
//	excludes a component the other requires;
//	commands never conflicts with anything (the queue is internally
//	synchronized and its effects are deferred).
func Conflicts(a, b Set) bool {
	if a.WritesAll || b.WritesAll {
		return true
	}
	if a.ReadsAll && anyWrites(b) {
		return true
	}
	if b.ReadsAll && anyWrites(a) {
		return true
	}

	if anyIntersect(a.ResourceWrites, b.ResourceReads) || anyIntersect(a.ResourceWrites, b.ResourceWrites) {
		return true
	}
	if anyIntersect(b.ResourceWrites, a.ResourceReads) {
		return true
	}

	for _, qa := range a.Queries {
		for _, qb := range b.Queries {
			if queriesConflict(qa, qb) {
				return true
			}
		}
	}

	return false
}

// queriesConflict applies spec §4.3's per-query rule, including the §9 Open
// Question resolution: excludes prove disjointness only when one side's
// excludes cover the other side's includes.
func queriesConflict(a, b Query) bool {
	aIncl, bIncl := a.includes(), b.includes()

	aExcludesCoversB := coversAll(a.Excludes, bIncl)
	bExcludesCoversA := coversAll(b.Excludes, aIncl)
	if aExcludesCoversB || bExcludesCoversA {
		return false
	}

	writeOverlap := anyIntersect(a.Writes, append(append([]reflect.Type{}, b.Reads...), b.Writes...)) ||
		anyIntersect(b.Writes, append(append([]reflect.Type{}, a.Reads...), a.Writes...))
	return writeOverlap
}

// coversAll reports whether every type in need appears in have, and need is
// non-empty (an empty exclude set proves nothing).
func coversAll(have, need []reflect.Type) bool {
	if len(need) == 0 {
		return false
	}
	for _, t := range need {
		if !containsType(have, t) {
			return false
		}
	}
	return true
}

// TypeOf returns the non-pointer base type for T, the canonical key used
// throughout this package and its callers.
func TypeOf[T any]() reflect.Type {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
