package access

import (
	"reflect"
	"testing"
)

type compA struct{}
type compB struct{}
type resFoo struct{}

func typeOfA() reflect.Type { return TypeOf[compA]() }
func typeOfB() reflect.Type { return TypeOf[compB]() }

func TestConflictsResources(t *testing.T) {
	resT := TypeOf[resFoo]()

	cases := []struct {
		name string
		a, b Set
		want bool
	}{
		{
			name: "resource read/read does not conflict",
			a:    Set{ResourceReads: []reflect.Type{resT}},
			b:    Set{ResourceReads: []reflect.Type{resT}},
			want: false,
		},
		{
			name: "resource write/read conflicts",
			a:    Set{ResourceWrites: []reflect.Type{resT}},
			b:    Set{ResourceReads: []reflect.Type{resT}},
			want: true,
		},
		{
			name: "resource write/write conflicts",
			a:    Set{ResourceWrites: []reflect.Type{resT}},
			b:    Set{ResourceWrites: []reflect.Type{resT}},
			want: true,
		},
		{
			name: "different resources do not conflict",
			a:    Set{ResourceWrites: []reflect.Type{resT}},
			b:    Set{ResourceReads: []reflect.Type{TypeOf[compA]()}},
			want: false,
		},
		{
			name: "writes_all conflicts with anything",
			a:    Set{WritesAll: true},
			b:    Set{},
			want: true,
		},
		{
			name: "reads_all conflicts with any write",
			a:    Set{ReadsAll: true},
			b:    Set{ResourceWrites: []reflect.Type{resT}},
			want: true,
		},
		{
			name: "reads_all does not conflict with pure reads",
			a:    Set{ReadsAll: true},
			b:    Set{ResourceReads: []reflect.Type{resT}},
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Conflicts(tc.a, tc.b); got != tc.want {
				t.Fatalf("Conflicts(a,b) = %v, want %v", got, tc.want)
			}
			if got := Conflicts(tc.b, tc.a); got != tc.want {
				t.Fatalf("Conflicts(b,a) = %v, want %v (not commutative)", got, tc.want)
			}
		})
	}
}

func TestConflictsQueries(t *testing.T) {
	a, b := typeOfA(), typeOfB()

	cases := []struct {
		name string
		qa   Query
		qb   Query
		want bool
	}{
		{
			name: "disjoint component sets do not conflict",
			qa:   Query{Reads: []reflect.Type{a}},
			qb:   Query{Reads: []reflect.Type{b}},
			want: false,
		},
		{
			name: "read/read on same component does not conflict",
			qa:   Query{Reads: []reflect.Type{a}},
			qb:   Query{Reads: []reflect.Type{a}},
			want: false,
		},
		{
			name: "write/read on same component conflicts",
			qa:   Query{Writes: []reflect.Type{a}},
			qb:   Query{Reads: []reflect.Type{a}},
			want: true,
		},
		{
			name: "write/write on same component conflicts",
			qa:   Query{Writes: []reflect.Type{a}},
			qb:   Query{Writes: []reflect.Type{a}},
			want: true,
		},
		{
			name: "exclude covering the other's includes proves disjoint",
			qa:   Query{Writes: []reflect.Type{a}},
			qb:   Query{Writes: []reflect.Type{a}, Excludes: []reflect.Type{a}},
			want: false,
		},
		{
			name: "exclude not covering all includes does not prove disjoint",
			qa:   Query{Writes: []reflect.Type{a, b}},
			qb:   Query{Writes: []reflect.Type{a}, Excludes: []reflect.Type{a}},
			want: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sa := Set{Queries: []Query{tc.qa}}
			sb := Set{Queries: []Query{tc.qb}}
			if got := Conflicts(sa, sb); got != tc.want {
				t.Fatalf("Conflicts = %v, want %v", got, tc.want)
			}
			if got := Conflicts(sb, sa); got != tc.want {
				t.Fatalf("Conflicts (swapped) = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestConflictsCommandsNeverConflict(t *testing.T) {
	a := Set{Commands: true, ResourceWrites: []reflect.Type{TypeOf[resFoo]()}}
	b := Set{Commands: true, ResourceWrites: []reflect.Type{TypeOf[resFoo]()}}
	if Conflicts(Set{Commands: a.Commands}, Set{Commands: b.Commands}) {
		t.Fatalf("two command-only sets should never conflict")
	}
}

func TestMerge(t *testing.T) {
	var s Set
	s.Merge(Set{ResourceReads: []reflect.Type{TypeOf[resFoo]()}})
	s.Merge(Set{WritesAll: true})
	if !s.WritesAll {
		t.Fatalf("expected WritesAll to propagate through Merge")
	}
	if len(s.ResourceReads) != 1 {
		t.Fatalf("expected ResourceReads to accumulate, got %d entries", len(s.ResourceReads))
	}
}
