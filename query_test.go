package weave

import (
	"testing"

	"github.com/weaveecs/weave/internal/access"
)

type queryTestPos struct{ X int }
type queryTestTag struct{}

func TestQuery1ReadModeRegistersReads(t *testing.T) {
	var acc access.Set
	_, err := Query1[queryTestPos, Read, NoFilter, NoFilter]{}.paramInit(nil, &acc)
	if err != nil {
		t.Fatalf("paramInit() error = %v", err)
	}
	if len(acc.Queries) != 1 {
		t.Fatalf("expected 1 registered query, got %d", len(acc.Queries))
	}
	q := acc.Queries[0]
	if len(q.Writes) != 0 {
		t.Fatalf("Read-mode query registered writes: %v", q.Writes)
	}
	if len(q.Reads) != 1 || q.Reads[0] != access.TypeOf[queryTestPos]() {
		t.Fatalf("Read-mode query did not register its component as a read: %v", q.Reads)
	}
}

func TestQuery1WriteModeRegistersWrites(t *testing.T) {
	var acc access.Set
	_, err := Query1[queryTestPos, Write, NoFilter, NoFilter]{}.paramInit(nil, &acc)
	if err != nil {
		t.Fatalf("paramInit() error = %v", err)
	}
	q := acc.Queries[0]
	if len(q.Reads) != 0 {
		t.Fatalf("Write-mode query registered reads: %v", q.Reads)
	}
	if len(q.Writes) != 1 || q.Writes[0] != access.TypeOf[queryTestPos]() {
		t.Fatalf("Write-mode query did not register its component as a write: %v", q.Writes)
	}
}

func TestQuery1WithFoldsIntoIncludes(t *testing.T) {
	var acc access.Set
	_, err := Query1[queryTestPos, Read, OneOf[queryTestTag], NoFilter]{}.paramInit(nil, &acc)
	if err != nil {
		t.Fatalf("paramInit() error = %v", err)
	}
	q := acc.Queries[0]
	wantTag := access.TypeOf[queryTestTag]()
	found := false
	for _, r := range q.Reads {
		if r == wantTag {
			found = true
		}
	}
	if !found {
		t.Fatalf("With's component did not land in Reads: %v", q.Reads)
	}
}

func TestTwoReadOnlyQueriesDoNotConflict(t *testing.T) {
	var accA, accB access.Set
	if _, err := (Query1[queryTestPos, Read, NoFilter, NoFilter]{}).paramInit(nil, &accA); err != nil {
		t.Fatalf("paramInit(a) error = %v", err)
	}
	if _, err := (Query1[queryTestPos, Read, NoFilter, NoFilter]{}).paramInit(nil, &accB); err != nil {
		t.Fatalf("paramInit(b) error = %v", err)
	}
	if access.Conflicts(accA, accB) {
		t.Fatalf("two Read-mode queries over the same component should not conflict")
	}
}

func TestWriteQueryConflictsWithReadQuery(t *testing.T) {
	var accA, accB access.Set
	if _, err := (Query1[queryTestPos, Write, NoFilter, NoFilter]{}).paramInit(nil, &accA); err != nil {
		t.Fatalf("paramInit(a) error = %v", err)
	}
	if _, err := (Query1[queryTestPos, Read, NoFilter, NoFilter]{}).paramInit(nil, &accB); err != nil {
		t.Fatalf("paramInit(b) error = %v", err)
	}
	if !access.Conflicts(accA, accB) {
		t.Fatalf("a Write-mode query should conflict with a Read-mode query over the same component")
	}
}
