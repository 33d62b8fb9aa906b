// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package table

import (
	"testing"

	"github.com/go-core-stack/tokenpool/errors"
)

type entry struct {
	Value int
}

func Test_InsertFindDelete(t *testing.T) {
	var tbl Table[string, entry]
	if err := tbl.Initialize(); err != nil {
		t.Fatalf("Initialize: %s", err)
	}

	if err := tbl.Insert("a", entry{Value: 1}); err != nil {
		t.Fatalf("Insert: %s", err)
	}
	if err := tbl.Insert("a", entry{Value: 2}); !errors.IsAlreadyExists(err) {
		t.Fatalf("expected AlreadyExists on duplicate insert, got %v", err)
	}

	got, err := tbl.Find("a")
	if err != nil {
		t.Fatalf("Find: %s", err)
	}
	if got.Value != 1 {
		t.Errorf("Value = %d, want 1", got.Value)
	}

	if err := tbl.DeleteKey("a"); err != nil {
		t.Fatalf("DeleteKey: %s", err)
	}
	if _, err := tbl.Find("a"); !errors.IsNotFound(err) {
		t.Fatalf("expected NotFound after delete, got %v", err)
	}
}

func Test_LocateUpsertsAndUpdateRequiresExisting(t *testing.T) {
	var tbl Table[string, entry]
	if err := tbl.Initialize(); err != nil {
		t.Fatalf("Initialize: %s", err)
	}

	if err := tbl.Update("missing", entry{Value: 1}); !errors.IsNotFound(err) {
		t.Fatalf("expected NotFound on Update of missing key, got %v", err)
	}

	if err := tbl.Locate("b", entry{Value: 5}); err != nil {
		t.Fatalf("Locate insert: %s", err)
	}
	if err := tbl.Locate("b", entry{Value: 6}); err != nil {
		t.Fatalf("Locate overwrite: %s", err)
	}
	got, err := tbl.Find("b")
	if err != nil {
		t.Fatalf("Find: %s", err)
	}
	if got.Value != 6 {
		t.Errorf("Value = %d, want 6", got.Value)
	}
}

func Test_FindMany(t *testing.T) {
	var tbl Table[int, entry]
	if err := tbl.Initialize(); err != nil {
		t.Fatalf("Initialize: %s", err)
	}
	for i := 0; i < 5; i++ {
		if err := tbl.Insert(i, entry{Value: i}); err != nil {
			t.Fatalf("Insert(%d): %s", i, err)
		}
	}

	evens, err := tbl.FindMany(func(k int, e entry) bool { return e.Value%2 == 0 })
	if err != nil {
		t.Fatalf("FindMany: %s", err)
	}
	if len(evens) != 3 {
		t.Errorf("len(evens) = %d, want 3", len(evens))
	}

	all, err := tbl.FindMany(nil)
	if err != nil {
		t.Fatalf("FindMany(nil): %s", err)
	}
	if len(all) != 5 {
		t.Errorf("len(all) = %d, want 5", len(all))
	}
}

func Test_UninitializedTableErrors(t *testing.T) {
	var tbl Table[string, entry]
	if err := tbl.Insert("x", entry{}); !errors.IsInvalidArgument(err) {
		t.Fatalf("expected InvalidArgument on uninitialized table, got %v", err)
	}
}
