package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"reading-assessment-service/internal/app"
	"reading-assessment-service/internal/domain"
)

func TestSheetStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSheetStore(newClient(mr), time.Minute)
	init := app.SheetInit{StudentName: "Mia", Key: domain.BookKey{Grade: "3", Book: "Fables"}, Questions: []int{0}}

	_ = store.GetOrCreate("Mia|3-Fables", init)
	if !mr.Exists("sheet:Mia|3-Fables") {
		t.Fatalf("expected redis key to be set")
	}

	store.Delete("Mia|3-Fables")
	if mr.Exists("sheet:Mia|3-Fables") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestSheetStoreEvictsExpiredMarkers(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSheetStore(newClient(mr), time.Minute)
	init := app.SheetInit{StudentName: "Mia", Key: domain.BookKey{Grade: "3", Book: "Fables"}, Questions: []int{0}}
	id := app.SheetID(init.StudentName, init.Key)
	first := store.GetOrCreate(id, init)

	mr.FastForward(40 * time.Second)
	if _, ok := store.Get(id); !ok {
		t.Fatalf("expected sheet alive")
	}
	mr.FastForward(40 * time.Second)
	if _, ok := store.Get(id); !ok {
		t.Fatalf("expected lookup to extend the marker")
	}

	mr.FastForward(2 * time.Minute)
	if _, ok := store.Get(id); ok {
		t.Fatalf("expected sheet evicted once its marker expired")
	}
	if again := store.GetOrCreate(id, init); again == first {
		t.Fatalf("expected a fresh sheet after eviction")
	}
	if !mr.Exists("sheet:" + id) {
		t.Fatalf("expected marker recreated")
	}

	mr.FastForward(2 * time.Minute)
	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("expected 1 sheet swept, got %d", removed)
	}
}
