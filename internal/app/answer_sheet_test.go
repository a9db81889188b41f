package app

import (
	"errors"
	"testing"
	"time"

	"reading-assessment-service/internal/domain"
)

func newTestSheet() *AnswerSheet {
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	init := SheetInit{StudentName: "Mia", Key: domain.BookKey{Grade: "3", Book: "Fables"}, Questions: []int{0, 1, 4}}
	return NewAnswerSheetWithClock(SheetID(init.StudentName, init.Key), init, func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})
}

func TestAnswerSheetRecordsAndClears(t *testing.T) {
	sheet := newTestSheet()
	if sheet.ID() != "Mia|3-Fables" {
		t.Fatalf("unexpected id %q", sheet.ID())
	}

	progress, err := sheet.record(4, " b ")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if progress.Answered != 1 || progress.Total != 3 {
		t.Fatalf("unexpected progress %+v", progress)
	}
	if got := sheet.submission().Answers[4]; got != "B" {
		t.Fatalf("expected normalized choice B, got %q", got)
	}

	if _, err := sheet.record(2, "A"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}

	progress, _ = sheet.record(4, "")
	if progress.Answered != 0 {
		t.Fatalf("expected cleared answer, got %+v", progress)
	}
	if !progress.UpdatedAt.After(sheet.CreatedAt()) {
		t.Fatalf("expected updatedAt to advance")
	}
}

func TestAnswerSheetDropsStaleSnapshots(t *testing.T) {
	sheet := newTestSheet()
	updates, cancel := sheet.subscribe()
	defer cancel()

	// Fill well past the buffer without reading; writers must never block.
	for i := 0; i < 20; i++ {
		choice := "A"
		if i%2 == 1 {
			choice = ""
		}
		if _, err := sheet.record(0, choice); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	_, _ = sheet.record(1, "C")

	var last domain.SheetProgress
	for {
		select {
		case p := <-updates:
			last = p
			continue
		default:
		}
		break
	}
	if last.Answered != 1 {
		t.Fatalf("expected latest snapshot to be delivered, got %+v", last)
	}
}

func TestAnswerSheetCancelClosesChannel(t *testing.T) {
	sheet := newTestSheet()
	updates, cancel := sheet.subscribe()
	<-updates
	cancel()
	cancel()
	if _, ok := <-updates; ok {
		t.Fatalf("expected closed channel")
	}
}
