package catalogpdf

import "testing"

func TestPlanBatches_CoversEveryPageOnceInOrder(t *testing.T) {
	for pages := 0; pages <= 25; pages++ {
		for size := 1; size <= 7; size++ {
			batches, err := PlanBatches(pages, size)
			if err != nil {
				t.Fatalf("pages=%d size=%d: unexpected error: %v", pages, size, err)
			}

			want := (pages + size - 1) / size
			if len(batches) != want {
				t.Fatalf("pages=%d size=%d: expected %d batches, got %d", pages, size, want, len(batches))
			}

			next := 1
			for i, b := range batches {
				if b.Index != i+1 {
					t.Fatalf("pages=%d size=%d: batch %d has index %d", pages, size, i, b.Index)
				}
				if b.FirstPage != next {
					t.Fatalf("pages=%d size=%d: batch %d starts at %d, expected %d", pages, size, b.Index, b.FirstPage, next)
				}
				remaining := pages - next + 1
				expectedLen := size
				if remaining < size {
					expectedLen = remaining
				}
				if b.Pages() != expectedLen {
					t.Fatalf("pages=%d size=%d: batch %d has %d pages, expected %d", pages, size, b.Index, b.Pages(), expectedLen)
				}
				next = b.LastPage + 1
			}
			if next != pages+1 {
				t.Fatalf("pages=%d size=%d: coverage ended at %d", pages, size, next-1)
			}
		}
	}
}

func TestPlanBatches_DefaultSize(t *testing.T) {
	batches, err := PlanBatches(10, DefaultBatchSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batches) != 4 {
		t.Fatalf("expected 4 batches, got %d", len(batches))
	}
	last := batches[3]
	if last.FirstPage != 10 || last.LastPage != 10 {
		t.Fatalf("expected last batch 10-10, got %d-%d", last.FirstPage, last.LastPage)
	}
	if last.Selection() != "10" {
		t.Fatalf("expected selection 10, got %q", last.Selection())
	}
	if batches[0].Selection() != "1-3" {
		t.Fatalf("expected selection 1-3, got %q", batches[0].Selection())
	}
	if batches[1].TempFileName() != "temp_lote_2.pdf" {
		t.Fatalf("unexpected temp name %q", batches[1].TempFileName())
	}
}

func TestPlanBatches_InvalidInput(t *testing.T) {
	if _, err := PlanBatches(10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
	if _, err := PlanBatches(-1, 3); err == nil {
		t.Fatalf("expected error for negative page count")
	}
}
