package dispatch

import (
	"testing"
	"time"
)

type emission struct {
	id   string
	text string
}

func TestChunkFlusher_CoalescesWithinWindow(t *testing.T) {
	got := make(chan emission, 8)
	f := newChunkFlusher(20*time.Millisecond, func(id, text string) {
		got <- emission{id, text}
	})

	f.Add("r1", "alpha ")
	f.Add("r1", "beta ")
	f.Add("r1", "gamma")

	select {
	case e := <-got:
		if e.id != "r1" || e.text != "alpha beta gamma" {
			t.Fatalf("emitted (%q, %q), want one coalesced emission", e.id, e.text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("flusher never emitted")
	}

	select {
	case e := <-got:
		t.Fatalf("unexpected second emission (%q, %q)", e.id, e.text)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestChunkFlusher_ReArmsAfterFlush(t *testing.T) {
	got := make(chan emission, 8)
	f := newChunkFlusher(10*time.Millisecond, func(id, text string) {
		got <- emission{id, text}
	})

	f.Add("r1", "first")
	first := <-got

	f.Add("r1", "second")
	second := <-got

	if first.text != "first" || second.text != "second" {
		t.Errorf("emissions = %q, %q; want separate windows", first.text, second.text)
	}
}

func TestChunkFlusher_KeepsArrivalOrderAcrossRequests(t *testing.T) {
	got := make(chan emission, 8)
	f := newChunkFlusher(20*time.Millisecond, func(id, text string) {
		got <- emission{id, text}
	})

	f.Add("a", "1")
	f.Add("b", "2")
	f.Add("a", "3")

	first := <-got
	second := <-got

	if first.id != "a" || first.text != "13" {
		t.Errorf("first emission = (%q, %q), want a's text first", first.id, first.text)
	}
	if second.id != "b" || second.text != "2" {
		t.Errorf("second emission = (%q, %q)", second.id, second.text)
	}
}

func TestChunkFlusher_DrainRemovesBufferedText(t *testing.T) {
	got := make(chan emission, 8)
	f := newChunkFlusher(50*time.Millisecond, func(id, text string) {
		got <- emission{id, text}
	})

	f.Add("r1", "tail")
	if text := f.Drain("r1"); text != "tail" {
		t.Fatalf("Drain() = %q, want %q", text, "tail")
	}
	if text := f.Drain("r1"); text != "" {
		t.Fatalf("second Drain() = %q, want empty", text)
	}

	select {
	case e := <-got:
		t.Fatalf("drained text still emitted: (%q, %q)", e.id, e.text)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestChunkFlusher_StopEmitsLeftovers(t *testing.T) {
	got := make(chan emission, 8)
	f := newChunkFlusher(time.Hour, func(id, text string) {
		got <- emission{id, text}
	})

	f.Add("r1", "leftover")
	f.Stop()

	select {
	case e := <-got:
		if e.text != "leftover" {
			t.Errorf("Stop() emitted %q, want %q", e.text, "leftover")
		}
	default:
		t.Fatal("Stop() did not emit buffered text")
	}
}
