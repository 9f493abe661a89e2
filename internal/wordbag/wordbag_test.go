package wordbag

import (
	"math/rand"
	"testing"
)

func newTestBag() *Bag {
	return NewWithRand("abcdef", rand.New(rand.NewSource(1)))
}

func TestConsumeEmptyQueue(t *testing.T) {
	b := newTestBag()
	if v, ok := b.Consume("a"); ok || v != "" {
		t.Fatalf("expected no match on empty queue, got %q ok=%v", v, ok)
	}
	if b.CueLen() != 0 {
		t.Fatalf("queue mutated by failed consume")
	}
}

func TestConsumeMismatchLeavesQueue(t *testing.T) {
	b := newTestBag()
	b.AppendCue("xy")
	if _, ok := b.Consume("y"); ok {
		t.Fatalf("mismatch must not consume")
	}
	if b.CueLen() != 2 {
		t.Fatalf("expected 2 pending cues, got %d", b.CueLen())
	}
}

func TestConsumeDrainsFrontToBack(t *testing.T) {
	b := newTestBag()
	b.AppendCue("xyz")
	for _, want := range []string{"x", "y", "z"} {
		got, ok := b.Consume(want)
		if !ok || got != want {
			t.Fatalf("expected to pop %q, got %q ok=%v", want, got, ok)
		}
	}
	if b.CueLen() != 0 {
		t.Fatalf("queue not drained")
	}
}

func TestFillSequencePreservesFixedPositions(t *testing.T) {
	b := newTestBag()
	b.AppendCue("x")
	fixed := map[int]string{9: "Back", 10: "Space", 11: "Enter"}
	for i := 0; i < 50; i++ {
		seq, cue := b.FillSequence(12, fixed)
		if len(seq) != 12 {
			t.Fatalf("expected 12 entries, got %d", len(seq))
		}
		for idx, want := range fixed {
			if seq[idx] != want {
				t.Fatalf("fixed position %d overwritten: %q", idx, seq[idx])
			}
		}
		if cue < 0 || cue >= 12 {
			t.Fatalf("cue index out of range: %d", cue)
		}
		if _, isFixed := fixed[cue]; isFixed {
			t.Fatalf("cue landed on fixed position %d", cue)
		}
		if seq[cue] != "x" {
			t.Fatalf("cue slot holds %q, want %q", seq[cue], "x")
		}
	}
}

func TestFillSequenceWithoutCue(t *testing.T) {
	b := newTestBag()
	seq, cue := b.FillSequence(8, nil)
	if cue != -1 {
		t.Fatalf("expected cueIndex -1, got %d", cue)
	}
	if len(seq) != 8 {
		t.Fatalf("expected 8 entries, got %d", len(seq))
	}
}

func TestFillSequenceCyclesSmallCharset(t *testing.T) {
	b := NewWithRand("ab", rand.New(rand.NewSource(2)))
	seq, _ := b.FillSequence(6, nil)
	for i, s := range seq {
		if s != "a" && s != "b" {
			t.Fatalf("entry %d is %q, want filler from charset", i, s)
		}
	}
}

func TestFillSequenceDegenerate(t *testing.T) {
	b := newTestBag()
	if seq, cue := b.FillSequence(0, nil); seq != nil || cue != -1 {
		t.Fatalf("expected empty result for n=0")
	}
}

func TestFillSequenceDoesNotConsumeCue(t *testing.T) {
	b := newTestBag()
	b.AppendCue("x")
	b.FillSequence(6, nil)
	b.FillSequence(6, nil)
	if b.CueLen() != 1 {
		t.Fatalf("fill mutated cue queue: %d", b.CueLen())
	}
}

func TestAppendPromptSkipsEmpty(t *testing.T) {
	b := newTestBag()
	b.AppendPrompt("")
	b.AppendPrompt("a")
	b.AppendPrompt("b")
	if got := b.PromptLen(); got != 2 {
		t.Fatalf("expected 2 prompt entries, got %d", got)
	}
}

func TestFlushPromptClears(t *testing.T) {
	b := newTestBag()
	b.AppendPrompt("a")
	b.AppendPrompt("b")
	out := b.FlushPrompt()
	if len(out) != 2 || out[0] != "a" || out[1] != "b" {
		t.Fatalf("unexpected flush result: %v", out)
	}
	if b.PromptLen() != 0 {
		t.Fatalf("prompt not cleared")
	}
	if again := b.FlushPrompt(); len(again) != 0 {
		t.Fatalf("second flush should be empty, got %v", again)
	}
}

func TestSetCharsetEmptyFallsBack(t *testing.T) {
	b := newTestBag()
	b.SetCharset("")
	seq, _ := b.FillSequence(5, nil)
	if len(seq) != 5 {
		t.Fatalf("expected 5 fillers, got %d", len(seq))
	}
	for i, v := range seq {
		if v == "" {
			t.Fatalf("slot %d left empty after charset fallback", i)
		}
	}
}
