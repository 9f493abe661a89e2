// Package wordbag manages cue characters and the output prompt buffer.
package wordbag

import (
	"math/rand"
	"time"
)

// DefaultCharset is the filler pool used when no charset is configured.
const DefaultCharset = "abcdefghijklmnopqrstuvwxyz1234567890"

// Bag holds the pending cue queue, the filler character pool, and the
// prompt buffer of confirmed selections. Bag is not safe for concurrent
// use; callers serialize access.
type Bag struct {
	rnd        *rand.Rand
	otherChars []string
	cueQueue   []string
	prompt     []string
}

// New returns a Bag over the given filler charset, seeded with the
// current time. An empty charset falls back to DefaultCharset.
func New(charset string) *Bag {
	return NewWithRand(charset, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand returns a Bag with an injected random source.
func NewWithRand(charset string, rnd *rand.Rand) *Bag {
	if charset == "" {
		charset = DefaultCharset
	}
	b := &Bag{rnd: rnd}
	b.SetCharset(charset)
	return b
}

// SetCharset replaces the filler pool with the runes of charset. An
// empty charset falls back to DefaultCharset so the pool is never empty.
func (b *Bag) SetCharset(charset string) {
	if charset == "" {
		charset = DefaultCharset
	}
	runes := []rune(charset)
	b.otherChars = make([]string, len(runes))
	for i, r := range runes {
		b.otherChars[i] = string(r)
	}
}

// AppendCue appends the runes of text to the cue queue.
func (b *Bag) AppendCue(text string) {
	for _, r := range text {
		b.cueQueue = append(b.cueQueue, string(r))
	}
}

// CueLen returns how many cue characters remain.
func (b *Bag) CueLen() int {
	return len(b.cueQueue)
}

// PromptLen returns how many confirmed selections await dispatch.
func (b *Bag) PromptLen() int {
	return len(b.prompt)
}

// Prompt returns a copy of the prompt buffer.
func (b *Bag) Prompt() []string {
	out := make([]string, len(b.prompt))
	copy(out, b.prompt)
	return out
}

// FillSequence builds a character sequence of length n. The filler pool is
// reshuffled and cycled to cover n slots, fixed positions are written
// verbatim, and if the cue queue is non-empty its front element is placed
// at a uniformly random non-fixed index, returned as cueIndex. Without a
// pending cue, cueIndex is -1.
func (b *Bag) FillSequence(n int, fixed map[int]string) ([]string, int) {
	if n <= 0 {
		return nil, -1
	}

	b.rnd.Shuffle(len(b.otherChars), func(i, j int) {
		b.otherChars[i], b.otherChars[j] = b.otherChars[j], b.otherChars[i]
	})

	sequence := make([]string, n)
	for i := range sequence {
		sequence[i] = b.otherChars[i%len(b.otherChars)]
	}
	for idx, v := range fixed {
		if idx >= 0 && idx < n {
			sequence[idx] = v
		}
	}

	if len(b.cueQueue) == 0 {
		return sequence, -1
	}

	free := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if _, ok := fixed[i]; !ok {
			free = append(free, i)
		}
	}
	if len(free) == 0 {
		return sequence, -1
	}
	cueIndex := free[b.rnd.Intn(len(free))]
	sequence[cueIndex] = b.cueQueue[0]
	return sequence, cueIndex
}

// Consume pops and returns the front of the cue queue when candidate
// matches it exactly. A mismatch or an empty queue returns ok=false and
// leaves the queue untouched; that is the steady-state "still waiting"
// outcome, not an error.
func (b *Bag) Consume(candidate string) (string, bool) {
	if len(b.cueQueue) == 0 {
		return "", false
	}
	if b.cueQueue[0] != candidate {
		return "", false
	}
	front := b.cueQueue[0]
	b.cueQueue = b.cueQueue[1:]
	return front, true
}

// AppendPrompt appends v to the prompt buffer; empty values are ignored.
func (b *Bag) AppendPrompt(v string) {
	if v == "" {
		return
	}
	b.prompt = append(b.prompt, v)
}

// FlushPrompt returns the prompt buffer and clears it.
func (b *Bag) FlushPrompt() []string {
	out := b.prompt
	b.prompt = nil
	return out
}
