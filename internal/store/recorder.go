package store

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/listenzcc/BCI-engine/internal/model"
)

// Recorder adapts the Store to the trial machine's observer interface.
// Events are queued and written on a separate goroutine so no database
// I/O ever runs under the render loop's state lock.
type Recorder struct {
	store *Store
	log   *log.Logger

	events chan any
	wg     sync.WaitGroup
	once   sync.Once
}

// NewRecorder returns a started Recorder.
func NewRecorder(store *Store, logger *log.Logger) *Recorder {
	r := &Recorder{
		store:  store,
		log:    logger,
		events: make(chan any, 256),
	}
	r.wg.Add(1)
	go r.drain()
	return r
}

// TrialStarted queues a trial record; a full queue drops the event.
func (r *Recorder) TrialStarted(rec model.TrialRecord) {
	select {
	case r.events <- rec:
	default:
		r.log.Warn("history queue full, dropping trial record")
	}
}

// Dispatched queues a dispatch record; a full queue drops the event.
func (r *Recorder) Dispatched(rec model.DispatchRecord) {
	select {
	case r.events <- rec:
	default:
		r.log.Warn("history queue full, dropping dispatch record")
	}
}

// Close flushes queued events and stops the writer goroutine.
func (r *Recorder) Close() {
	r.once.Do(func() {
		close(r.events)
	})
	r.wg.Wait()
}

func (r *Recorder) drain() {
	defer r.wg.Done()
	ctx := context.Background()
	for ev := range r.events {
		switch rec := ev.(type) {
		case model.TrialRecord:
			_, err := r.store.InsertTrial(ctx, Trial{
				StartedAt: rec.StartedAt,
				Stage:     rec.Stage,
				CueChar:   rec.CueChar,
				CueIndex:  rec.CueIndex,
				Columns:   rec.Columns,
				Patches:   rec.Patches,
			})
			if err != nil {
				r.log.Error("storing trial record", "err", err)
			}
		case model.DispatchRecord:
			_, err := r.store.InsertDispatch(ctx, Dispatch{
				At:     rec.At,
				Target: rec.Target,
				Text:   rec.Text,
				OK:     rec.OK,
				Error:  rec.Error,
			})
			if err != nil {
				r.log.Error("storing dispatch record", "err", err)
			}
		}
	}
}
