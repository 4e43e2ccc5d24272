package tui

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrAliAmani/bids-scraping/internal/models"
)

// Journal persists what the session log shows. *storage.Storage satisfies it.
type Journal interface {
	AppendSessionLog(sessionID int64, at time.Time, message string) error
	RecordTransition(sessionID int64, at time.Time, t models.Transition) error
}

type journalEntry struct {
	at         time.Time
	message    string
	transition *models.Transition
}

// journalWriter feeds a Journal from one goroutine so entries land in the
// order the update loop produced them without blocking it.
type journalWriter struct {
	journal   Journal
	sessionID int64
	logger    zerolog.Logger
	entries   chan journalEntry
	wg        sync.WaitGroup
}

func newJournalWriter(j Journal, sessionID int64, logger zerolog.Logger) *journalWriter {
	w := &journalWriter{
		journal:   j,
		sessionID: sessionID,
		logger:    logger,
		entries:   make(chan journalEntry, 256),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *journalWriter) loop() {
	defer w.wg.Done()
	for e := range w.entries {
		var err error
		if e.transition != nil {
			err = w.journal.RecordTransition(w.sessionID, e.at, *e.transition)
		} else {
			err = w.journal.AppendSessionLog(w.sessionID, e.at, e.message)
		}
		if err != nil {
			w.logger.Error().Err(err).Msg("journal write failed")
		}
	}
}

// add queues e, dropping it if the writer has fallen too far behind.
func (w *journalWriter) add(e journalEntry) {
	select {
	case w.entries <- e:
	default:
		w.logger.Warn().Msg("journal queue full, dropping entry")
	}
}

// close flushes queued entries.
func (w *journalWriter) close() {
	close(w.entries)
	w.wg.Wait()
}
