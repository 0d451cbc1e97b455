package results

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Entry is a record selected for reporting.
type Entry struct {
	Record *Record
	// ShowData is set when the record's payload passes the threshold too.
	ShowData bool
}

// Collection holds the records of one test run in the order they were added.
type Collection struct {
	log logrus.FieldLogger
	id  string

	mu      sync.Mutex
	records []*Record
}

// NewCollection creates an empty collection with a fresh run ID.
func NewCollection(log logrus.FieldLogger) *Collection {
	id := uuid.NewString()

	return &Collection{
		log: log.WithFields(logrus.Fields{
			"component": "results",
			"run_id":    id,
		}),
		id: id,
	}
}

// ID returns the run ID of the collection.
func (c *Collection) ID() string {
	return c.id
}

// Add appends r and logs it at a level matching its importance.
func (c *Collection) Add(r *Record) {
	c.mu.Lock()
	c.records = append(c.records, r)
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"kind":         r.Kind().String(),
		"success":      r.Success(),
		"result_level": r.Level().String(),
	}).Log(logLevel(r.Level()), r.Description())
}

// Records returns a copy of all records.
func (c *Collection) Records() []*Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*Record, len(c.records))
	copy(out, c.records)

	return out
}

// Passed reports whether every record succeeded.
func (c *Collection) Passed() bool {
	for _, r := range c.Records() {
		if !r.Success() {
			return false
		}
	}

	return true
}

// Filter returns the records visible at threshold.
func (c *Collection) Filter(threshold Level) []Entry {
	records := c.Records()
	entries := make([]Entry, 0, len(records))

	for _, r := range records {
		if !r.Level().Visible(threshold) {
			continue
		}

		entries = append(entries, Entry{
			Record:   r,
			ShowData: r.DataLevel().Visible(threshold),
		})
	}

	return entries
}

func logLevel(l Level) logrus.Level {
	switch l {
	case LevelImportant:
		return logrus.InfoLevel
	case LevelNormal:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}
