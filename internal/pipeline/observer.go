package pipeline

import (
	"github.com/dancedb/dancedb/internal/stepsheet"
)

// EventType names a step of a run.
type EventType string

const (
	EventFetched      EventType = "fetched"
	EventFetchFailed  EventType = "fetch_failed"
	EventDropped      EventType = "dropped"
	EventImported     EventType = "imported"
	EventImportFailed EventType = "import_failed"
)

// Event reports progress on one URL. Index is 1-based within Run and 0 for
// a single Scrape call.
type Event struct {
	Type    EventType
	Index   int
	URL     string
	Record  *stepsheet.DanceRecord
	DanceID int64
	Stage   string
	Err     error
}

// Observer receives run events synchronously, in order.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

func (p *Pipeline) emit(e Event) {
	for _, o := range p.observers {
		o.OnEvent(e)
	}
}
