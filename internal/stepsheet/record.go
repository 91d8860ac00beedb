// Package stepsheet turns a stepsheet page into a structured DanceRecord.
//
// Extraction is total: a missing anchor yields an empty string or an empty
// slice, never an error. Only fetching can fail.
package stepsheet

import (
	"encoding/json"
)

// Choreographer is one credited choreographer. Country is empty when the
// page does not name one.
type Choreographer struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

// Song is one piece of music listed for a dance. The first song of a record
// is the primary song; the rest are switches.
type Song struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Step is one count-led line of the step description.
type Step struct {
	Section     string `json:"section"`
	Number      string `json:"step"`
	Description string `json:"desc"`
}

// DanceRecord is the normalized result of one fetch-and-parse cycle.
// Slices are never nil. Summary holds the page's meta description.
type DanceRecord struct {
	URL            string          `json:"url,omitempty"`
	SheetID        string          `json:"sheetId,omitempty"`
	DanceName      string          `json:"danceName"`
	Title          string          `json:"title"`
	Choreographers []Choreographer `json:"choreographers"`
	ReleaseDate    string          `json:"releaseDate"`
	Count          string          `json:"count"`
	Wall           string          `json:"wall"`
	Level          string          `json:"level"`
	Songs          []Song          `json:"songs"`
	Steps          []Step          `json:"steps"`
	Summary        string          `json:"summary,omitempty"`
}

// PrimarySong returns the first listed song, or a zero Song.
func (r DanceRecord) PrimarySong() Song {
	if len(r.Songs) == 0 {
		return Song{}
	}
	return r.Songs[0]
}

// ChoreographerNames returns the choreographer names in order.
func (r DanceRecord) ChoreographerNames() []string {
	names := make([]string, 0, len(r.Choreographers))
	for _, c := range r.Choreographers {
		names = append(names, c.Name)
	}
	return names
}

// MarshalJSON adds the songTitle/songArtist convenience keys for the
// primary song.
func (r DanceRecord) MarshalJSON() ([]byte, error) {
	type plain DanceRecord
	primary := r.PrimarySong()
	return json.Marshal(struct {
		plain
		SongTitle  string `json:"songTitle"`
		SongArtist string `json:"songArtist"`
	}{
		plain:      plain(r.normalized()),
		SongTitle:  primary.Title,
		SongArtist: primary.Artist,
	})
}

// normalized replaces nil slices with empty ones.
func (r DanceRecord) normalized() DanceRecord {
	if r.Choreographers == nil {
		r.Choreographers = []Choreographer{}
	}
	if r.Songs == nil {
		r.Songs = []Song{}
	}
	if r.Steps == nil {
		r.Steps = []Step{}
	}
	return r
}
