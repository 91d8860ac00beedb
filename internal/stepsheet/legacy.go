package stepsheet

import (
	"fmt"
	"strings"
)

// nameKeys is the resolution order for the dance name in loosely keyed
// records.
var nameKeys = []string{"dance_name", "danceName", "name", "title"}

// FromFields maps a loosely keyed record (as produced by older scrapers,
// CSV rows or JSON files) into a DanceRecord.
//
// Choreographers may be given as a structured list or as a single
// choreographer string, which is run through ParseChoreographers. Songs may
// be a list or the flat song_title/song_artist pair.
func FromFields(fields map[string]any) DanceRecord {
	rec := DanceRecord{
		URL:         str(fields, "url", "stepsheet_url", "stepsheetUrl"),
		DanceName:   str(fields, nameKeys...),
		Title:       str(fields, "title"),
		ReleaseDate: str(fields, "release_date", "releaseDate"),
		Count:       str(fields, "count"),
		Wall:        str(fields, "wall"),
		Level:       str(fields, "level"),
		Summary:     str(fields, "summary", "notes"),
	}
	rec.SheetID = SheetID(rec.URL)

	switch v := lookup(fields, "choreographers").(type) {
	case []Choreographer:
		rec.Choreographers = v
	case []any:
		for _, item := range v {
			switch c := item.(type) {
			case map[string]any:
				if name := str(c, "name"); name != "" {
					rec.Choreographers = append(rec.Choreographers, Choreographer{Name: name, Country: str(c, "country")})
				}
			case string:
				if name := cleanText(c); name != "" {
					rec.Choreographers = append(rec.Choreographers, Choreographer{Name: name})
				}
			}
		}
	}
	if len(rec.Choreographers) == 0 {
		choreographers, date := ParseChoreographers(str(fields, "choreographer"))
		rec.Choreographers = choreographers
		if rec.ReleaseDate == "" {
			rec.ReleaseDate = date
		}
	}

	switch v := lookup(fields, "songs").(type) {
	case []Song:
		rec.Songs = v
	case []any:
		for _, item := range v {
			if s, ok := item.(map[string]any); ok {
				if title := str(s, "title"); title != "" {
					rec.Songs = append(rec.Songs, Song{Title: title, Artist: str(s, "artist")})
				}
			}
		}
	}
	if len(rec.Songs) == 0 {
		if title := str(fields, "song_title", "songTitle", "song"); title != "" {
			rec.Songs = []Song{{Title: title, Artist: str(fields, "song_artist", "songArtist", "artist")}}
		}
	}

	if steps, ok := lookup(fields, "steps").(string); ok {
		rec.Steps = ParseSteps(steps)
	}

	return rec.normalized()
}

func lookup(fields map[string]any, key string) any {
	if v, ok := fields[key]; ok {
		return v
	}
	return nil
}

// str returns the first non-empty value among keys, rendered as a string.
func str(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := fields[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case float64:
			s = strings.TrimSuffix(fmt.Sprintf("%g", t), ".0")
		default:
			s = fmt.Sprint(t)
		}
		if s = cleanText(s); s != "" {
			return s
		}
	}
	return ""
}
