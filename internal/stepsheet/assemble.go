package stepsheet

// Assemble composes parsed fields into a DanceRecord. It applies no
// normalization of its own; nil slices become empty ones.
func Assemble(raw RawFields, choreographers []Choreographer, releaseDate string, songs []Song, steps []Step) DanceRecord {
	rec := DanceRecord{
		DanceName:      raw.Name,
		Title:          raw.Title,
		Choreographers: choreographers,
		ReleaseDate:    releaseDate,
		Count:          raw.Count,
		Wall:           raw.Wall,
		Level:          raw.Level,
		Songs:          songs,
		Steps:          steps,
		Summary:        cleanText(raw.MetaDescription),
	}
	return rec.normalized()
}

// Build runs every parser over raw and assembles the record.
func Build(raw RawFields) DanceRecord {
	choreographers, releaseDate := ParseChoreographers(raw.Choreographer)
	return Assemble(raw, choreographers, releaseDate, ParseSongs(raw.MusicHTML), ParseSteps(raw.StepsText))
}
