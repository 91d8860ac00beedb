package catalog

// KnownStatus records how well the user knows a dance. Empty means unset.
type KnownStatus string

const (
	KnownUnset      KnownStatus = ""
	KnownYes        KnownStatus = "Yes"
	KnownKinda      KnownStatus = "Kinda"
	KnownNo         KnownStatus = "No"
	KnownOnTheFloor KnownStatus = "On the Floor"
)

// IsValid reports whether k is one of the known values.
func (k KnownStatus) IsValid() bool {
	switch k {
	case KnownUnset, KnownYes, KnownKinda, KnownNo, KnownOnTheFloor:
		return true
	default:
		return false
	}
}

// Category places a dance in the learning queue.
type Category string

const (
	CategoryUnset         Category = ""
	CategoryLearnNext     Category = "Learn Next"
	CategoryLearnSoon     Category = "Learn Soon"
	CategoryLearnLater    Category = "Learn Later"
	CategoryUncategorized Category = "Uncategorized"
)

// IsValid reports whether c is one of the known values.
func (c Category) IsValid() bool {
	switch c {
	case CategoryUnset, CategoryLearnNext, CategoryLearnSoon, CategoryLearnLater, CategoryUncategorized:
		return true
	default:
		return false
	}
}

// Priority ranks dances within a category.
type Priority string

const (
	PriorityUnset  Priority = ""
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// IsValid reports whether p is one of the known values.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityUnset, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Action is what the user plans to do with a dance next.
type Action string

const (
	ActionUnset    Action = ""
	ActionLearn    Action = "Learn"
	ActionPractice Action = "Practice"
)

// IsValid reports whether a is one of the known values.
func (a Action) IsValid() bool {
	switch a {
	case ActionUnset, ActionLearn, ActionPractice:
		return true
	default:
		return false
	}
}

// SongMatch selects how song titles are compared when deduplicating.
type SongMatch string

const (
	// SongMatchExact compares titles byte for byte.
	SongMatchExact SongMatch = "exact"
	// SongMatchNormalized compares case-folded, NFC, whitespace-collapsed titles.
	SongMatchNormalized SongMatch = "normalized"
)
