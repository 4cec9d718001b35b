package ecosystem

// Labeler names event kinds for display, e.g. in a user's language.
type Labeler interface {
	Label(k EventKind) string
}

// DefaultLabel is the English display name of k.
func DefaultLabel(k EventKind) string {
	switch k {
	case EventMeteor:
		return "Meteor strike"
	case EventPeople:
		return "Population growth"
	case EventWater:
		return "Water added"
	case EventVegetation:
		return "Reforestation"
	case EventHurricane:
		return "Hurricane"
	case EventWarming:
		return "Global warming"
	case EventPollution:
		return "Pollution"
	case EventTsunami:
		return "Tsunami"
	case EventMountains:
		return "Mountains raised"
	case EventReset:
		return "Reset"
	default:
		return "Unknown event"
	}
}
