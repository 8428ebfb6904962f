package speech

// DefaultVoice is used when neither request nor configuration picks one.
const DefaultVoice = "nova"

// Voice describes one entry of the static voice catalog.
type Voice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var catalog = []Voice{
	{ID: "alloy", Name: "Alloy", Description: "Neutral and balanced"},
	{ID: "echo", Name: "Echo", Description: "Male, clear and articulate"},
	{ID: "fable", Name: "Fable", Description: "British accent, expressive"},
	{ID: "onyx", Name: "Onyx", Description: "Deep male voice"},
	{ID: "nova", Name: "Nova", Description: "Female, warm and friendly"},
	{ID: "shimmer", Name: "Shimmer", Description: "Female, soft and gentle"},
}

// Voices returns a copy of the catalog.
func Voices() []Voice {
	out := make([]Voice, len(catalog))
	copy(out, catalog)
	return out
}

// IsVoice reports whether id names a catalog voice.
func IsVoice(id string) bool {
	for _, v := range catalog {
		if v.ID == id {
			return true
		}
	}
	return false
}
