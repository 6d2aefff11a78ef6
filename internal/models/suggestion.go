package models

// Suggestion categories.
const (
	SuggestionLocation   = "location"
	SuggestionProperty   = "property"
	SuggestionExperience = "experience"
)

// SuggestionEntry is one candidate from the static suggestion pool.
// Popularity is a 0-100 score used to order entries when no text is typed.
type SuggestionEntry struct {
	Text       string `json:"text" yaml:"text"`
	Category   string `json:"category" yaml:"category"`
	Popularity int    `json:"popularity" yaml:"popularity"`
}
