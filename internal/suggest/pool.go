package suggest

import (
	"fmt"
	"os"

	"github.com/hyperjump/sumika/internal/models"
	"gopkg.in/yaml.v3"
)

// poolFile is the on-disk shape of a suggestion pool.
type poolFile struct {
	Suggestions []models.SuggestionEntry `yaml:"suggestions"`
}

// LoadPool reads a suggestion pool from a YAML file. Entry order in the file
// is significant: it is the tie-break for popularity and the display order
// for substring matches.
func LoadPool(path string) ([]models.SuggestionEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suggestion pool: %w", err)
	}
	var f poolFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse suggestion pool: %w", err)
	}
	return f.Suggestions, nil
}

// DefaultPool is the built-in candidate pool used when no pool file is
// configured.
func DefaultPool() []models.SuggestionEntry {
	return []models.SuggestionEntry{
		{Text: "Goa", Category: models.SuggestionLocation, Popularity: 98},
		{Text: "Manali", Category: models.SuggestionLocation, Popularity: 91},
		{Text: "Jaipur", Category: models.SuggestionLocation, Popularity: 87},
		{Text: "Udaipur", Category: models.SuggestionLocation, Popularity: 84},
		{Text: "Alleppey", Category: models.SuggestionLocation, Popularity: 76},
		{Text: "Rishikesh", Category: models.SuggestionLocation, Popularity: 72},
		{Text: "Beachfront villa", Category: models.SuggestionProperty, Popularity: 89},
		{Text: "Treehouse stay", Category: models.SuggestionProperty, Popularity: 70},
		{Text: "Houseboat", Category: models.SuggestionProperty, Popularity: 66},
		{Text: "Heritage haveli", Category: models.SuggestionProperty, Popularity: 58},
		{Text: "Mountain trekking", Category: models.SuggestionExperience, Popularity: 63},
		{Text: "Yoga retreat", Category: models.SuggestionExperience, Popularity: 55},
	}
}
