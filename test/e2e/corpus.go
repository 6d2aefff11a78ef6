// Package e2e exercises the full HTTP API against a realistic property corpus.
package e2e

import (
	"fmt"
	"time"

	"github.com/hyperjump/sumika/internal/models"
)

type citySpec struct {
	city  string
	state string
}

var corpusCities = []citySpec{
	{"Calangute", "Goa"},
	{"Anjuna", "Goa"},
	{"Manali", "Himachal Pradesh"},
	{"Jaipur", "Rajasthan"},
	{"Alleppey", "Kerala"},
	{"Rishikesh", "Uttarakhand"},
}

var corpusTypes = []string{"villa", "apartment", "cottage", "haveli", "houseboat"}

var corpusAmenities = [][]string{
	{"wifi", "pool", "kitchen"},
	{"wifi"},
	{"wifi", "heater"},
	{"pool", "parking"},
	{"wifi", "kitchen", "washer"},
}

// buildCorpus generates a deterministic corpus of n properties cycling
// through cities, types, and amenity sets, with spread-out prices,
// capacities, ratings, and listing dates.
func buildCorpus(n int) []*models.PropertyRecord {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	records := make([]*models.PropertyRecord, 0, n)
	for i := 0; i < n; i++ {
		city := corpusCities[i%len(corpusCities)]
		records = append(records, &models.PropertyRecord{
			ID:          fmt.Sprintf("prop-%03d", i+1),
			Title:       fmt.Sprintf("%s %s %d", city.city, corpusTypes[i%len(corpusTypes)], i+1),
			City:        city.city,
			State:       city.state,
			Capacity:    2 + i%7,
			BasePrice:   1500 + (i%12)*1250,
			Type:        corpusTypes[i%len(corpusTypes)],
			Amenities:   corpusAmenities[i%len(corpusAmenities)],
			Rating:      3.0 + float64(i%21)*0.1,
			InstantBook: i%3 == 0,
			Superhost:   i%4 == 0,
			PetFriendly: i%5 == 0,
			CreatedAt:   base.AddDate(0, 0, i),
		})
	}
	return records
}

// countWhere returns how many corpus records satisfy pred.
func countWhere(records []*models.PropertyRecord, pred func(*models.PropertyRecord) bool) int {
	n := 0
	for _, r := range records {
		if pred(r) {
			n++
		}
	}
	return n
}
