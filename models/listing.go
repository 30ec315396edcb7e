package models

import "math"

// Renovation describes how much work a listing needs.
type Renovation string

const (
	RenovationNone    Renovation = "no"
	RenovationPartial Renovation = "partial"
	RenovationTotal   Renovation = "total"
)

// Status is the user's workflow state for a tracked property.
type Status string

const (
	StatusPending   Status = "pending"
	StatusContacted Status = "contacted"
	StatusVisited   Status = "visited"
	StatusFavorite  Status = "favorite"
	StatusDiscarded Status = "discarded"
)

// ValidStatus reports whether s is one of the known workflow states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusContacted, StatusVisited, StatusFavorite, StatusDiscarded:
		return true
	}
	return false
}

// Year bounds outside of which a construction year is treated as noise.
const (
	MinYearBuilt = 1800
	MaxYearBuilt = 2030
)

type Contact struct {
	Phone  string `json:"phone"`
	Phone2 string `json:"phone2,omitempty"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Agency string `json:"agency"`
}

// Listing is the normalized record every platform parser produces.
// Any field may be zero: absence means the source did not publish it.
type Listing struct {
	URL                string     `json:"url"`
	Title              string     `json:"title"`
	Address            string     `json:"address"`
	Zone               string     `json:"zone"`
	Price              int        `json:"price"`
	PricePerArea       int        `json:"price_per_area"`
	SquareMeters       int        `json:"square_meters"`
	BuiltSquareMeters  int        `json:"built_square_meters"`
	UsableSquareMeters int        `json:"usable_square_meters"`
	Rooms              int        `json:"rooms"`
	Bathrooms          int        `json:"bathrooms"`
	Floor              string     `json:"floor"`
	Terrace            bool       `json:"terrace"`
	Balcony            bool       `json:"balcony"`
	Elevator           bool       `json:"elevator"`
	ParkingIncluded    bool       `json:"parking_included"`
	ParkingOptional    bool       `json:"parking_optional"`
	NeedsRenovation    Renovation `json:"needs_renovation"`
	YearBuilt          int        `json:"year_built"`
	Orientation        string     `json:"orientation"`
	DaysPublished      int        `json:"days_published"`
	Photos             []string   `json:"photos"`
	Latitude           *float64   `json:"latitude,omitempty"`
	Longitude          *float64   `json:"longitude,omitempty"`
	Contact            Contact    `json:"contact"`
	Status             Status     `json:"status"`
	Notes              string     `json:"notes"`
}

// Finalize derives the computed fields and enforces value bounds.
// Parsers call it once, right before returning.
func (l *Listing) Finalize() {
	if l.Price < 0 {
		l.Price = 0
	}
	l.SquareMeters = l.BuiltSquareMeters
	if l.SquareMeters == 0 {
		l.SquareMeters = l.UsableSquareMeters
	}
	l.PricePerArea = 0
	if l.SquareMeters > 0 {
		l.PricePerArea = int(math.Floor(float64(l.Price)/float64(l.SquareMeters) + 0.5))
	}

	if l.YearBuilt != 0 && (l.YearBuilt < MinYearBuilt || l.YearBuilt > MaxYearBuilt) {
		l.YearBuilt = 0
	}
	if l.DaysPublished < 0 {
		l.DaysPublished = 0
	}
	if l.Latitude != nil && (*l.Latitude < -90 || *l.Latitude > 90 || math.IsNaN(*l.Latitude)) {
		l.Latitude = nil
	}
	if l.Longitude != nil && (*l.Longitude < -180 || *l.Longitude > 180 || math.IsNaN(*l.Longitude)) {
		l.Longitude = nil
	}
	if l.NeedsRenovation == "" {
		l.NeedsRenovation = RenovationNone
	}
	if l.Photos == nil {
		l.Photos = []string{}
	}
	l.Status = StatusPending
}

// Valid reports whether the parse produced something usable.
// A listing without a price means the markup was not a listing page
// of the chosen platform.
func (l *Listing) Valid() bool {
	return l != nil && l.Price > 0
}
