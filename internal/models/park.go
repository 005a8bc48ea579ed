package models

import (
	"time"
)

// Park is one park or green area the capture client can attach a visit to.
// The catalog is loaded into the store by an external seeding job.
type Park struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Neighborhood string    `json:"neighborhood"`
	Comuna       string    `json:"comuna"`
	AreaM2       float64   `json:"area_m2"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	CreatedAt    time.Time `json:"created_at"`
}
