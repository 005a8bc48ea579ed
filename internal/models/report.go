package models

import (
	"time"
)

// Report represents a single field-visit record captured by the operations crew
type Report struct {
	ID               string    `json:"id"`
	InterventionType string    `json:"intervention_type"`
	Description      string    `json:"description"`
	Address          string    `json:"address"`
	Observations     string    `json:"observations"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	PhotoURLs        []string  `json:"photo_urls"`
	PhotoCount       int       `json:"photo_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// ReportSubmittedEvent represents the event published after a report is stored
type ReportSubmittedEvent struct {
	ID               string    `json:"id"`
	InterventionType string    `json:"intervention_type"`
	Description      string    `json:"description"`
	Address          string    `json:"address"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	PhotoURLs        []string  `json:"photo_urls"`
	Timestamp        time.Time `json:"timestamp"`
}

// ReportCapturedEvent is the payload offline capture clients publish to the
// queue. Photos are already uploaded by the client; only URLs travel here.
type ReportCapturedEvent struct {
	ID               string    `json:"id"`
	InterventionType string    `json:"intervention_type"`
	Description      string    `json:"description"`
	Address          string    `json:"address"`
	Observations     string    `json:"observations"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	PhotoURLs        []string  `json:"photo_urls"`
	CapturedAt       time.Time `json:"captured_at"`
}

// Intervention type options offered to the capture client
var InterventionTypes = []string{
	"Mantenimiento",
	"Poda",
	"Tala",
	"Siembra",
	"Limpieza",
	"Recuperación de zona verde",
	"Otro",
}
