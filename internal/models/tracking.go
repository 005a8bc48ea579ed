package models

import (
	"time"
)

// TrackingInfo holds the lifecycle state of a report. A report that was never
// touched by the tracking system has no row; callers fall back to defaults
// (status "notificado", priority "media", progress 0).
type TrackingInfo struct {
	ReportID         string    `json:"report_id"`
	Status           string    `json:"status"`
	Priority         string    `json:"priority"`
	Progress         int       `json:"progress"`
	Manager          string    `json:"manager,omitempty"`
	ManagementCenter string    `json:"management_center,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ProgressEntry is one recorded advance in a report's lifecycle.
type ProgressEntry struct {
	ID             string     `json:"id"`
	ReportID       string     `json:"report_id"`
	Author         string     `json:"author"`
	Description    string     `json:"description"`
	PreviousStatus string     `json:"previous_status"`
	NewStatus      string     `json:"new_status"`
	Progress       int        `json:"progress"`
	Evidences      []Evidence `json:"evidences"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Evidence is a photo or document attached to a progress entry.
type Evidence struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"` // "foto" or "documento"
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}
