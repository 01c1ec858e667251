package sos

import "time"

// Alert status values.
const (
	StatusActive   = "active"
	StatusResolved = "resolved"
)

// Location is a geographic coordinate pair supplied by the device on the
// manual trigger path. The emotion-triggered path never carries one.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Alert is a record requesting emergency attention.
type Alert struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	Location        *Location `json:"location"`
	DetectedEmotion string    `json:"detectedEmotion,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	Status          string    `json:"status"`
}
