package model

import "time"

// Fix is a position report. Accuracy is the horizontal radius in meters;
// zero means unknown.
type Fix struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	At        time.Time `json:"at"`
}
