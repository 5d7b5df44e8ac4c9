package models

import "time"

// HistoryItem is one entry of the capped scan history log
type HistoryItem struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Result    AnalysisResult `json:"result"`
	Thumbnail string         `json:"thumbnail"`
}

// RecyclingCenter is a nearby drop-off point returned by the cloud service
type RecyclingCenter struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Info    string `json:"info"`
}

// GroundingLink is a citation returned alongside a grounded cloud response
type GroundingLink struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// FacilityRecord is a verified manufacturing location from the facility registry
type FacilityRecord struct {
	Name        string     `json:"name"`
	Address     string     `json:"address"`
	Country     string     `json:"country"`
	Sector      []string   `json:"sector"`
	Coordinates [2]float64 `json:"coordinates"` // longitude, latitude
}
