package models

// ScanURLRequest asks the local API to analyse an image hosted elsewhere
type ScanURLRequest struct {
	URL     string `json:"url" binding:"required,url"`
	Offline bool   `json:"offline,omitempty"`
}

// ScanResponse is returned once a scan completes
type ScanResponse struct {
	HistoryID string          `json:"historyId,omitempty"`
	Result    *AnalysisResult `json:"result"`
	Thumbnail string          `json:"thumbnail"`
	Enhanced  bool            `json:"enhanced"`
	Online    bool            `json:"online"`
}

// RecyclingRequest carries the user's location. Pointers keep 0,0 distinct
// from a missing field.
type RecyclingRequest struct {
	Latitude  *float64 `json:"lat" binding:"required"`
	Longitude *float64 `json:"lng" binding:"required"`
}

// RecyclingResponse lists nearby centers and the sources used to find them
type RecyclingResponse struct {
	Centers []RecyclingCenter `json:"centers"`
	Links   []GroundingLink   `json:"links"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Type      string `json:"type,omitempty"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable"`
}
