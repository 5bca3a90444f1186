package server

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// SyncResponse is returned when a sync job was accepted
type SyncResponse struct {
	JobID   string `json:"jobId"`
	Message string `json:"message"`
}

// CancelResponse is returned when a job was cancelled
type CancelResponse struct {
	Message string `json:"message"`
}

// LocationsResponse lists the tracks a tag store holds metadata for
type LocationsResponse struct {
	Locations []string `json:"locations"`
}
