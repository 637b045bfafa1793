package response

// SaveResponse is the response after storing a snapshot
type SaveResponse struct {
	Success bool `json:"success"`
}

// HealthResponse is the response of the health check
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage,omitempty"`
}
