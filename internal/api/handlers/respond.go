package handlers

// StatusResponse acknowledges a successful write.
type StatusResponse struct {
	Status string `json:"status"`
}

var statusSuccess = StatusResponse{Status: "success"}
