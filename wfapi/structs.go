package main

// Consistent response structure - error only exists if there is an error.
// Status is always "ok" or "error"
type Response struct {
	Status string      `json:"status"`
	Error  string      `json:"error,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}
