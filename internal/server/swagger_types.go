package server

// Generic Swagger response envelopes to match API shape.
type DataResponse struct {
	Data any `json:"data"`
}

type ListResponse struct {
	Data  any `json:"data"`
	Count int `json:"count"`
}
