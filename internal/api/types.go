package api

import (
	"github.com/goccy/go-json"

	"github.com/samcharles93/safedump/internal/export"
)

type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

type InspectResponse struct {
	ID           string           `json:"id"`
	Object       string           `json:"object"`
	HeaderLength uint64           `json:"header_length"`
	Metadata     json.RawMessage  `json:"metadata,omitempty"`
	Tensors      []export.Summary `json:"tensors"`
}

type DecodedTensor struct {
	Name  string `json:"name"`
	DType string `json:"dtype"`
	Shape []int  `json:"shape"`
	Data  any    `json:"data"`
}

type DecodeResponse struct {
	ID      string          `json:"id"`
	Object  string          `json:"object"`
	Tensors []DecodedTensor `json:"tensors"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
