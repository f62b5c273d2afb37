package model

import (
	"encoding/json"
	"net/http"
	"path"
)

// Fixed envelope messages.
const (
	MessageRetrieved = "Data retrieved successfully"
	MessageReceived  = "Data received successfully"
)

// DefaultApp is the application identifier used when none is configured.
const DefaultApp = "app1"

// Envelope is the JSON wrapper shared by both data endpoints.
//
// A non-nil ReceivedData selects the receive shape (received_data, always an
// object); otherwise the fetch shape (data, always an array) is rendered.
type Envelope struct {
	App          string         `json:"app"`
	Endpoint     string         `json:"endpoint"`
	Message      string         `json:"message"`
	Data         []DataItem     `json:"data"`
	ReceivedData map[string]any `json:"received_data"`
	Timestamp    string         `json:"timestamp"`
}

type fetchShape struct {
	App       string     `json:"app"`
	Endpoint  string     `json:"endpoint"`
	Message   string     `json:"message"`
	Data      []DataItem `json:"data"`
	Timestamp string     `json:"timestamp"`
}

type receiveShape struct {
	App          string         `json:"app"`
	Endpoint     string         `json:"endpoint"`
	Message      string         `json:"message"`
	ReceivedData map[string]any `json:"received_data"`
	Timestamp    string         `json:"timestamp"`
}

// MarshalJSON renders exactly one of data or received_data.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.ReceivedData != nil {
		return json.Marshal(receiveShape{
			App:          e.App,
			Endpoint:     e.Endpoint,
			Message:      e.Message,
			ReceivedData: e.ReceivedData,
			Timestamp:    e.Timestamp,
		})
	}
	data := e.Data
	if data == nil {
		data = []DataItem{}
	}
	return json.Marshal(fetchShape{
		App:       e.App,
		Endpoint:  e.Endpoint,
		Message:   e.Message,
		Data:      data,
		Timestamp: e.Timestamp,
	})
}

// DataPath joins the base path and the data resource, e.g. "/api" -> "/api/data".
func DataPath(basePath string) string {
	if basePath == "" {
		basePath = "/"
	}
	return path.Join(basePath, "data")
}

// Endpoint builds the literal label for a method on the data resource,
// e.g. "GET /api/data".
func Endpoint(method, basePath string) string {
	return method + " " + DataPath(basePath)
}

// FetchEndpoint and ReceiveEndpoint are the labels for the two operations.
func FetchEndpoint(basePath string) string   { return Endpoint(http.MethodGet, basePath) }
func ReceiveEndpoint(basePath string) string { return Endpoint(http.MethodPost, basePath) }
