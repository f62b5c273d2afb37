// Package model contains domain models passed between layers.
package model

// DataItem is one seeded record served by the fetch operation.
type DataItem struct {
	ID    int    `json:"id"`
	Value string `json:"value"`
}

// sampleItems is the fixed catalogue. Ids are unique and never change.
var sampleItems = [...]DataItem{
	{ID: 1, Value: "Sample data 1"},
	{ID: 2, Value: "Sample data 2"},
	{ID: 3, Value: "Sample data 3"},
}

// SampleItems returns a fresh copy of the catalogue in id order.
func SampleItems() []DataItem {
	out := make([]DataItem, len(sampleItems))
	copy(out, sampleItems[:])
	return out
}
