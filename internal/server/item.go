package server

import (
	"encoding/json"
	"fmt"
)

// Item is one element of a list. Lists store items as JSON; the current
// version of an item is stored as JSON under the item prefix plus its ID.
type Item struct {
	ID    string  `json:"id"`
	Name  string  `json:"name,omitempty"`
	Price float64 `json:"price,omitempty"`
}

// DecodeItem decodes an Item stored in Redis.
func DecodeItem(value string) (Item, error) {
	var item Item
	if err := json.Unmarshal([]byte(value), &item); err != nil {
		return Item{}, fmt.Errorf("unmarshal item: %w", err)
	}
	if item.ID == "" {
		return Item{}, fmt.Errorf("item %q has no id", value)
	}
	return item, nil
}
