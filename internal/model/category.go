package model

// Category carries the derived average price of its menu items.
type Category struct {
	Name         string `json:"name" bson:"name"`
	AveragePrice int64  `json:"averagePrice" bson:"averagePrice"`
}
