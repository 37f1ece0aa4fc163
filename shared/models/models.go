package models

import (
	"fmt"
	"time"
)

// Transaction is a single sale record as published by the seed source.
type Transaction struct {
	ID          int64   `json:"id" bson:"id"`
	Title       string  `json:"title" bson:"title"`
	Price       float64 `json:"price" bson:"price"`
	Description string  `json:"description" bson:"description"`
	Category    string  `json:"category" bson:"category"`
	Image       string  `json:"image" bson:"image"`
	Sold        bool    `json:"sold" bson:"sold"`
	DateOfSale  string  `json:"dateOfSale" bson:"dateOfSale"`
}

// SaleMonth returns the month encoded in the YYYY-MM-DD prefix of DateOfSale.
// The prefix is read as written, so a timestamp's own offset never shifts the month.
func (t Transaction) SaleMonth() (time.Month, error) {
	if len(t.DateOfSale) < len(time.DateOnly) {
		return 0, fmt.Errorf("invalid dateOfSale %q", t.DateOfSale)
	}
	d, err := time.Parse(time.DateOnly, t.DateOfSale[:len(time.DateOnly)])
	if err != nil {
		return 0, fmt.Errorf("invalid dateOfSale %q: %w", t.DateOfSale, err)
	}
	return d.Month(), nil
}

// PriceRange is one histogram bucket, counting prices in [Min, Max).
type PriceRange struct {
	Label string
	Min   float64
	Max   float64
}

// Contains reports whether price falls inside the bucket.
func (r PriceRange) Contains(price float64) bool {
	return price >= r.Min && price < r.Max
}
