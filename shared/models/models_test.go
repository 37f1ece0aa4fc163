package models

import (
	"math"
	"testing"
	"time"
)

func TestTransactionSaleMonth(t *testing.T) {
	tests := []struct {
		name       string
		dateOfSale string
		want       time.Month
		wantErr    bool
	}{
		{name: "date only", dateOfSale: "2023-03-05", want: time.March},
		{name: "timestamp with offset", dateOfSale: "2021-11-27T20:29:54+05:30", want: time.November},
		{name: "offset does not shift month", dateOfSale: "2021-12-01T00:10:00+05:30", want: time.December},
		{name: "empty", dateOfSale: "", wantErr: true},
		{name: "too short", dateOfSale: "2021-11", wantErr: true},
		{name: "month out of range", dateOfSale: "2021-13-01", wantErr: true},
		{name: "not a date", dateOfSale: "yesterday!", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transaction{DateOfSale: tt.dateOfSale}.SaleMonth()
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.dateOfSale)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v got %v", tt.want, got)
			}
		})
	}
}

func TestPriceRangeContains(t *testing.T) {
	r := PriceRange{Label: "101-200", Min: 101, Max: 200}
	if !r.Contains(101) || !r.Contains(199.99) {
		t.Errorf("expected inclusive lower bound")
	}
	if r.Contains(200) || r.Contains(100.5) {
		t.Errorf("expected exclusive upper bound")
	}
	open := PriceRange{Label: "901-above", Min: 901, Max: math.Inf(1)}
	if !open.Contains(1e9) {
		t.Errorf("expected open bucket to hold large prices")
	}
}
