package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionFilter narrows a listing. A zero Month matches every month and an
// empty Search matches every record; when both are set a record must satisfy both.
//
// Search is a case-insensitive substring match against the title, the description,
// or the decimal text of the price (so "100" matches 100, 1005 and 2100).
type TransactionFilter struct {
	Month  time.Month
	Search string
}

// MonthTotals is the raw sales summary for one month.
type MonthTotals struct {
	SaleAmount   decimal.Decimal
	SoldCount    int64
	NotSoldCount int64
}
