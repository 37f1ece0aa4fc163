package cqrs

import "time"

// ---------- Transaction queries ----------

// ListTransactionsQuery fetches one page of transactions. A zero Month means
// every month; an empty Search disables the text filter.
type ListTransactionsQuery struct {
	Month   time.Month
	Search  string
	Page    int
	PerPage int
}

// MonthQuery scopes an aggregate view to the transactions sold in Month.
type MonthQuery struct {
	Month time.Month
}
