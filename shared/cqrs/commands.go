package cqrs

// InitializeDatabaseCommand replaces every stored transaction with a fresh copy
// of the seed dataset. RequestedBy is the authenticated caller, if any.
type InitializeDatabaseCommand struct {
	RequestedBy string
}
