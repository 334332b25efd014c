package models

// Category is a spending or income category owned by the remote
// collaborator. Transactions embed a snapshot of their category; the
// client only references categories, it never mutates them.
type Category struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Icon  string          `json:"icon,omitempty"`
	Color string          `json:"color,omitempty"`
	Type  TransactionType `json:"type"`
}
