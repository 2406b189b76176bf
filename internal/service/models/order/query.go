package order

// QueryOrdersModel represents filter parameters for querying orders.
// Results are always sorted by creation time, newest first.
type QueryOrdersModel struct {
	Status Status `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}
