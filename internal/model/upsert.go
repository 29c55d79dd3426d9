package model

// UpsertAction tells whether a daily price row was created or updated.
type UpsertAction string

const (
	ActionCreated UpsertAction = "created"
	ActionUpdated UpsertAction = "updated"
)

// UpsertRequest is the price-upsert payload. All fields are required.
type UpsertRequest struct {
	Date  string   `json:"date" validate:"required,datetime=2006-01-02"`
	Price *float64 `json:"price" validate:"required,gt=0"`
	Year  *int     `json:"year" validate:"required,gte=2009,lte=9999"`
}

// UpsertResponse mirrors the outcome of a price upsert.
type UpsertResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Date    string       `json:"date,omitempty"`
	Price   float64      `json:"price,omitempty"`
	Action  UpsertAction `json:"action,omitempty"`
}
