package models

// ErrorResponse is the generic error body returned by all handlers.
type ErrorResponse struct {
	Error   string `json:"error" example:"Invalid session"`
	Details string `json:"details,omitempty" example:""`
}

// MessageResponse is a simple acknowledgement body.
type MessageResponse struct {
	Message string `json:"message" example:"Done"`
}

// SuccessResponse wraps a generic success payload.
type SuccessResponse struct {
	Success bool        `json:"success" example:"true"`
	Message string      `json:"message" example:"Success"`
	Data    interface{} `json:"data,omitempty"`
}

// PaginatedResponse is the list envelope shared by every paginated endpoint.
type PaginatedResponse struct {
	Items      interface{} `json:"items"`
	Total      int         `json:"total" example:"57"`
	Page       int         `json:"page" example:"1"`
	PageSize   int         `json:"page_size" example:"20"`
	TotalPages int         `json:"total_pages" example:"3"`
}

// ErrLinesUnavailable reports product lines referenced by a win payload that
// do not exist or are inactive.
type ErrLinesUnavailable struct {
	LineIDs []int
}

func (e *ErrLinesUnavailable) Error() string {
	return "one or more product lines are unavailable"
}
