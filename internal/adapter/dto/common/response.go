package common

// SuccessResponse is the envelope of every successful response.
type SuccessResponse struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorResponse is the envelope of every failed response.
type ErrorResponse struct {
	Success bool              `json:"success" example:"false"`
	Error   string            `json:"error" example:"Recording not found"`
	Code    string            `json:"code" example:"RECORDING_NOT_FOUND"`
	Details map[string]string `json:"details,omitempty"`
}

// Pagination describes one page of a list.
type Pagination struct {
	Page       int   `json:"page" example:"1"`
	Limit      int   `json:"limit" example:"20"`
	Total      int64 `json:"total" example:"42"`
	TotalPages int   `json:"totalPages" example:"3"`
}

// NewPagination computes the page count for total items.
func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// ListResponse is the data of a paginated list.
type ListResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// PageQuery binds the shared list query parameters.
type PageQuery struct {
	Page   int    `query:"page" validate:"omitempty,min=1"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
	SortBy string `query:"sortBy"`
	Order  string `query:"order" validate:"omitempty,oneof=asc desc ASC DESC"`
}
