package models

// RequestPage is the backend's paged list envelope for requests.
type RequestPage struct {
	Content     []Request `json:"content"`
	CurrentPage int       `json:"currentPage"`
	TotalPages  int       `json:"totalPages"`
	Last        bool      `json:"last"`
}

// ShopPage is the paged envelope for the shop dictionary.
type ShopPage struct {
	Content []Shop `json:"content"`
}

// WorkCategoryPage is the paged envelope for the work-category dictionary.
type WorkCategoryPage struct {
	Content []WorkCategory `json:"content"`
}
