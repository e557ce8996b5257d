package model

// Page is one page of a server-paginated collection.
type Page[T any] struct {
	Items       []T  `json:"data"`
	CurrentPage int  `json:"currentPage"`
	PageSize    int  `json:"pageSize"`
	TotalItems  int  `json:"totalItems"`
	TotalPages  int  `json:"totalPages"`
	HasPrev     bool `json:"hasPreviousPage"`
	HasNext     bool `json:"hasNextPage"`
}

// InRange reports whether the page satisfies currentPage ∈ [1, totalPages]
// (when there is anything to page) and holds at most pageSize items.
func (p Page[T]) InRange() bool {
	if p.PageSize > 0 && len(p.Items) > p.PageSize {
		return false
	}
	if p.TotalItems == 0 {
		return true
	}
	return p.CurrentPage >= 1 && p.CurrentPage <= p.TotalPages
}
