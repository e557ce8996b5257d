package model

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// SortOrder orders search results by product name.
type SortOrder int

const (
	SortAscending SortOrder = iota
	SortDescending
)

func (s SortOrder) String() string {
	if s == SortDescending {
		return "desc"
	}
	return "asc"
}

// ParseSortOrder accepts the wire values 0/1 and the names asc/desc.
func ParseSortOrder(v string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "asc":
		return SortAscending, nil
	case "1", "desc":
		return SortDescending, nil
	}
	return 0, fmt.Errorf("invalid sort order %q", v)
}

// SearchCriteria filters a product listing. A criteria with no term, price
// bound or sort order is empty and selects the plain listing endpoint.
type SearchCriteria struct {
	Term      string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	SortOrder *SortOrder
	Page      int
	PageSize  int
}

// IsEmpty ignores Page and PageSize.
func (c SearchCriteria) IsEmpty() bool {
	return strings.TrimSpace(c.Term) == "" && c.MinPrice == nil && c.MaxPrice == nil && c.SortOrder == nil
}

// Clone copies the optional fields so the result shares no pointers with c.
func (c SearchCriteria) Clone() SearchCriteria {
	cp := c
	if c.MinPrice != nil {
		v := *c.MinPrice
		cp.MinPrice = &v
	}
	if c.MaxPrice != nil {
		v := *c.MaxPrice
		cp.MaxPrice = &v
	}
	if c.SortOrder != nil {
		v := *c.SortOrder
		cp.SortOrder = &v
	}
	return cp
}

// Values encodes only the fields that are present.
func (c SearchCriteria) Values() url.Values {
	q := url.Values{}
	if term := strings.TrimSpace(c.Term); term != "" {
		q.Set("searchTerm", term)
	}
	if c.MinPrice != nil {
		q.Set("minPrice", c.MinPrice.String())
	}
	if c.MaxPrice != nil {
		q.Set("maxPrice", c.MaxPrice.String())
	}
	if c.Page > 0 {
		q.Set("page", strconv.Itoa(c.Page))
	}
	if c.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(c.PageSize))
	}
	if c.SortOrder != nil {
		q.Set("sortOrder", strconv.Itoa(int(*c.SortOrder)))
	}
	return q
}
