package query

// Pagination is the metadata returned with a page of results. From and To
// are 1-based inclusive positions, nil when the page is empty.
type Pagination struct {
	Total       int64 `json:"total"`
	PerPage     int   `json:"per_page"`
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	From        *int  `json:"from"`
	To          *int  `json:"to"`
}

// NewPagination computes the metadata for a page holding count items out of
// total matches.
func NewPagination(q PropertyQuery, total int64, count int) Pagination {
	p := Pagination{
		Total:       total,
		PerPage:     q.Limit,
		CurrentPage: q.Page,
		LastPage:    int((total + int64(q.Limit) - 1) / int64(q.Limit)),
	}
	if count > 0 {
		from := q.Offset() + 1
		to := q.Offset() + count
		p.From = &from
		p.To = &to
	}
	return p
}
