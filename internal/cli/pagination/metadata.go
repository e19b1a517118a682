package pagination

// Meta describes the window shown by Apply.
type Meta struct {
	CurrentPage int
	TotalPages  int
	TotalItems  int
	Shown       int
	HasNext     bool
}

// NewMeta builds the footer metadata for total items under p.
func NewMeta(p Params, total int) Meta {
	start, end := p.window(total)
	m := Meta{TotalItems: total, Shown: end - start, CurrentPage: 1, TotalPages: 1}

	pageSize := p.Limit
	if p.IsPageBased() {
		pageSize = p.PageSize
	}
	if pageSize > 0 {
		m.TotalPages = (total + pageSize - 1) / pageSize
		m.CurrentPage = start/pageSize + 1
	}
	if total == 0 {
		m.TotalPages = 0
	}
	m.HasNext = end < total
	return m
}
