package artist

// ListParams configures paginated artist queries.
type ListParams struct {
	Page     int
	PageSize int
	Search   string
	// Pending restricts the list to artists still missing the given field.
	Pending Field
}

// Validate normalizes list parameters.
func (p *ListParams) Validate() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 200 {
		p.PageSize = 50
	}
	if _, ok := ParseField(string(p.Pending)); !ok {
		p.Pending = ""
	}
}
