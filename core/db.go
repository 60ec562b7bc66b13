package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderBy builds an ORDER BY list out of the orderings whose field is in `allowed`,
// falling back to `def` when none is usable.
func OrderBy(orderings []DBOrdering, allowed map[string]string, def string) string {
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		col, ok := allowed[ord.Field]
		if !ok {
			continue
		}
		parts = append(parts, DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(parts) == 0 {
		return def
	}
	return strings.Join(parts, ", ")
}

// Page selects a window of a list. Number starts at 1.
type Page struct {
	Number int `query:"page"`
	Size   int `query:"-"`
}

func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// PageInfo describes a Page of a list with Count items.
type PageInfo struct {
	Number      int  `json:"page"`
	Size        int  `json:"page_size"`
	Count       int  `json:"count"`
	NumPages    int  `json:"num_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

func NewPageInfo(p Page, count int) PageInfo {
	num := p.Number
	if num < 1 {
		num = 1
	}
	pages := 1
	if p.Size > 0 && count > 0 {
		pages = (count + p.Size - 1) / p.Size
	}
	return PageInfo{
		Number:      num,
		Size:        p.Size,
		Count:       count,
		NumPages:    pages,
		HasNext:     num < pages,
		HasPrevious: num > 1,
	}
}
