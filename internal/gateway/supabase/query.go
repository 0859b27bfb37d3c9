package supabase

import (
	"net/url"
	"strconv"
)

// Filter is a PostgREST horizontal filter, rendered as column=op.value.
type Filter struct {
	Column string
	Op     string
	Value  string
}

func Eq(column, value string) Filter {
	return Filter{Column: column, Op: "eq", Value: value}
}

type Order struct {
	Column string
	Desc   bool
}

// Query describes a read against one table. Select uses PostgREST syntax,
// including resource embedding such as "*,categories(name,icon_name)".
type Query struct {
	Table   string
	Select  string
	Filters []Filter
	Order   *Order
	Limit   int
	// Single asks for exactly one object instead of an array.
	Single bool
}

// Values renders the query string parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	sel := q.Select
	if sel == "" {
		sel = "*"
	}
	v.Set("select", sel)
	for _, f := range q.Filters {
		v.Add(f.Column, f.Op+"."+f.Value)
	}
	if q.Order != nil {
		dir := "asc"
		if q.Order.Desc {
			dir = "desc"
		}
		v.Set("order", q.Order.Column+"."+dir)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}
