package engine

import (
	"strconv"
	"strings"
)

// Interactive commands recognized in place of a query.
const (
	CommandPrint = "print"
	CommandExit  = "exit"
)

// querySeparator splits the price from the optional keyword.
const querySeparator = "-"

// Query is a parsed request for an item near Price, optionally matching Keyword.
type Query struct {
	Price   int
	Keyword string
}

// HasKeyword reports whether the query names a keyword.
func (q Query) HasKeyword() bool {
	return q.Keyword != ""
}

// ParseQuery parses "price" or "price-keyword". The price must be a positive
// integer. Anything else is a *QueryError.
func ParseQuery(s string) (Query, error) {
	parts := strings.Split(strings.TrimSpace(s), querySeparator)
	if len(parts) > 2 {
		return Query{}, newQueryError("too many keywords in query %q", s)
	}

	price, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Query{}, newQueryError("invalid price in query %q", s)
	}
	if price <= 0 {
		return Query{}, newQueryError("price must be positive, got %d", price)
	}

	q := Query{Price: price}
	if len(parts) == 2 {
		q.Keyword = strings.TrimSpace(parts[1])
		if q.Keyword == "" {
			return Query{}, newQueryError("empty keyword in query %q", s)
		}
	}
	return q, nil
}
