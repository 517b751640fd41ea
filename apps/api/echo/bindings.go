package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cadenza-app/cadenza/core"
)

var orderingParam = "ordering"

// Ordering binds the `ordering` query param: a comma separated list of fields,
// `-` prefixed for descending.
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}
