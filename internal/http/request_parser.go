// This file implements parsing of query-view parameters from URL query
// strings, so GET /api/transactions can express ad-hoc filters without a
// request body.

package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"tally/internal/core"
	"tally/internal/ledger"

	"github.com/shopspring/decimal"
)

// ParseQueryParams builds filter/sort/page overrides from URL query
// values on top of the supplied active configuration. Absent parameters
// leave the active value in place.
func ParseQueryParams(query url.Values, filter ledger.Filter, sort ledger.Sort, page ledger.Page) (ledger.Filter, ledger.Sort, ledger.Page, error) {
	if v := strings.TrimSpace(query.Get("type")); v != "" {
		switch v {
		case ledger.TypeAll, ledger.TypeIncome, ledger.TypeExpense:
			filter.Type = v
		default:
			return filter, sort, page, fmt.Errorf("invalid type %q: must be income, expense, or all", v)
		}
	}

	if v := strings.TrimSpace(query.Get("account")); v != "" {
		filter.Account = v
	}

	from := strings.TrimSpace(query.Get("from"))
	to := strings.TrimSpace(query.Get("to"))
	if from != "" || to != "" {
		if from == "" || to == "" {
			return filter, sort, page, fmt.Errorf("date range needs both from and to")
		}
		fromDate, err := core.ParseDate(from)
		if err != nil {
			return filter, sort, page, err
		}
		toDate, err := core.ParseDate(to)
		if err != nil {
			return filter, sort, page, err
		}
		filter.DateRange = &ledger.DateRange{From: fromDate, To: toDate}
	}

	if v := strings.TrimSpace(query.Get("search")); v != "" {
		filter.Search = v
	}

	advanced, err := parseAdvancedParams(query)
	if err != nil {
		return filter, sort, page, err
	}
	if advanced != nil {
		filter.Advanced = advanced
	}

	if v := strings.TrimSpace(query.Get("sortBy")); v != "" {
		field := ledger.SortField(v)
		if !field.Valid() {
			return filter, sort, page, fmt.Errorf("invalid sort field %q", v)
		}
		sort.Field = field
	}
	if v := strings.TrimSpace(query.Get("direction")); v != "" {
		switch ledger.SortDirection(v) {
		case ledger.SortAsc, ledger.SortDesc:
			sort.Direction = ledger.SortDirection(v)
		default:
			return filter, sort, page, fmt.Errorf("invalid sort direction %q: must be asc or desc", v)
		}
	}

	if v := strings.TrimSpace(query.Get("page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return filter, sort, page, fmt.Errorf("invalid page %q", v)
		}
		page.Number = n
	}
	if v := strings.TrimSpace(query.Get("pageSize")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return filter, sort, page, fmt.Errorf("invalid pageSize %q", v)
		}
		page.Size = n
	}

	return filter, sort, page, nil
}

func parseAdvancedParams(query url.Values) (*ledger.AdvancedSearch, error) {
	advanced := &ledger.AdvancedSearch{}
	present := false

	if v := strings.TrimSpace(query.Get("amountMin")); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid amountMin %q", v)
		}
		advanced.AmountMin = &d
		present = true
	}
	if v := strings.TrimSpace(query.Get("amountMax")); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid amountMax %q", v)
		}
		advanced.AmountMax = &d
		present = true
	}
	if v := strings.TrimSpace(query.Get("description")); v != "" {
		advanced.Description = v
		present = true
	}
	if tags := splitList(query.Get("tags")); len(tags) > 0 {
		advanced.Tags = tags
		present = true
	}
	if categories := splitList(query.Get("categories")); len(categories) > 0 {
		advanced.Categories = categories
		present = true
	}

	if !present {
		return nil, nil
	}
	return advanced, nil
}

// splitList parses a comma-separated multi-value parameter.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
