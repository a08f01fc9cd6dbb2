package server

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"maktaba/internal/locale"
	"maktaba/internal/storage/books"
)

func parseLocale(q url.Values) (string, error) {
	loc := strings.TrimSpace(q.Get("locale"))
	if loc == "" {
		return locale.Supported[0], nil
	}

	allowed := make([]any, 0, len(locale.Supported))
	for _, l := range locale.Supported {
		allowed = append(allowed, l)
	}

	if err := validation.Validate(loc, validation.In(allowed...)); err != nil {
		return "", fmt.Errorf("locale: %w", err)
	}

	return loc, nil
}

// parseFilter reads the aggregation filter parameters: authorId, regionId,
// bookIds (comma-separated) and yearRange (comma-separated inclusive pair).
func parseFilter(q url.Values) (books.Filter, error) {
	f := books.Filter{
		AuthorId: strings.TrimSpace(q.Get("authorId")),
		RegionId: strings.TrimSpace(q.Get("regionId")),
	}

	if raw := strings.TrimSpace(q.Get("bookIds")); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				f.BookIds = append(f.BookIds, id)
			}
		}
	}

	raw := strings.TrimSpace(q.Get("yearRange"))
	if raw == "" {
		return f, nil
	}

	parts := strings.Split(raw, ",")
	if err := validation.Validate(parts, validation.Length(2, 2)); err != nil {
		return f, fmt.Errorf("yearRange: %w", err)
	}

	years := make([]uint16, 0, 2)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if err := validation.Validate(p, validation.Required, is.Digit); err != nil {
			return f, fmt.Errorf("yearRange: %w", err)
		}

		y, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return f, fmt.Errorf("yearRange: %w", err)
		}

		years = append(years, uint16(y))
	}

	if years[0] > years[1] {
		return f, fmt.Errorf("yearRange: %v must not exceed %v", years[0], years[1])
	}

	f.YearMin, f.YearMax = years[0], years[1]

	return f, nil
}

func getIntOrDefault(key string, q url.Values, default_ int) int {
	if ls := q.Get(key); ls != "" {
		limit, err := strconv.Atoi(ls)
		if err == nil {
			return limit
		}
	}

	return default_
}

func getMulti(key string, q url.Values) []string {
	raw, ok := q[key]
	if !ok {
		return nil
	}

	vals := make([]string, 0, len(raw))
	for _, val := range raw {
		val = strings.TrimSpace(val)
		if val != "" {
			vals = append(vals, val)
		}
	}

	return vals
}
