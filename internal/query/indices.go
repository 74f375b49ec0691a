package query

import (
	"fmt"
	"strings"
	"time"
)

// MonthRange resolves a date range to the comma-joined list of monthly
// index names covering it, one "prefix.template.YYYY-MM" name per month
// from start's month through end's month inclusive. An end before start
// yields an empty selector.
func MonthRange(prefix, template string, start, end time.Time) string {
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)

	var names []string
	for month := first; !month.After(last); month = month.AddDate(0, 1, 0) {
		names = append(names, fmt.Sprintf("%s.%s.%s", prefix, template, month.Format("2006-01")))
	}
	return strings.Join(names, ",")
}

// OwnerTerm returns the dataset-ownership filter term: datasets owned by
// user, or public datasets only when no owner is given.
func OwnerTerm(user string) map[string]interface{} {
	if user == "" {
		return map[string]interface{}{"authorization.access": "public"}
	}
	return map[string]interface{}{"authorization.owner": user}
}
