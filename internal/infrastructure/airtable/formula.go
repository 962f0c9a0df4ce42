package airtable

import (
	"strings"

	"github.com/example/tablesched/internal/domain/timeline"
)

// quote renders s as a formula string literal.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

func field(name string) string { return "{" + name + "}" }

func dateEquals(name string, d timeline.Date) string {
	return "DATETIME_FORMAT(" + field(name) + ",'YYYY-MM-DD')=" + quote(d.String())
}

func dateOnOrAfter(name string, d timeline.Date) string {
	return "NOT(IS_BEFORE(" + field(name) + "," + quote(d.String()) + "))"
}

func equals(name, value string) string {
	return field(name) + "=" + quote(value)
}

// phoneEquals compares the stored phone with separators removed.
func phoneEquals(name, normalized string) string {
	expr := field(name)
	for _, sep := range []string{" ", "-", "/", "(", ")"} {
		expr = "SUBSTITUTE(" + expr + "," + quote(sep) + ",'')"
	}
	return expr + "=" + quote(normalized)
}

func and(clauses ...string) string {
	var parts []string
	for _, c := range clauses {
		if c != "" {
			parts = append(parts, c)
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return "AND(" + strings.Join(parts, ",") + ")"
}
