package obs

import (
	"strings"
	"testing"
)

func TestSQLOperation(t *testing.T) {
	cases := map[string]string{
		"-- name: GetVoucherByCode :one\nSELECT 1":       "SELECT",
		"  insert into orders (id) values ($1)":          "INSERT",
		"WITH code AS (UPDATE x SET y = 1) UPDATE z SET": "WITH",
		"":                                               "QUERY",
		"-- only a comment":                              "QUERY",
	}
	for sql, want := range cases {
		if got := sqlOperation(sql); got != want {
			t.Fatalf("sqlOperation(%q) = %q, want %q", sql, got, want)
		}
	}
}

func TestTruncateSQL(t *testing.T) {
	long := strings.Repeat("a", maxStatementLen+10)
	if got := truncateSQL(long); len(got) != maxStatementLen+3 {
		t.Fatalf("expected truncated statement, got len %d", len(got))
	}
}
