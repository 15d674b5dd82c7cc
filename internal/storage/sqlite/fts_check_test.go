package sqlite

import (
	"context"
	"testing"
)

// TestFTS5Availability confirms the pure-Go sqlite3 driver this package
// depends on was built with FTS5 support, the way the teacher's own
// fts_check_test.go confirms it for its sessions_fts table.
func TestFTS5Availability(t *testing.T) {
	ctx := context.Background()
	db, err := New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer db.Close()

	if _, err := db.db.ExecContext(ctx, `INSERT INTO events (source_id, event_kind, tax_id, rank, name, version_date)
		VALUES ('s1', 'create', '1', 'species', 'Homo sapiens', '2020-01-01')`); err != nil {
		t.Fatalf("inserting event: %v", err)
	}

	var n int
	if err := db.db.QueryRowContext(ctx, `SELECT count(*) FROM name_fts WHERE name_fts MATCH 'sapiens'`).Scan(&n); err != nil {
		t.Fatalf("fts5 match query failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 fts match, got %d", n)
	}
}

func TestEscapeFTSPhrase(t *testing.T) {
	cases := map[string]string{
		`h5n1`:        `"h5n1"`,
		`say "hi"`:    `"say ""hi"""`,
		`Homo sapiens`: `"Homo sapiens"`,
	}
	for in, want := range cases {
		if got := EscapeFTSPhrase(in); got != want {
			t.Errorf("EscapeFTSPhrase(%q) = %q, want %q", in, got, want)
		}
	}
}
