package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"

	"github.com/onecodex/taxonomy-time-machine/internal/types"
)

// EscapeFTSPhrase doubles internal quotes and wraps the term in a quoted
// phrase, the same transform as the original Python's _escape_fts_phrase:
// it is what lets a name containing punctuation or FTS5 operator characters
// (e.g. "h5n1" or a name with a hyphen) be searched as literal text instead
// of being parsed as FTS5 query syntax.
func EscapeFTSPhrase(term string) string {
	escaped := strings.ReplaceAll(term, `"`, `""`)
	return `"` + escaped + `"`
}

// PrefixFTSQuery builds a prefix query for term: an escaped phrase with a
// trailing unquoted '*', matching any indexed name that starts with term.
func PrefixFTSQuery(term string) string {
	return EscapeFTSPhrase(term) + "*"
}

func (s *Store) SearchFTS(ctx context.Context, ftsQuery string, limit int) ([]types.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE id IN (
			SELECT rowid FROM name_fts WHERE name_fts MATCH ?
		)
		ORDER BY length(name) ASC, version_date DESC
		LIMIT ?
	`, ftsQuery, limit)

	if err != nil {
		if isFTSSyntaxError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", types.ErrStorageError, err)
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning fts result: %v", types.ErrStorageError, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		if isFTSSyntaxError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", types.ErrStorageError, err)
	}
	return events, nil
}

// isFTSSyntaxError reports whether err is FTS5 rejecting the MATCH string as
// malformed query syntax, as opposed to any other storage failure. A
// malformed FTS5 query degrades to "no matches" rather than surfacing as a
// hard error — see spec §4.4 / §7.
func isFTSSyntaxError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "fts5: syntax error") || strings.Contains(msg, "malformed MATCH")
}

// RandomSpecies picks uniformly at random among every event ever recorded
// with rank 'species', matching the original's ungrouped
// "SELECT tax_id, name FROM taxonomy WHERE rank = 'species'" (spec §9 open
// question resolved in DESIGN.md): it does not restrict to each tax_id's
// latest event, so a taxon can be picked via a stale, since-superseded
// species-ranked event, and a taxon whose latest event is a Delete (rank
// NULL) is still eligible through an earlier species-ranked row.
func (s *Store) RandomSpecies(ctx context.Context) (types.Event, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM events WHERE rank = 'species'
	`).Scan(&total); err != nil {
		return types.Event{}, fmt.Errorf("%w: counting species: %v", types.ErrStorageError, err)
	}
	if total == 0 {
		return types.Event{}, types.ErrNotFound
	}

	offset := rand.Int63n(total)
	row := s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE rank = 'species'
		LIMIT 1 OFFSET ?
	`, offset)

	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return types.Event{}, types.ErrNotFound
	}
	if err != nil {
		return types.Event{}, fmt.Errorf("%w: selecting random species: %v", types.ErrStorageError, err)
	}
	return e, nil
}
