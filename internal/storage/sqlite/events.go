package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"time"

	"github.com/onecodex/taxonomy-time-machine/internal/types"
)

func scanEvent(row interface {
	Scan(dest ...any) error
}) (types.Event, error) {
	var e types.Event
	var kind, taxID string
	var parentID, rank, name sql.NullString

	if err := row.Scan(&e.ID, &e.SourceID, &kind, &taxID, &parentID, &rank, &name, &e.VersionDate); err != nil {
		return types.Event{}, err
	}

	e.Kind = types.EventKind(kind)
	e.TaxID = types.TaxID(taxID)
	if parentID.Valid {
		p := types.TaxID(parentID.String)
		e.ParentID = &p
	}
	if rank.Valid {
		r := rank.String
		e.Rank = &r
	}
	if name.Valid {
		n := name.String
		e.Name = &n
	}
	return e, nil
}

const eventColumns = `id, source_id, event_kind, tax_id, parent_id, rank, name, version_date`

func (s *Store) EventsByTaxID(ctx context.Context, id types.TaxID) ([]types.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE tax_id = ? ORDER BY version_date ASC, id ASC`,
		string(id),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying events for tax_id=%s: %v", types.ErrStorageError, id, err)
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning event: %v", types.ErrStorageError, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Store) EventsByParentID(ctx context.Context, parent types.TaxID) ([]types.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE parent_id = ? ORDER BY version_date ASC, id ASC`,
		string(parent),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying events for parent_id=%s: %v", types.ErrStorageError, parent, err)
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning event: %v", types.ErrStorageError, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Store) MostRecentEventAsOf(ctx context.Context, id types.TaxID, asOf time.Time) (types.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE tax_id = ? AND version_date <= ?
		 ORDER BY version_date DESC, id DESC
		 LIMIT 1`,
		string(id), asOf,
	)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return types.Event{}, types.ErrNotFound
	}
	if err != nil {
		return types.Event{}, fmt.Errorf("%w: querying most recent event for tax_id=%s: %v", types.ErrStorageError, id, err)
	}
	return e, nil
}

func (s *Store) DistinctVersionDates(ctx context.Context, id types.TaxID) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT version_date FROM events WHERE tax_id = ? ORDER BY version_date ASC`,
		string(id),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying version dates for tax_id=%s: %v", types.ErrStorageError, id, err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("%w: scanning version date: %v", types.ErrStorageError, err)
		}
		dates = append(dates, t)
	}
	return dates, rows.Err()
}

func (s *Store) SearchExact(ctx context.Context, id types.TaxID) ([]types.Event, error) {
	return s.EventsByTaxID(ctx, id)
}

// IterMostRecentEvents yields, for every tax_id that has ever appeared in
// the log, its single most recent event (by version_date, then id). The
// ingester uses this on startup to rebuild last-known state without
// replaying the whole event log into memory event-by-event.
func (s *Store) IterMostRecentEvents(ctx context.Context) iter.Seq2[types.Event, error] {
	return func(yield func(types.Event, error) bool) {
		rows, err := s.db.QueryContext(ctx, `
			SELECT `+prefixColumns("e")+`
			FROM events e
			WHERE e.id = (
				SELECT e2.id
				FROM events e2
				WHERE e2.tax_id = e.tax_id
				ORDER BY e2.version_date DESC, e2.id DESC
				LIMIT 1
			)
		`)
		if err != nil {
			yield(types.Event{}, fmt.Errorf("%w: iterating most recent events: %v", types.ErrStorageError, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanEvent(rows)
			if err != nil {
				yield(types.Event{}, fmt.Errorf("%w: scanning event: %v", types.ErrStorageError, err))
				return
			}
			if !yield(e, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(types.Event{}, fmt.Errorf("%w: %v", types.ErrStorageError, err))
		}
	}
}

func prefixColumns(alias string) string {
	cols := []string{"id", "source_id", "event_kind", "tax_id", "parent_id", "rank", "name", "version_date"}
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += alias + "." + c
	}
	return out
}
