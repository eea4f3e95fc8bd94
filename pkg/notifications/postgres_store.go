package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rogertalk/roger-api-sub001/pkg/pg"
)

const recordColumns = `id::text, recipient_id, type, properties, group_key, group_history_keys,
	group_count, seen, seen_at, created_at, updated_at, version`

// PostgresStore implements Store on the notifications table.
type PostgresStore struct {
	db pg.Querier
}

// NewPostgresStore creates a store using db, usually a *pgxpool.Pool.
func NewPostgresStore(db pg.Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, rec Record) (Record, error) {
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	if rec.ID == "" {
		return Record{}, ErrInvalidRecord
	}
	props, err := encodeProperties(rec.Properties)
	if err != nil {
		return Record{}, err
	}

	query := `INSERT INTO notifications (id, recipient_id, type, properties, group_key,
			group_history_keys, group_count, seen, seen_at, created_at, updated_at, version)
		VALUES ($1::uuid, $2, $3, $4::jsonb, $5, $6, $7, $8, $9, $10, $11, 1)
		ON CONFLICT (recipient_id, group_key) WHERE group_key IS NOT NULL DO NOTHING
		RETURNING ` + recordColumns

	row := s.db.QueryRow(ctx, query,
		rec.ID, rec.RecipientID, rec.Type, props, nullable(rec.GroupKey),
		nonNil(rec.GroupHistoryKeys), rec.GroupCount, rec.Seen, rec.SeenAt,
		rec.CreatedAt, rec.UpdatedAt,
	)
	out, err := scanRecord(row)
	if pg.IsNotFoundError(err) {
		return Record{}, ErrConflict
	}
	if pg.IsDuplicateKeyError(err) {
		return Record{}, ErrConflict
	}
	return out, mapError(err)
}

func (s *PostgresStore) FindGroup(ctx context.Context, recipientID int64, key string) (Record, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM notifications WHERE recipient_id = $1 AND group_key = $2`,
		recipientID, key,
	)
	out, err := scanRecord(row)
	return out, mapError(err)
}

func (s *PostgresStore) CompareAndSwap(ctx context.Context, rec Record) (Record, error) {
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	props, err := encodeProperties(rec.Properties)
	if err != nil {
		return Record{}, err
	}

	row := s.db.QueryRow(ctx,
		`UPDATE notifications
		SET type = $3, properties = $4::jsonb, group_history_keys = $5, group_count = $6,
			seen = $7, seen_at = $8, updated_at = $9, version = version + 1
		WHERE id = $1::uuid AND recipient_id = $2 AND version = $10
		RETURNING `+recordColumns,
		rec.ID, rec.RecipientID, rec.Type, props, nonNil(rec.GroupHistoryKeys),
		rec.GroupCount, rec.Seen, rec.SeenAt, rec.UpdatedAt, rec.Version,
	)
	out, err := scanRecord(row)
	if pg.IsNotFoundError(err) {
		// Either the row is gone or its version moved on.
		if _, getErr := s.Get(ctx, rec.RecipientID, rec.ID); errors.Is(getErr, ErrNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, ErrConflict
	}
	return out, mapError(err)
}

func (s *PostgresStore) Get(ctx context.Context, recipientID int64, id string) (Record, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM notifications WHERE recipient_id = $1 AND id::text = $2`,
		recipientID, id,
	)
	out, err := scanRecord(row)
	return out, mapError(err)
}

func (s *PostgresStore) List(ctx context.Context, recipientID int64, opts ListOptions) ([]Record, error) {
	var (
		where = []string{"recipient_id = $1"}
		args  = []any{recipientID}
	)
	if opts.OnlyUnseen {
		where = append(where, "NOT seen")
	}
	if len(opts.Types) > 0 {
		args = append(args, opts.Types)
		where = append(where, fmt.Sprintf("type = ANY($%d)", len(args)))
	}
	if opts.Since != nil {
		args = append(args, *opts.Since)
		where = append(where, fmt.Sprintf("updated_at > $%d", len(args)))
	}

	query := `SELECT ` + recordColumns + ` FROM notifications WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY updated_at DESC, id`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, mapError(err)
		}
		out = append(out, rec)
	}
	return out, mapError(rows.Err())
}

func (s *PostgresStore) CountUnseen(ctx context.Context, recipientID int64, window int) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM (
			SELECT seen FROM notifications WHERE recipient_id = $1
			ORDER BY updated_at DESC LIMIT $2
		) recent WHERE NOT seen`,
		recipientID, window,
	).Scan(&count)
	return count, mapError(err)
}

func (s *PostgresStore) MarkSeen(ctx context.Context, recipientID int64, t time.Time, ids ...string) (int, error) {
	query := `UPDATE notifications SET seen = TRUE, seen_at = $2, version = version + 1
		WHERE recipient_id = $1 AND NOT seen`
	args := []any{recipientID, t}
	if len(ids) > 0 {
		query += ` AND id::text = ANY($3)`
		args = append(args, ids)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, mapError(err)
	}
	return int(tag.RowsAffected()), nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec      Record
		props    []byte
		groupKey *string
	)
	err := row.Scan(&rec.ID, &rec.RecipientID, &rec.Type, &props, &groupKey, &rec.GroupHistoryKeys,
		&rec.GroupCount, &rec.Seen, &rec.SeenAt, &rec.CreatedAt, &rec.UpdatedAt, &rec.Version)
	if err != nil {
		return Record{}, err
	}
	if groupKey != nil {
		rec.GroupKey = *groupKey
	}
	if len(rec.GroupHistoryKeys) == 0 {
		rec.GroupHistoryKeys = nil
	}
	rec.Properties, err = decodeProperties(props)
	return rec, err
}

func encodeProperties(props map[string]any) (string, error) {
	if props == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return string(raw), nil
}

// decodeProperties keeps numbers as json.Number so 64-bit ids survive.
func decodeProperties(raw []byte) (map[string]any, error) {
	props := map[string]any{}
	if len(raw) == 0 {
		return props, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&props); err != nil {
		return nil, errors.Join(ErrTransient, err)
	}
	return props, nil
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case pg.IsNotFoundError(err):
		return ErrNotFound
	case errors.Is(err, ErrTransient), errors.Is(err, ErrInvalidRecord):
		return err
	default:
		return errors.Join(ErrTransient, err)
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}
