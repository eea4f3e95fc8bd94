package notifications

import (
	"context"

	"github.com/rogertalk/roger-api-sub001/pkg/pg"
)

// PostgresDirectory reads accounts, blocks and devices from PostgreSQL.
type PostgresDirectory struct {
	db pg.Querier
}

// NewPostgresDirectory creates a directory using db.
func NewPostgresDirectory(db pg.Querier) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) Account(ctx context.Context, id int64) (*Account, error) {
	a := &Account{}
	err := d.db.QueryRow(ctx,
		`SELECT a.id, a.username, a.image_url, a.verified,
			COALESCE(array_agg(b.blocker_id) FILTER (WHERE b.blocker_id IS NOT NULL), '{}')
		FROM accounts a
		LEFT JOIN account_blocks b ON b.blocked_id = a.id
		WHERE a.id = $1
		GROUP BY a.id`,
		id,
	).Scan(&a.ID, &a.Username, &a.ImageURL, &a.Verified, &a.BlockedBy)
	if err != nil {
		return nil, mapError(err)
	}
	if a.BlockedBy == nil {
		a.BlockedBy = []int64{}
	}
	return a, nil
}

func (d *PostgresDirectory) Devices(ctx context.Context, ownerID int64) ([]Device, error) {
	rows, err := d.db.Query(ctx,
		`SELECT token, platform, app, environment, api_version, owner_id
		FROM devices WHERE owner_id = $1
		ORDER BY updated_at DESC LIMIT $2`,
		ownerID, MaxDevicesPerAccount,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []Device
	for rows.Next() {
		var dev Device
		if err := rows.Scan(&dev.Token, &dev.Platform, &dev.App, &dev.Environment, &dev.APIVersion, &dev.OwnerID); err != nil {
			return nil, mapError(err)
		}
		out = append(out, dev)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}
