// Package notifications persists per-recipient notification records and
// exposes the account and device views the event hub needs.
//
// # Architecture
//
//   - Store persists Records. MemoryStore serves tests and development;
//     PostgresStore uses pgx/v5 with the schema in Migrations.
//   - Directory reads accounts, block lists and devices owned by other
//     services (MemoryDirectory, PostgresDirectory).
//   - GroupedWriter folds grouped records into the single record of their
//     (recipient, group key) with optimistic compare-and-swap.
//   - Repository combines the three for the hub's fan-out pipeline.
//   - Manager serves recipients: listing records and marking them seen.
//
// # Grouping
//
// A record with a GroupKey never creates a second row for the same
// recipient. Properties listed in GroupHistoryKeys become lists, newest
// first, deduplicated on the first history key and capped at
// MaxGroupHistory entries. Every merge makes the record unseen again and
// bumps its GroupCount:
//
//	rec := notifications.Record{
//	    RecipientID:      42,
//	    Type:             "account-follow",
//	    GroupKey:         "2024-01-02",
//	    GroupHistoryKeys: []string{"follower_id", "follower_image_url"},
//	    Properties:       map[string]any{"follower_id": int64(7)},
//	}
//	saved, err := repo.PutNotification(ctx, rec)
//
// # Errors
//
// Storage failures are reported as ErrTransient, missing entities as
// ErrNotFound. ErrConflict only escapes the package joined with
// ErrTransient after the merge attempts are exhausted.
package notifications
