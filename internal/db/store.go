package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/versokit/verso/internal/errors"
	"github.com/versokit/verso/internal/state"
)

// Store is the snapshot store: the narrow persistence surface the engine
// talks to. It owns the commit transaction and the atomic current-flag flip;
// the engine never mutates is_current except through InsertCommit.
type Store struct {
	db *sql.DB
}

// NewStore wraps an initialized database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const versionColumns = `id, owner_raw, owner_norm, content_hash, message, author,
	tags_json, parent_id, is_current, created_at`

// InsertCommit persists a version, its full field set, and its change rows,
// then makes the version current, all in one transaction. The flag flip is a
// single UPDATE across the owner's versions, so either the whole commit is
// durable and current, or nothing is.
func (s *Store) InsertCommit(ctx context.Context, v *state.Version, fields []state.Field, changes []state.Change) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStore(err)
	}
	defer tx.Rollback()

	tagsJSON, err := marshalTags(v.Tags)
	if err != nil {
		return errors.NewInternal(err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO versions (
			id, owner_raw, owner_norm, content_hash, message, author,
			tags_json, parent_id, is_current, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
	`, v.ID, v.OwnerRaw, v.OwnerNorm, v.ContentHash, v.Message, v.Author,
		tagsJSON, toNullString(v.ParentID), v.CreatedAt)
	if err != nil {
		return errors.NewStore(err)
	}

	for _, f := range fields {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO fields (version_id, field_name, field_value, field_type, source, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, v.ID, f.Name, string(f.Value), string(f.Type), string(f.Source), f.UpdatedAt)
		if err != nil {
			return errors.NewStore(err)
		}
	}

	for _, c := range changes {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO changes (version_id, owner_norm, field_name, old_value, new_value, change_type, source, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, v.ID, v.OwnerNorm, c.FieldName, rawToNull(c.OldValue), rawToNull(c.NewValue),
			string(c.Type), string(c.Source), c.CreatedAt)
		if err != nil {
			return errors.NewStore(err)
		}
	}

	// Atomic flip under the transaction: demote first, then promote, so the
	// partial unique index on current versions is never transiently violated.
	_, err = tx.ExecContext(ctx, `
		UPDATE versions
		SET is_current = 0
		WHERE owner_norm = ? AND is_current = 1
	`, v.OwnerNorm)
	if err != nil {
		return errors.NewStore(err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE versions
		SET is_current = 1
		WHERE id = ?
	`, v.ID)
	if err != nil {
		return errors.NewStore(err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStore(err)
	}

	v.IsCurrent = true
	return nil
}

// Current returns the owner's current version. More than one current row is
// a fatal consistency error, never resolved by picking one.
func (s *Store) Current(ctx context.Context, ownerNorm string) (*state.Version, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+versionColumns+`
		FROM versions
		WHERE owner_norm = ? AND is_current = 1
		LIMIT 2
	`, ownerNorm)
	if err != nil {
		return nil, errors.NewStore(err)
	}
	defer rows.Close()

	var versions []*state.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, errors.NewStore(err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStore(err)
	}

	switch len(versions) {
	case 0:
		return nil, errors.NewNotFound(fmt.Sprintf("current version for owner %q", ownerNorm))
	case 1:
		return versions[0], nil
	default:
		return nil, errors.NewConsistency(fmt.Sprintf("owner %q has multiple current versions", ownerNorm))
	}
}

// Version retrieves a version by id.
func (s *Store) Version(ctx context.Context, id string) (*state.Version, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+`
		FROM versions
		WHERE id = ?
	`, id)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewStore(err)
	}
	return v, nil
}

// VersionAt returns the owner's version with the greatest created_at <= ts.
func (s *Store) VersionAt(ctx context.Context, ownerNorm string, ts int64) (*state.Version, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+`
		FROM versions
		WHERE owner_norm = ? AND created_at <= ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, ownerNorm, ts)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(fmt.Sprintf("no version for owner %q at or before %d", ownerNorm, ts))
	}
	if err != nil {
		return nil, errors.NewStore(err)
	}
	return v, nil
}

// Versions lists an owner's versions newest first, with the total count for
// pagination. History is created_at order across all versions, not the
// parent chain.
func (s *Store) Versions(ctx context.Context, ownerNorm string, limit, offset int) ([]state.Version, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM versions WHERE owner_norm = ?`, ownerNorm,
	).Scan(&total); err != nil {
		return nil, 0, errors.NewStore(err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+versionColumns+`
		FROM versions
		WHERE owner_norm = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, ownerNorm, limit, offset)
	if err != nil {
		return nil, 0, errors.NewStore(err)
	}
	defer rows.Close()

	var versions []state.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, 0, errors.NewStore(err)
		}
		versions = append(versions, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewStore(err)
	}
	return versions, total, nil
}

// Snapshot loads a version's complete field set.
func (s *Store) Snapshot(ctx context.Context, versionID string) (state.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT version_id, field_name, field_value, field_type, source, updated_at
		FROM fields
		WHERE version_id = ?
	`, versionID)
	if err != nil {
		return nil, errors.NewStore(err)
	}
	defer rows.Close()

	snapshot := make(state.Snapshot)
	for rows.Next() {
		var f state.Field
		var value, fieldType, source string
		if err := rows.Scan(&f.VersionID, &f.Name, &value, &fieldType, &source, &f.UpdatedAt); err != nil {
			return nil, errors.NewStore(err)
		}
		f.Value = json.RawMessage(value)
		f.Type = state.FieldType(fieldType)
		f.Source = state.Source(source)
		snapshot[f.Name] = f
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStore(err)
	}
	return snapshot, nil
}

// Changes lists the change rows written by one commit.
func (s *Store) Changes(ctx context.Context, versionID string) ([]state.Change, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, version_id, owner_norm, field_name, old_value, new_value, change_type, source, created_at
		FROM changes
		WHERE version_id = ?
		ORDER BY field_name
	`, versionID)
	if err != nil {
		return nil, errors.NewStore(err)
	}
	defer rows.Close()
	return collectChanges(rows)
}

// FieldChanges lists an owner's change rows for one field, newest first,
// optionally bounded to [from, to] (zero means unbounded).
func (s *Store) FieldChanges(ctx context.Context, ownerNorm, fieldName string, from, to int64, limit int) ([]state.Change, error) {
	query := `
		SELECT id, version_id, owner_norm, field_name, old_value, new_value, change_type, source, created_at
		FROM changes
		WHERE owner_norm = ? AND field_name = ?
	`
	args := []any{ownerNorm, fieldName}
	if from > 0 {
		query += " AND created_at >= ?"
		args = append(args, from)
	}
	if to > 0 {
		query += " AND created_at <= ?"
		args = append(args, to)
	}
	query += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewStore(err)
	}
	defer rows.Close()
	return collectChanges(rows)
}

// UpdateTags replaces a version's tag set. Tags are metadata: no change rows.
func (s *Store) UpdateTags(ctx context.Context, versionID string, tags []string) error {
	tagsJSON, err := marshalTags(tags)
	if err != nil {
		return errors.NewInternal(err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE versions SET tags_json = ? WHERE id = ?`, tagsJSON, versionID)
	if err != nil {
		return errors.NewStore(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStore(err)
	}
	if affected == 0 {
		return errors.NewNotFound(versionID)
	}
	return nil
}

// VersionCount counts an owner's versions.
func (s *Store) VersionCount(ctx context.Context, ownerNorm string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM versions WHERE owner_norm = ?`, ownerNorm).Scan(&n)
	if err != nil {
		return 0, errors.NewStore(err)
	}
	return n, nil
}

// ChangeCount counts an owner's change rows.
func (s *Store) ChangeCount(ctx context.Context, ownerNorm string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM changes WHERE owner_norm = ?`, ownerNorm).Scan(&n)
	if err != nil {
		return 0, errors.NewStore(err)
	}
	return n, nil
}

// TopFields returns the owner's most frequently changed fields.
func (s *Store) TopFields(ctx context.Context, ownerNorm string, n int) ([]state.FieldFrequency, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT field_name, COUNT(*) AS changes
		FROM changes
		WHERE owner_norm = ?
		GROUP BY field_name
		ORDER BY changes DESC, field_name
		LIMIT ?
	`, ownerNorm, n)
	if err != nil {
		return nil, errors.NewStore(err)
	}
	defer rows.Close()

	var freqs []state.FieldFrequency
	for rows.Next() {
		var f state.FieldFrequency
		if err := rows.Scan(&f.FieldName, &f.Changes); err != nil {
			return nil, errors.NewStore(err)
		}
		freqs = append(freqs, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStore(err)
	}
	return freqs, nil
}

// DailyCommits returns per-UTC-day commit counts since the given cutoff
// (Unix milliseconds), oldest day first. Days with no commits are omitted.
func (s *Store) DailyCommits(ctx context.Context, ownerNorm string, since int64) ([]state.DailyCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(created_at / 1000, 'unixepoch') AS day, COUNT(*) AS commits
		FROM versions
		WHERE owner_norm = ? AND created_at >= ?
		GROUP BY day
		ORDER BY day
	`, ownerNorm, since)
	if err != nil {
		return nil, errors.NewStore(err)
	}
	defer rows.Close()

	var counts []state.DailyCount
	for rows.Next() {
		var c state.DailyCount
		if err := rows.Scan(&c.Day, &c.Commits); err != nil {
			return nil, errors.NewStore(err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStore(err)
	}
	return counts, nil
}

// scanner abstracts *sql.Row and *sql.Rows for version scanning.
type scanner interface {
	Scan(dest ...any) error
}

// scanVersion scans a single row into a Version struct.
func scanVersion(row scanner) (*state.Version, error) {
	var (
		v         state.Version
		tagsJSON  sql.NullString
		parentID  sql.NullString
		isCurrent int
	)

	err := row.Scan(
		&v.ID, &v.OwnerRaw, &v.OwnerNorm, &v.ContentHash, &v.Message, &v.Author,
		&tagsJSON, &parentID, &isCurrent, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.IsCurrent = isCurrent == 1
	v.ShortHash = state.ShortHash(v.ContentHash)
	if parentID.Valid {
		v.ParentID = &parentID.String
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &v.Tags); err != nil {
			return nil, err
		}
	}

	return &v, nil
}

// collectChanges scans all rows into Change structs.
func collectChanges(rows *sql.Rows) ([]state.Change, error) {
	var changes []state.Change
	for rows.Next() {
		var (
			c        state.Change
			oldValue sql.NullString
			newValue sql.NullString
			cType    string
			source   string
		)
		if err := rows.Scan(&c.ID, &c.VersionID, &c.OwnerNorm, &c.FieldName,
			&oldValue, &newValue, &cType, &source, &c.CreatedAt); err != nil {
			return nil, errors.NewStore(err)
		}
		if oldValue.Valid {
			c.OldValue = json.RawMessage(oldValue.String)
		}
		if newValue.Valid {
			c.NewValue = json.RawMessage(newValue.String)
		}
		c.Type = state.ChangeType(cType)
		c.Source = state.Source(source)
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStore(err)
	}
	return changes, nil
}

// marshalTags encodes a tag list as nullable JSON.
func marshalTags(tags []string) (sql.NullString, error) {
	if len(tags) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// rawToNull converts raw JSON to a nullable string for storage.
func rawToNull(raw json.RawMessage) sql.NullString {
	if raw == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
