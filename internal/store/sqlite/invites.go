package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/patchouli-app/patchouli-server/internal/domain"
	"github.com/patchouli-app/patchouli-server/internal/store"
)

// inviteColumns is the ordered list of columns selected in invite queries.
// Must match the scan order in scanInvite.
const inviteColumns = `id, created_at, updated_at, deleted_at,
	code, issued_by, expires_at, redeemed_at, redeemed_by`

// scanInvite scans a sql.Row (or sql.Rows via its Scan method) into a domain.Invite.
func scanInvite(scanner interface{ Scan(dest ...any) error }) (*domain.Invite, error) {
	var inv domain.Invite

	var (
		createdAt  string
		updatedAt  string
		deletedAt  sql.NullString
		expiresAt  sql.NullString
		redeemedAt sql.NullString
		redeemedBy sql.NullString
	)

	err := scanner.Scan(
		&inv.ID,
		&createdAt,
		&updatedAt,
		&deletedAt,
		&inv.Code,
		&inv.IssuedBy,
		&expiresAt,
		&redeemedAt,
		&redeemedBy,
	)
	if err != nil {
		return nil, err
	}

	// Parse timestamps.
	inv.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	inv.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	inv.DeletedAt, err = parseNullableTime(deletedAt)
	if err != nil {
		return nil, err
	}
	inv.ExpiresAt, err = parseNullableTime(expiresAt)
	if err != nil {
		return nil, err
	}
	inv.RedeemedAt, err = parseNullableTime(redeemedAt)
	if err != nil {
		return nil, err
	}

	// Optional back-reference to the redeeming user.
	if redeemedBy.Valid {
		inv.RedeemedBy = redeemedBy.String
	}

	return &inv, nil
}

// CreateInvite inserts a new invite into the database.
// Returns store.ErrInviteCodeExists if the invite code already exists.
func (s *Store) CreateInvite(ctx context.Context, invite *domain.Invite) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invites (
			id, created_at, updated_at, deleted_at,
			code, issued_by, expires_at, redeemed_at, redeemed_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invite.ID,
		formatTime(invite.CreatedAt),
		formatTime(invite.UpdatedAt),
		nullTimeString(invite.DeletedAt),
		invite.Code,
		invite.IssuedBy,
		nullTimeString(invite.ExpiresAt),
		nullTimeString(invite.RedeemedAt),
		nullString(invite.RedeemedBy),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrInviteCodeExists
		}
		return err
	}
	return nil
}

// GetInvite retrieves an invite by ID, excluding soft-deleted records.
// Returns store.ErrInviteNotFound if the invite does not exist.
func (s *Store) GetInvite(ctx context.Context, id string) (*domain.Invite, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invites WHERE id = ? AND deleted_at IS NULL`, id)

	inv, err := scanInvite(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// GetInviteByCode retrieves an invite by its unique code, excluding soft-deleted records.
// Returns store.ErrInviteNotFound if the invite does not exist.
func (s *Store) GetInviteByCode(ctx context.Context, code string) (*domain.Invite, error) {
	return getInviteByCode(ctx, s.db, code)
}

func getInviteByCode(ctx context.Context, q dbtx, code string) (*domain.Invite, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invites WHERE code = ? AND deleted_at IS NULL`, code)

	inv, err := scanInvite(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// RedeemInvite marks the invite as used by the given user, atomically.
// The conditional UPDATE is the whole race: of any number of concurrent
// redeemers, exactly one affects a row. Losers are re-read to report
// whether the invite was expired, already used, or never existed.
func (s *Store) RedeemInvite(ctx context.Context, code, userID string, now time.Time) (*domain.Invite, error) {
	return redeemInvite(ctx, s.db, code, userID, now)
}

func redeemInvite(ctx context.Context, q dbtx, code, userID string, now time.Time) (*domain.Invite, error) {
	result, err := q.ExecContext(ctx, `
		UPDATE invites SET
			redeemed_at = ?,
			redeemed_by = ?,
			updated_at = ?
		WHERE code = ?
		  AND deleted_at IS NULL
		  AND redeemed_at IS NULL
		  AND (expires_at IS NULL OR expires_at > ?)`,
		formatTime(now),
		userID,
		formatTime(now),
		code,
		formatTime(now),
	)
	if err != nil {
		return nil, err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 1 {
		return getInviteByCode(ctx, q, code)
	}

	// Lost or invalid: re-read to find out why. Expiry is checked before
	// redemption, so an invite that is both reports expired.
	inv, err := getInviteByCode(ctx, q, code)
	if err != nil {
		return nil, err
	}
	if inv.IsExpired() {
		return nil, store.ErrInviteExpired
	}
	if inv.IsRedeemed() {
		return nil, store.ErrInviteAlreadyUsed
	}
	return nil, store.ErrInviteNotFound
}

// RegisterInvitedUser redeems the invite and creates the user in a single
// transaction. A failed create rolls the redemption back, so the code is
// only ever burned by the account it admitted. The invite's issuer is
// written to user.InvitedBy before the insert.
func (s *Store) RegisterInvitedUser(ctx context.Context, user *domain.User, code string, now time.Time) (*domain.Invite, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin register: %w", err)
	}
	defer tx.Rollback()

	inv, err := redeemInvite(ctx, tx, code, user.ID, now)
	if err != nil {
		return nil, err
	}

	user.InvitedBy = inv.IssuedBy
	if err := createUser(ctx, tx, user); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit register: %w", err)
	}
	return inv, nil
}

// ListInvitesByIssuer returns all non-deleted invites issued by a specific
// user, ordered by created_at descending.
func (s *Store) ListInvitesByIssuer(ctx context.Context, issuerID string) ([]*domain.Invite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+inviteColumns+` FROM invites
		WHERE issued_by = ? AND deleted_at IS NULL
		ORDER BY created_at DESC`,
		issuerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []*domain.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invites, nil
}

// DeleteInvite soft-deletes an invite by setting its deleted_at timestamp.
// This operation is idempotent.
func (s *Store) DeleteInvite(ctx context.Context, inviteID string) error {
	now := formatTime(time.Now().UTC())
	_, err := s.db.ExecContext(ctx, `
		UPDATE invites SET
			deleted_at = ?,
			updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		now, now, inviteID,
	)
	return err
}
