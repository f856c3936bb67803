package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/dhakamart/verifyd/internal/pkg/goerror"
	"github.com/dhakamart/verifyd/internal/verification/entity"
)

const (
	queryAdvisoryLock = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`

	// Conditional on consumed_at so a concurrent consumer of the same row
	// loses the race cleanly instead of double-consuming.
	queryConsumeOtpCode = `
UPDATE otp_codes
SET consumed_at = $2
WHERE id = $1 AND consumed_at IS NULL`

	// Siblings are consumed and expired in one stroke; a retired sibling
	// behaves like any other consumed row from here on.
	queryExpireSiblings = `
UPDATE otp_codes
SET consumed_at = $2, expires_at = $2
WHERE id = ANY($1) AND consumed_at IS NULL`

	queryMarkEmailVerified = `
UPDATE users
SET email_verified_at = COALESCE(email_verified_at, $2)
WHERE id = $1`

	queryMarkPhoneVerified = `
UPDATE users
SET phone_verified_at = COALESCE(phone_verified_at, $2)
WHERE id = $1`
)

// ConsumeOtpCode marks the matched code consumed, expires its still-active
// siblings, and records the verified channel on the user, all in one
// transaction serialized per (user, purpose) by an advisory lock.
//
// goerror.ErrConflict means another transaction consumed the row first.
func (s *DB) ConsumeOtpCode(ctx context.Context, c entity.OtpConsumption) (err error) {
	ctx, span := s.startSpan(ctx, "ConsumeOtpCode")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rollback", "error", rErr)
		}
	}()

	lockKey := fmt.Sprintf("otp:%d:%s", c.UserID, c.EffectivePurpose)
	if _, err = tx.Exec(ctx, queryAdvisoryLock, lockKey); err != nil {
		return s.mapError(err)
	}

	tag, err := tx.Exec(ctx, queryConsumeOtpCode, c.CodeID, c.Now)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrConflict
	}

	if len(c.SiblingIDs) > 0 {
		if _, err = tx.Exec(ctx, queryExpireSiblings, c.SiblingIDs, c.Now); err != nil {
			return s.mapError(err)
		}
	}

	switch c.IdentifierType {
	case entity.IdentifierEmail:
		if _, err = tx.Exec(ctx, queryMarkEmailVerified, c.UserID, c.Now); err != nil {
			return s.mapError(err)
		}
	case entity.IdentifierPhone:
		if _, err = tx.Exec(ctx, queryMarkPhoneVerified, c.UserID, c.Now); err != nil {
			return s.mapError(err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return s.mapError(err)
	}

	return nil
}
