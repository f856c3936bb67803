package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dhakamart/verifyd/internal/verification/entity"
)

const queryGetUserByEmail = `
SELECT id, COALESCE(email, ''), COALESCE(phone, ''), email_verified_at, phone_verified_at
FROM users
WHERE email = ANY($1)
ORDER BY id
LIMIT 1`

const queryGetUserByPhone = `
SELECT id, COALESCE(email, ''), COALESCE(phone, ''), email_verified_at, phone_verified_at
FROM users
WHERE phone = ANY($1)
ORDER BY id
LIMIT 1`

func (s *DB) GetUserByIdentifier(ctx context.Context, idType entity.IdentifierType, variants []string) (_ entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByIdentifier")
	defer func() { s.endSpan(span, err) }()

	query := queryGetUserByEmail
	if idType == entity.IdentifierPhone {
		query = queryGetUserByPhone
	}

	var user entity.User
	err = s.conn.QueryRow(ctx, query, variants).Scan(
		&user.ID,
		&user.Email,
		&user.Phone,
		&user.EmailVerifiedAt,
		&user.PhoneVerifiedAt,
	)
	if err != nil {
		return entity.User{}, s.mapError(err)
	}

	return user, nil
}

const queryListActiveOtpCodes = `
SELECT id, user_id, code_hash, purpose, attempt_count, max_attempts, expires_at, created_at, consumed_at
FROM otp_codes
WHERE user_id = $1 AND consumed_at IS NULL AND expires_at > $2
ORDER BY created_at DESC`

func (s *DB) ListActiveOtpCodes(ctx context.Context, userID int64, now time.Time) (_ []entity.OtpCode, err error) {
	ctx, span := s.startSpan(ctx, "ListActiveOtpCodes")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, queryListActiveOtpCodes, userID, now)
	if err != nil {
		return nil, s.mapError(err)
	}

	return s.scanOtpCodes(rows)
}

const queryListConsumedOtpCodesSince = `
SELECT id, user_id, code_hash, purpose, attempt_count, max_attempts, expires_at, created_at, consumed_at
FROM otp_codes
WHERE user_id = $1 AND consumed_at IS NOT NULL AND consumed_at >= $2
ORDER BY consumed_at DESC`

func (s *DB) ListConsumedOtpCodesSince(ctx context.Context, userID int64, since time.Time) (_ []entity.OtpCode, err error) {
	ctx, span := s.startSpan(ctx, "ListConsumedOtpCodesSince")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, queryListConsumedOtpCodesSince, userID, since)
	if err != nil {
		return nil, s.mapError(err)
	}

	return s.scanOtpCodes(rows)
}

func (s *DB) scanOtpCodes(rows pgx.Rows) ([]entity.OtpCode, error) {
	defer rows.Close()

	var codes []entity.OtpCode
	for rows.Next() {
		var c entity.OtpCode
		if err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.CodeHash,
			&c.Purpose,
			&c.AttemptCount,
			&c.MaxAttempts,
			&c.ExpiresAt,
			&c.CreatedAt,
			&c.ConsumedAt,
		); err != nil {
			return nil, s.mapError(err)
		}
		codes = append(codes, c)
	}

	if err := rows.Err(); err != nil {
		return nil, s.mapError(err)
	}

	return codes, nil
}
