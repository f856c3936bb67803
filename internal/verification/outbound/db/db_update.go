package db

import "context"

const queryIncrementOtpAttempt = `
UPDATE otp_codes
SET attempt_count = attempt_count + 1
WHERE id = $1
RETURNING attempt_count`

func (s *DB) IncrementOtpAttempt(ctx context.Context, codeID int64) (_ int32, err error) {
	ctx, span := s.startSpan(ctx, "IncrementOtpAttempt")
	defer func() { s.endSpan(span, err) }()

	var count int32
	if err = s.conn.QueryRow(ctx, queryIncrementOtpAttempt, codeID).Scan(&count); err != nil {
		return 0, s.mapError(err)
	}

	return count, nil
}
