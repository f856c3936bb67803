package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/dhakamart/verifyd/internal/pkg/goerror"
	"github.com/dhakamart/verifyd/internal/pkg/hash"
	"github.com/dhakamart/verifyd/internal/pkg/strcase"
	"github.com/dhakamart/verifyd/internal/pkg/validator"
	"github.com/dhakamart/verifyd/internal/shared/event"
	"github.com/dhakamart/verifyd/internal/verification/entity"
)

// VerifyInput is the normalized verification request.
type VerifyInput struct {
	Identifier string `validate:"required"`
	Code       string `validate:"required,otpcode"`
	Purpose    string
}

// VerifyDebug carries match diagnostics, emitted only when Config.Debug is on.
type VerifyDebug struct {
	MatchedScheme    string `json:"matchedScheme,omitempty"`
	ActiveConsidered int    `json:"activeConsidered"`
	RecentConsidered int    `json:"recentConsidered"`
}

// VerifyOutput is the result of a successful verification.
type VerifyOutput struct {
	UserID         int64
	IdentifierType entity.IdentifierType
	Purpose        string
	Token          string
	TokenTTL       time.Duration
	Cookie         *http.Cookie
	Idempotent     bool
	Debug          *VerifyDebug
}

// Verify matches a submitted code against the user's issued codes, consumes
// the matched code exactly once, and mints a session token.
//
// A code consumed within the idempotency window is honored again without
// side effects, so a client retry of a request that already succeeded gets
// the same positive answer.
func (u *Usecase) Verify(ctx context.Context, in VerifyInput) (*VerifyOutput, error) {
	ctx, span := u.startSpan(ctx, "Usecase.Verify")
	defer span.End()

	if err := u.validator.Validate(in); err != nil {
		return nil, validationError(err)
	}

	ident, ok := entity.NormalizeIdentifier(in.Identifier)
	if !ok {
		return nil, goerror.NewInvalidFormat("Unrecognized identifier").
			WithReason(entity.ReasonInvalidIdentifier)
	}

	effective := effectivePurpose(in.Purpose)
	variants := identifierVariants(ident)
	reqPurposeKeys := purposeKeys(in.Purpose, effective)

	user, err := u.db.GetUserByIdentifier(ctx, ident.Type, variants)
	if err != nil {
		if errors.Is(err, goerror.ErrNotFound) {
			u.clearResendCooldown(ctx, effective, ident)
			return nil, goerror.NewBusiness("User not found", goerror.CodeNotFound).
				WithReason(entity.ReasonUserNotFound)
		}
		return nil, u.failServer(ctx, err, "verification: user lookup failed")
	}

	now := u.clock.Now()

	active, err := u.db.ListActiveOtpCodes(ctx, user.ID, now)
	if err != nil {
		return nil, u.failServer(ctx, err, "verification: active code lookup failed")
	}

	// The submitted purpose is a hard filter on live codes. A code issued for
	// password_change never satisfies a login verification.
	candidates := active
	if len(reqPurposeKeys) > 0 {
		candidates = lo.Filter(active, func(c entity.OtpCode, _ int) bool {
			return purposeMatches(c.Purpose, reqPurposeKeys)
		})
	}

	eligible := lo.Filter(candidates, func(c entity.OtpCode, _ int) bool {
		return !c.Exhausted()
	})

	for _, row := range eligible {
		msgs := messageCandidates(user.ID, variants, rowPurposeKeys(reqPurposeKeys, row.Purpose), in.Code)

		scheme, matched := matchRow(u.schemes, row.CodeHash, msgs)
		if !matched {
			continue
		}

		out, err := u.consumeAndIssue(ctx, user, ident, row, candidates, effective, now)
		if err != nil {
			return nil, err
		}
		if u.cfg.Debug {
			out.Debug = &VerifyDebug{MatchedScheme: scheme, ActiveConsidered: len(candidates)}
		}
		return out, nil
	}

	// A code consumed moments ago by a duplicate request is still a success.
	if out, found, err := u.replayRecent(ctx, user, ident, in.Code, reqPurposeKeys, effective, now, len(candidates)); err != nil {
		return nil, err
	} else if found {
		return out, nil
	}

	u.clearResendCooldown(ctx, effective, ident)

	if len(active) == 0 {
		return nil, goerror.NewBusiness("No active or recent code for this identifier", goerror.CodeGone).
			WithReason(entity.ReasonNotFoundOrExpired)
	}

	// The newest purpose-matched code absorbs the failed attempt. When the
	// submitted purpose matches no live row at all, the newest active row
	// absorbs it instead.
	pool := eligible
	if len(pool) == 0 && len(candidates) == 0 {
		pool = lo.Filter(active, func(c entity.OtpCode, _ int) bool {
			return !c.Exhausted()
		})
	}
	if len(pool) == 0 {
		return nil, maxAttemptsError()
	}

	target := pool[0]
	count, err := u.db.IncrementOtpAttempt(ctx, target.ID)
	if err != nil {
		return nil, u.failServer(ctx, err, "verification: attempt increment failed")
	}
	if target.MaxAttempts > 0 && count >= target.MaxAttempts {
		return nil, maxAttemptsError()
	}

	return nil, mismatchError(target.MaxAttempts - count)
}

func maxAttemptsError() error {
	return goerror.NewBusiness("Attempt limit reached", goerror.CodeTooManyRequest).
		WithReason(entity.ReasonMaxAttempts).
		WithExtra("attemptsLeft", 0).
		WithExtra("resendAllowedNow", true)
}

func mismatchError(left int32) error {
	if left < 0 {
		left = 0
	}
	return goerror.NewBusiness("Code does not match", goerror.CodeUnauthorized).
		WithReason(entity.ReasonMismatch).
		WithExtra("attemptsLeft", int(left)).
		WithExtra("resendAllowedNow", true)
}

// consumeAndIssue runs the consumption transaction for the matched row and
// mints the session token. A conflict means another request consumed the row
// first; the verification still succeeded, so the caller gets the idempotent
// variant of the same answer.
func (u *Usecase) consumeAndIssue(
	ctx context.Context,
	user entity.User,
	ident entity.Identifier,
	row entity.OtpCode,
	candidates []entity.OtpCode,
	effective string,
	now time.Time,
) (*VerifyOutput, error) {
	purpose := effective
	if purpose == "" {
		purpose = effectivePurpose(row.Purpose)
	}

	// Hygiene expiry is scoped to the matched row's effective purpose. With
	// no submitted purpose the candidate set spans every live flow, and a
	// login verification must not retire a pending password_change code.
	sibKeys := purposeKeys(row.Purpose, purpose)
	siblings := lo.FilterMap(candidates, func(c entity.OtpCode, _ int) (int64, bool) {
		return c.ID, c.ID != row.ID && purposeMatches(c.Purpose, sibKeys)
	})

	idempotent := false
	err := u.db.ConsumeOtpCode(ctx, entity.OtpConsumption{
		CodeID:           row.ID,
		UserID:           user.ID,
		EffectivePurpose: purpose,
		IdentifierType:   ident.Type,
		SiblingIDs:       siblings,
		Now:              now,
	})
	switch {
	case errors.Is(err, goerror.ErrConflict):
		idempotent = true
	case err != nil:
		return nil, u.failServer(ctx, err, "verification: code consumption failed")
	}

	token, ttl, err := u.session.Issue(user.ID, ident.Canonical, purpose, row.Remaining(now))
	if err != nil {
		return nil, u.failServer(ctx, err, "verification: session token issuance failed")
	}

	if !idempotent {
		u.publishVerified(ctx, user.ID, purpose, ident.Type, now)
	}
	u.clearResendCooldown(ctx, purpose, ident)

	return &VerifyOutput{
		UserID:         user.ID,
		IdentifierType: ident.Type,
		Purpose:        purpose,
		Token:          token,
		TokenTTL:       ttl,
		Cookie:         u.session.Cookie(token, ttl),
		Idempotent:     idempotent,
	}, nil
}

// replayRecent looks for the submitted code among recently consumed rows.
// The purpose filter does not apply here: the original success already
// decided the purpose, and a retry may arrive with a sloppier label.
func (u *Usecase) replayRecent(
	ctx context.Context,
	user entity.User,
	ident entity.Identifier,
	code string,
	reqPurposeKeys []string,
	effective string,
	now time.Time,
	activeConsidered int,
) (*VerifyOutput, bool, error) {
	if u.cfg.IdempotencyWindow <= 0 {
		return nil, false, nil
	}

	recent, err := u.db.ListConsumedOtpCodesSince(ctx, user.ID, now.Add(-u.cfg.IdempotencyWindow))
	if err != nil {
		return nil, false, u.failServer(ctx, err, "verification: consumed code lookup failed")
	}

	variants := identifierVariants(ident)

	for _, row := range recent {
		msgs := messageCandidates(user.ID, variants, rowPurposeKeys(reqPurposeKeys, row.Purpose), code)

		scheme, matched := matchRow(u.schemes, row.CodeHash, msgs)
		if !matched {
			continue
		}

		purpose := effective
		if purpose == "" {
			purpose = effectivePurpose(row.Purpose)
		}

		token, ttl, err := u.session.Issue(user.ID, ident.Canonical, purpose, row.Remaining(now))
		if err != nil {
			return nil, false, u.failServer(ctx, err, "verification: session token issuance failed")
		}

		u.clearResendCooldown(ctx, purpose, ident)

		out := &VerifyOutput{
			UserID:         user.ID,
			IdentifierType: ident.Type,
			Purpose:        purpose,
			Token:          token,
			TokenTTL:       ttl,
			Cookie:         u.session.Cookie(token, ttl),
			Idempotent:     true,
		}
		if u.cfg.Debug {
			out.Debug = &VerifyDebug{
				MatchedScheme:    scheme,
				ActiveConsidered: activeConsidered,
				RecentConsidered: len(recent),
			}
		}
		return out, true, nil
	}

	return nil, false, nil
}

func matchRow(schemes []hash.Scheme, stored string, msgs []string) (string, bool) {
	for _, m := range msgs {
		if name, ok := hash.MatchAny(schemes, stored, m); ok {
			return name, true
		}
	}
	return "", false
}

func (u *Usecase) publishVerified(ctx context.Context, userID int64, purpose string, idType entity.IdentifierType, now time.Time) {
	bg := context.WithoutCancel(ctx)
	u.goroutine.Go(bg, func(c context.Context) error {
		err := u.messaging.PublishOtpVerified(c, event.OtpVerified{
			EventID:        strconv.FormatInt(u.eventID.Generate(), 10),
			UserID:         userID,
			Purpose:        purpose,
			IdentifierType: idType.String(),
			VerifiedAt:     now,
		})
		if err != nil {
			slog.WarnContext(c, "verification: failed to publish verified event", "error", err)
		}
		return nil
	})
}

// clearResendCooldown releases the client-side resend timer on terminal
// outcomes, best effort.
func (u *Usecase) clearResendCooldown(ctx context.Context, purpose string, ident entity.Identifier) {
	bg := context.WithoutCancel(ctx)
	u.goroutine.Go(bg, func(c context.Context) error {
		ids := lo.Uniq([]string{ident.Canonical, ident.Raw})
		if err := u.cache.ClearResendCooldown(c, purpose, ids); err != nil {
			slog.WarnContext(c, "verification: failed to clear resend cooldown", "error", err)
		}
		return nil
	})
}

func (u *Usecase) failServer(ctx context.Context, err error, msg string) error {
	slog.ErrorContext(ctx, msg, "error", err)
	return goerror.NewServer(err).
		WithReason(entity.ReasonVerifyFailed).
		WithExtra("resendAllowedNow", true)
}

// validationError maps field failures onto the stable wire reasons the
// storefront expects for malformed submissions.
func validationError(err error) error {
	var ve validator.V10ValidationError
	if !errors.As(err, &ve) {
		return goerror.NewInvalidFormat().WithReason(entity.ReasonInvalidCode)
	}

	reason := entity.ReasonInvalidCode
	if _, ok := ve["identifier"]; ok {
		reason = entity.ReasonMissingIdentifier
	}

	return goerror.NewInvalidFormat().
		WithReason(reason).
		WithExtra("fields", ve.Values())
}

func effectivePurpose(raw string) string {
	if raw == "" {
		return ""
	}
	if p, ok := entity.NormalizePurpose(raw); ok {
		return p.String()
	}
	return strcase.ToLowerSnake(raw)
}
