package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dhakamart/verifyd/internal/pkg/clock"
	"github.com/dhakamart/verifyd/internal/pkg/goerror"
	"github.com/dhakamart/verifyd/internal/pkg/goroutine"
	"github.com/dhakamart/verifyd/internal/pkg/instrument"
	"github.com/dhakamart/verifyd/internal/pkg/sessiontoken"
	"github.com/dhakamart/verifyd/internal/pkg/validator"
	"github.com/dhakamart/verifyd/internal/shared/event"
	"github.com/dhakamart/verifyd/internal/verification/entity"
)

const testSecret = "verify-test-secret"

func hmacHex(msg string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

type fakeDB struct {
	mu sync.Mutex

	user    entity.User
	userErr error

	active   []entity.OtpCode
	consumed []entity.OtpCode

	consumeErr error

	userLookups  int
	activeLookup bool
	consumedIDs  []entity.OtpConsumption
	incremented  []int64
}

func (f *fakeDB) GetUserByIdentifier(_ context.Context, _ entity.IdentifierType, _ []string) (entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userLookups++
	if f.userErr != nil {
		return entity.User{}, f.userErr
	}
	return f.user, nil
}

func (f *fakeDB) ListActiveOtpCodes(_ context.Context, _ int64, _ time.Time) ([]entity.OtpCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activeLookup = true
	return f.active, nil
}

func (f *fakeDB) ListConsumedOtpCodesSince(_ context.Context, _ int64, since time.Time) ([]entity.OtpCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.OtpCode
	for _, c := range f.consumed {
		if c.ConsumedAt != nil && !c.ConsumedAt.Before(since) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeDB) IncrementOtpAttempt(_ context.Context, codeID int64) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incremented = append(f.incremented, codeID)
	for i := range f.active {
		if f.active[i].ID == codeID {
			f.active[i].AttemptCount++
			return f.active[i].AttemptCount, nil
		}
	}
	return 0, goerror.ErrNotFound
}

func (f *fakeDB) ConsumeOtpCode(_ context.Context, c entity.OtpConsumption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.consumeErr != nil {
		return f.consumeErr
	}
	f.consumedIDs = append(f.consumedIDs, c)
	return nil
}

type fakeCache struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeCache) ClearResendCooldown(context.Context, string, []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

type fakeMQ struct {
	mu     sync.Mutex
	events []event.OtpVerified
}

func (f *fakeMQ) PublishOtpVerified(_ context.Context, ev event.OtpVerified) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

type seqID struct{ n int64 }

func (s *seqID) Generate() int64 {
	s.n++
	return s.n
}

type fixture struct {
	uc    *Usecase
	db    *fakeDB
	cache *fakeCache
	mq    *fakeMQ
	mgr   *goroutine.Manager
	now   time.Time
}

func newFixture(t *testing.T, db *fakeDB) *fixture {
	t.Helper()

	v10, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}

	now := time.Now()
	issuer, err := sessiontoken.NewIssuer(sessiontoken.Config{
		Secret:    []byte("session-secret"),
		MaxTTL:    5 * time.Minute,
		Clock:     clock.Static{T: now},
		SessionID: &seqSID{},
	})
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}

	fc := &fakeCache{}
	fm := &fakeMQ{}
	mgr := goroutine.NewManager(8)

	uc := New(Dependency{
		Config: Config{
			Secret:            testSecret,
			SessionMaxTTL:     5 * time.Minute,
			IdempotencyWindow: 2 * time.Minute,
		},
		Validator: v10,
		DB:        db,
		Cache:     fc,
		Messaging: fm,
		Clock:     clock.Static{T: now},
		Session:   issuer,
		EventID:   &seqID{},
		Goroutine: mgr,
		Telemetry: instrument.NewNoop(),
	})

	return &fixture{uc: uc, db: db, cache: fc, mq: fm, mgr: mgr, now: now}
}

type seqSID struct{ n int }

func (s *seqSID) Generate() string {
	s.n++
	return "sid"
}

func reasonOf(t *testing.T, err error) (string, int) {
	t.Helper()
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("error %v is not a structured error", err)
	}
	return gerr.Reason(), gerr.StatusCode()
}

func extrasOf(t *testing.T, err error) map[string]any {
	t.Helper()
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("error %v is not a structured error", err)
	}
	return gerr.Extras()
}

func testUser() entity.User {
	return entity.User{ID: 101, Phone: "8801712345678"}
}

func activeCode(id int64, purpose, storedHash string, now time.Time) entity.OtpCode {
	return entity.OtpCode{
		ID:           id,
		UserID:       101,
		CodeHash:     storedHash,
		Purpose:      purpose,
		AttemptCount: 0,
		MaxAttempts:  5,
		ExpiresAt:    now.Add(90 * time.Second),
		CreatedAt:    now.Add(-time.Minute),
	}
}

func TestVerifySuccess(t *testing.T) {
	// Arrange
	db := &fakeDB{user: testUser()}
	f := newFixture(t, db)
	db.active = []entity.OtpCode{
		activeCode(1, "login", hmacHex("8801712345678:login:123456"), f.now),
	}

	// Act
	out, err := f.uc.Verify(context.Background(), VerifyInput{
		Identifier: "01712345678",
		Code:       "123456",
		Purpose:    "login",
	})

	// Assert
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if out.UserID != 101 {
		t.Fatalf("user id = %d", out.UserID)
	}
	if out.Purpose != "login" {
		t.Fatalf("purpose = %q", out.Purpose)
	}
	if out.IdentifierType != entity.IdentifierPhone {
		t.Fatalf("identifier type = %s", out.IdentifierType)
	}
	if out.Idempotent {
		t.Fatal("fresh consumption reported as idempotent")
	}
	if out.Token == "" || out.Cookie == nil {
		t.Fatal("missing session token or cookie")
	}
	if out.TokenTTL != 90*time.Second {
		t.Fatalf("ttl = %v, want 90s", out.TokenTTL)
	}
	if out.Cookie.Name != sessiontoken.CookieName {
		t.Fatalf("cookie name = %q", out.Cookie.Name)
	}

	if len(db.consumedIDs) != 1 || db.consumedIDs[0].CodeID != 1 {
		t.Fatalf("consumption = %+v", db.consumedIDs)
	}
	if len(db.incremented) != 0 {
		t.Fatal("success must not burn an attempt")
	}

	if err := f.mgr.Wait(); err != nil {
		t.Fatalf("async tasks: %v", err)
	}
	if len(f.mq.events) != 1 || f.mq.events[0].UserID != 101 || f.mq.events[0].Purpose != "login" {
		t.Fatalf("events = %+v", f.mq.events)
	}
	if f.cache.calls == 0 {
		t.Fatal("resend cooldown was not cleared")
	}
}

func TestVerifySuccessExpiresSiblings(t *testing.T) {
	db := &fakeDB{user: testUser()}
	f := newFixture(t, db)
	db.active = []entity.OtpCode{
		activeCode(3, "login", hmacHex("8801712345678:login:999999"), f.now),
		activeCode(2, "login", hmacHex("8801712345678:login:123456"), f.now),
		activeCode(9, "password_change", hmacHex("x"), f.now),
	}

	out, err := f.uc.Verify(context.Background(), VerifyInput{
		Identifier: "01712345678",
		Code:       "123456",
		Purpose:    "login",
	})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if out.UserID != 101 {
		t.Fatalf("user id = %d", out.UserID)
	}

	if len(db.consumedIDs) != 1 {
		t.Fatalf("consumption = %+v", db.consumedIDs)
	}
	cons := db.consumedIDs[0]
	if cons.CodeID != 2 {
		t.Fatalf("consumed code = %d, want 2", cons.CodeID)
	}
	// Only the purpose-matched sibling expires; the password_change code is
	// someone else's live flow.
	if len(cons.SiblingIDs) != 1 || cons.SiblingIDs[0] != 3 {
		t.Fatalf("sibling ids = %v, want [3]", cons.SiblingIDs)
	}
}

func TestVerifyIdempotentReplay(t *testing.T) {
	db := &fakeDB{user: testUser()}
	f := newFixture(t, db)
	consumedAt := f.now.Add(-30 * time.Second)
	db.consumed = []entity.OtpCode{{
		ID:          7,
		UserID:      101,
		CodeHash:    hmacHex("8801712345678:login:123456"),
		Purpose:     "login",
		MaxAttempts: 5,
		ExpiresAt:   f.now.Add(time.Minute),
		CreatedAt:   f.now.Add(-2 * time.Minute),
		ConsumedAt:  &consumedAt,
	}}

	out, err := f.uc.Verify(context.Background(), VerifyInput{
		Identifier: "01712345678",
		Code:       "123456",
		Purpose:    "login",
	})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !out.Idempotent {
		t.Fatal("replay must be flagged idempotent")
	}
	if out.Token == "" {
		t.Fatal("replay must still carry a session token")
	}

	if len(db.consumedIDs) != 0 {
		t.Fatal("replay must not consume again")
	}
	if len(db.incremented) != 0 {
		t.Fatal("replay must not burn an attempt")
	}

	if err := f.mgr.Wait(); err != nil {
		t.Fatalf("async tasks: %v", err)
	}
	if len(f.mq.events) != 0 {
		t.Fatal("replay must not publish a second event")
	}
}

func TestVerifyConcurrentConsumptionIsIdempotent(t *testing.T) {
	db := &fakeDB{user: testUser(), consumeErr: goerror.ErrConflict}
	f := newFixture(t, db)
	db.active = []entity.OtpCode{
		activeCode(1, "login", hmacHex("8801712345678:login:123456"), f.now),
	}

	out, err := f.uc.Verify(context.Background(), VerifyInput{
		Identifier: "01712345678",
		Code:       "123456",
		Purpose:    "login",
	})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !out.Idempotent {
		t.Fatal("losing the consumption race must yield the idempotent answer")
	}

	if err := f.mgr.Wait(); err != nil {
		t.Fatalf("async tasks: %v", err)
	}
	if len(f.mq.events) != 0 {
		t.Fatal("the race loser must not publish an event")
	}
}

func TestVerifyMismatchBurnsAttempt(t *testing.T) {
	db := &fakeDB{user: testUser()}
	f := newFixture(t, db)
	db.active = []entity.OtpCode{
		activeCode(1, "login", hmacHex("8801712345678:login:123456"), f.now),
	}

	_, err := f.uc.Verify(context.Background(), VerifyInput{
		Identifier: "01712345678",
		Code:       "654321",
		Purpose:    "login",
	})

	reason, status := reasonOf(t, err)
	if reason != entity.ReasonMismatch {
		t.Fatalf("reason = %q", reason)
	}
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d", status)
	}
	if len(db.incremented) != 1 || db.incremented[0] != 1 {
		t.Fatalf("incremented = %v", db.incremented)
	}
	extras := extrasOf(t, err)
	if extras["attemptsLeft"] != 4 {
		t.Fatalf("attemptsLeft = %v, want 4", extras["attemptsLeft"])
	}
	if extras["resendAllowedNow"] != true {
		t.Fatalf("resendAllowedNow = %v", extras["resendAllowedNow"])
	}

	// Each further wrong code decreases the remaining budget.
	_, err = f.uc.Verify(context.Background(), VerifyInput{
		Identifier: "01712345678",
		Code:       "654321",
		Purpose:    "login",
	})
	if extras = extrasOf(t, err); extras["attemptsLeft"] != 3 {
		t.Fatalf("attemptsLeft = %v, want 3", extras["attemptsLeft"])
	}
}

func TestVerifyLockout(t *testing.T) {
	t.Run("attempt ceiling reached by this failure", func(t *testing.T) {
		db := &fakeDB{user: testUser()}
		f := newFixture(t, db)
		row := activeCode(1, "login", hmacHex("8801712345678:login:123456"), f.now)
		row.AttemptCount = 4
		db.active = []entity.OtpCode{row}

		_, err := f.uc.Verify(context.Background(), VerifyInput{
			Identifier: "01712345678",
			Code:       "000000",
			Purpose:    "login",
		})

		reason, status := reasonOf(t, err)
		if reason != entity.ReasonMaxAttempts {
			t.Fatalf("reason = %q", reason)
		}
		if status != http.StatusTooManyRequests {
			t.Fatalf("status = %d", status)
		}
		extras := extrasOf(t, err)
		if extras["attemptsLeft"] != 0 {
			t.Fatalf("attemptsLeft = %v, want 0", extras["attemptsLeft"])
		}
		if extras["resendAllowedNow"] != true {
			t.Fatalf("resendAllowedNow = %v", extras["resendAllowedNow"])
		}
	})

	t.Run("correct code after lockout stays locked", func(t *testing.T) {
		db := &fakeDB{user: testUser()}
		f := newFixture(t, db)
		row := activeCode(1, "login", hmacHex("8801712345678:login:123456"), f.now)
		row.AttemptCount = 5
		db.active = []entity.OtpCode{row}

		_, err := f.uc.Verify(context.Background(), VerifyInput{
			Identifier: "01712345678",
			Code:       "123456",
			Purpose:    "login",
		})

		reason, _ := reasonOf(t, err)
		if reason != entity.ReasonMaxAttempts {
			t.Fatalf("reason = %q, want lockout to hold against the correct code", reason)
		}
		if extras := extrasOf(t, err); extras["attemptsLeft"] != 0 {
			t.Fatalf("attemptsLeft = %v, want 0", extras["attemptsLeft"])
		}
		if len(db.consumedIDs) != 0 {
			t.Fatal("exhausted code must never be consumed")
		}
		if len(db.incremented) != 0 {
			t.Fatal("exhausted code must not accrue further attempts")
		}
	})
}

func TestVerifyUserNotFound(t *testing.T) {
	db := &fakeDB{userErr: goerror.ErrNotFound}
	f := newFixture(t, db)

	_, err := f.uc.Verify(context.Background(), VerifyInput{
		Identifier: "01712345678",
		Code:       "123456",
		Purpose:    "login",
	})

	reason, status := reasonOf(t, err)
	if reason != entity.ReasonUserNotFound {
		t.Fatalf("reason = %q", reason)
	}
	if status != http.StatusNotFound {
		t.Fatalf("status = %d", status)
	}
	if db.activeLookup {
		t.Fatal("unknown user must not reach the code store")
	}
}

func TestVerifyNotFoundOrExpired(t *testing.T) {
	db := &fakeDB{user: testUser()}
	f := newFixture(t, db)

	_, err := f.uc.Verify(context.Background(), VerifyInput{
		Identifier: "01712345678",
		Code:       "123456",
		Purpose:    "login",
	})

	reason, status := reasonOf(t, err)
	if reason != entity.ReasonNotFoundOrExpired {
		t.Fatalf("reason = %q", reason)
	}
	if status != http.StatusGone {
		t.Fatalf("status = %d", status)
	}
}

func TestVerifyPurposeIsHardFilter(t *testing.T) {
	db := &fakeDB{user: testUser()}
	f := newFixture(t, db)
	// The stored hash matches the submitted code, but the purpose does not.
	db.active = []entity.OtpCode{
		activeCode(1, "password_change", hmacHex("8801712345678:password_change:123456"), f.now),
	}

	_, err := f.uc.Verify(context.Background(), VerifyInput{
		Identifier: "01712345678",
		Code:       "123456",
		Purpose:    "login",
	})

	reason, status := reasonOf(t, err)
	if reason != entity.ReasonMismatch {
		t.Fatalf("reason = %q", reason)
	}
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d", status)
	}
	if len(db.consumedIDs) != 0 {
		t.Fatal("cross-purpose code must never be consumed")
	}
	// With no purpose-matched row, the newest active row absorbs the attempt.
	if len(db.incremented) != 1 || db.incremented[0] != 1 {
		t.Fatalf("incremented = %v, want [1]", db.incremented)
	}
	if extras := extrasOf(t, err); extras["attemptsLeft"] != 4 {
		t.Fatalf("attemptsLeft = %v, want 4", extras["attemptsLeft"])
	}
}

func TestVerifyExhaustedFallbackIsLockout(t *testing.T) {
	db := &fakeDB{user: testUser()}
	f := newFixture(t, db)
	// One cross-purpose row, already exhausted.
	row := activeCode(1, "password_change", hmacHex("x"), f.now)
	row.AttemptCount = 5
	db.active = []entity.OtpCode{row}

	_, err := f.uc.Verify(context.Background(), VerifyInput{
		Identifier: "01712345678",
		Code:       "123456",
		Purpose:    "login",
	})

	reason, _ := reasonOf(t, err)
	if reason != entity.ReasonMaxAttempts {
		t.Fatalf("reason = %q, exhausted rows still exist so this is a lockout, not gone", reason)
	}
	if len(db.incremented) != 0 {
		t.Fatalf("incremented = %v", db.incremented)
	}
}

func TestVerifyOmittedPurposeScopesSiblings(t *testing.T) {
	db := &fakeDB{user: testUser()}
	f := newFixture(t, db)
	db.active = []entity.OtpCode{
		activeCode(3, "login", hmacHex("8801712345678:login:999999"), f.now),
		activeCode(2, "login", hmacHex("8801712345678:login:123456"), f.now),
		activeCode(9, "password_change", hmacHex("x"), f.now),
	}

	// No purpose submitted, so every active row is a match candidate.
	out, err := f.uc.Verify(context.Background(), VerifyInput{
		Identifier: "01712345678",
		Code:       "123456",
	})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if out.Purpose != "login" {
		t.Fatalf("purpose = %q, want the matched row's", out.Purpose)
	}

	if len(db.consumedIDs) != 1 || db.consumedIDs[0].CodeID != 2 {
		t.Fatalf("consumption = %+v", db.consumedIDs)
	}
	// Only the same-purpose sibling retires; the password_change code is
	// someone else's live flow.
	if sibs := db.consumedIDs[0].SiblingIDs; len(sibs) != 1 || sibs[0] != 3 {
		t.Fatalf("sibling ids = %v, want [3]", sibs)
	}
}

func TestVerifyPurposeAliasesMatch(t *testing.T) {
	db := &fakeDB{user: testUser()}
	f := newFixture(t, db)
	// Row written by an older release under a legacy label.
	db.active = []entity.OtpCode{
		activeCode(1, "password_reset", hmacHex("8801712345678:password_reset:123456"), f.now),
	}

	out, err := f.uc.Verify(context.Background(), VerifyInput{
		Identifier: "01712345678",
		Code:       "123456",
		Purpose:    "ChangePassword",
	})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if out.Purpose != "password_change" {
		t.Fatalf("purpose = %q, want canonical password_change", out.Purpose)
	}
}

func TestVerifyValidation(t *testing.T) {
	t.Run("missing identifier", func(t *testing.T) {
		f := newFixture(t, &fakeDB{})

		_, err := f.uc.Verify(context.Background(), VerifyInput{Code: "123456"})

		reason, status := reasonOf(t, err)
		if reason != entity.ReasonMissingIdentifier {
			t.Fatalf("reason = %q", reason)
		}
		if status != http.StatusBadRequest {
			t.Fatalf("status = %d", status)
		}
	})

	t.Run("code not six digits", func(t *testing.T) {
		f := newFixture(t, &fakeDB{})

		_, err := f.uc.Verify(context.Background(), VerifyInput{
			Identifier: "01712345678",
			Code:       "12ab56",
		})

		reason, status := reasonOf(t, err)
		if reason != entity.ReasonInvalidCode {
			t.Fatalf("reason = %q", reason)
		}
		if status != http.StatusBadRequest {
			t.Fatalf("status = %d", status)
		}
	})

	t.Run("unrecognized identifier", func(t *testing.T) {
		f := newFixture(t, &fakeDB{})

		_, err := f.uc.Verify(context.Background(), VerifyInput{
			Identifier: "12345",
			Code:       "123456",
		})

		reason, status := reasonOf(t, err)
		if reason != entity.ReasonInvalidIdentifier {
			t.Fatalf("reason = %q", reason)
		}
		if status != http.StatusBadRequest {
			t.Fatalf("status = %d", status)
		}
	})
}

func TestVerifyLegacyHashTemplates(t *testing.T) {
	cases := []struct {
		name   string
		stored string
	}{
		{"bare code", hmacHex("123456")},
		{"user id prefixed", hmacHex("101:123456")},
		{"swapped order", hmacHex("login:8801712345678:123456")},
		{"pipe separated", hmacHex("8801712345678|login|123456")},
		{"raw legacy row", "123456"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := &fakeDB{user: testUser()}
			f := newFixture(t, db)
			db.active = []entity.OtpCode{activeCode(1, "login", tc.stored, f.now)}

			out, err := f.uc.Verify(context.Background(), VerifyInput{
				Identifier: "01712345678",
				Code:       "123456",
				Purpose:    "login",
			})
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if out.UserID != 101 {
				t.Fatalf("user id = %d", out.UserID)
			}
		})
	}
}
