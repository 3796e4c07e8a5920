package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/live"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/roles"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/session"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const authSecret = "auth-flow-secret"

type recordingNotifier struct {
	mu      sync.Mutex
	changes []live.Change
}

func (n *recordingNotifier) Notify(_ context.Context, c live.Change) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, c)
}

func (n *recordingNotifier) users() []uuid.UUID {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []uuid.UUID
	for _, c := range n.changes {
		if c.Collection == UsersCollection {
			out = append(out, c.RecordID)
		}
	}
	return out
}

// staticVersions answers 1 for everyone; the ledger cache carries any
// advance made by the service under test.
type staticVersions struct{}

func (staticVersions) SessionVersion(context.Context, uuid.UUID) (int, error) { return 1, nil }

type fakeGoogle struct {
	identity *FederatedIdentity
	err      error
}

func (f fakeGoogle) Verify(context.Context, string) (*FederatedIdentity, error) {
	return f.identity, f.err
}

type authFixture struct {
	svc      *AuthService
	mock     sqlmock.Sqlmock
	hub      *session.Hub
	dir      *memoryDirectory
	resolver *roles.Resolver
	ledger   *session.Ledger
	changes  *recordingNotifier
}

func newAuthFixture(t *testing.T, google IdentityVerifier) *authFixture {
	t.Helper()
	db, mock := newMockDB(t)
	cfg := &config.Config{
		JWTSecret:        authSecret,
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: 24 * time.Hour,
	}
	f := &authFixture{
		mock:    mock,
		hub:     session.NewHub(),
		dir:     newMemoryDirectory(),
		ledger:  session.NewLedger(staticVersions{}, session.NewMemoryVersions(time.Minute)),
		changes: &recordingNotifier{},
	}
	f.resolver = roles.NewResolver(f.dir, roles.NewMemoryCache(time.Minute))
	f.svc = NewAuthService(db, cfg, google, f.hub, f.resolver, f.ledger, f.changes)
	return f
}

// watch opens a stream-like subscription for userID and records every
// auth state it receives.
func (f *authFixture) watch(t *testing.T, userID uuid.UUID) func() []*session.Session {
	t.Helper()
	var mu sync.Mutex
	var seen []*session.Session
	unsubscribe := f.hub.Source(userID, &session.Session{UserID: userID}).Subscribe(func(s *session.Session) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	t.Cleanup(unsubscribe)
	return func() []*session.Session {
		mu.Lock()
		defer mu.Unlock()
		return append([]*session.Session(nil), seen...)
	}
}

// primeRole resolves the user's role once so the cache holds it.
func (f *authFixture) primeRole(t *testing.T, userID uuid.UUID) {
	t.Helper()
	f.dir.users[userID] = &models.User{ID: userID, Role: "technician"}
	f.resolver.Resolve(context.Background(), userID)
	require.Equal(t, 1, f.dir.reads)
}

func (f *authFixture) roleReads() int {
	f.dir.mu.Lock()
	defer f.dir.mu.Unlock()
	return f.dir.reads
}

func (f *authFixture) expectRevoke() {
	f.mock.ExpectBegin()
	f.mock.ExpectExec(`UPDATE "refresh_tokens" SET "revoked"=`).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()
}

func (f *authFixture) expectStoreRefreshToken() {
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`INSERT INTO "refresh_tokens"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	f.mock.ExpectCommit()
}

func userColumns() []string {
	return []string{"id", "email", "password", "role", "google_user_id", "auth_provider", "session_version"}
}

func sessionVersionOf(t *testing.T, accessToken string) float64 {
	t.Helper()
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(accessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(authSecret), nil
	})
	require.NoError(t, err)
	sv, _ := claims["sv"].(float64)
	return sv
}

func TestLogoutKeepsSessionWhileAnotherTokenLives(t *testing.T) {
	f := newAuthFixture(t, nil)
	userID := uuid.New()
	f.primeRole(t, userID)
	seen := f.watch(t, userID)

	f.expectRevoke()
	f.mock.ExpectQuery(`SELECT count\(\*\) FROM "refresh_tokens"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := f.svc.Logout(context.Background(), userID, &dto.LogoutRequest{RefreshToken: "phone"})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	for _, s := range seen() {
		assert.NotNil(t, s, "no sign-out while another device is signed in")
	}
	f.resolver.Resolve(context.Background(), userID)
	assert.Equal(t, 1, f.roleReads(), "cached role kept")

	valid, err := f.ledger.Live(context.Background(), userID, 1)
	require.NoError(t, err)
	assert.True(t, valid, "access tokens stay valid")
}

func TestLogoutOfLastTokenSignsOut(t *testing.T) {
	f := newAuthFixture(t, nil)
	userID := uuid.New()
	f.primeRole(t, userID)
	seen := f.watch(t, userID)

	f.expectRevoke()
	f.mock.ExpectQuery(`SELECT count\(\*\) FROM "refresh_tokens"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	f.mock.ExpectBegin()
	f.mock.ExpectExec(`UPDATE "users" SET "session_version"=session_version \+ 1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()
	f.mock.ExpectQuery(`SELECT "id","session_version" FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_version"}).AddRow(userID.String(), 2))

	err := f.svc.Logout(context.Background(), userID, &dto.LogoutRequest{})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	states := seen()
	require.Len(t, states, 2)
	assert.Nil(t, states[1], "open streams hear the sign-out")

	f.resolver.Resolve(context.Background(), userID)
	assert.Equal(t, 2, f.roleReads(), "cached role dropped")

	valid, err := f.ledger.Live(context.Background(), userID, 1)
	require.NoError(t, err)
	assert.False(t, valid, "earlier access tokens are stranded")
}

func TestLogoutRevokeFailure(t *testing.T) {
	f := newAuthFixture(t, nil)

	f.mock.ExpectBegin()
	f.mock.ExpectExec(`UPDATE "refresh_tokens"`).WillReturnError(errors.New("db down"))
	f.mock.ExpectRollback()

	err := f.svc.Logout(context.Background(), uuid.New(), &dto.LogoutRequest{})
	require.Error(t, err)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRefreshRevokedToken(t *testing.T) {
	f := newAuthFixture(t, nil)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`SELECT \* FROM "refresh_tokens" WHERE token_hash = \$1 AND revoked = false`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	f.mock.ExpectRollback()
	f.expectRevoke()

	_, err := f.svc.Refresh(context.Background(), &dto.RefreshRequest{RefreshToken: "already-used"})
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t, nil)

	f.mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow(uuid.NewString(), "taken@example.com"))

	_, err := f.svc.Register(context.Background(), &dto.RegisterRequest{
		Email: "  Taken@Example.com ", Password: "longenough",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRegisterIssuesVersionedTokens(t *testing.T) {
	f := newAuthFixture(t, nil)

	f.mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	f.mock.ExpectCommit()
	f.expectStoreRefreshToken()

	resp, err := f.svc.Register(context.Background(), &dto.RegisterRequest{
		Email: "new@example.com", Password: "longenough", DisplayName: " New ",
	})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, float64(1), sessionVersionOf(t, resp.AccessToken))
	assert.Equal(t, "user", resp.User.Role)
	assert.Equal(t, []uuid.UUID{resp.User.ID}, f.changes.users(), "users stream hears the new profile")
}

func TestLoginBadCredentials(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("right-password"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("unknown email", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		f.mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := f.svc.Login(context.Background(), &dto.LoginRequest{Email: "ghost@example.com", Password: "whatever1"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		f.mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
			WillReturnRows(sqlmock.NewRows(userColumns()).
				AddRow(uuid.NewString(), "a@example.com", string(hash), "user", nil, "email", 1))

		_, err := f.svc.Login(context.Background(), &dto.LoginRequest{Email: "a@example.com", Password: "wrong-password"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("google-only account", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		f.mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
			WillReturnRows(sqlmock.NewRows(userColumns()).
				AddRow(uuid.NewString(), "g@example.com", "", "user", "sub-1", "google", 1))

		_, err := f.svc.Login(context.Background(), &dto.LoginRequest{Email: "g@example.com", Password: "anything1"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestDeleteAccountSignsOut(t *testing.T) {
	f := newAuthFixture(t, nil)
	userID := uuid.New()
	f.primeRole(t, userID)
	seen := f.watch(t, userID)

	hash, err := bcrypt.GenerateFromPassword([]byte("right-password"), bcrypt.MinCost)
	require.NoError(t, err)

	f.mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow(userID.String(), "a@example.com", string(hash), "technician", nil, "email", 3))
	f.mock.ExpectBegin()
	f.mock.ExpectExec(`DELETE FROM "refresh_tokens" WHERE user_id = \$1`).WillReturnResult(sqlmock.NewResult(0, 2))
	f.mock.ExpectExec(`DELETE FROM "users"`).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	require.NoError(t, f.svc.DeleteAccount(context.Background(), userID, "right-password"))
	require.NoError(t, f.mock.ExpectationsWereMet())

	states := seen()
	require.NotEmpty(t, states)
	assert.Nil(t, states[len(states)-1])

	f.resolver.Resolve(context.Background(), userID)
	assert.Equal(t, 2, f.roleReads())

	valid, err := f.ledger.Live(context.Background(), userID, 3)
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Equal(t, []uuid.UUID{userID}, f.changes.users())
}

func TestDeleteAccountChecksPassword(t *testing.T) {
	f := newAuthFixture(t, nil)
	userID := uuid.New()
	hash, err := bcrypt.GenerateFromPassword([]byte("right-password"), bcrypt.MinCost)
	require.NoError(t, err)

	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows(userColumns()).
			AddRow(userID.String(), "a@example.com", string(hash), "user", nil, "email", 1)
	}
	f.mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).WillReturnRows(rows())
	f.mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).WillReturnRows(rows())

	assert.ErrorIs(t, f.svc.DeleteAccount(context.Background(), userID, ""), ErrPasswordRequired)
	assert.ErrorIs(t, f.svc.DeleteAccount(context.Background(), userID, "nope-nope"), ErrInvalidCredentials)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGoogleSignIn(t *testing.T) {
	identity := &FederatedIdentity{
		Subject: "google-sub", Email: "Field@Example.com", EmailVerified: true,
		Name: "Field Tech", Picture: "https://example.com/p.png",
	}

	t.Run("disabled", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		_, err := f.svc.GoogleSignIn(context.Background(), &dto.GoogleSignInRequest{IDToken: "x"})
		assert.ErrorIs(t, err, ErrGoogleDisabled)
	})

	t.Run("rejected token", func(t *testing.T) {
		f := newAuthFixture(t, fakeGoogle{err: errors.New("bad signature")})
		_, err := f.svc.GoogleSignIn(context.Background(), &dto.GoogleSignInRequest{IDToken: "x"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unverified email", func(t *testing.T) {
		unverified := *identity
		unverified.EmailVerified = false
		f := newAuthFixture(t, fakeGoogle{identity: &unverified})
		_, err := f.svc.GoogleSignIn(context.Background(), &dto.GoogleSignInRequest{IDToken: "x"})
		assert.ErrorIs(t, err, ErrUnverifiedEmail)
	})

	t.Run("first sign-in creates the profile", func(t *testing.T) {
		f := newAuthFixture(t, fakeGoogle{identity: identity})
		f.mock.ExpectQuery(`SELECT \* FROM "users" WHERE \(google_user_id = \$1 OR email = \$2\)`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(`INSERT INTO "users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
		f.mock.ExpectCommit()
		f.expectStoreRefreshToken()

		resp, err := f.svc.GoogleSignIn(context.Background(), &dto.GoogleSignInRequest{IDToken: "x"})
		require.NoError(t, err)
		require.NoError(t, f.mock.ExpectationsWereMet())
		assert.True(t, resp.User.IsGoogleUser)
		assert.Equal(t, "field@example.com", resp.User.Email)
		assert.Equal(t, "Field Tech", resp.User.DisplayName)
		assert.Equal(t, float64(1), sessionVersionOf(t, resp.AccessToken))
		assert.Len(t, f.changes.users(), 1)
	})

	t.Run("links an existing email account", func(t *testing.T) {
		f := newAuthFixture(t, fakeGoogle{identity: identity})
		existing := uuid.New()
		f.mock.ExpectQuery(`SELECT \* FROM "users" WHERE \(google_user_id = \$1 OR email = \$2\)`).
			WillReturnRows(sqlmock.NewRows(userColumns()).
				AddRow(existing.String(), "field@example.com", "hash", "technician", nil, "email", 4))
		f.mock.ExpectBegin()
		f.mock.ExpectExec(`UPDATE "users" SET .*"google_user_id"=`).WillReturnResult(sqlmock.NewResult(0, 1))
		f.mock.ExpectCommit()
		f.expectStoreRefreshToken()

		resp, err := f.svc.GoogleSignIn(context.Background(), &dto.GoogleSignInRequest{IDToken: "x"})
		require.NoError(t, err)
		require.NoError(t, f.mock.ExpectationsWereMet())
		assert.Equal(t, existing, resp.User.ID)
		assert.Equal(t, "technician", resp.User.Role)
		assert.Equal(t, "https://example.com/p.png", resp.User.PhotoURL)
		assert.Equal(t, float64(4), sessionVersionOf(t, resp.AccessToken), "linking keeps the session")
		assert.Empty(t, f.changes.users())
	})
}
