package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	usersrepo "github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	codesrepo "github.com/dmitrijs2005/authkeeper/internal/server/repositories/verificationcodes"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// --- helpers ---

// setupDB returns an in-memory DB that only has to support Begin/Commit:
// the fake repositories below never touch it.
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:services_tests?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(4)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                   "k",
		AccessTokenValidityDuration: time.Hour,
		CodeValidityDuration:        time.Minute,
	}
}

// --- fake users repository ---

type fakeUsersRepo struct {
	byID       map[int64]*models.User
	byEmail    map[string]*models.User
	byUsername map[string]*models.User

	nextID int64

	created         []*models.User
	verifiedIDs     []int64
	passwordUpdates map[int64]string

	createErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{
		byID:            map[int64]*models.User{},
		byEmail:         map[string]*models.User{},
		byUsername:      map[string]*models.User{},
		nextID:          1,
		passwordUpdates: map[int64]string{},
	}
}

func (f *fakeUsersRepo) add(u *models.User) *models.User {
	if u.ID == 0 {
		u.ID = f.nextID
		f.nextID++
	}
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now()
	}
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u
	f.byUsername[u.Username] = u
	return u
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, u)
	return f.add(u), nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if u, ok := f.byUsername[username]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) SetVerified(ctx context.Context, id int64) error {
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Verified = true
	f.verifiedIDs = append(f.verifiedIDs, id)
	return nil
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Password = hash
	f.passwordUpdates[id] = hash
	return nil
}

// --- fake verification codes repository ---

type fakeCodesRepo struct {
	latest *models.VerificationCode

	nextID int64

	created       []*models.VerificationCode
	refreshCalls  int
	markUsedCalls int

	lookupErr error
}

func newFakeCodesRepo() *fakeCodesRepo {
	return &fakeCodesRepo{nextID: 100}
}

func (f *fakeCodesRepo) Create(ctx context.Context, code *models.VerificationCode) (*models.VerificationCode, error) {
	code.ID = f.nextID
	f.nextID++
	now := time.Now()
	code.CreatedAt = now
	code.UpdatedAt = now
	f.created = append(f.created, code)
	f.latest = code
	return code, nil
}

func (f *fakeCodesRepo) GetLatest(ctx context.Context, userID int64, purpose models.CodePurpose) (*models.VerificationCode, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if f.latest == nil || f.latest.UserID != userID || f.latest.Purpose != purpose {
		return nil, common.ErrorNotFound
	}
	c := *f.latest
	return &c, nil
}

func (f *fakeCodesRepo) GetLatestUnused(ctx context.Context, userID int64, purpose models.CodePurpose) (*models.VerificationCode, error) {
	c, err := f.GetLatest(ctx, userID, purpose)
	if err != nil {
		return nil, err
	}
	if c.Used {
		return nil, common.ErrorNotFound
	}
	return c, nil
}

func (f *fakeCodesRepo) Refresh(ctx context.Context, id int64, code string, expiresAt time.Time) error {
	if f.latest == nil || f.latest.ID != id {
		return common.ErrorNotFound
	}
	f.refreshCalls++
	f.latest.Code = code
	f.latest.ExpiresAt = expiresAt
	f.latest.UpdatedAt = time.Now()
	return nil
}

func (f *fakeCodesRepo) MarkUsed(ctx context.Context, id int64) error {
	if f.latest == nil || f.latest.ID != id {
		return common.ErrorNotFound
	}
	f.markUsedCalls++
	f.latest.Used = true
	f.latest.UpdatedAt = time.Now()
	return nil
}

// --- fake repository manager ---

type fakeRepoManager struct {
	users *fakeUsersRepo
	codes *fakeCodesRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{users: newFakeUsersRepo(), codes: newFakeCodesRepo()}
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (f *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository { return f.users }

func (f *fakeRepoManager) VerificationCodes(dbx.DBTX) codesrepo.Repository { return f.codes }
