package verificationcodes

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func codeRows(c *models.VerificationCode) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "purpose", "code", "expires_at", "used", "created_at", "updated_at"}).
		AddRow(c.ID, c.UserID, string(c.Purpose), c.Code, c.ExpiresAt, c.Used, c.CreatedAt, c.UpdatedAt)
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+verification_codes\s*\(user_id,\s*purpose,\s*code,\s*expires_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+id,\s*created_at,\s*updated_at\s*$`

	now := time.Now()
	expires := now.Add(time.Minute)
	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now)
	mock.ExpectQuery(q).
		WithArgs(int64(1), models.PurposeRegister, "123456", expires).
		WillReturnRows(rows)

	c := &models.VerificationCode{UserID: 1, Purpose: models.PurposeRegister, Code: "123456", ExpiresAt: expires}
	got, err := repo.Create(context.Background(), c)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 7 {
		t.Fatalf("unexpected code: %+v", got)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+verification_codes`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.VerificationCode{UserID: 1, Purpose: models.PurposeRegister, Code: "123456"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetLatestUnused_FiltersUsed(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.*\s+FROM\s+verification_codes\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+purpose\s*=\s*\$2\s+AND\s+used\s*=\s*FALSE\s+ORDER\s+BY\s+created_at\s+DESC\s+LIMIT\s+1\s*$`

	want := &models.VerificationCode{
		ID: 7, UserID: 1, Purpose: models.PurposeRegister, Code: "123456",
		ExpiresAt: time.Now().Add(time.Minute), CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	mock.ExpectQuery(q).WithArgs(int64(1), models.PurposeRegister).WillReturnRows(codeRows(want))

	got, err := repo.GetLatestUnused(context.Background(), 1, models.PurposeRegister)
	if err != nil {
		t.Fatalf("GetLatestUnused error: %v", err)
	}
	if got.ID != 7 || got.Code != "123456" || got.Used {
		t.Fatalf("unexpected code: %+v", got)
	}
}

func TestGetLatest_IncludesUsed(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.*\s+FROM\s+verification_codes\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+purpose\s*=\s*\$2\s+ORDER\s+BY\s+created_at\s+DESC\s+LIMIT\s+1\s*$`

	want := &models.VerificationCode{
		ID: 7, UserID: 1, Purpose: models.PurposeRegister, Code: "123456", Used: true,
		ExpiresAt: time.Now(), CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	mock.ExpectQuery(q).WithArgs(int64(1), models.PurposeRegister).WillReturnRows(codeRows(want))

	got, err := repo.GetLatest(context.Background(), 1, models.PurposeRegister)
	if err != nil {
		t.Fatalf("GetLatest error: %v", err)
	}
	if !got.Used {
		t.Fatalf("expected used row to be returned, got %+v", got)
	}
}

func TestGetLatestUnused_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM verification_codes`).
		WithArgs(int64(1), models.PurposeRegister).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetLatestUnused(context.Background(), 1, models.PurposeRegister)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestRefresh_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+verification_codes\s+SET\s+code\s*=\s*\$2,\s*expires_at\s*=\s*\$3,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s*$`

	expires := time.Now().Add(time.Minute)
	mock.ExpectExec(q).WithArgs(int64(7), "654321", expires).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Refresh(context.Background(), 7, "654321", expires); err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
}

func TestRefresh_NoRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+verification_codes\s+SET\s+code`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Refresh(context.Background(), 9, "654321", time.Now())
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestMarkUsed_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+verification_codes\s+SET\s+used\s*=\s*TRUE,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s*$`

	mock.ExpectExec(q).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkUsed(context.Background(), 7); err != nil {
		t.Fatalf("MarkUsed error: %v", err)
	}
}

func TestMarkUsed_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+verification_codes\s+SET\s+used`).
		WillReturnError(errors.New("db down"))

	err := repo.MarkUsed(context.Background(), 7)
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
