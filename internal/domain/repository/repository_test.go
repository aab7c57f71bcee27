package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var applicationCols = []string{
	"id", "scholarship_id", "scholarship_name", "university_name", "university_city",
	"university_country", "subject_category", "degree", "user_email", "user_name", "user_phone",
	"user_address", "application_fees", "service_charge", "application_status", "payment_status",
	"transaction_id", "feedback", "applied_at", "updated_at",
}

func applicationRow(id, owner, status string, txID interface{}) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(applicationCols).AddRow(
		id, "sch-1", "STEM Grant", "MIT", "Cambridge", "USA", "Engineering", "Masters",
		owner, "Jane", "", "", 50.0, 5.0, status, "unpaid", txID, "", now, now,
	)
}

func TestUserCreateDuplicateIsConflict(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &model.User{ID: "u1", Email: "a@x.com", Role: model.RoleStudent})

	assert.ErrorIs(t, err, common.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserFindByEmailNormalizesStoredRole(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "photo_url", "role", "created_at", "updated_at"}).
			AddRow("u1", "a@x.com", "A", "", "Admin", now, now))

	user, err := repo.FindByEmail(context.Background(), "a@x.com")

	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, user.Role)
}

func TestUserFindByEmailMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestStorageFailureIsWrapped(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.FindByEmail(context.Background(), "a@x.com")

	assert.ErrorIs(t, err, common.ErrStorage)
	assert.Equal(t, 503, common.HTTPStatusFromError(err))
}

func TestUserDeleteMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "u1"), common.ErrNotFound)
}

func TestScholarshipListBuildsFilters(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgScholarshipRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) FROM scholarships WHERE (scholarship_name ILIKE $1 OR university_name ILIKE $1 OR degree ILIKE $1) AND LOWER(scholarship_category) = LOWER($2)")).
		WithArgs("%50\\%%", "Full fund").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY posted_at DESC LIMIT $3 OFFSET $4")).
		WithArgs("%50\\%%", "Full fund", 10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	list, total, err := repo.List(context.Background(), model.ScholarshipFilter{
		Search: "50%", Category: "Full fund", Limit: 10, Offset: 20,
	})

	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScholarshipUpdateBumpsUpdatedAt(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgScholarshipRepository(db)
	name := "New name"

	mock.ExpectQuery(regexp.QuoteMeta(
		"UPDATE scholarships SET scholarship_name = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2")).
		WithArgs(name, "s1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(context.Background(), "s1", model.ScholarshipPatch{ScholarshipName: &name})

	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationUpdateIfPendingIsConditional(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgApplicationRepository(db)
	name := "Jane Doe"

	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE id = $2 AND user_email = $3 AND application_status = $4")).
		WithArgs(name, "a1", "jane@x.com", "pending").
		WillReturnRows(applicationRow("a1", "jane@x.com", "pending", nil))

	app, matched, err := repo.UpdateIfPending(context.Background(), "a1", "jane@x.com",
		model.ApplicationPatch{UserName: &name})

	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, "a1", app.ID)
	assert.Nil(t, app.TransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationUpdateIfPendingNoMatch(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgApplicationRepository(db)
	name := "Jane Doe"

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE applications SET")).
		WillReturnError(sql.ErrNoRows)

	app, matched, err := repo.UpdateIfPending(context.Background(), "a1", "jane@x.com",
		model.ApplicationPatch{UserName: &name})

	require.NoError(t, err)
	assert.False(t, matched)
	assert.Nil(t, app)
}

func TestApplicationCreateIdempotentReturnsExisting(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgApplicationRepository(db)
	tx := "pi_123"

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (transaction_id) DO NOTHING")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("FROM applications WHERE transaction_id = $1")).
		WithArgs(tx).
		WillReturnRows(applicationRow("winner", "jane@x.com", "paid", tx))

	app, created, err := repo.CreateIdempotent(context.Background(), &model.Application{
		ID: "loser", TransactionID: &tx, ApplicationStatus: model.ApplicationPaid,
	})

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "winner", app.ID)
	require.NotNil(t, app.TransactionID)
	assert.Equal(t, tx, *app.TransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationCreateIdempotentInserts(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgApplicationRepository(db)
	tx := "pi_456"

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (transaction_id) DO NOTHING")).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	app, created, err := repo.CreateIdempotent(context.Background(), &model.Application{ID: "a2", TransactionID: &tx})

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "a2", app.ID)
}

func TestApplicationDeleteOwned(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgApplicationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM applications WHERE id = $1 AND user_email = $2")).
		WithArgs("a1", "jane@x.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM applications WHERE id = $1 AND user_email = $2")).
		WithArgs("a1", "mallory@x.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.DeleteOwned(context.Background(), "a1", "jane@x.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DeleteOwned(context.Background(), "a1", "mallory@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReviewUpdateTouchesOnlyRatingAndComment(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgReviewRepository(db)
	rating := 4
	comment := "solid"

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE reviews SET rating_point = $1, review_comment = $2 WHERE id = $3")).
		WithArgs(rating, comment, "r1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "scholarship_id", "scholarship_name", "university_name", "user_email", "user_name",
			"user_image", "rating_point", "review_comment", "review_date",
		}).AddRow("r1", "s1", "STEM", "MIT", "a@x.com", "A", "", rating, comment, time.Now()))

	rv, err := repo.Update(context.Background(), "r1", model.ReviewPatch{RatingPoint: &rating, ReviewComment: &comment})

	require.NoError(t, err)
	assert.Equal(t, 4, rv.RatingPoint)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewListRecentUsesLimit(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgReviewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY review_date DESC LIMIT $1")).
		WithArgs(model.PublicReviewLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	list, err := repo.ListRecent(context.Background(), model.PublicReviewLimit)

	require.NoError(t, err)
	assert.Empty(t, list)
}
