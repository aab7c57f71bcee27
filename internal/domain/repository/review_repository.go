package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"
)

// ReviewRepository lists are ordered newest first.
type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	FindByID(ctx context.Context, id string) (*model.Review, error)
	ListRecent(ctx context.Context, limit int) ([]model.Review, error)
	ListByScholarship(ctx context.Context, scholarshipID string) ([]model.Review, error)
	ListByUserEmail(ctx context.Context, email string) ([]model.Review, error)
	ListAll(ctx context.Context) ([]model.Review, error)
	Update(ctx context.Context, id string, patch model.ReviewPatch) (*model.Review, error)
	Delete(ctx context.Context, id string) error
}

type pgReviewRepository struct {
	db *sql.DB
}

func NewPgReviewRepository(db *sql.DB) ReviewRepository {
	return &pgReviewRepository{db: db}
}

const reviewColumns = `id, scholarship_id, scholarship_name, university_name, user_email, user_name,
	user_image, rating_point, review_comment, review_date`

func scanReview(row rowScanner) (*model.Review, error) {
	rv := &model.Review{}
	err := row.Scan(&rv.ID, &rv.ScholarshipID, &rv.ScholarshipName, &rv.UniversityName, &rv.UserEmail,
		&rv.UserName, &rv.UserImage, &rv.RatingPoint, &rv.ReviewComment, &rv.ReviewDate)
	if err != nil {
		return nil, err
	}
	return rv, nil
}

func (r *pgReviewRepository) Create(ctx context.Context, review *model.Review) error {
	query := `INSERT INTO reviews (id, scholarship_id, scholarship_name, university_name, user_email,
	              user_name, user_image, rating_point, review_comment, review_date)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query, review.ID, review.ScholarshipID, review.ScholarshipName,
		review.UniversityName, review.UserEmail, review.UserName, review.UserImage, review.RatingPoint,
		review.ReviewComment, review.ReviewDate)
	if err != nil {
		return common.StorageError("pgReviewRepository.Create", err)
	}
	return nil
}

func (r *pgReviewRepository) FindByID(ctx context.Context, id string) (*model.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`
	rv, err := scanReview(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.StorageError("pgReviewRepository.FindByID", err)
	}
	return rv, nil
}

func (r *pgReviewRepository) ListRecent(ctx context.Context, limit int) ([]model.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews ORDER BY review_date DESC LIMIT $1`
	return r.list(ctx, "pgReviewRepository.ListRecent", query, limit)
}

func (r *pgReviewRepository) ListByScholarship(ctx context.Context, scholarshipID string) ([]model.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE scholarship_id = $1 ORDER BY review_date DESC`
	return r.list(ctx, "pgReviewRepository.ListByScholarship", query, scholarshipID)
}

func (r *pgReviewRepository) ListByUserEmail(ctx context.Context, email string) ([]model.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE user_email = $1 ORDER BY review_date DESC`
	return r.list(ctx, "pgReviewRepository.ListByUserEmail", query, email)
}

func (r *pgReviewRepository) ListAll(ctx context.Context) ([]model.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews ORDER BY review_date DESC`
	return r.list(ctx, "pgReviewRepository.ListAll", query)
}

func (r *pgReviewRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]model.Review, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.StorageError(op, err)
	}
	defer rows.Close()

	reviews := []model.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, common.StorageError(op+" scan", err)
		}
		reviews = append(reviews, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StorageError(op+" rows", err)
	}
	return reviews, nil
}

// Update only ever touches rating and comment.
func (r *pgReviewRepository) Update(ctx context.Context, id string, patch model.ReviewPatch) (*model.Review, error) {
	var parts []assignment
	if patch.RatingPoint != nil {
		parts = append(parts, assignment{"rating_point", *patch.RatingPoint})
	}
	parts = addString(parts, "review_comment", patch.ReviewComment)
	if len(parts) == 0 {
		return r.FindByID(ctx, id)
	}

	var set string
	args := make([]interface{}, 0, len(parts)+1)
	for i, a := range parts {
		if i > 0 {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", a.column, i+1)
		args = append(args, a.value)
	}
	query := fmt.Sprintf(`UPDATE reviews SET %s WHERE id = $%d RETURNING %s`, set, len(parts)+1, reviewColumns)
	args = append(args, id)

	rv, err := scanReview(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.StorageError("pgReviewRepository.Update", err)
	}
	return rv, nil
}

func (r *pgReviewRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return common.StorageError("pgReviewRepository.Delete", err)
	}
	return requireAffected(res, "pgReviewRepository.Delete")
}
