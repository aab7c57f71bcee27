package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type ScholarshipRepository interface {
	Create(ctx context.Context, s *model.Scholarship) error
	FindByID(ctx context.Context, id string) (*model.Scholarship, error)
	List(ctx context.Context, filter model.ScholarshipFilter) ([]model.Scholarship, int, error)
	Update(ctx context.Context, id string, patch model.ScholarshipPatch) (*model.Scholarship, error)
	Delete(ctx context.Context, id string) error
}

type pgScholarshipRepository struct {
	db *sql.DB
}

func NewPgScholarshipRepository(db *sql.DB) ScholarshipRepository {
	return &pgScholarshipRepository{db: db}
}

const scholarshipColumns = `id, slug, scholarship_name, university_name, university_image, university_country,
	university_city, university_world_rank, subject_category, scholarship_category, degree,
	tuition_fees, application_fees, service_charge, application_deadline, description,
	posted_user_email, posted_at, updated_at`

func scanScholarship(row rowScanner) (*model.Scholarship, error) {
	s := &model.Scholarship{}
	err := row.Scan(
		&s.ID, &s.Slug, &s.ScholarshipName, &s.UniversityName, &s.UniversityImage, &s.UniversityCountry,
		&s.UniversityCity, &s.UniversityWorldRank, &s.SubjectCategory, &s.ScholarshipCategory, &s.Degree,
		&s.TuitionFees, &s.ApplicationFees, &s.ServiceCharge, &s.ApplicationDeadline, &s.Description,
		&s.PostedUserEmail, &s.PostedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *pgScholarshipRepository) Create(ctx context.Context, s *model.Scholarship) error {
	query := `INSERT INTO scholarships (id, slug, scholarship_name, university_name, university_image,
	              university_country, university_city, university_world_rank, subject_category,
	              scholarship_category, degree, tuition_fees, application_fees, service_charge,
	              application_deadline, description, posted_user_email, posted_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	          RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		s.ID, s.Slug, s.ScholarshipName, s.UniversityName, s.UniversityImage,
		s.UniversityCountry, s.UniversityCity, s.UniversityWorldRank, s.SubjectCategory,
		s.ScholarshipCategory, s.Degree, s.TuitionFees, s.ApplicationFees, s.ServiceCharge,
		s.ApplicationDeadline, s.Description, s.PostedUserEmail, s.PostedAt,
	).Scan(&s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for slug
			return fmt.Errorf("scholarship with this slug already exists: %w", common.ErrConflict)
		}
		return common.StorageError("pgScholarshipRepository.Create", err)
	}
	return nil
}

func (r *pgScholarshipRepository) FindByID(ctx context.Context, id string) (*model.Scholarship, error) {
	query := `SELECT ` + scholarshipColumns + ` FROM scholarships WHERE id = $1`
	s, err := scanScholarship(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.StorageError("pgScholarshipRepository.FindByID", err)
	}
	return s, nil
}

// List builds the search/filter query dynamically, the same way for the page
// and the total count.
func (r *pgScholarshipRepository) List(ctx context.Context, filter model.ScholarshipFilter) ([]model.Scholarship, int, error) {
	var conditions []string
	var args []interface{}
	argID := 1

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(scholarship_name ILIKE $%d OR university_name ILIKE $%d OR degree ILIKE $%d)", argID, argID, argID))
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		argID++
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(scholarship_category) = LOWER($%d)", argID))
		args = append(args, filter.Category)
		argID++
	}
	if filter.Country != "" {
		conditions = append(conditions, fmt.Sprintf("university_country ILIKE $%d", argID))
		args = append(args, "%"+escapeLike(filter.Country)+"%")
		argID++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM scholarships` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, common.StorageError("pgScholarshipRepository.List count", err)
	}

	var query strings.Builder
	query.WriteString(`SELECT ` + scholarshipColumns + ` FROM scholarships`)
	query.WriteString(whereClause)
	query.WriteString(" ORDER BY posted_at DESC")
	if filter.Limit > 0 {
		query.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1))
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, 0, common.StorageError("pgScholarshipRepository.List query", err)
	}
	defer rows.Close()

	scholarships := []model.Scholarship{}
	for rows.Next() {
		s, err := scanScholarship(rows)
		if err != nil {
			return nil, 0, common.StorageError("pgScholarshipRepository.List scan", err)
		}
		scholarships = append(scholarships, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, common.StorageError("pgScholarshipRepository.List rows", err)
	}
	return scholarships, total, nil
}

func (r *pgScholarshipRepository) Update(ctx context.Context, id string, patch model.ScholarshipPatch) (*model.Scholarship, error) {
	set, args, argID := setClause(scholarshipAssignments(patch), 1)
	query := fmt.Sprintf(`UPDATE scholarships SET %s WHERE id = $%d RETURNING %s`, set, argID, scholarshipColumns)
	args = append(args, id)

	s, err := scanScholarship(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.StorageError("pgScholarshipRepository.Update", err)
	}
	return s, nil
}

func (r *pgScholarshipRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scholarships WHERE id = $1`, id)
	if err != nil {
		return common.StorageError("pgScholarshipRepository.Delete", err)
	}
	return requireAffected(res, "pgScholarshipRepository.Delete")
}

func scholarshipAssignments(p model.ScholarshipPatch) []assignment {
	var out []assignment
	out = addString(out, "scholarship_name", p.ScholarshipName)
	out = addString(out, "university_name", p.UniversityName)
	out = addString(out, "university_image", p.UniversityImage)
	out = addString(out, "university_country", p.UniversityCountry)
	out = addString(out, "university_city", p.UniversityCity)
	if p.UniversityWorldRank != nil {
		out = append(out, assignment{"university_world_rank", *p.UniversityWorldRank})
	}
	out = addString(out, "subject_category", p.SubjectCategory)
	out = addString(out, "scholarship_category", p.ScholarshipCategory)
	out = addString(out, "degree", p.Degree)
	out = addFloat(out, "tuition_fees", p.TuitionFees)
	out = addFloat(out, "application_fees", p.ApplicationFees)
	out = addFloat(out, "service_charge", p.ServiceCharge)
	if p.ApplicationDeadline != nil {
		out = append(out, assignment{"application_deadline", *p.ApplicationDeadline})
	}
	out = addString(out, "description", p.Description)
	return out
}

// escapeLike keeps user input from acting as LIKE wildcards.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
