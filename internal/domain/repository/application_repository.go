package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"
)

// ApplicationRepository stores applications. The owner-facing mutations are
// single conditional statements; callers classify a miss with FindByID.
type ApplicationRepository interface {
	Create(ctx context.Context, app *model.Application) error
	// CreateIdempotent inserts app unless an application with the same
	// transaction id exists. It returns the stored application and whether
	// this call created it.
	CreateIdempotent(ctx context.Context, app *model.Application) (*model.Application, bool, error)
	FindByID(ctx context.Context, id string) (*model.Application, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*model.Application, error)
	List(ctx context.Context) ([]model.Application, error)
	ListByUserEmail(ctx context.Context, email string) ([]model.Application, error)
	Update(ctx context.Context, id string, patch model.ApplicationPatch) (*model.Application, error)
	// UpdateIfPending applies patch only when the application belongs to owner
	// and is still pending. matched is false when no row satisfied both.
	UpdateIfPending(ctx context.Context, id, owner string, patch model.ApplicationPatch) (app *model.Application, matched bool, err error)
	DeleteOwned(ctx context.Context, id, owner string) (bool, error)
}

type pgApplicationRepository struct {
	db *sql.DB
}

func NewPgApplicationRepository(db *sql.DB) ApplicationRepository {
	return &pgApplicationRepository{db: db}
}

const applicationColumns = `id, scholarship_id, scholarship_name, university_name, university_city,
	university_country, subject_category, degree, user_email, user_name, user_phone, user_address,
	application_fees, service_charge, application_status, payment_status, transaction_id, feedback,
	applied_at, updated_at`

func scanApplication(row rowScanner) (*model.Application, error) {
	app := &model.Application{}
	var status, paymentStatus string
	var txID sql.NullString
	err := row.Scan(
		&app.ID, &app.ScholarshipID, &app.ScholarshipName, &app.UniversityName, &app.UniversityCity,
		&app.UniversityCountry, &app.SubjectCategory, &app.Degree, &app.UserEmail, &app.UserName,
		&app.UserPhone, &app.UserAddress, &app.ApplicationFees, &app.ServiceCharge, &status,
		&paymentStatus, &txID, &app.Feedback, &app.AppliedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	app.ApplicationStatus = model.ApplicationStatus(status)
	app.PaymentStatus = model.PaymentStatus(paymentStatus)
	if txID.Valid {
		app.TransactionID = &txID.String
	}
	return app, nil
}

const insertApplication = `INSERT INTO applications (id, scholarship_id, scholarship_name, university_name,
	university_city, university_country, subject_category, degree, user_email, user_name, user_phone,
	user_address, application_fees, service_charge, application_status, payment_status, transaction_id,
	feedback, applied_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

func insertArgs(app *model.Application) []interface{} {
	return []interface{}{
		app.ID, app.ScholarshipID, app.ScholarshipName, app.UniversityName,
		app.UniversityCity, app.UniversityCountry, app.SubjectCategory, app.Degree, app.UserEmail,
		app.UserName, app.UserPhone, app.UserAddress, app.ApplicationFees, app.ServiceCharge,
		string(app.ApplicationStatus), string(app.PaymentStatus), app.TransactionID,
		app.Feedback, app.AppliedAt,
	}
}

func (r *pgApplicationRepository) Create(ctx context.Context, app *model.Application) error {
	query := insertApplication + ` RETURNING updated_at`
	if err := r.db.QueryRowContext(ctx, query, insertArgs(app)...).Scan(&app.UpdatedAt); err != nil {
		return common.StorageError("pgApplicationRepository.Create", err)
	}
	return nil
}

func (r *pgApplicationRepository) CreateIdempotent(ctx context.Context, app *model.Application) (*model.Application, bool, error) {
	if app.TransactionID == nil {
		return nil, false, fmt.Errorf("pgApplicationRepository.CreateIdempotent: transaction id required: %w", common.ErrBadRequest)
	}

	query := insertApplication + ` ON CONFLICT (transaction_id) DO NOTHING RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, insertArgs(app)...).Scan(&app.UpdatedAt)
	if err == nil {
		return app, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, common.StorageError("pgApplicationRepository.CreateIdempotent", err)
	}

	// Another request recorded this transaction first.
	existing, err := r.FindByTransactionID(ctx, *app.TransactionID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *pgApplicationRepository) FindByID(ctx context.Context, id string) (*model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	app, err := scanApplication(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.StorageError("pgApplicationRepository.FindByID", err)
	}
	return app, nil
}

func (r *pgApplicationRepository) FindByTransactionID(ctx context.Context, transactionID string) (*model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE transaction_id = $1`
	app, err := scanApplication(r.db.QueryRowContext(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.StorageError("pgApplicationRepository.FindByTransactionID", err)
	}
	return app, nil
}

func (r *pgApplicationRepository) List(ctx context.Context) ([]model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications ORDER BY applied_at DESC`
	return r.list(ctx, "pgApplicationRepository.List", query)
}

func (r *pgApplicationRepository) ListByUserEmail(ctx context.Context, email string) ([]model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE user_email = $1 ORDER BY applied_at DESC`
	return r.list(ctx, "pgApplicationRepository.ListByUserEmail", query, email)
}

func (r *pgApplicationRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]model.Application, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.StorageError(op, err)
	}
	defer rows.Close()

	apps := []model.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, common.StorageError(op+" scan", err)
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StorageError(op+" rows", err)
	}
	return apps, nil
}

func (r *pgApplicationRepository) Update(ctx context.Context, id string, patch model.ApplicationPatch) (*model.Application, error) {
	set, args, argID := setClause(applicationAssignments(patch), 1)
	query := fmt.Sprintf(`UPDATE applications SET %s WHERE id = $%d RETURNING %s`, set, argID, applicationColumns)
	args = append(args, id)

	app, err := scanApplication(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.StorageError("pgApplicationRepository.Update", err)
	}
	return app, nil
}

func (r *pgApplicationRepository) UpdateIfPending(ctx context.Context, id, owner string, patch model.ApplicationPatch) (*model.Application, bool, error) {
	set, args, argID := setClause(applicationAssignments(patch), 1)
	query := fmt.Sprintf(`UPDATE applications SET %s
	          WHERE id = $%d AND user_email = $%d AND application_status = $%d
	          RETURNING %s`, set, argID, argID+1, argID+2, applicationColumns)
	args = append(args, id, owner, string(model.ApplicationPending))

	app, err := scanApplication(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, common.StorageError("pgApplicationRepository.UpdateIfPending", err)
	}
	return app, true, nil
}

func (r *pgApplicationRepository) DeleteOwned(ctx context.Context, id, owner string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM applications WHERE id = $1 AND user_email = $2`, id, owner)
	if err != nil {
		return false, common.StorageError("pgApplicationRepository.DeleteOwned", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, common.StorageError("pgApplicationRepository.DeleteOwned", err)
	}
	return n > 0, nil
}

func applicationAssignments(p model.ApplicationPatch) []assignment {
	var out []assignment
	out = addString(out, "scholarship_name", p.ScholarshipName)
	out = addString(out, "university_name", p.UniversityName)
	out = addString(out, "university_city", p.UniversityCity)
	out = addString(out, "university_country", p.UniversityCountry)
	out = addString(out, "subject_category", p.SubjectCategory)
	out = addString(out, "degree", p.Degree)
	out = addString(out, "user_name", p.UserName)
	out = addString(out, "user_phone", p.UserPhone)
	out = addString(out, "user_address", p.UserAddress)
	out = addFloat(out, "application_fees", p.ApplicationFees)
	out = addFloat(out, "service_charge", p.ServiceCharge)
	if p.ApplicationStatus != nil {
		out = append(out, assignment{"application_status", string(*p.ApplicationStatus)})
	}
	if p.PaymentStatus != nil {
		out = append(out, assignment{"payment_status", string(*p.PaymentStatus)})
	}
	out = addString(out, "feedback", p.Feedback)
	return out
}
