package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/servicehub/servicehub/internal/models"
	"github.com/servicehub/servicehub/pkg/repository"
)

const workerColumns = `id, user_id, first_name, last_name, email, country_code, phone_number, zone, city,
	job_primary_id, job_secondary_id, experience_years, salary_per_job, bio, source,
	profile_picture, id_document, notes, status, is_active, avg_rating, rating_count, created`

func (r *SQLiteRepo) CreateWorker(ctx context.Context, w *models.Worker) (int64, error) {
	if w == nil {
		return 0, fmt.Errorf("worker is nil")
	}
	if w.Status == "" {
		w.Status = models.StatusPending
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO workers
		(user_id, first_name, last_name, email, country_code, phone_number, zone, city,
		 job_primary_id, job_secondary_id, experience_years, salary_per_job, bio, source,
		 profile_picture, id_document, notes, status, is_active, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		nullID(w.UserID), w.FirstName, w.LastName, w.Email, w.CountryCode, w.PhoneNumber, w.Zone, w.City,
		w.JobPrimaryID, w.JobSecondaryID, w.ExperienceYears, w.SalaryPerJob, w.Bio, w.Source,
		w.ProfilePicture, w.IDDocument, w.Notes, w.Status, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetWorker(ctx context.Context, id int64) (*models.Worker, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+workerColumns+` FROM workers WHERE id = ?`, id)
	return scanWorkerRow(row)
}

func (r *SQLiteRepo) GetWorkerByUser(ctx context.Context, userID int64) (*models.Worker, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+workerColumns+` FROM workers WHERE user_id = ?`, userID)
	return scanWorkerRow(row)
}

func (r *SQLiteRepo) ListWorkers(ctx context.Context, f repository.WorkerFilter) ([]models.Worker, error) {
	var (
		clauses []string
		args    []any
	)
	if f.ActiveOnly {
		clauses = append(clauses, `is_active = 1`)
	}
	if f.Status != "" {
		clauses = append(clauses, `status = ?`)
		args = append(args, f.Status)
	}
	if f.Zone != "" {
		clauses = append(clauses, `zone = ?`)
		args = append(args, f.Zone)
	}
	if f.ServiceID > 0 {
		clauses = append(clauses, `(job_primary_id = ? OR job_secondary_id = ?)`)
		args = append(args, f.ServiceID, f.ServiceID)
	}

	q := `SELECT ` + workerColumns + ` FROM workers`
	if len(clauses) > 0 {
		q += ` WHERE ` + strings.Join(clauses, ` AND `)
	}
	q += ` ORDER BY created DESC`

	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *w)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateWorker(ctx context.Context, w *models.Worker) error {
	if w == nil {
		return fmt.Errorf("worker is nil")
	}

	_, err := r.conn.Exec(ctx, `UPDATE workers SET
		first_name = ?, last_name = ?, email = ?, country_code = ?, phone_number = ?,
		zone = ?, city = ?, job_primary_id = ?, job_secondary_id = ?, experience_years = ?,
		salary_per_job = ?, bio = ?, source = ?, profile_picture = ?, id_document = ?,
		notes = ?, status = ?
		WHERE id = ?`,
		w.FirstName, w.LastName, w.Email, w.CountryCode, w.PhoneNumber,
		w.Zone, w.City, w.JobPrimaryID, w.JobSecondaryID, w.ExperienceYears,
		w.SalaryPerJob, w.Bio, w.Source, w.ProfilePicture, w.IDDocument,
		w.Notes, w.Status, w.ID)
	return err
}

func (r *SQLiteRepo) DeactivateWorker(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `UPDATE workers SET is_active = 0 WHERE id = ?`, id)
	return err
}

// ApproveWorkers approves every active, not-yet-approved worker among ids.
// Inactive rows are left untouched.
func (r *SQLiteRepo) ApproveWorkers(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	q := `UPDATE workers SET status = ? WHERE is_active = 1 AND status != ? AND id IN (` + placeholders(len(ids)) + `)`
	args := make([]any, 0, len(ids)+2)
	args = append(args, models.StatusApproved, models.StatusApproved)
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := r.conn.Exec(ctx, q, args...)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorker(row rowScanner) (*models.Worker, error) {
	var (
		w         models.Worker
		userID    sql.NullInt64
		email     sql.NullString
		cc        sql.NullString
		phone     sql.NullString
		secondary sql.NullInt64
		bio       sql.NullString
		source    sql.NullString
		picture   sql.NullString
		document  sql.NullString
		notes     sql.NullString
	)
	if err := row.Scan(&w.ID, &userID, &w.FirstName, &w.LastName, &email, &cc, &phone, &w.Zone, &w.City,
		&w.JobPrimaryID, &secondary, &w.ExperienceYears, &w.SalaryPerJob, &bio, &source,
		&picture, &document, &notes, &w.Status, &w.IsActive, &w.AvgRating, &w.RatingCount, &w.Created); err != nil {
		return nil, err
	}

	if userID.Valid {
		w.UserID = userID.Int64
	}
	if secondary.Valid {
		v := secondary.Int64
		w.JobSecondaryID = &v
	}
	w.Email = email.String
	w.CountryCode = cc.String
	w.PhoneNumber = phone.String
	w.Bio = bio.String
	w.Source = source.String
	w.ProfilePicture = picture.String
	w.IDDocument = document.String
	w.Notes = notes.String

	return &w, nil
}

func scanWorkerRow(row *sql.Row) (*models.Worker, error) {
	w, err := scanWorker(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return w, nil
}

func nullID(id int64) any {
	if id <= 0 {
		return nil
	}
	return id
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
