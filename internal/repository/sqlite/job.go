package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/servicehub/servicehub/internal/models"
	"github.com/servicehub/servicehub/pkg/repository"
)

const jobColumns = `id, requester_id, worker_id, service_needed_id, zone, date_needed, description,
	payment_amount, status, assigned_at, completed_at, rating, review, notes,
	repeated, recurrence_pattern, parent_job_id, is_active, created`

func (r *SQLiteRepo) CreateJob(ctx context.Context, j *models.Job) (int64, error) {
	if j == nil {
		return 0, fmt.Errorf("job is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO jobs
		(requester_id, worker_id, service_needed_id, zone, date_needed, description,
		 payment_amount, status, assigned_at, rating, review, notes,
		 repeated, recurrence_pattern, parent_job_id, is_active, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		j.RequesterID, j.WorkerID, j.ServiceNeededID, j.Zone, j.DateNeeded, j.Description,
		j.PaymentAmount, j.Status, j.AssignedAt, j.Rating, j.Review, j.Notes,
		j.Repeated, nullString(j.RecurrencePattern), j.ParentJobID, now())
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(j.ServicesUsed) > 0 {
		if err := r.SetServicesUsed(ctx, id, j.ServicesUsed); err != nil {
			return 0, err
		}
	}

	return id, nil
}

func (r *SQLiteRepo) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT service_type_id FROM job_services_used WHERE job_id = ? ORDER BY service_type_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sid int64
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}

		j.ServicesUsed = append(j.ServicesUsed, sid)
	}

	return j, rows.Err()
}

func (r *SQLiteRepo) ListJobs(ctx context.Context, f repository.JobFilter) ([]models.Job, error) {
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
	if f.RequesterID > 0 {
		clauses = append(clauses, `requester_id = ?`)
		args = append(args, f.RequesterID)
	}
	if f.WorkerID > 0 {
		clauses = append(clauses, `worker_id = ?`)
		args = append(args, f.WorkerID)
	}
	if f.ServiceID > 0 {
		clauses = append(clauses, `service_needed_id = ?`)
		args = append(args, f.ServiceID)
	}
	if f.Zone != "" {
		clauses = append(clauses, `zone = ?`)
		args = append(args, f.Zone)
	}
	if f.DateFrom > 0 {
		clauses = append(clauses, `date_needed >= ?`)
		args = append(args, f.DateFrom)
	}
	if f.DateTo > 0 {
		clauses = append(clauses, `date_needed <= ?`)
		args = append(args, f.DateTo)
	}
	if f.Repeated != nil {
		clauses = append(clauses, `repeated = ?`)
		args = append(args, *f.Repeated)
	}

	q := `SELECT ` + jobColumns + ` FROM jobs`
	if len(clauses) > 0 {
		q += ` WHERE ` + strings.Join(clauses, ` AND `)
	}
	q += ` ORDER BY created DESC`

	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *j)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) ListChildren(ctx context.Context, parentID int64) ([]models.Job, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+jobColumns+` FROM jobs WHERE parent_job_id = ? ORDER BY id`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *j)
	}

	return out, rows.Err()
}

// changeSet renders the non-nil fields of ch as an UPDATE fragment.
func changeSet(ch *models.JobChanges) (string, []any) {
	var (
		sets []string
		args []any
	)
	if ch.RequesterID != nil {
		sets = append(sets, `requester_id = ?`)
		args = append(args, *ch.RequesterID)
	}
	if ch.ServiceNeededID != nil {
		sets = append(sets, `service_needed_id = ?`)
		args = append(args, *ch.ServiceNeededID)
	}
	if ch.Zone != nil {
		sets = append(sets, `zone = ?`)
		args = append(args, *ch.Zone)
	}
	if ch.DateNeeded != nil {
		sets = append(sets, `date_needed = ?`)
		args = append(args, *ch.DateNeeded)
	}
	if ch.Description != nil {
		sets = append(sets, `description = ?`)
		args = append(args, *ch.Description)
	}
	if ch.PaymentAmount != nil {
		sets = append(sets, `payment_amount = ?`)
		args = append(args, *ch.PaymentAmount)
	}
	if ch.Notes != nil {
		sets = append(sets, `notes = ?`)
		args = append(args, *ch.Notes)
	}
	if ch.Repeated != nil {
		sets = append(sets, `repeated = ?`)
		args = append(args, *ch.Repeated)
	}
	if ch.RecurrencePattern != nil {
		sets = append(sets, `recurrence_pattern = ?`)
		args = append(args, nullString(*ch.RecurrencePattern))
	}

	return strings.Join(sets, ", "), args
}

func (r *SQLiteRepo) UpdateJobFields(ctx context.Context, id int64, ch *models.JobChanges) error {
	if ch == nil {
		return fmt.Errorf("changes are nil")
	}

	set, args := changeSet(ch)
	if set == "" {
		return nil
	}
	args = append(args, id)

	_, err := r.conn.Exec(ctx, `UPDATE jobs SET `+set+` WHERE id = ?`, args...)
	return err
}

func (r *SQLiteRepo) AssignJob(ctx context.Context, id, workerID, assignedAt int64) error {
	_, err := r.conn.Exec(ctx, `UPDATE jobs SET worker_id = ?, status = ?, assigned_at = ? WHERE id = ?`,
		workerID, models.StatusAssigned, assignedAt, id)
	return err
}

func (r *SQLiteRepo) UnassignJob(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `UPDATE jobs SET worker_id = NULL, status = ?, assigned_at = NULL WHERE id = ?`,
		models.StatusPending, id)
	return err
}

// CompleteJob closes the job and refreshes the worker's rating aggregate in
// the same transaction.
func (r *SQLiteRepo) CompleteJob(ctx context.Context, id int64, rating *int64, review string, completedAt int64) error {
	tx, err := r.conn.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE jobs SET status = ?, completed_at = ?, rating = ?, review = ? WHERE id = ?`,
		models.StatusCompleted, completedAt, rating, review, id); err != nil {
		_ = tx.Rollback()
		return err
	}

	var workerID sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT worker_id FROM jobs WHERE id = ?`, id).Scan(&workerID); err != nil {
		_ = tx.Rollback()
		return err
	}

	if workerID.Valid {
		if _, err := tx.ExecContext(ctx, `UPDATE workers SET
			avg_rating = COALESCE((SELECT AVG(rating) FROM jobs WHERE worker_id = ? AND status = ? AND rating IS NOT NULL), 0),
			rating_count = (SELECT COUNT(1) FROM jobs WHERE worker_id = ? AND status = ? AND rating IS NOT NULL)
			WHERE id = ?`,
			workerID.Int64, models.StatusCompleted, workerID.Int64, models.StatusCompleted, workerID.Int64); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (r *SQLiteRepo) CancelJob(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `UPDATE jobs SET status = ? WHERE id = ?`, models.StatusCancelled, id)
	return err
}

func (r *SQLiteRepo) DeactivateJob(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `UPDATE jobs SET is_active = 0 WHERE id = ?`, id)
	return err
}

// SetServicesUsed replaces the services-used set of a job.
func (r *SQLiteRepo) SetServicesUsed(ctx context.Context, jobID int64, serviceIDs []int64) error {
	tx, err := r.conn.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM job_services_used WHERE job_id = ?`, jobID); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, sid := range serviceIDs {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO job_services_used (job_id, service_type_id) VALUES (?, ?)`, jobID, sid); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// BusyWorkerIDs returns workers holding a pending or assigned job whose
// date_needed falls within [from, to]. Read without any lock; the caller
// knows the check-then-assign sequence is not atomic.
func (r *SQLiteRepo) BusyWorkerIDs(ctx context.Context, from, to int64) ([]int64, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT DISTINCT worker_id FROM jobs
		WHERE worker_id IS NOT NULL AND date_needed >= ? AND date_needed <= ? AND status IN (?, ?)`,
		from, to, models.StatusPending, models.StatusAssigned)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		out = append(out, id)
	}

	return out, rows.Err()
}

// PropagateToChildren applies the change set to every open, active direct
// child of parentID and records the audit row in the same transaction. When
// no child is eligible nothing is written at all. A recurrence_pattern edit
// never reaches a child whose repeated flag is off; such children keep an
// empty pattern.
func (r *SQLiteRepo) PropagateToChildren(ctx context.Context, parentID int64, ch *models.JobChanges, changedBy int64) (int64, error) {
	if ch == nil {
		return 0, fmt.Errorf("changes are nil")
	}

	plain := *ch
	plain.RecurrencePattern = nil
	set, args := changeSet(&plain)

	where := `WHERE parent_job_id = ? AND is_active = 1 AND status NOT IN (?, ?)`
	switch {
	case ch.RecurrencePattern != nil && set == "":
		// a pattern-only batch touches repeated children only
		set = `recurrence_pattern = ?`
		args = append(args, nullString(*ch.RecurrencePattern))
		where += ` AND repeated = 1`
	case ch.RecurrencePattern != nil:
		set += `, recurrence_pattern = CASE WHEN repeated = 1 THEN ? ELSE recurrence_pattern END`
		args = append(args, nullString(*ch.RecurrencePattern))
	case set == "":
		return 0, nil
	}

	tx, err := r.conn.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	args = append(args, parentID, models.StatusCompleted, models.StatusCancelled)
	res, err := tx.ExecContext(ctx, `UPDATE jobs SET `+set+` `+where, args...)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if affected == 0 {
		_ = tx.Rollback()
		return 0, nil
	}

	fields, err := json.Marshal(ch.FieldNames())
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO job_recurrence_changes (job_id, changed_by, fields_changed, affected_jobs, created) VALUES (?, ?, ?, ?, ?)`,
		parentID, changedBy, string(fields), affected, now()); err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return affected, nil
}

func scanJob(row rowScanner) (*models.Job, error) {
	var (
		j           models.Job
		workerID    sql.NullInt64
		description sql.NullString
		assignedAt  sql.NullInt64
		completedAt sql.NullInt64
		rating      sql.NullInt64
		review      sql.NullString
		notes       sql.NullString
		pattern     sql.NullString
		parentID    sql.NullInt64
	)
	if err := row.Scan(&j.ID, &j.RequesterID, &workerID, &j.ServiceNeededID, &j.Zone, &j.DateNeeded, &description,
		&j.PaymentAmount, &j.Status, &assignedAt, &completedAt, &rating, &review, &notes,
		&j.Repeated, &pattern, &parentID, &j.IsActive, &j.Created); err != nil {
		return nil, err
	}

	if workerID.Valid {
		v := workerID.Int64
		j.WorkerID = &v
	}
	if assignedAt.Valid {
		v := assignedAt.Int64
		j.AssignedAt = &v
	}
	if completedAt.Valid {
		v := completedAt.Int64
		j.CompletedAt = &v
	}
	if rating.Valid {
		v := rating.Int64
		j.Rating = &v
	}
	if parentID.Valid {
		v := parentID.Int64
		j.ParentJobID = &v
	}
	j.Description = description.String
	j.Review = review.String
	j.Notes = notes.String
	j.RecurrencePattern = pattern.String

	return &j, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
