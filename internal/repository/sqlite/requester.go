package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/servicehub/servicehub/internal/models"
	"github.com/servicehub/servicehub/pkg/repository"
)

const requesterColumns = `id, user_id, first_name, last_name, email, country_code, phone_number, source, notes, status, is_active, created`

func (r *SQLiteRepo) CreateRequester(ctx context.Context, req *models.Requester) (int64, error) {
	if req == nil {
		return 0, fmt.Errorf("requester is nil")
	}
	if req.Status == "" {
		req.Status = models.StatusPending
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO requesters
		(user_id, first_name, last_name, email, country_code, phone_number, source, notes, status, is_active, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		nullID(req.UserID), req.FirstName, req.LastName, req.Email, req.CountryCode, req.PhoneNumber,
		req.Source, req.Notes, req.Status, now())
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(req.RegularServices) > 0 {
		if err := r.SetRegularServices(ctx, id, req.RegularServices); err != nil {
			return 0, err
		}
	}

	return id, nil
}

func (r *SQLiteRepo) GetRequester(ctx context.Context, id int64) (*models.Requester, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+requesterColumns+` FROM requesters WHERE id = ?`, id)
	return r.scanRequesterRow(ctx, row)
}

func (r *SQLiteRepo) GetRequesterByUser(ctx context.Context, userID int64) (*models.Requester, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+requesterColumns+` FROM requesters WHERE user_id = ?`, userID)
	return r.scanRequesterRow(ctx, row)
}

func (r *SQLiteRepo) ListRequesters(ctx context.Context, f repository.RequesterFilter) ([]models.Requester, error) {
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

	q := `SELECT ` + requesterColumns + ` FROM requesters`
	if len(clauses) > 0 {
		q += ` WHERE ` + strings.Join(clauses, ` AND `)
	}
	q += ` ORDER BY created DESC`

	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Requester
	for rows.Next() {
		req, err := scanRequester(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *req)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateRequester(ctx context.Context, req *models.Requester) error {
	if req == nil {
		return fmt.Errorf("requester is nil")
	}

	_, err := r.conn.Exec(ctx, `UPDATE requesters SET
		first_name = ?, last_name = ?, email = ?, country_code = ?, phone_number = ?,
		source = ?, notes = ?, status = ?
		WHERE id = ?`,
		req.FirstName, req.LastName, req.Email, req.CountryCode, req.PhoneNumber,
		req.Source, req.Notes, req.Status, req.ID)
	return err
}

// SetRegularServices replaces the requester's regular-services set.
func (r *SQLiteRepo) SetRegularServices(ctx context.Context, requesterID int64, serviceIDs []int64) error {
	tx, err := r.conn.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM requester_services WHERE requester_id = ?`, requesterID); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, sid := range serviceIDs {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO requester_services (requester_id, service_type_id) VALUES (?, ?)`, requesterID, sid); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (r *SQLiteRepo) DeactivateRequester(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `UPDATE requesters SET is_active = 0 WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepo) ApproveRequesters(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	q := `UPDATE requesters SET status = ? WHERE is_active = 1 AND status != ? AND id IN (` + placeholders(len(ids)) + `)`
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

func scanRequester(row rowScanner) (*models.Requester, error) {
	var (
		req    models.Requester
		userID sql.NullInt64
		cc     sql.NullString
		phone  sql.NullString
		source sql.NullString
		notes  sql.NullString
	)
	if err := row.Scan(&req.ID, &userID, &req.FirstName, &req.LastName, &req.Email, &cc, &phone,
		&source, &notes, &req.Status, &req.IsActive, &req.Created); err != nil {
		return nil, err
	}

	if userID.Valid {
		req.UserID = userID.Int64
	}
	req.CountryCode = cc.String
	req.PhoneNumber = phone.String
	req.Source = source.String
	req.Notes = notes.String

	return &req, nil
}

func (r *SQLiteRepo) scanRequesterRow(ctx context.Context, row *sql.Row) (*models.Requester, error) {
	req, err := scanRequester(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT service_type_id FROM requester_services WHERE requester_id = ? ORDER BY service_type_id`, req.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sid int64
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}

		req.RegularServices = append(req.RegularServices, sid)
	}

	return req, rows.Err()
}
