package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/servicehub/servicehub/internal/models"
)

// ListRecurrenceChanges returns the audit rows for a recurring job, newest
// first. The log is append-only; there is no update or delete path.
func (r *SQLiteRepo) ListRecurrenceChanges(ctx context.Context, jobID int64) ([]models.RecurrenceChange, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, job_id, changed_by, fields_changed, affected_jobs, created
		FROM job_recurrence_changes WHERE job_id = ? ORDER BY created DESC, id DESC`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RecurrenceChange
	for rows.Next() {
		var (
			c      models.RecurrenceChange
			fields string
		)
		if err := rows.Scan(&c.ID, &c.JobID, &c.ChangedBy, &fields, &c.AffectedJobs, &c.Created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(fields), &c.FieldsChanged); err != nil {
			return nil, fmt.Errorf("decode fields_changed for change %d: %w", c.ID, err)
		}

		out = append(out, c)
	}

	return out, rows.Err()
}
