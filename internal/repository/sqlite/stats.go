package sqlite

import (
	"context"

	"github.com/servicehub/servicehub/internal/models"
)

// DashboardCounts backs the admin dashboard with one aggregate query.
func (r *SQLiteRepo) DashboardCounts(ctx context.Context) (*models.DashboardCounts, error) {
	var c models.DashboardCounts
	row := r.conn.QueryRow(ctx, `SELECT
		(SELECT COUNT(1) FROM workers WHERE is_active = 1),
		(SELECT COUNT(1) FROM workers WHERE is_active = 1 AND status = ?),
		(SELECT COUNT(1) FROM requesters WHERE is_active = 1),
		(SELECT COUNT(1) FROM requesters WHERE is_active = 1 AND status = ?),
		(SELECT COUNT(1) FROM jobs WHERE is_active = 1),
		(SELECT COUNT(1) FROM jobs WHERE is_active = 1 AND status = ?),
		(SELECT COUNT(1) FROM jobs WHERE is_active = 1 AND status = ?)`,
		models.StatusPending, models.StatusPending, models.StatusPending, models.StatusAssigned)
	if err := row.Scan(&c.Workers, &c.PendingWorkers, &c.Requesters, &c.PendingRequesters,
		&c.Jobs, &c.PendingJobs, &c.AssignedJobs); err != nil {
		return nil, err
	}

	return &c, nil
}
