package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/servicehub/servicehub/internal/models"
)

func (r *SQLiteRepo) CreateServiceType(ctx context.Context, s *models.ServiceType) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("service type is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO service_types (name) VALUES (?)`, s.Name)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetServiceType(ctx context.Context, id int64) (*models.ServiceType, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, name FROM service_types WHERE id = ?`, id)
	var s models.ServiceType
	if err := row.Scan(&s.ID, &s.Name); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &s, nil
}

func (r *SQLiteRepo) ListServiceTypes(ctx context.Context) ([]models.ServiceType, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, name FROM service_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ServiceType
	for rows.Next() {
		var s models.ServiceType
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateServiceType(ctx context.Context, s *models.ServiceType) error {
	if s == nil {
		return fmt.Errorf("service type is nil")
	}

	_, err := r.conn.Exec(ctx, `UPDATE service_types SET name = ? WHERE id = ?`, s.Name, s.ID)
	return err
}

func (r *SQLiteRepo) DeleteServiceType(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM service_types WHERE id = ?`, id)
	return err
}
