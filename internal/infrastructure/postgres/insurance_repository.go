package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-flight-booking/internal/domain/insurance"
)

type insuranceRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Price       int       `db:"price"`
	Active      bool      `db:"active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r *insuranceRow) toEntity() *insurance.Insurance {
	return &insurance.Insurance{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Active:      r.Active,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type InsuranceRepository struct{ db *sqlx.DB }

func NewInsuranceRepository(db *sqlx.DB) *InsuranceRepository {
	return &InsuranceRepository{db: db}
}

func (r *InsuranceRepository) Create(ctx context.Context, i *insurance.Insurance) error {
	query := `INSERT INTO insurances (name, description, price, active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	return r.db.QueryRowContext(ctx, query, i.Name, i.Description, i.Price, i.Active, i.CreatedAt, i.UpdatedAt).Scan(&i.ID)
}

func (r *InsuranceRepository) GetByID(ctx context.Context, id string) (*insurance.Insurance, error) {
	query := `SELECT id, name, description, price, active, created_at, updated_at FROM insurances WHERE id = $1`
	var row insuranceRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, insurance.ErrInsuranceNotFound
		}
		return nil, fmt.Errorf("保険プラン取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *InsuranceRepository) List(ctx context.Context) ([]*insurance.Insurance, error) {
	query := `SELECT id, name, description, price, active, created_at, updated_at FROM insurances WHERE active = TRUE ORDER BY price`
	var rows []insuranceRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("保険プラン一覧取得に失敗: %w", err)
	}
	result := make([]*insurance.Insurance, len(rows))
	for i, row := range rows {
		result[i] = row.toEntity()
	}
	return result, nil
}

var _ insurance.Repository = (*InsuranceRepository)(nil)
