package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/construction-api/internal/core/material"
	pgdb "github.com/ogurasousui/construction-api/internal/platform/db/postgres"
)

const allocationColumns = `id, project_id, material_id, quantity_allocated, quantity_used, created_at, updated_at`

// AllocationRepository は project_materials テーブルを扱います。
type AllocationRepository struct {
	pool pgdb.Queryer
}

// NewAllocationRepository は AllocationRepository を生成します。
func NewAllocationRepository(pool pgdb.Queryer) *AllocationRepository {
	return &AllocationRepository{pool: pool}
}

// Create は資材割り当てを作成します。
func (r *AllocationRepository) Create(ctx context.Context, pm *material.ProjectMaterial) (*material.ProjectMaterial, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO project_materials (project_id, material_id, quantity_allocated, quantity_used, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+allocationColumns,
		pm.ProjectID,
		pm.MaterialID,
		pm.QuantityAllocated,
		pm.QuantityUsed,
		pm.CreatedAt,
		pm.UpdatedAt,
	)

	created, err := scanAllocation(row)
	if err != nil {
		return nil, translateAllocationPgError(err)
	}
	return created, nil
}

// Update は使用量を更新します。
func (r *AllocationRepository) Update(ctx context.Context, pm *material.ProjectMaterial) (*material.ProjectMaterial, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE project_materials
           SET quantity_allocated = $1,
               quantity_used = $2,
               updated_at = $3
         WHERE id = $4
        RETURNING `+allocationColumns,
		pm.QuantityAllocated,
		pm.QuantityUsed,
		pm.UpdatedAt,
		pm.ID,
	)

	updated, err := scanAllocation(row)
	if err != nil {
		return nil, translateAllocationPgError(err)
	}
	return updated, nil
}

// Delete は資材割り当てを削除します。
func (r *AllocationRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM project_materials WHERE id = $1`, id)
	if err != nil {
		return translateAllocationPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return material.ErrAllocationNotFound
	}
	return nil
}

// FindByID は ID で資材割り当てを取得します。
func (r *AllocationRepository) FindByID(ctx context.Context, id string) (*material.ProjectMaterial, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+allocationColumns+`
          FROM project_materials
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanAllocation(row)
	if err != nil {
		return nil, translateAllocationPgError(err)
	}
	return found, nil
}

// ListByProject はプロジェクトの資材割り当てを返します。
func (r *AllocationRepository) ListByProject(ctx context.Context, projectID string) ([]*material.ProjectMaterial, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+allocationColumns+`
          FROM project_materials
         WHERE project_id = $1
         ORDER BY created_at, id
    `, projectID)
	if err != nil {
		return nil, translateAllocationPgError(err)
	}
	defer rows.Close()

	var allocations []*material.ProjectMaterial
	for rows.Next() {
		pm, err := scanAllocation(rows)
		if err != nil {
			return nil, translateAllocationPgError(err)
		}
		allocations = append(allocations, pm)
	}
	if err := rows.Err(); err != nil {
		return nil, translateAllocationPgError(err)
	}

	return allocations, nil
}

// ProjectExists はプロジェクトが存在するかを返します。
func (r *AllocationRepository) ProjectExists(ctx context.Context, projectID string) (bool, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var exists bool
	if err := exec.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`, projectID).Scan(&exists); err != nil {
		return false, translateAllocationPgError(err)
	}
	return exists, nil
}

func scanAllocation(row pgx.Row) (*material.ProjectMaterial, error) {
	var pm material.ProjectMaterial
	if err := row.Scan(
		&pm.ID,
		&pm.ProjectID,
		&pm.MaterialID,
		&pm.QuantityAllocated,
		&pm.QuantityUsed,
		&pm.CreatedAt,
		&pm.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, material.ErrAllocationNotFound
		}
		return nil, err
	}
	return &pm, nil
}

func translateAllocationPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return material.ErrAllocationNotFound
	}
	if isInvalidText(err) {
		return material.ErrInvalidID
	}
	if _, ok := asPgError(err, pgerrcode.UniqueViolation); ok {
		return material.ErrAlreadyAllocated
	}
	if pgErr, ok := asPgError(err, pgerrcode.ForeignKeyViolation); ok {
		switch pgErr.ConstraintName {
		case "project_materials_project_id_fkey":
			return material.ErrProjectNotFound
		case "project_materials_material_id_fkey":
			return material.ErrMaterialNotFound
		}
	}
	if _, ok := asPgError(err, pgerrcode.CheckViolation); ok {
		return material.ErrInvalidQuantity
	}
	return err
}
