package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/construction-api/internal/core/material"
	pgdb "github.com/ogurasousui/construction-api/internal/platform/db/postgres"
	"github.com/shopspring/decimal"
)

const materialColumns = `id, name, description, sku, quantity, unit, min_quantity, price_per_unit, supplier_id,
               location, is_active, last_ordered, last_updated, created_at`

// MaterialRepository は PostgreSQL を利用した資材永続化の実装です。
type MaterialRepository struct {
	pool pgdb.Queryer
}

// NewMaterialRepository は MaterialRepository を生成します。
func NewMaterialRepository(pool pgdb.Queryer) *MaterialRepository {
	return &MaterialRepository{pool: pool}
}

// Create は資材を新規登録します。
func (r *MaterialRepository) Create(ctx context.Context, m *material.Material) (*material.Material, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO materials (name, description, sku, quantity, unit, min_quantity, price_per_unit, supplier_id,
                               location, is_active, last_ordered, last_updated, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING `+materialColumns,
		m.Name,
		nullStringPtr(m.Description),
		m.SKU,
		m.Quantity,
		m.Unit,
		m.MinQuantity,
		m.PricePerUnit,
		nullStringPtr(m.SupplierID),
		nullStringPtr(m.Location),
		m.IsActive,
		nullableTimestamp(m.LastOrdered),
		m.LastUpdated,
		m.CreatedAt,
	)

	created, err := scanMaterial(row)
	if err != nil {
		return nil, translateMaterialPgError(err)
	}
	return created, nil
}

// Update は資材を更新します。
func (r *MaterialRepository) Update(ctx context.Context, m *material.Material) (*material.Material, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE materials
           SET name = $1,
               description = $2,
               sku = $3,
               quantity = $4,
               unit = $5,
               min_quantity = $6,
               price_per_unit = $7,
               supplier_id = $8,
               location = $9,
               is_active = $10,
               last_ordered = $11,
               last_updated = $12
         WHERE id = $13
        RETURNING `+materialColumns,
		m.Name,
		nullStringPtr(m.Description),
		m.SKU,
		m.Quantity,
		m.Unit,
		m.MinQuantity,
		m.PricePerUnit,
		nullStringPtr(m.SupplierID),
		nullStringPtr(m.Location),
		m.IsActive,
		nullableTimestamp(m.LastOrdered),
		m.LastUpdated,
		m.ID,
	)

	updated, err := scanMaterial(row)
	if err != nil {
		return nil, translateMaterialPgError(err)
	}
	return updated, nil
}

// Delete は資材を削除します。
func (r *MaterialRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		return translateMaterialPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return material.ErrMaterialNotFound
	}
	return nil
}

// FindByID は ID で資材を取得します。
func (r *MaterialRepository) FindByID(ctx context.Context, id string) (*material.Material, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+materialColumns+`
          FROM materials
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanMaterial(row)
	if err != nil {
		return nil, translateMaterialPgError(err)
	}
	return found, nil
}

// List は資材の一覧を取得します。Search は名前の部分一致です。
func (r *MaterialRepository) List(ctx context.Context, filter material.ListMaterialsFilter) ([]*material.Material, error) {
	if filter.Limit <= 0 || filter.Offset < 0 {
		return nil, material.ErrInvalidPagination
	}

	args := make([]any, 0, 3)
	whereClause := ""
	if filter.Search != nil {
		args = append(args, "%"+escapeLike(strings.ToLower(*filter.Search))+"%")
		whereClause = " WHERE LOWER(name) LIKE $" + strconv.Itoa(len(args))
	}

	args = append(args, filter.Limit)
	limitPlaceholder := "$" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	offsetPlaceholder := "$" + strconv.Itoa(len(args))

	query := `
        SELECT ` + materialColumns + `
          FROM materials` + whereClause + `
         ORDER BY name, id
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder

	return r.queryMaterials(ctx, filter.Limit, query, args...)
}

// ListAvailable は在庫数が minQuantity 以上の資材を在庫数の降順で返します。
func (r *MaterialRepository) ListAvailable(ctx context.Context, minQuantity float64) ([]*material.Material, error) {
	return r.queryMaterials(ctx, 0, `
        SELECT `+materialColumns+`
          FROM materials
         WHERE quantity >= $1
         ORDER BY quantity DESC, id
    `, minQuantity)
}

// ListLowStock は在庫数が発注点以下の有効な資材を返します。
func (r *MaterialRepository) ListLowStock(ctx context.Context) ([]*material.Material, error) {
	return r.queryMaterials(ctx, 0, `
        SELECT `+materialColumns+`
          FROM materials
         WHERE is_active AND quantity <= min_quantity
         ORDER BY quantity, id
    `)
}

func (r *MaterialRepository) queryMaterials(ctx context.Context, capacity int, query string, args ...any) ([]*material.Material, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translateMaterialPgError(err)
	}
	defer rows.Close()

	materials := make([]*material.Material, 0, capacity)
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, translateMaterialPgError(err)
		}
		materials = append(materials, m)
	}
	if err := rows.Err(); err != nil {
		return nil, translateMaterialPgError(err)
	}

	return materials, nil
}

func scanMaterial(row pgx.Row) (*material.Material, error) {
	var (
		m           material.Material
		description sql.NullString
		price       decimal.Decimal
		supplierID  sql.NullString
		location    sql.NullString
		lastOrdered sql.NullTime
	)

	if err := row.Scan(
		&m.ID,
		&m.Name,
		&description,
		&m.SKU,
		&m.Quantity,
		&m.Unit,
		&m.MinQuantity,
		&price,
		&supplierID,
		&location,
		&m.IsActive,
		&lastOrdered,
		&m.LastUpdated,
		&m.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, material.ErrMaterialNotFound
		}
		return nil, err
	}

	m.Description = stringPtrFromNull(description)
	m.PricePerUnit = price
	m.SupplierID = stringPtrFromNull(supplierID)
	m.Location = stringPtrFromNull(location)
	if lastOrdered.Valid {
		t := lastOrdered.Time
		m.LastOrdered = &t
	}
	return &m, nil
}

func translateMaterialPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return material.ErrMaterialNotFound
	}
	if isInvalidText(err) {
		return material.ErrInvalidID
	}

	if pgErr, ok := asPgError(err, pgerrcode.UniqueViolation); ok {
		if pgErr.ConstraintName == "materials_sku_key" {
			return material.ErrSKUAlreadyExists
		}
		return err
	}
	if pgErr, ok := asPgError(err, pgerrcode.CheckViolation); ok {
		switch pgErr.ConstraintName {
		case "materials_quantity_check", "materials_min_quantity_check":
			return material.ErrInvalidQuantity
		case "materials_price_per_unit_check":
			return material.ErrInvalidPrice
		}
	}
	if _, ok := asPgError(err, pgerrcode.StringDataRightTruncationDataException); ok {
		return material.ErrFieldTooLong
	}
	if _, ok := asPgError(err, pgerrcode.NumericValueOutOfRange); ok {
		return material.ErrInvalidPrice
	}

	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
