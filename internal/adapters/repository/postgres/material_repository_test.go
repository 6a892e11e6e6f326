package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/construction-api/internal/core/material"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
)

var materialColumnNames = []string{
	"id", "name", "description", "sku", "quantity", "unit", "min_quantity", "price_per_unit", "supplier_id",
	"location", "is_active", "last_ordered", "last_updated", "created_at",
}

var allocationColumnNames = []string{
	"id", "project_id", "material_id", "quantity_allocated", "quantity_used", "created_at", "updated_at",
}

func TestMaterialRepository_Create(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO materials`).
		WithArgs("Portland Cement", nil, "CEM-001", 100.0, "bag", 10.0, pgxmock.AnyArg(), "sup-9", nil, true, nil, now, now).
		WillReturnRows(pgxmock.NewRows(materialColumnNames).
			AddRow("m-1", "Portland Cement", nil, "CEM-001", 100.0, "bag", 10.0, "12.50", "sup-9", nil, true, nil, now, now))

	supplier := "sup-9"
	created, err := NewMaterialRepository(mock).Create(context.Background(), &material.Material{
		Name:         "Portland Cement",
		SKU:          "CEM-001",
		Quantity:     100,
		Unit:         "bag",
		MinQuantity:  10,
		PricePerUnit: decimal.RequireFromString("12.50"),
		SupplierID:   &supplier,
		IsActive:     true,
		LastUpdated:  now,
		CreatedAt:    now,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !created.PricePerUnit.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected price %s", created.PricePerUnit)
	}
	if created.SupplierID == nil || *created.SupplierID != supplier || created.LastOrdered != nil {
		t.Fatalf("unexpected nullable fields: %+v", created)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMaterialRepository_Create_DuplicateSKU(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO materials`).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "materials_sku_key"})

	_, err = NewMaterialRepository(mock).Create(context.Background(), &material.Material{})
	if !errors.Is(err, material.ErrSKUAlreadyExists) {
		t.Fatalf("expected ErrSKUAlreadyExists, got %v", err)
	}
}

func TestMaterialRepository_List_Search(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM materials WHERE LOWER(name) LIKE $1 ORDER BY name, id LIMIT $2 OFFSET $3`)).
		WithArgs(`%50\%%`, 50, 0).
		WillReturnRows(pgxmock.NewRows(materialColumnNames).
			AddRow("m-1", "Mix 50% sand", nil, "MIX-50", 3.0, "t", 1.0, "80.00", nil, "Yard", true, now, now, now))

	term := "50%"
	materials, err := NewMaterialRepository(mock).List(context.Background(), material.ListMaterialsFilter{Search: &term, Limit: 50})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(materials) != 1 {
		t.Fatalf("expected 1 material, got %d", len(materials))
	}
	if materials[0].Location == nil || *materials[0].Location != "Yard" || materials[0].LastOrdered == nil {
		t.Fatalf("unexpected material: %+v", materials[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMaterialRepository_ListAvailable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE quantity >= $1 ORDER BY quantity DESC, id`)).
		WithArgs(1.0).
		WillReturnRows(pgxmock.NewRows(materialColumnNames).
			AddRow("m-2", "Rebar", nil, "RB-1", 40.0, "pcs", 5.0, "3.00", nil, nil, true, nil, now, now).
			AddRow("m-1", "Cement", nil, "CEM-1", 12.0, "bag", 5.0, "12.50", nil, nil, true, nil, now, now))

	materials, err := NewMaterialRepository(mock).ListAvailable(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListAvailable returned error: %v", err)
	}
	if len(materials) != 2 || materials[0].Quantity != 40 {
		t.Fatalf("unexpected materials: %+v", materials)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMaterialRepository_ListLowStock(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE is_active AND quantity <= min_quantity`)).
		WillReturnRows(pgxmock.NewRows(materialColumnNames))

	materials, err := NewMaterialRepository(mock).ListLowStock(context.Background())
	if err != nil {
		t.Fatalf("ListLowStock returned error: %v", err)
	}
	if len(materials) != 0 {
		t.Fatalf("expected no materials, got %d", len(materials))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTranslateMaterialPgError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want error
	}{
		{err: &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "materials_sku_key"}, want: material.ErrSKUAlreadyExists},
		{err: &pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "materials_price_per_unit_check"}, want: material.ErrInvalidPrice},
		{err: &pgconn.PgError{Code: pgerrcode.NumericValueOutOfRange}, want: material.ErrInvalidPrice},
		{err: &pgconn.PgError{Code: pgerrcode.StringDataRightTruncationDataException}, want: material.ErrFieldTooLong},
	}
	for _, tc := range cases {
		if got := translateMaterialPgError(tc.err); !errors.Is(got, tc.want) {
			t.Fatalf("expected %v, got %v", tc.want, got)
		}
	}
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()

	if got := escapeLike(`a_b%c\d`); got != `a\_b\%c\\d` {
		t.Fatalf("unexpected escape result %q", got)
	}
}

func TestAllocationRepository_CreateAndUpdate(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewAllocationRepository(mock)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO project_materials`).
		WithArgs("p-1", "m-1", 10.0, 0.0, now, now).
		WillReturnRows(pgxmock.NewRows(allocationColumnNames).AddRow("pm-1", "p-1", "m-1", 10.0, 0.0, now, now))
	mock.ExpectQuery(`UPDATE project_materials`).
		WithArgs(10.0, 4.0, now, "pm-1").
		WillReturnRows(pgxmock.NewRows(allocationColumnNames).AddRow("pm-1", "p-1", "m-1", 10.0, 4.0, now, now))
	mock.ExpectQuery(`INSERT INTO project_materials`).
		WithArgs("p-9", "m-1", 1.0, 0.0, now, now).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "project_materials_project_id_fkey"})

	created, err := repo.Create(context.Background(), &material.ProjectMaterial{
		ProjectID: "p-1", MaterialID: "m-1", QuantityAllocated: 10, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	created.QuantityUsed = 4
	updated, err := repo.Update(context.Background(), created)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.RemainingQuantity() != 6 {
		t.Fatalf("expected remaining 6, got %v", updated.RemainingQuantity())
	}

	if _, err := repo.Create(context.Background(), &material.ProjectMaterial{
		ProjectID: "p-9", MaterialID: "m-1", QuantityAllocated: 1, CreatedAt: now, UpdatedAt: now,
	}); !errors.Is(err, material.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAllocationRepository_FindAndDelete(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewAllocationRepository(mock)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM project_materials WHERE id = $1`)).
		WithArgs("pm-x").
		WillReturnRows(pgxmock.NewRows(allocationColumnNames))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM project_materials WHERE id = $1`)).
		WithArgs("pm-x").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if _, err := repo.FindByID(context.Background(), "pm-x"); !errors.Is(err, material.ErrAllocationNotFound) {
		t.Fatalf("expected ErrAllocationNotFound, got %v", err)
	}
	if err := repo.Delete(context.Background(), "pm-x"); !errors.Is(err, material.ErrAllocationNotFound) {
		t.Fatalf("expected ErrAllocationNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAllocationRepository_ProjectExists(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	query := regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`)
	mock.ExpectQuery(query).WithArgs("p-1").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(query).WithArgs("p-2").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	repo := NewAllocationRepository(mock)
	ctx := context.Background()

	if ok, err := repo.ProjectExists(ctx, "p-1"); err != nil || !ok {
		t.Fatalf("expected p-1 to exist, got %v, %v", ok, err)
	}
	if ok, err := repo.ProjectExists(ctx, "p-2"); err != nil || ok {
		t.Fatalf("expected p-2 to be missing, got %v, %v", ok, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
