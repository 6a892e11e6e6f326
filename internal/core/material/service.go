package material

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 100

	moneyScale = 2

	maxNameLength        = 255
	maxDescriptionLength = 1000
	maxSKULength         = 50
	maxUnitLength        = 50
	maxLocationLength    = 255
)

// Service は資材と割り当てのユースケースをまとめます。
type Service struct {
	repo        Repository
	allocations AllocationRepository
	clock       Clock
	tx          TransactionManager
}

// UseCase は資材ユースケースの公開インターフェースです。
type UseCase interface {
	CreateMaterial(ctx context.Context, in CreateMaterialInput) (*Material, error)
	GetMaterial(ctx context.Context, in GetMaterialInput) (*Material, error)
	ListMaterials(ctx context.Context, in ListMaterialsInput) ([]*Material, error)
	UpdateMaterial(ctx context.Context, in UpdateMaterialInput) (*Material, error)
	DeleteMaterial(ctx context.Context, in DeleteMaterialInput) error
	ListAvailable(ctx context.Context, in ListAvailableInput) ([]*Material, error)
	ListLowStock(ctx context.Context) ([]*Material, error)
	AdjustStock(ctx context.Context, in AdjustStockInput) (*Material, error)
	AllocateMaterial(ctx context.Context, in AllocateMaterialInput) (*ProjectMaterial, error)
	ListProjectMaterials(ctx context.Context, in ListProjectMaterialsInput) ([]*ProjectMaterial, error)
	RecordUsage(ctx context.Context, in RecordUsageInput) (*ProjectMaterial, error)
	ReleaseAllocation(ctx context.Context, in ReleaseAllocationInput) error
}

// NewService は Service を生成します。
func NewService(repo Repository, allocations AllocationRepository, clock Clock, tx TransactionManager) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, allocations: allocations, clock: clock, tx: tx}
}

// CreateMaterialInput は資材作成時の入力です。
type CreateMaterialInput struct {
	Name         string
	Description  *string
	SKU          string
	Quantity     float64
	Unit         string
	MinQuantity  float64
	PricePerUnit decimal.Decimal
	SupplierID   *string
	Location     *string
	IsActive     *bool
	LastOrdered  *time.Time
}

// UpdateMaterialInput は資材更新時の入力です。nil のフィールドは変更しません。
type UpdateMaterialInput struct {
	ID             string
	Name           *string
	Description    *string
	DescriptionSet bool
	SKU            *string
	Quantity       *float64
	Unit           *string
	MinQuantity    *float64
	PricePerUnit   *decimal.Decimal
	SupplierID     *string
	SupplierIDSet  bool
	Location       *string
	LocationSet    bool
	IsActive       *bool
	LastOrdered    *time.Time
	LastOrderedSet bool
}

// GetMaterialInput は資材取得時の入力です。
type GetMaterialInput struct {
	ID string
}

// DeleteMaterialInput は資材削除時の入力です。
type DeleteMaterialInput struct {
	ID string
}

// ListMaterialsInput は一覧取得時の入力です。
type ListMaterialsInput struct {
	Skip   int
	Limit  int
	Search *string
}

// ListAvailableInput は在庫あり一覧の入力です。
type ListAvailableInput struct {
	MinQuantity float64
}

// AdjustStockInput は在庫増減の入力です。
type AdjustStockInput struct {
	ID    string
	Delta float64
}

// AllocateMaterialInput は資材割り当ての入力です。
type AllocateMaterialInput struct {
	ProjectID  string
	MaterialID string
	Quantity   float64
}

// ListProjectMaterialsInput はプロジェクトの割り当て一覧の入力です。
type ListProjectMaterialsInput struct {
	ProjectID string
}

// RecordUsageInput は使用量記録の入力です。
type RecordUsageInput struct {
	ProjectID    string
	AllocationID string
	Delta        float64
}

// ReleaseAllocationInput は割り当て解除の入力です。
type ReleaseAllocationInput struct {
	ProjectID    string
	AllocationID string
}

// CreateMaterial は新しい資材を登録します。
func (s *Service) CreateMaterial(ctx context.Context, in CreateMaterialInput) (*Material, error) {
	name, err := requireText(in.Name, maxNameLength, ErrInvalidName)
	if err != nil {
		return nil, err
	}
	sku, err := normalizeSKU(in.SKU)
	if err != nil {
		return nil, err
	}
	unit, err := requireText(in.Unit, maxUnitLength, ErrInvalidUnit)
	if err != nil {
		return nil, err
	}
	description, err := optionalText(in.Description, maxDescriptionLength)
	if err != nil {
		return nil, fmt.Errorf("description: %w", err)
	}
	location, err := optionalText(in.Location, maxLocationLength)
	if err != nil {
		return nil, fmt.Errorf("location: %w", err)
	}
	if !validStock(in.Quantity) || !validStock(in.MinQuantity) {
		return nil, ErrInvalidQuantity
	}
	if !validMoney(in.PricePerUnit) {
		return nil, ErrInvalidPrice
	}

	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}

	now := s.clock.Now()
	m := &Material{
		Name:         name,
		Description:  description,
		SKU:          sku,
		Quantity:     in.Quantity,
		Unit:         unit,
		MinQuantity:  in.MinQuantity,
		PricePerUnit: in.PricePerUnit,
		SupplierID:   trimOptional(in.SupplierID),
		Location:     location,
		IsActive:     isActive,
		LastOrdered:  in.LastOrdered,
		LastUpdated:  now,
		CreatedAt:    now,
	}

	var created *Material
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		result, err := s.repo.Create(txCtx, m)
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateMaterial は資材を部分更新します。
func (s *Service) UpdateMaterial(ctx context.Context, in UpdateMaterialInput) (*Material, error) {
	return s.mutate(ctx, in.ID, func(existing *Material, now time.Time) error {
		if in.Name != nil {
			name, err := requireText(*in.Name, maxNameLength, ErrInvalidName)
			if err != nil {
				return err
			}
			existing.Name = name
		}
		if in.DescriptionSet {
			description, err := optionalText(in.Description, maxDescriptionLength)
			if err != nil {
				return fmt.Errorf("description: %w", err)
			}
			existing.Description = description
		}
		if in.SKU != nil {
			sku, err := normalizeSKU(*in.SKU)
			if err != nil {
				return err
			}
			existing.SKU = sku
		}
		if in.Unit != nil {
			unit, err := requireText(*in.Unit, maxUnitLength, ErrInvalidUnit)
			if err != nil {
				return err
			}
			existing.Unit = unit
		}
		if in.Quantity != nil {
			if !validStock(*in.Quantity) {
				return ErrInvalidQuantity
			}
			existing.Quantity = *in.Quantity
		}
		if in.MinQuantity != nil {
			if !validStock(*in.MinQuantity) {
				return ErrInvalidQuantity
			}
			existing.MinQuantity = *in.MinQuantity
		}
		if in.PricePerUnit != nil {
			if !validMoney(*in.PricePerUnit) {
				return ErrInvalidPrice
			}
			existing.PricePerUnit = *in.PricePerUnit
		}
		if in.SupplierIDSet {
			existing.SupplierID = trimOptional(in.SupplierID)
		}
		if in.LocationSet {
			location, err := optionalText(in.Location, maxLocationLength)
			if err != nil {
				return fmt.Errorf("location: %w", err)
			}
			existing.Location = location
		}
		if in.IsActive != nil {
			existing.IsActive = *in.IsActive
		}
		if in.LastOrderedSet {
			existing.LastOrdered = in.LastOrdered
		}
		existing.LastUpdated = now
		return nil
	})
}

// AdjustStock は在庫数を増減します。0 未満にはなりません。
func (s *Service) AdjustStock(ctx context.Context, in AdjustStockInput) (*Material, error) {
	if in.Delta == 0 || math.IsNaN(in.Delta) || math.IsInf(in.Delta, 0) {
		return nil, ErrInvalidQuantity
	}
	return s.mutate(ctx, in.ID, func(existing *Material, now time.Time) error {
		existing.UpdateQuantity(in.Delta, now)
		return nil
	})
}

// DeleteMaterial は資材を削除します。割り当ては連鎖して削除されます。
func (s *Service) DeleteMaterial(ctx context.Context, in DeleteMaterialInput) error {
	id, err := normalizeID(in.ID)
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, id)
	})
}

// GetMaterial は資材を取得します。
func (s *Service) GetMaterial(ctx context.Context, in GetMaterialInput) (*Material, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}

	var result *Material
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListMaterials は資材の一覧を取得します。
func (s *Service) ListMaterials(ctx context.Context, in ListMaterialsInput) ([]*Material, error) {
	limit, err := normalizeLimit(in.Limit)
	if err != nil {
		return nil, err
	}
	if in.Skip < 0 {
		return nil, ErrInvalidPagination
	}

	filter := ListMaterialsFilter{
		Search: trimOptional(in.Search),
		Limit:  limit,
		Offset: in.Skip,
	}

	var materials []*Material
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.List(txCtx, filter)
		if err != nil {
			return err
		}
		materials = result
		return nil
	}); err != nil {
		return nil, err
	}

	return materials, nil
}

// ListAvailable は在庫数が指定値以上の資材を在庫数の多い順に返します。
func (s *Service) ListAvailable(ctx context.Context, in ListAvailableInput) ([]*Material, error) {
	if !validStock(in.MinQuantity) {
		return nil, ErrInvalidQuantity
	}

	var materials []*Material
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.ListAvailable(txCtx, in.MinQuantity)
		if err != nil {
			return err
		}
		materials = result
		return nil
	}); err != nil {
		return nil, err
	}

	return materials, nil
}

// ListLowStock は発注点以下の有効な資材を返します。
func (s *Service) ListLowStock(ctx context.Context) ([]*Material, error) {
	var materials []*Material
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.ListLowStock(txCtx)
		if err != nil {
			return err
		}
		materials = result
		return nil
	}); err != nil {
		return nil, err
	}

	return materials, nil
}

// AllocateMaterial は資材をプロジェクトに割り当てます。在庫数は変更しません。
func (s *Service) AllocateMaterial(ctx context.Context, in AllocateMaterialInput) (*ProjectMaterial, error) {
	projectID, err := normalizeID(in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("project_id: %w", err)
	}
	materialID, err := normalizeID(in.MaterialID)
	if err != nil {
		return nil, fmt.Errorf("material_id: %w", err)
	}
	if !(in.Quantity > 0) || math.IsInf(in.Quantity, 0) {
		return nil, ErrInvalidQuantity
	}

	var allocated *ProjectMaterial
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.FindByID(txCtx, materialID); err != nil {
			return err
		}

		now := s.clock.Now()
		result, err := s.allocations.Create(txCtx, &ProjectMaterial{
			ProjectID:         projectID,
			MaterialID:        materialID,
			QuantityAllocated: in.Quantity,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
		if err != nil {
			return err
		}
		allocated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return allocated, nil
}

// ListProjectMaterials はプロジェクトの資材割り当て一覧を返します。
func (s *Service) ListProjectMaterials(ctx context.Context, in ListProjectMaterialsInput) ([]*ProjectMaterial, error) {
	projectID, err := normalizeID(in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("project_id: %w", err)
	}

	var result []*ProjectMaterial
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		exists, err := s.allocations.ProjectExists(txCtx, projectID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrProjectNotFound
		}
		found, err := s.allocations.ListByProject(txCtx, projectID)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// RecordUsage は割り当て済み資材の使用量を加算します。
func (s *Service) RecordUsage(ctx context.Context, in RecordUsageInput) (*ProjectMaterial, error) {
	if !(in.Delta > 0) || math.IsInf(in.Delta, 0) {
		return nil, ErrInvalidQuantity
	}

	var updated *ProjectMaterial
	if err := s.withAllocation(ctx, in.ProjectID, in.AllocationID, func(txCtx context.Context, existing *ProjectMaterial) error {
		if err := existing.UpdateUsage(in.Delta, s.clock.Now()); err != nil {
			return err
		}
		result, err := s.allocations.Update(txCtx, existing)
		if err != nil {
			return err
		}
		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// ReleaseAllocation は資材割り当てを削除します。
func (s *Service) ReleaseAllocation(ctx context.Context, in ReleaseAllocationInput) error {
	return s.withAllocation(ctx, in.ProjectID, in.AllocationID, func(txCtx context.Context, existing *ProjectMaterial) error {
		return s.allocations.Delete(txCtx, existing.ID)
	})
}

// withAllocation はプロジェクトに属する割り当てを読み書きトランザクション内で取得します。
func (s *Service) withAllocation(ctx context.Context, rawProjectID, rawAllocationID string, fn func(context.Context, *ProjectMaterial) error) error {
	projectID, err := normalizeID(rawProjectID)
	if err != nil {
		return fmt.Errorf("project_id: %w", err)
	}
	allocationID, err := normalizeID(rawAllocationID)
	if err != nil {
		return fmt.Errorf("allocation_id: %w", err)
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.allocations.FindByID(txCtx, allocationID)
		if err != nil {
			return err
		}
		if existing.ProjectID != projectID {
			return ErrAllocationNotFound
		}
		return fn(txCtx, existing)
	})
}

func (s *Service) mutate(ctx context.Context, rawID string, fn func(*Material, time.Time) error) (*Material, error) {
	id, err := normalizeID(rawID)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}

	var updated *Material
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := fn(existing, s.clock.Now()); err != nil {
			return err
		}

		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}
		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

func normalizeID(raw string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidID
	}
	return parsed.String(), nil
}

func normalizeSKU(raw string) (string, error) {
	sku, err := requireText(raw, maxSKULength, ErrInvalidSKU)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(sku), nil
}

func requireText(raw string, maxLen int, invalid error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", invalid
	}
	if utf8.RuneCountInString(trimmed) > maxLen {
		return "", fmt.Errorf("%w: %w", invalid, ErrFieldTooLong)
	}
	return trimmed, nil
}

func optionalText(v *string, maxLen int) (*string, error) {
	trimmed := trimOptional(v)
	if trimmed != nil && utf8.RuneCountInString(*trimmed) > maxLen {
		return nil, ErrFieldTooLong
	}
	return trimmed, nil
}

func normalizeLimit(limit int) (int, error) {
	switch {
	case limit == 0:
		return DefaultListLimit, nil
	case limit < 0 || limit > MaxListLimit:
		return 0, ErrInvalidPagination
	default:
		return limit, nil
	}
}

func validStock(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}

// maxMoney は NUMERIC(14,2) に収まらない最小の金額です。
var maxMoney = decimal.New(1, 12)

// validMoney は金額が 0 以上で上限未満かつ小数点以下 2 桁以内であることを確認します。
func validMoney(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThan(maxMoney) && d.Equal(d.Truncate(moneyScale))
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
