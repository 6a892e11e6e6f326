package material

import "context"

// Repository は資材永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, material *Material) (*Material, error)
	Update(ctx context.Context, material *Material) (*Material, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Material, error)
	List(ctx context.Context, filter ListMaterialsFilter) ([]*Material, error)
	// ListAvailable は在庫数が minQuantity 以上の資材を在庫数の降順で返します。
	ListAvailable(ctx context.Context, minQuantity float64) ([]*Material, error)
	ListLowStock(ctx context.Context) ([]*Material, error)
}

// ListMaterialsFilter は一覧取得時の検索条件です。
// Search は名前の部分一致 (大文字小文字を区別しない) です。
type ListMaterialsFilter struct {
	Search *string
	Limit  int
	Offset int
}

// AllocationRepository はプロジェクトへの資材割り当てを永続化します。
// 存在しないプロジェクトへの割り当ては ErrProjectNotFound を返します。
type AllocationRepository interface {
	Create(ctx context.Context, allocation *ProjectMaterial) (*ProjectMaterial, error)
	Update(ctx context.Context, allocation *ProjectMaterial) (*ProjectMaterial, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*ProjectMaterial, error)
	ListByProject(ctx context.Context, projectID string) ([]*ProjectMaterial, error)
	ProjectExists(ctx context.Context, projectID string) (bool, error)
}
