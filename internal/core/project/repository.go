package project

import "context"

// Repository はプロジェクト永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, project *Project) (*Project, error)
	Update(ctx context.Context, project *Project) (*Project, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context, filter ListProjectsFilter) ([]*Project, error)
}

// ListProjectsFilter は一覧取得時の検索条件です。
type ListProjectsFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// AssignmentRepository はプロジェクトと社員の割り当てを永続化します。
// 存在しない社員への割り当ては ErrEmployeeNotFound を返します。
type AssignmentRepository interface {
	Assign(ctx context.Context, assignment *Assignment) (*Assignment, error)
	Unassign(ctx context.Context, projectID, employeeID string) error
	ListByProject(ctx context.Context, projectID string) ([]*Assignment, error)
}
