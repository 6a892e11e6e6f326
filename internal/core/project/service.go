package project

import (
	"context"
	"fmt"
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
	DefaultListLimit = 100
	MaxListLimit     = 500

	defaultPriority = 1
	minPriority     = 1
	maxPriority     = 5

	moneyScale = 2

	maxNameLength        = 100
	maxDescriptionLength = 500
	maxClientNameLength  = 100
)

// Service はプロジェクトに関するユースケースをまとめます。
type Service struct {
	repo        Repository
	assignments AssignmentRepository
	clock       Clock
	tx          TransactionManager
}

// UseCase はプロジェクトユースケースの公開インターフェースです。
type UseCase interface {
	CreateProject(ctx context.Context, in CreateProjectInput) (*Project, error)
	GetProject(ctx context.Context, in GetProjectInput) (*Project, error)
	ListProjects(ctx context.Context, in ListProjectsInput) ([]*Project, error)
	UpdateProject(ctx context.Context, in UpdateProjectInput) (*Project, error)
	DeleteProject(ctx context.Context, in DeleteProjectInput) error
	UpdateProgress(ctx context.Context, in UpdateProgressInput) (*ProgressReport, error)
	GetBudgetStatus(ctx context.Context, in BudgetStatusInput) (*BudgetSummary, error)
	AssignEmployee(ctx context.Context, in AssignEmployeeInput) (*Assignment, error)
	UnassignEmployee(ctx context.Context, in UnassignEmployeeInput) error
	ListAssignments(ctx context.Context, in GetProjectInput) ([]*Assignment, error)
}

// NewService は Service を生成します。
func NewService(repo Repository, assignments AssignmentRepository, clock Clock, tx TransactionManager) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, assignments: assignments, clock: clock, tx: tx}
}

// CreateProjectInput はプロジェクト作成時の入力です。
// Status を省略した場合は Progress から導出します。
type CreateProjectInput struct {
	Name        string
	Description *string
	StartDate   time.Time
	EndDate     *time.Time
	Budget      decimal.Decimal
	Progress    *float64
	Status      *Status
	ClientName  *string
	Priority    *int
}

// UpdateProjectInput はプロジェクト更新時の入力です。nil のフィールドは変更しません。
type UpdateProjectInput struct {
	ID             string
	Name           *string
	Description    *string
	DescriptionSet bool
	StartDate      *time.Time
	EndDate        *time.Time
	EndDateSet     bool
	Budget         *decimal.Decimal
	Progress       *float64
	Status         *Status
	ClientName     *string
	ClientNameSet  bool
	Priority       *int
}

// GetProjectInput はプロジェクト取得時の入力です。
type GetProjectInput struct {
	ID string
}

// DeleteProjectInput はプロジェクト削除時の入力です。
type DeleteProjectInput struct {
	ID string
}

// ListProjectsInput は一覧取得時の入力です。
type ListProjectsInput struct {
	Skip   int
	Limit  int
	Status *Status
}

// UpdateProgressInput は進捗更新時の入力です。
type UpdateProgressInput struct {
	ID       string
	Progress float64
}

// BudgetStatusInput は予算照会時の入力です。
type BudgetStatusInput struct {
	ID           string
	CurrentSpend decimal.Decimal
}

// AssignEmployeeInput は社員割り当て時の入力です。
type AssignEmployeeInput struct {
	ProjectID  string
	EmployeeID string
	Role       *string
}

// UnassignEmployeeInput は割り当て解除時の入力です。
type UnassignEmployeeInput struct {
	ProjectID  string
	EmployeeID string
}

// CreateProject は新しいプロジェクトを作成します。
func (s *Service) CreateProject(ctx context.Context, in CreateProjectInput) (*Project, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return nil, err
	}
	description, err := normalizeText(in.Description, maxDescriptionLength)
	if err != nil {
		return nil, fmt.Errorf("description: %w", err)
	}
	clientName, err := normalizeText(in.ClientName, maxClientNameLength)
	if err != nil {
		return nil, fmt.Errorf("client_name: %w", err)
	}
	if in.StartDate.IsZero() {
		return nil, ErrInvalidStartDate
	}
	startDate := dateOnly(in.StartDate)
	endDate := normalizeDate(in.EndDate)
	if err := validateDateRange(startDate, endDate); err != nil {
		return nil, err
	}
	if !validMoney(in.Budget) {
		return nil, ErrInvalidBudget
	}

	var progress float64
	if in.Progress != nil {
		if !validProgress(*in.Progress) {
			return nil, ErrInvalidProgress
		}
		progress = *in.Progress
	}

	priority := defaultPriority
	if in.Priority != nil {
		if !validPriority(*in.Priority) {
			return nil, ErrInvalidPriority
		}
		priority = *in.Priority
	}

	now := s.clock.Now()
	p := &Project{
		Name:        name,
		Description: description,
		StartDate:   startDate,
		EndDate:     endDate,
		Budget:      in.Budget,
		Progress:    progress,
		ClientName:  clientName,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		p.Status = *in.Status
	} else {
		p.UpdateStatus()
	}

	var created *Project
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		result, err := s.repo.Create(txCtx, p)
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

// UpdateProject はプロジェクトを部分更新します。
// Progress のみ指定された場合はステータスを再計算します。
func (s *Service) UpdateProject(ctx context.Context, in UpdateProjectInput) (*Project, error) {
	return s.mutate(ctx, in.ID, func(existing *Project) error {
		if in.Name != nil {
			name, err := normalizeName(*in.Name)
			if err != nil {
				return err
			}
			existing.Name = name
		}
		if in.DescriptionSet {
			description, err := normalizeText(in.Description, maxDescriptionLength)
			if err != nil {
				return fmt.Errorf("description: %w", err)
			}
			existing.Description = description
		}
		if in.ClientNameSet {
			clientName, err := normalizeText(in.ClientName, maxClientNameLength)
			if err != nil {
				return fmt.Errorf("client_name: %w", err)
			}
			existing.ClientName = clientName
		}
		if in.StartDate != nil {
			if in.StartDate.IsZero() {
				return ErrInvalidStartDate
			}
			existing.StartDate = dateOnly(*in.StartDate)
		}
		if in.EndDateSet {
			existing.EndDate = normalizeDate(in.EndDate)
		}
		if err := validateDateRange(existing.StartDate, existing.EndDate); err != nil {
			return err
		}
		if in.Budget != nil {
			if !validMoney(*in.Budget) {
				return ErrInvalidBudget
			}
			existing.Budget = *in.Budget
		}
		if in.Priority != nil {
			if !validPriority(*in.Priority) {
				return ErrInvalidPriority
			}
			existing.Priority = *in.Priority
		}
		if in.Progress != nil {
			if !validProgress(*in.Progress) {
				return ErrInvalidProgress
			}
			existing.Progress = *in.Progress
		}

		switch {
		case in.Status != nil:
			if !in.Status.Valid() {
				return ErrInvalidStatus
			}
			existing.Status = *in.Status
		case in.Progress != nil:
			existing.UpdateStatus()
		}
		return nil
	})
}

// UpdateProgress は進捗率を更新し、ステータスを導出します。
func (s *Service) UpdateProgress(ctx context.Context, in UpdateProgressInput) (*ProgressReport, error) {
	if !validProgress(in.Progress) {
		return nil, ErrInvalidProgress
	}

	updated, err := s.mutate(ctx, in.ID, func(existing *Project) error {
		existing.Progress = in.Progress
		existing.UpdateStatus()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ProgressReport{
		ProjectID:          updated.ID,
		Progress:           updated.Progress,
		Status:             updated.Status,
		CalculatedProgress: updated.CalculateProgress(s.clock.Now()),
	}, nil
}

// GetBudgetStatus は支出額に対する予算状況を返します。
func (s *Service) GetBudgetStatus(ctx context.Context, in BudgetStatusInput) (*BudgetSummary, error) {
	if in.CurrentSpend.IsNegative() {
		return nil, ErrInvalidSpend
	}

	p, err := s.GetProject(ctx, GetProjectInput{ID: in.ID})
	if err != nil {
		return nil, err
	}

	summary := p.BudgetSummary(in.CurrentSpend)
	return &summary, nil
}

// DeleteProject はプロジェクトを削除します。割り当ては連鎖して削除されます。
func (s *Service) DeleteProject(ctx context.Context, in DeleteProjectInput) error {
	id, err := normalizeID(in.ID)
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, id)
	})
}

// GetProject はプロジェクトを取得します。
func (s *Service) GetProject(ctx context.Context, in GetProjectInput) (*Project, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}

	var result *Project
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

// ListProjects はプロジェクトの一覧を取得します。
func (s *Service) ListProjects(ctx context.Context, in ListProjectsInput) ([]*Project, error) {
	limit, err := normalizeLimit(in.Limit)
	if err != nil {
		return nil, err
	}
	if in.Skip < 0 {
		return nil, ErrInvalidPagination
	}

	filter := ListProjectsFilter{Limit: limit, Offset: in.Skip}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		status := *in.Status
		filter.Status = &status
	}

	var projects []*Project
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.List(txCtx, filter)
		if err != nil {
			return err
		}
		projects = result
		return nil
	}); err != nil {
		return nil, err
	}

	return projects, nil
}

// AssignEmployee は社員をプロジェクトに割り当てます。
func (s *Service) AssignEmployee(ctx context.Context, in AssignEmployeeInput) (*Assignment, error) {
	projectID, err := normalizeID(in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("project_id: %w", err)
	}
	employeeID, err := normalizeID(in.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("employee_id: %w", err)
	}

	var assigned *Assignment
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.FindByID(txCtx, projectID); err != nil {
			return err
		}

		result, err := s.assignments.Assign(txCtx, &Assignment{
			ProjectID:  projectID,
			EmployeeID: employeeID,
			Role:       trimOptional(in.Role),
			AssignedAt: s.clock.Now(),
		})
		if err != nil {
			return err
		}
		assigned = result
		return nil
	}); err != nil {
		return nil, err
	}

	return assigned, nil
}

// UnassignEmployee は社員の割り当てを解除します。
func (s *Service) UnassignEmployee(ctx context.Context, in UnassignEmployeeInput) error {
	projectID, err := normalizeID(in.ProjectID)
	if err != nil {
		return fmt.Errorf("project_id: %w", err)
	}
	employeeID, err := normalizeID(in.EmployeeID)
	if err != nil {
		return fmt.Errorf("employee_id: %w", err)
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.assignments.Unassign(txCtx, projectID, employeeID)
	})
}

// ListAssignments はプロジェクトの割り当て一覧を返します。
func (s *Service) ListAssignments(ctx context.Context, in GetProjectInput) ([]*Assignment, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}

	var result []*Assignment
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.FindByID(txCtx, id); err != nil {
			return err
		}
		found, err := s.assignments.ListByProject(txCtx, id)
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

func (s *Service) mutate(ctx context.Context, rawID string, fn func(*Project) error) (*Project, error) {
	id, err := normalizeID(rawID)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}

	var updated *Project
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := fn(existing); err != nil {
			return err
		}
		existing.UpdatedAt = s.clock.Now()

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

func normalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

func normalizeText(v *string, maxLen int) (*string, error) {
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

func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	normalized := dateOnly(*t)
	return &normalized
}

func validateDateRange(start time.Time, end *time.Time) error {
	if end != nil && end.Before(start) {
		return ErrInvalidDateRange
	}
	return nil
}

func validProgress(progress float64) bool {
	return progress >= 0 && progress <= 100
}

func validPriority(priority int) bool {
	return priority >= minPriority && priority <= maxPriority
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
