package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/construction-api/internal/core/project"
	pgdb "github.com/ogurasousui/construction-api/internal/platform/db/postgres"
	"github.com/shopspring/decimal"
)

const projectColumns = `id, name, description, start_date, end_date, budget, progress, status, client_name, priority,
               created_at, updated_at`

// ProjectRepository は PostgreSQL を利用したプロジェクト永続化の実装です。
type ProjectRepository struct {
	pool pgdb.Queryer
}

// NewProjectRepository は ProjectRepository を生成します。
func NewProjectRepository(pool pgdb.Queryer) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

// Create はプロジェクトを新規作成します。
func (r *ProjectRepository) Create(ctx context.Context, p *project.Project) (*project.Project, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO projects (name, description, start_date, end_date, budget, progress, status, client_name, priority,
                              created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING `+projectColumns,
		p.Name,
		nullStringPtr(p.Description),
		dateOnly(p.StartDate),
		nullableDate(p.EndDate),
		p.Budget,
		p.Progress,
		string(p.Status),
		nullStringPtr(p.ClientName),
		p.Priority,
		p.CreatedAt,
		p.UpdatedAt,
	)

	created, err := scanProject(row)
	if err != nil {
		return nil, translateProjectPgError(err)
	}
	return created, nil
}

// Update はプロジェクトを更新します。
func (r *ProjectRepository) Update(ctx context.Context, p *project.Project) (*project.Project, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE projects
           SET name = $1,
               description = $2,
               start_date = $3,
               end_date = $4,
               budget = $5,
               progress = $6,
               status = $7,
               client_name = $8,
               priority = $9,
               updated_at = $10
         WHERE id = $11
        RETURNING `+projectColumns,
		p.Name,
		nullStringPtr(p.Description),
		dateOnly(p.StartDate),
		nullableDate(p.EndDate),
		p.Budget,
		p.Progress,
		string(p.Status),
		nullStringPtr(p.ClientName),
		p.Priority,
		p.UpdatedAt,
		p.ID,
	)

	updated, err := scanProject(row)
	if err != nil {
		return nil, translateProjectPgError(err)
	}
	return updated, nil
}

// Delete はプロジェクトを削除します。
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return translateProjectPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return project.ErrProjectNotFound
	}
	return nil
}

// FindByID は ID でプロジェクトを取得します。
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*project.Project, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+projectColumns+`
          FROM projects
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanProject(row)
	if err != nil {
		return nil, translateProjectPgError(err)
	}
	return found, nil
}

// List はプロジェクトの一覧を取得します。
func (r *ProjectRepository) List(ctx context.Context, filter project.ListProjectsFilter) ([]*project.Project, error) {
	if filter.Limit <= 0 || filter.Offset < 0 {
		return nil, project.ErrInvalidPagination
	}

	args := make([]any, 0, 3)
	whereClause := ""
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		whereClause = " WHERE status = $" + strconv.Itoa(len(args))
	}

	args = append(args, filter.Limit)
	limitPlaceholder := "$" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	offsetPlaceholder := "$" + strconv.Itoa(len(args))

	query := `
        SELECT ` + projectColumns + `
          FROM projects` + whereClause + `
         ORDER BY created_at, id
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translateProjectPgError(err)
	}
	defer rows.Close()

	projects := make([]*project.Project, 0, filter.Limit)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, translateProjectPgError(err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, translateProjectPgError(err)
	}

	return projects, nil
}

func scanProject(row pgx.Row) (*project.Project, error) {
	var (
		p           project.Project
		description sql.NullString
		startDate   time.Time
		endDate     sql.NullTime
		budget      decimal.Decimal
		status      string
		clientName  sql.NullString
	)

	if err := row.Scan(
		&p.ID,
		&p.Name,
		&description,
		&startDate,
		&endDate,
		&budget,
		&p.Progress,
		&status,
		&clientName,
		&p.Priority,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, project.ErrProjectNotFound
		}
		return nil, err
	}

	p.Description = stringPtrFromNull(description)
	p.StartDate = dateOnly(startDate.UTC())
	if endDate.Valid {
		end := dateOnly(endDate.Time.UTC())
		p.EndDate = &end
	}
	p.Budget = budget
	p.Status = project.Status(status)
	p.ClientName = stringPtrFromNull(clientName)
	return &p, nil
}

func translateProjectPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return project.ErrProjectNotFound
	}
	if isInvalidText(err) {
		return project.ErrInvalidID
	}

	if pgErr, ok := asPgError(err, pgerrcode.CheckViolation); ok {
		switch pgErr.ConstraintName {
		case "projects_status_check":
			return project.ErrInvalidStatus
		case "projects_progress_check":
			return project.ErrInvalidProgress
		case "projects_budget_check":
			return project.ErrInvalidBudget
		case "projects_priority_check":
			return project.ErrInvalidPriority
		case "projects_date_range_check":
			return project.ErrInvalidDateRange
		}
	}
	if _, ok := asPgError(err, pgerrcode.StringDataRightTruncationDataException); ok {
		return project.ErrFieldTooLong
	}
	if _, ok := asPgError(err, pgerrcode.NumericValueOutOfRange); ok {
		return project.ErrInvalidBudget
	}

	return err
}
