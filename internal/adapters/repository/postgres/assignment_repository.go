package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/construction-api/internal/core/project"
	pgdb "github.com/ogurasousui/construction-api/internal/platform/db/postgres"
)

// AssignmentRepository は project_employees テーブルを扱います。
type AssignmentRepository struct {
	pool pgdb.Queryer
}

// NewAssignmentRepository は AssignmentRepository を生成します。
func NewAssignmentRepository(pool pgdb.Queryer) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

// Assign は社員をプロジェクトに割り当てます。
func (r *AssignmentRepository) Assign(ctx context.Context, a *project.Assignment) (*project.Assignment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO project_employees (project_id, employee_id, role, assigned_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id, project_id, employee_id, role, assigned_at
    `,
		a.ProjectID,
		a.EmployeeID,
		nullStringPtr(a.Role),
		a.AssignedAt,
	)

	created, err := scanAssignment(row)
	if err != nil {
		return nil, translateAssignmentPgError(err)
	}
	return created, nil
}

// Unassign は割り当てを解除します。
func (r *AssignmentRepository) Unassign(ctx context.Context, projectID, employeeID string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM project_employees WHERE project_id = $1 AND employee_id = $2`, projectID, employeeID)
	if err != nil {
		return translateAssignmentPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return project.ErrAssignmentNotFound
	}
	return nil
}

// ListByProject はプロジェクトの割り当てを割り当て日時順に返します。
func (r *AssignmentRepository) ListByProject(ctx context.Context, projectID string) ([]*project.Assignment, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, project_id, employee_id, role, assigned_at
          FROM project_employees
         WHERE project_id = $1
         ORDER BY assigned_at, id
    `, projectID)
	if err != nil {
		return nil, translateAssignmentPgError(err)
	}
	defer rows.Close()

	var assignments []*project.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, translateAssignmentPgError(err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, translateAssignmentPgError(err)
	}

	return assignments, nil
}

func scanAssignment(row pgx.Row) (*project.Assignment, error) {
	var (
		a    project.Assignment
		role sql.NullString
	)
	if err := row.Scan(&a.ID, &a.ProjectID, &a.EmployeeID, &role, &a.AssignedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, project.ErrAssignmentNotFound
		}
		return nil, err
	}
	a.Role = stringPtrFromNull(role)
	return &a, nil
}

func translateAssignmentPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return project.ErrAssignmentNotFound
	}
	if isInvalidText(err) {
		return project.ErrInvalidID
	}
	if _, ok := asPgError(err, pgerrcode.UniqueViolation); ok {
		return project.ErrAlreadyAssigned
	}
	if pgErr, ok := asPgError(err, pgerrcode.ForeignKeyViolation); ok {
		switch pgErr.ConstraintName {
		case "project_employees_project_id_fkey":
			return project.ErrProjectNotFound
		case "project_employees_employee_id_fkey":
			return project.ErrEmployeeNotFound
		}
	}
	return err
}
