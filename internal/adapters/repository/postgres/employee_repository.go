package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/construction-api/internal/core/employee"
	pgdb "github.com/ogurasousui/construction-api/internal/platform/db/postgres"
	"github.com/shopspring/decimal"
)

const employeeColumns = `id, email, first_name, last_name, role, department, hire_date, status, hourly_rate,
               is_supervisor, supervisor_id, last_status_update, performance_score, total_hours_worked,
               available_pto, phone_number, emergency_contact, created_at, updated_at`

// EmployeeRepository は PostgreSQL を利用した社員永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// Create は社員を新規作成します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO employees (email, first_name, last_name, role, department, hire_date, status, hourly_rate,
                               is_supervisor, supervisor_id, last_status_update, performance_score, total_hours_worked,
                               available_pto, phone_number, emergency_contact, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
        RETURNING `+employeeColumns,
		e.Email,
		e.FirstName,
		e.LastName,
		string(e.Role),
		e.Department,
		dateOnly(e.HireDate),
		string(e.Status),
		e.HourlyRate,
		e.IsSupervisor,
		nullStringPtr(e.SupervisorID),
		e.LastStatusUpdate,
		e.PerformanceScore,
		e.TotalHoursWorked,
		e.AvailablePTO,
		nullStringPtr(e.PhoneNumber),
		nullStringPtr(e.EmergencyContact),
		e.CreatedAt,
		e.UpdatedAt,
	)

	created, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return created, nil
}

// Update は社員情報を更新します。
func (r *EmployeeRepository) Update(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE employees
           SET email = $1,
               first_name = $2,
               last_name = $3,
               role = $4,
               department = $5,
               hire_date = $6,
               status = $7,
               hourly_rate = $8,
               is_supervisor = $9,
               supervisor_id = $10,
               last_status_update = $11,
               performance_score = $12,
               total_hours_worked = $13,
               available_pto = $14,
               phone_number = $15,
               emergency_contact = $16,
               updated_at = $17
         WHERE id = $18
        RETURNING `+employeeColumns,
		e.Email,
		e.FirstName,
		e.LastName,
		string(e.Role),
		e.Department,
		dateOnly(e.HireDate),
		string(e.Status),
		e.HourlyRate,
		e.IsSupervisor,
		nullStringPtr(e.SupervisorID),
		e.LastStatusUpdate,
		e.PerformanceScore,
		e.TotalHoursWorked,
		e.AvailablePTO,
		nullStringPtr(e.PhoneNumber),
		nullStringPtr(e.EmergencyContact),
		e.UpdatedAt,
		e.ID,
	)

	updated, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return updated, nil
}

// Delete は社員を削除します。部下の上長参照は NULL になります。
func (r *EmployeeRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return translateEmployeePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// FindByID は ID で社員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// List は社員の一覧を取得します。
func (r *EmployeeRepository) List(ctx context.Context, filter employee.ListEmployeesFilter) ([]*employee.Employee, error) {
	if filter.Limit <= 0 || filter.Offset < 0 {
		return nil, employee.ErrInvalidPagination
	}

	args := make([]any, 0, 4)
	conditions := make([]string, 0, 2)

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.Department != nil {
		args = append(args, *filter.Department)
		conditions = append(conditions, "department = $"+strconv.Itoa(len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, filter.Limit)
	limitPlaceholder := "$" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	offsetPlaceholder := "$" + strconv.Itoa(len(args))

	query := `
        SELECT ` + employeeColumns + `
          FROM employees` + whereClause + `
         ORDER BY created_at, id
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder

	return r.queryEmployees(ctx, filter.Limit, query, args...)
}

// ListBySupervisor は直属の部下を取得します。
func (r *EmployeeRepository) ListBySupervisor(ctx context.Context, supervisorID string) ([]*employee.Employee, error) {
	return r.queryEmployees(ctx, 0, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE supervisor_id = $1
         ORDER BY last_name, first_name, id
    `, supervisorID)
}

func (r *EmployeeRepository) queryEmployees(ctx context.Context, capacity int, query string, args ...any) ([]*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	defer rows.Close()

	employees := make([]*employee.Employee, 0, capacity)
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, translateEmployeePgError(err)
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err)
	}

	return employees, nil
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		e                employee.Employee
		role             string
		status           string
		hourlyRate       decimal.Decimal
		supervisorID     sql.NullString
		phoneNumber      sql.NullString
		emergencyContact sql.NullString
		hireDate         time.Time
	)

	if err := row.Scan(
		&e.ID,
		&e.Email,
		&e.FirstName,
		&e.LastName,
		&role,
		&e.Department,
		&hireDate,
		&status,
		&hourlyRate,
		&e.IsSupervisor,
		&supervisorID,
		&e.LastStatusUpdate,
		&e.PerformanceScore,
		&e.TotalHoursWorked,
		&e.AvailablePTO,
		&phoneNumber,
		&emergencyContact,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}

	e.Role = employee.Role(role)
	e.Status = employee.Status(status)
	e.HourlyRate = hourlyRate
	e.HireDate = dateOnly(hireDate.UTC())
	e.SupervisorID = stringPtrFromNull(supervisorID)
	e.PhoneNumber = stringPtrFromNull(phoneNumber)
	e.EmergencyContact = stringPtrFromNull(emergencyContact)
	return &e, nil
}

func translateEmployeePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}
	if isInvalidText(err) {
		return employee.ErrInvalidID
	}

	if pgErr, ok := asPgError(err, pgerrcode.UniqueViolation); ok {
		if pgErr.ConstraintName == "employees_email_key" {
			return employee.ErrEmailAlreadyExists
		}
		return err
	}
	if pgErr, ok := asPgError(err, pgerrcode.ForeignKeyViolation); ok {
		if pgErr.ConstraintName == "employees_supervisor_id_fkey" {
			return employee.ErrSupervisorNotFound
		}
		return err
	}
	if pgErr, ok := asPgError(err, pgerrcode.CheckViolation); ok {
		switch pgErr.ConstraintName {
		case "employees_status_check":
			return employee.ErrInvalidStatus
		case "employees_role_check":
			return employee.ErrInvalidRole
		case "employees_performance_score_check":
			return employee.ErrInvalidPerformanceScore
		case "employees_total_hours_worked_check":
			return employee.ErrInvalidHours
		case "employees_available_pto_check":
			return employee.ErrInvalidPTO
		case "employees_hourly_rate_check":
			return employee.ErrInvalidHourlyRate
		case "employees_supervisor_self_check":
			return employee.ErrSupervisorCycle
		}
	}
	if _, ok := asPgError(err, pgerrcode.NumericValueOutOfRange); ok {
		return employee.ErrInvalidHourlyRate
	}

	return err
}

func stringPtrFromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
