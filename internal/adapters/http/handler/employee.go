package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/construction-api/internal/core/employee"
	"github.com/ogurasousui/construction-api/internal/platform/logger"
	"github.com/shopspring/decimal"
)

// EmployeeHandler は /api/employees 以下のエンドポイントを提供します。
type EmployeeHandler struct {
	svc employee.UseCase
	log *logger.Logger
}

// NewEmployeeHandler は EmployeeHandler を生成します。
func NewEmployeeHandler(svc employee.UseCase, log *logger.Logger) *EmployeeHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &EmployeeHandler{svc: svc, log: log}
}

// Register はルートを登録します。
func (h *EmployeeHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/employees")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/status", h.GetStatus)
	g.PUT("/:id/status", h.UpdateStatus)
	g.GET("/:id/performance", h.GetPerformance)
	g.PUT("/:id/performance", h.UpdatePerformance)
	g.POST("/:id/hours", h.RecordHours)
	g.POST("/:id/pto", h.AdjustPTO)
	g.GET("/:id/subordinates", h.ListSubordinates)
}

type createEmployeeRequest struct {
	Email            string          `json:"email"`
	FirstName        string          `json:"first_name"`
	LastName         string          `json:"last_name"`
	Role             string          `json:"role"`
	Department       string          `json:"department"`
	HireDate         string          `json:"hire_date"`
	Status           *string         `json:"status"`
	HourlyRate       decimal.Decimal `json:"hourly_rate"`
	IsSupervisor     bool            `json:"is_supervisor"`
	SupervisorID     *string         `json:"supervisor_id"`
	PerformanceScore *float64        `json:"performance_score"`
	TotalHoursWorked *float64        `json:"total_hours_worked"`
	AvailablePTO     *float64        `json:"available_pto"`
	PhoneNumber      *string         `json:"phone_number"`
	EmergencyContact *string         `json:"emergency_contact"`
}

type updateEmployeeRequest struct {
	Email            *string          `json:"email"`
	FirstName        *string          `json:"first_name"`
	LastName         *string          `json:"last_name"`
	Role             *string          `json:"role"`
	Department       *string          `json:"department"`
	HireDate         *string          `json:"hire_date"`
	Status           *string          `json:"status"`
	HourlyRate       *decimal.Decimal `json:"hourly_rate"`
	IsSupervisor     *bool            `json:"is_supervisor"`
	SupervisorID     Optional[string] `json:"supervisor_id"`
	PerformanceScore *float64         `json:"performance_score"`
	AvailablePTO     *float64         `json:"available_pto"`
	PhoneNumber      Optional[string] `json:"phone_number"`
	EmergencyContact Optional[string] `json:"emergency_contact"`
}

type employeeStatusRequest struct {
	Status string `json:"status"`
}

type employeePerformanceRequest struct {
	PerformanceScore *float64 `json:"performance_score"`
}

type recordHoursRequest struct {
	Hours float64 `json:"hours"`
}

type adjustPTORequest struct {
	Delta float64 `json:"delta"`
}

type employeeResponse struct {
	ID               string          `json:"id"`
	Email            string          `json:"email"`
	FirstName        string          `json:"first_name"`
	LastName         string          `json:"last_name"`
	FullName         string          `json:"full_name"`
	Role             string          `json:"role"`
	Department       string          `json:"department"`
	HireDate         string          `json:"hire_date"`
	Status           string          `json:"status"`
	HourlyRate       decimal.Decimal `json:"hourly_rate"`
	IsSupervisor     bool            `json:"is_supervisor"`
	SupervisorID     *string         `json:"supervisor_id"`
	LastStatusUpdate time.Time       `json:"last_status_update"`
	PerformanceScore float64         `json:"performance_score"`
	TotalHoursWorked float64         `json:"total_hours_worked"`
	AvailablePTO     float64         `json:"available_pto"`
	PhoneNumber      *string         `json:"phone_number"`
	EmergencyContact *string         `json:"emergency_contact"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type employeeStatusResponse struct {
	EmployeeID       string    `json:"employee_id"`
	Status           string    `json:"status"`
	LastStatusUpdate time.Time `json:"last_status_update"`
}

type employeePerformanceResponse struct {
	EmployeeID       string          `json:"employee_id"`
	PerformanceScore float64         `json:"performance_score"`
	Rating           string          `json:"rating"`
	TotalHoursWorked float64         `json:"total_hours_worked"`
	AvailablePTO     float64         `json:"available_pto"`
	HourlyRate       decimal.Decimal `json:"hourly_rate"`
	LaborCost        decimal.Decimal `json:"labor_cost"`
}

// List は社員の一覧を返します。
func (h *EmployeeHandler) List(c *gin.Context) {
	skip, limit, err := pagination(c)
	if err != nil {
		respondError(c, h.log, "fetch employees", err)
		return
	}

	var statusPtr *employee.Status
	if raw := queryString(c, "status"); raw != nil {
		s := employee.Status(*raw)
		statusPtr = &s
	}

	employees, err := h.svc.ListEmployees(c.Request.Context(), employee.ListEmployeesInput{
		Skip:       skip,
		Limit:      limit,
		Status:     statusPtr,
		Department: queryString(c, "department"),
	})
	if err != nil {
		respondError(c, h.log, "fetch employees", err)
		return
	}

	c.JSON(http.StatusOK, toEmployeeResponses(employees))
}

// Create は社員を登録します。
func (h *EmployeeHandler) Create(c *gin.Context) {
	var req createEmployeeRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, "create employee", err)
		return
	}

	hireDate, err := parseDate(req.HireDate, employee.ErrInvalidHireDate)
	if err != nil {
		respondError(c, h.log, "create employee", err)
		return
	}

	var statusPtr *employee.Status
	if req.Status != nil {
		s := employee.Status(*req.Status)
		statusPtr = &s
	}

	created, err := h.svc.CreateEmployee(c.Request.Context(), employee.CreateEmployeeInput{
		Email:            req.Email,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Role:             employee.Role(req.Role),
		Department:       req.Department,
		HireDate:         hireDate,
		Status:           statusPtr,
		HourlyRate:       req.HourlyRate,
		IsSupervisor:     req.IsSupervisor,
		SupervisorID:     req.SupervisorID,
		PerformanceScore: req.PerformanceScore,
		TotalHoursWorked: req.TotalHoursWorked,
		AvailablePTO:     req.AvailablePTO,
		PhoneNumber:      req.PhoneNumber,
		EmergencyContact: req.EmergencyContact,
	})
	if err != nil {
		respondError(c, h.log, "create employee", err)
		return
	}

	c.JSON(http.StatusCreated, toEmployeeResponse(created))
}

// Get は社員を取得します。
func (h *EmployeeHandler) Get(c *gin.Context) {
	found, err := h.svc.GetEmployee(c.Request.Context(), employee.GetEmployeeInput{ID: c.Param("id")})
	if err != nil {
		respondError(c, h.log, "fetch employee", err)
		return
	}
	c.JSON(http.StatusOK, toEmployeeResponse(found))
}

// Update は送信されたキーだけを更新します。
func (h *EmployeeHandler) Update(c *gin.Context) {
	var req updateEmployeeRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, "update employee", err)
		return
	}

	hireDate, err := parseDatePtr(req.HireDate, employee.ErrInvalidHireDate)
	if err != nil {
		respondError(c, h.log, "update employee", err)
		return
	}

	in := employee.UpdateEmployeeInput{
		ID:                  c.Param("id"),
		Email:               req.Email,
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		Department:          req.Department,
		HireDate:            hireDate,
		HourlyRate:          req.HourlyRate,
		IsSupervisor:        req.IsSupervisor,
		SupervisorID:        req.SupervisorID.Value,
		SupervisorIDSet:     req.SupervisorID.Set,
		PerformanceScore:    req.PerformanceScore,
		AvailablePTO:        req.AvailablePTO,
		PhoneNumber:         req.PhoneNumber.Value,
		PhoneNumberSet:      req.PhoneNumber.Set,
		EmergencyContact:    req.EmergencyContact.Value,
		EmergencyContactSet: req.EmergencyContact.Set,
	}
	if req.Role != nil {
		role := employee.Role(*req.Role)
		in.Role = &role
	}
	if req.Status != nil {
		s := employee.Status(*req.Status)
		in.Status = &s
	}

	updated, err := h.svc.UpdateEmployee(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, "update employee", err)
		return
	}

	c.JSON(http.StatusOK, toEmployeeResponse(updated))
}

// Delete は社員を削除します。
func (h *EmployeeHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteEmployee(c.Request.Context(), employee.DeleteEmployeeInput{ID: c.Param("id")}); err != nil {
		respondError(c, h.log, "delete employee", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetStatus は勤務状態を返します。
func (h *EmployeeHandler) GetStatus(c *gin.Context) {
	snapshot, err := h.svc.GetEmployeeStatus(c.Request.Context(), employee.GetEmployeeInput{ID: c.Param("id")})
	if err != nil {
		respondError(c, h.log, "fetch employee status", err)
		return
	}
	c.JSON(http.StatusOK, employeeStatusResponse{
		EmployeeID:       snapshot.EmployeeID,
		Status:           string(snapshot.Status),
		LastStatusUpdate: snapshot.LastStatusUpdate,
	})
}

// UpdateStatus は勤務状態を変更します。
func (h *EmployeeHandler) UpdateStatus(c *gin.Context) {
	var req employeeStatusRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, "update employee status", err)
		return
	}

	updated, err := h.svc.UpdateEmployeeStatus(c.Request.Context(), employee.UpdateStatusInput{
		ID:     c.Param("id"),
		Status: employee.Status(req.Status),
	})
	if err != nil {
		respondError(c, h.log, "update employee status", err)
		return
	}
	c.JSON(http.StatusOK, toEmployeeResponse(updated))
}

// GetPerformance は評価指標を返します。
func (h *EmployeeHandler) GetPerformance(c *gin.Context) {
	metrics, err := h.svc.GetEmployeePerformance(c.Request.Context(), employee.GetEmployeeInput{ID: c.Param("id")})
	if err != nil {
		respondError(c, h.log, "fetch employee performance", err)
		return
	}
	c.JSON(http.StatusOK, employeePerformanceResponse{
		EmployeeID:       metrics.EmployeeID,
		PerformanceScore: metrics.PerformanceScore,
		Rating:           string(metrics.Rating),
		TotalHoursWorked: metrics.TotalHoursWorked,
		AvailablePTO:     metrics.AvailablePTO,
		HourlyRate:       metrics.HourlyRate,
		LaborCost:        metrics.LaborCost,
	})
}

// UpdatePerformance は評価スコアを更新します。
func (h *EmployeeHandler) UpdatePerformance(c *gin.Context) {
	var req employeePerformanceRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, "update employee performance", err)
		return
	}
	if req.PerformanceScore == nil {
		respondError(c, h.log, "update employee performance", fmt.Errorf("%w: performance_score is required", errInvalidRequestBody))
		return
	}

	updated, err := h.svc.UpdatePerformanceScore(c.Request.Context(), employee.UpdatePerformanceInput{
		ID:    c.Param("id"),
		Score: *req.PerformanceScore,
	})
	if err != nil {
		respondError(c, h.log, "update employee performance", err)
		return
	}
	c.JSON(http.StatusOK, toEmployeeResponse(updated))
}

// RecordHours は稼働時間を加算します。
func (h *EmployeeHandler) RecordHours(c *gin.Context) {
	var req recordHoursRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, "record hours", err)
		return
	}

	updated, err := h.svc.RecordHours(c.Request.Context(), employee.RecordHoursInput{ID: c.Param("id"), Hours: req.Hours})
	if err != nil {
		respondError(c, h.log, "record hours", err)
		return
	}
	c.JSON(http.StatusOK, toEmployeeResponse(updated))
}

// AdjustPTO は有給残高を増減します。
func (h *EmployeeHandler) AdjustPTO(c *gin.Context) {
	var req adjustPTORequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, "adjust pto", err)
		return
	}

	updated, err := h.svc.AdjustPTO(c.Request.Context(), employee.AdjustPTOInput{ID: c.Param("id"), Delta: req.Delta})
	if err != nil {
		respondError(c, h.log, "adjust pto", err)
		return
	}
	c.JSON(http.StatusOK, toEmployeeResponse(updated))
}

// ListSubordinates は直属の部下を返します。
func (h *EmployeeHandler) ListSubordinates(c *gin.Context) {
	subordinates, err := h.svc.ListSubordinates(c.Request.Context(), employee.GetEmployeeInput{ID: c.Param("id")})
	if err != nil {
		respondError(c, h.log, "fetch subordinates", err)
		return
	}
	c.JSON(http.StatusOK, toEmployeeResponses(subordinates))
}

func toEmployeeResponses(employees []*employee.Employee) []employeeResponse {
	out := make([]employeeResponse, 0, len(employees))
	for _, e := range employees {
		out = append(out, toEmployeeResponse(e))
	}
	return out
}

func toEmployeeResponse(e *employee.Employee) employeeResponse {
	return employeeResponse{
		ID:               e.ID,
		Email:            e.Email,
		FirstName:        e.FirstName,
		LastName:         e.LastName,
		FullName:         e.FullName(),
		Role:             string(e.Role),
		Department:       e.Department,
		HireDate:         formatDate(e.HireDate),
		Status:           string(e.Status),
		HourlyRate:       e.HourlyRate,
		IsSupervisor:     e.IsSupervisor,
		SupervisorID:     e.SupervisorID,
		LastStatusUpdate: e.LastStatusUpdate,
		PerformanceScore: e.PerformanceScore,
		TotalHoursWorked: e.TotalHoursWorked,
		AvailablePTO:     e.AvailablePTO,
		PhoneNumber:      e.PhoneNumber,
		EmergencyContact: e.EmergencyContact,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}
