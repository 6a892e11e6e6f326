package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/construction-api/internal/core/material"
	"github.com/ogurasousui/construction-api/internal/core/project"
	"github.com/ogurasousui/construction-api/internal/platform/logger"
	"github.com/shopspring/decimal"
)

// ProjectHandler は /api/projects 以下のエンドポイントを提供します。
// プロジェクトへの社員配置と資材割り当てもここで扱います。
type ProjectHandler struct {
	svc       project.UseCase
	materials material.UseCase
	log       *logger.Logger
}

// NewProjectHandler は ProjectHandler を生成します。
func NewProjectHandler(svc project.UseCase, materials material.UseCase, log *logger.Logger) *ProjectHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &ProjectHandler{svc: svc, materials: materials, log: log}
}

// Register はルートを登録します。
func (h *ProjectHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/projects")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.PUT("/:id/progress", h.UpdateProgress)
	g.GET("/:id/budget", h.BudgetStatus)
	g.GET("/:id/employees", h.ListAssignments)
	g.PUT("/:id/employees/:employee_id", h.AssignEmployee)
	g.DELETE("/:id/employees/:employee_id", h.UnassignEmployee)
	g.GET("/:id/materials", h.ListMaterials)
	g.POST("/:id/materials", h.AllocateMaterial)
	g.POST("/:id/materials/:allocation_id/usage", h.RecordUsage)
	g.DELETE("/:id/materials/:allocation_id", h.ReleaseAllocation)
}

type createProjectRequest struct {
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	StartDate   string          `json:"start_date"`
	EndDate     *string         `json:"end_date"`
	Budget      decimal.Decimal `json:"budget"`
	Progress    *float64        `json:"progress"`
	Status      *string         `json:"status"`
	ClientName  *string         `json:"client_name"`
	Priority    *int            `json:"priority"`
}

type updateProjectRequest struct {
	Name        *string          `json:"name"`
	Description Optional[string] `json:"description"`
	StartDate   *string          `json:"start_date"`
	EndDate     Optional[string] `json:"end_date"`
	Budget      *decimal.Decimal `json:"budget"`
	Progress    *float64         `json:"progress"`
	Status      *string          `json:"status"`
	ClientName  Optional[string] `json:"client_name"`
	Priority    *int             `json:"priority"`
}

type updateProgressRequest struct {
	Progress *float64 `json:"progress"`
}

type assignEmployeeRequest struct {
	Role *string `json:"role"`
}

type allocateMaterialRequest struct {
	MaterialID string  `json:"material_id"`
	Quantity   float64 `json:"quantity"`
}

type recordUsageRequest struct {
	Quantity float64 `json:"quantity"`
}

type projectResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	StartDate   string          `json:"start_date"`
	EndDate     *string         `json:"end_date"`
	Budget      decimal.Decimal `json:"budget"`
	Progress    float64         `json:"progress"`
	Status      string          `json:"status"`
	ClientName  *string         `json:"client_name"`
	Priority    int             `json:"priority"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type progressResponse struct {
	ProjectID          string  `json:"project_id"`
	Progress           float64 `json:"progress"`
	Status             string  `json:"status"`
	CalculatedProgress float64 `json:"calculated_progress"`
}

type budgetResponse struct {
	ProjectID    string          `json:"project_id"`
	Budget       decimal.Decimal `json:"budget"`
	CurrentSpend decimal.Decimal `json:"current_spend"`
	Remaining    decimal.Decimal `json:"remaining"`
	OverBudget   bool            `json:"over_budget"`
}

type assignmentResponse struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	EmployeeID string    `json:"employee_id"`
	Role       *string   `json:"role"`
	AssignedAt time.Time `json:"assigned_at"`
}

type allocationResponse struct {
	ID                string    `json:"id"`
	ProjectID         string    `json:"project_id"`
	MaterialID        string    `json:"material_id"`
	QuantityAllocated float64   `json:"quantity_allocated"`
	QuantityUsed      float64   `json:"quantity_used"`
	RemainingQuantity float64   `json:"remaining_quantity"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// List はプロジェクトの一覧を返します。
func (h *ProjectHandler) List(c *gin.Context) {
	skip, limit, err := pagination(c)
	if err != nil {
		respondError(c, h.log, "fetch projects", err)
		return
	}

	var statusPtr *project.Status
	if raw := queryString(c, "status"); raw != nil {
		s := project.Status(*raw)
		statusPtr = &s
	}

	projects, err := h.svc.ListProjects(c.Request.Context(), project.ListProjectsInput{
		Skip:   skip,
		Limit:  limit,
		Status: statusPtr,
	})
	if err != nil {
		respondError(c, h.log, "fetch projects", err)
		return
	}

	out := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProjectResponse(p))
	}
	c.JSON(http.StatusOK, out)
}

// Create はプロジェクトを登録します。
func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, "create project", err)
		return
	}

	startDate, err := parseDate(req.StartDate, project.ErrInvalidStartDate)
	if err != nil {
		respondError(c, h.log, "create project", err)
		return
	}
	endDate, err := parseDatePtr(req.EndDate, project.ErrInvalidEndDate)
	if err != nil {
		respondError(c, h.log, "create project", err)
		return
	}

	var statusPtr *project.Status
	if req.Status != nil {
		s := project.Status(*req.Status)
		statusPtr = &s
	}

	created, err := h.svc.CreateProject(c.Request.Context(), project.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   startDate,
		EndDate:     endDate,
		Budget:      req.Budget,
		Progress:    req.Progress,
		Status:      statusPtr,
		ClientName:  req.ClientName,
		Priority:    req.Priority,
	})
	if err != nil {
		respondError(c, h.log, "create project", err)
		return
	}
	c.JSON(http.StatusCreated, toProjectResponse(created))
}

// Get はプロジェクトを取得します。
func (h *ProjectHandler) Get(c *gin.Context) {
	found, err := h.svc.GetProject(c.Request.Context(), project.GetProjectInput{ID: c.Param("id")})
	if err != nil {
		respondError(c, h.log, "fetch project", err)
		return
	}
	c.JSON(http.StatusOK, toProjectResponse(found))
}

// Update は送信されたキーだけを更新します。
func (h *ProjectHandler) Update(c *gin.Context) {
	var req updateProjectRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, "update project", err)
		return
	}

	startDate, err := parseDatePtr(req.StartDate, project.ErrInvalidStartDate)
	if err != nil {
		respondError(c, h.log, "update project", err)
		return
	}
	endDate, err := parseDatePtr(req.EndDate.Value, project.ErrInvalidEndDate)
	if err != nil {
		respondError(c, h.log, "update project", err)
		return
	}

	in := project.UpdateProjectInput{
		ID:             c.Param("id"),
		Name:           req.Name,
		Description:    req.Description.Value,
		DescriptionSet: req.Description.Set,
		StartDate:      startDate,
		EndDate:        endDate,
		EndDateSet:     req.EndDate.Set,
		Budget:         req.Budget,
		Progress:       req.Progress,
		ClientName:     req.ClientName.Value,
		ClientNameSet:  req.ClientName.Set,
		Priority:       req.Priority,
	}
	if req.Status != nil {
		s := project.Status(*req.Status)
		in.Status = &s
	}

	updated, err := h.svc.UpdateProject(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, "update project", err)
		return
	}
	c.JSON(http.StatusOK, toProjectResponse(updated))
}

// Delete はプロジェクトを削除します。
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteProject(c.Request.Context(), project.DeleteProjectInput{ID: c.Param("id")}); err != nil {
		respondError(c, h.log, "delete project", err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Project deleted successfully"})
}

// UpdateProgress は進捗率を更新し、状態を進捗から導出します。
func (h *ProjectHandler) UpdateProgress(c *gin.Context) {
	var req updateProgressRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, "update project progress", err)
		return
	}
	if req.Progress == nil {
		respondError(c, h.log, "update project progress", project.ErrInvalidProgress)
		return
	}

	report, err := h.svc.UpdateProgress(c.Request.Context(), project.UpdateProgressInput{
		ID:       c.Param("id"),
		Progress: *req.Progress,
	})
	if err != nil {
		respondError(c, h.log, "update project progress", err)
		return
	}
	c.JSON(http.StatusOK, progressResponse{
		ProjectID:          report.ProjectID,
		Progress:           report.Progress,
		Status:             string(report.Status),
		CalculatedProgress: report.CalculatedProgress,
	})
}

// BudgetStatus は current_spend に対する予算状況を返します。
func (h *ProjectHandler) BudgetStatus(c *gin.Context) {
	spend, err := queryDecimal(c, "current_spend")
	if err != nil {
		respondError(c, h.log, "fetch budget status", err)
		return
	}

	summary, err := h.svc.GetBudgetStatus(c.Request.Context(), project.BudgetStatusInput{
		ID:           c.Param("id"),
		CurrentSpend: spend,
	})
	if err != nil {
		respondError(c, h.log, "fetch budget status", err)
		return
	}
	c.JSON(http.StatusOK, budgetResponse{
		ProjectID:    summary.ProjectID,
		Budget:       summary.Budget,
		CurrentSpend: summary.CurrentSpend,
		Remaining:    summary.Remaining,
		OverBudget:   summary.OverBudget,
	})
}

// ListAssignments はプロジェクトに配置された社員を返します。
func (h *ProjectHandler) ListAssignments(c *gin.Context) {
	assignments, err := h.svc.ListAssignments(c.Request.Context(), project.GetProjectInput{ID: c.Param("id")})
	if err != nil {
		respondError(c, h.log, "fetch project employees", err)
		return
	}

	out := make([]assignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, toAssignmentResponse(a))
	}
	c.JSON(http.StatusOK, out)
}

// AssignEmployee は社員をプロジェクトに配置します。本文は省略できます。
func (h *ProjectHandler) AssignEmployee(c *gin.Context) {
	var req assignEmployeeRequest
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &req); err != nil {
			respondError(c, h.log, "assign employee", err)
			return
		}
	}

	assigned, err := h.svc.AssignEmployee(c.Request.Context(), project.AssignEmployeeInput{
		ProjectID:  c.Param("id"),
		EmployeeID: c.Param("employee_id"),
		Role:       req.Role,
	})
	if err != nil {
		respondError(c, h.log, "assign employee", err)
		return
	}
	c.JSON(http.StatusCreated, toAssignmentResponse(assigned))
}

// UnassignEmployee は社員の配置を解除します。
func (h *ProjectHandler) UnassignEmployee(c *gin.Context) {
	if err := h.svc.UnassignEmployee(c.Request.Context(), project.UnassignEmployeeInput{
		ProjectID:  c.Param("id"),
		EmployeeID: c.Param("employee_id"),
	}); err != nil {
		respondError(c, h.log, "unassign employee", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMaterials はプロジェクトの資材割り当てを返します。
func (h *ProjectHandler) ListMaterials(c *gin.Context) {
	allocations, err := h.materials.ListProjectMaterials(c.Request.Context(), material.ListProjectMaterialsInput{ProjectID: c.Param("id")})
	if err != nil {
		respondError(c, h.log, "fetch project materials", err)
		return
	}

	out := make([]allocationResponse, 0, len(allocations))
	for _, pm := range allocations {
		out = append(out, toAllocationResponse(pm))
	}
	c.JSON(http.StatusOK, out)
}

// AllocateMaterial は資材をプロジェクトに割り当てます。
func (h *ProjectHandler) AllocateMaterial(c *gin.Context) {
	var req allocateMaterialRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, "allocate material", err)
		return
	}

	allocated, err := h.materials.AllocateMaterial(c.Request.Context(), material.AllocateMaterialInput{
		ProjectID:  c.Param("id"),
		MaterialID: req.MaterialID,
		Quantity:   req.Quantity,
	})
	if err != nil {
		respondError(c, h.log, "allocate material", err)
		return
	}
	c.JSON(http.StatusCreated, toAllocationResponse(allocated))
}

// RecordUsage は資材の使用量を加算します。使用量は割り当て量で頭打ちになります。
func (h *ProjectHandler) RecordUsage(c *gin.Context) {
	var req recordUsageRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, "record material usage", err)
		return
	}

	updated, err := h.materials.RecordUsage(c.Request.Context(), material.RecordUsageInput{
		ProjectID:    c.Param("id"),
		AllocationID: c.Param("allocation_id"),
		Delta:        req.Quantity,
	})
	if err != nil {
		respondError(c, h.log, "record material usage", err)
		return
	}
	c.JSON(http.StatusOK, toAllocationResponse(updated))
}

// ReleaseAllocation は資材割り当てを解除します。
func (h *ProjectHandler) ReleaseAllocation(c *gin.Context) {
	if err := h.materials.ReleaseAllocation(c.Request.Context(), material.ReleaseAllocationInput{
		ProjectID:    c.Param("id"),
		AllocationID: c.Param("allocation_id"),
	}); err != nil {
		respondError(c, h.log, "release material allocation", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func toProjectResponse(p *project.Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		StartDate:   formatDate(p.StartDate),
		EndDate:     formatDatePtr(p.EndDate),
		Budget:      p.Budget,
		Progress:    p.Progress,
		Status:      string(p.Status),
		ClientName:  p.ClientName,
		Priority:    p.Priority,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toAssignmentResponse(a *project.Assignment) assignmentResponse {
	return assignmentResponse{
		ID:         a.ID,
		ProjectID:  a.ProjectID,
		EmployeeID: a.EmployeeID,
		Role:       a.Role,
		AssignedAt: a.AssignedAt,
	}
}

func toAllocationResponse(pm *material.ProjectMaterial) allocationResponse {
	return allocationResponse{
		ID:                pm.ID,
		ProjectID:         pm.ProjectID,
		MaterialID:        pm.MaterialID,
		QuantityAllocated: pm.QuantityAllocated,
		QuantityUsed:      pm.QuantityUsed,
		RemainingQuantity: pm.RemainingQuantity(),
		CreatedAt:         pm.CreatedAt,
		UpdatedAt:         pm.UpdatedAt,
	}
}
