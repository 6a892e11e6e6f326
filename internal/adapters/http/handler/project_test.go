package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/ogurasousui/construction-api/internal/core/material"
	"github.com/ogurasousui/construction-api/internal/core/project"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProjectUseCase struct {
	createInput   project.CreateProjectInput
	updateInput   project.UpdateProjectInput
	listInput     project.ListProjectsInput
	progressInput project.UpdateProgressInput
	budgetInput   project.BudgetStatusInput
	assignInput   project.AssignEmployeeInput
	unassignInput project.UnassignEmployeeInput

	out         *project.Project
	list        []*project.Project
	assignments []*project.Assignment
	err         error
}

func (s *stubProjectUseCase) CreateProject(ctx context.Context, in project.CreateProjectInput) (*project.Project, error) {
	s.createInput = in
	return s.out, s.err
}

func (s *stubProjectUseCase) GetProject(ctx context.Context, in project.GetProjectInput) (*project.Project, error) {
	return s.out, s.err
}

func (s *stubProjectUseCase) ListProjects(ctx context.Context, in project.ListProjectsInput) ([]*project.Project, error) {
	s.listInput = in
	return s.list, s.err
}

func (s *stubProjectUseCase) UpdateProject(ctx context.Context, in project.UpdateProjectInput) (*project.Project, error) {
	s.updateInput = in
	return s.out, s.err
}

func (s *stubProjectUseCase) DeleteProject(ctx context.Context, in project.DeleteProjectInput) error {
	return s.err
}

func (s *stubProjectUseCase) UpdateProgress(ctx context.Context, in project.UpdateProgressInput) (*project.ProgressReport, error) {
	s.progressInput = in
	if s.err != nil {
		return nil, s.err
	}
	return &project.ProgressReport{
		ProjectID:          in.ID,
		Progress:           in.Progress,
		Status:             project.StatusForProgress(in.Progress),
		CalculatedProgress: 12.5,
	}, nil
}

func (s *stubProjectUseCase) GetBudgetStatus(ctx context.Context, in project.BudgetStatusInput) (*project.BudgetSummary, error) {
	s.budgetInput = in
	if s.err != nil {
		return nil, s.err
	}
	summary := s.out.BudgetSummary(in.CurrentSpend)
	return &summary, nil
}

func (s *stubProjectUseCase) AssignEmployee(ctx context.Context, in project.AssignEmployeeInput) (*project.Assignment, error) {
	s.assignInput = in
	if s.err != nil {
		return nil, s.err
	}
	return &project.Assignment{ID: "a-1", ProjectID: in.ProjectID, EmployeeID: in.EmployeeID, Role: in.Role}, nil
}

func (s *stubProjectUseCase) UnassignEmployee(ctx context.Context, in project.UnassignEmployeeInput) error {
	s.unassignInput = in
	return s.err
}

func (s *stubProjectUseCase) ListAssignments(ctx context.Context, in project.GetProjectInput) ([]*project.Assignment, error) {
	return s.assignments, s.err
}

type stubAllocationUseCase struct {
	material.UseCase

	allocateInput material.AllocateMaterialInput
	usageInput    material.RecordUsageInput
	releaseInput  material.ReleaseAllocationInput
	listCalled    bool

	out  *material.ProjectMaterial
	list []*material.ProjectMaterial
	err  error
}

func (s *stubAllocationUseCase) AllocateMaterial(ctx context.Context, in material.AllocateMaterialInput) (*material.ProjectMaterial, error) {
	s.allocateInput = in
	return s.out, s.err
}

func (s *stubAllocationUseCase) ListProjectMaterials(ctx context.Context, in material.ListProjectMaterialsInput) ([]*material.ProjectMaterial, error) {
	s.listCalled = true
	return s.list, s.err
}

func (s *stubAllocationUseCase) RecordUsage(ctx context.Context, in material.RecordUsageInput) (*material.ProjectMaterial, error) {
	s.usageInput = in
	return s.out, s.err
}

func (s *stubAllocationUseCase) ReleaseAllocation(ctx context.Context, in material.ReleaseAllocationInput) error {
	s.releaseInput = in
	return s.err
}

const projectID = "5d0f3a52-8f0e-4e43-a0a5-1d2a3b4c5d6e"

func sampleProject() *project.Project {
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	return &project.Project{
		ID:        projectID,
		Name:      "Riverside Tower",
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Budget:    decimal.RequireFromString("1000000"),
		Progress:  35,
		Status:    project.StatusInProgress,
		Priority:  2,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestProjectHandler_Create(t *testing.T) {
	t.Parallel()

	stub := &stubProjectUseCase{out: sampleProject()}
	engine := newTestEngine(NewProjectHandler(stub, &stubAllocationUseCase{}, nil))

	rec := performRequest(engine, http.MethodPost, "/api/projects", `{
		"name": "Riverside Tower",
		"start_date": "2025-01-01",
		"end_date": "2025-12-31",
		"budget": 1000000
	}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	in := stub.createInput
	assert.Equal(t, "Riverside Tower", in.Name)
	require.NotNil(t, in.EndDate)
	assert.Equal(t, "2025-12-31", in.EndDate.Format(dateLayout))
	assert.True(t, in.Budget.Equal(decimal.NewFromInt(1000000)))
	assert.Nil(t, in.Priority)

	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "2025-01-01", body["start_date"])
	assert.Nil(t, body["end_date"])
	assert.Equal(t, "IN_PROGRESS", body["status"])
}

func TestProjectHandler_Update_OnlyBudget(t *testing.T) {
	t.Parallel()

	stub := &stubProjectUseCase{out: sampleProject()}
	engine := newTestEngine(NewProjectHandler(stub, &stubAllocationUseCase{}, nil))

	rec := performRequest(engine, http.MethodPut, "/api/projects/"+projectID, `{"budget": "1250000.00"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	in := stub.updateInput
	assert.Equal(t, projectID, in.ID)
	require.NotNil(t, in.Budget)
	assert.True(t, in.Budget.Equal(decimal.RequireFromString("1250000")))
	assert.Nil(t, in.Name)
	assert.Nil(t, in.StartDate)
	assert.Nil(t, in.Progress)
	assert.Nil(t, in.Status)
	assert.Nil(t, in.Priority)
	assert.False(t, in.DescriptionSet)
	assert.False(t, in.EndDateSet)
	assert.False(t, in.ClientNameSet)
}

func TestProjectHandler_Update_ClearEndDate(t *testing.T) {
	t.Parallel()

	stub := &stubProjectUseCase{out: sampleProject()}
	engine := newTestEngine(NewProjectHandler(stub, &stubAllocationUseCase{}, nil))

	rec := performRequest(engine, http.MethodPut, "/api/projects/"+projectID, `{"end_date": null, "client_name": "ACME"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, stub.updateInput.EndDateSet)
	assert.Nil(t, stub.updateInput.EndDate)
	assert.True(t, stub.updateInput.ClientNameSet)
	require.NotNil(t, stub.updateInput.ClientName)
	assert.Equal(t, "ACME", *stub.updateInput.ClientName)
}

func TestProjectHandler_MalformedEndDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "create", method: http.MethodPost, path: "/api/projects", body: `{"name":"Tower","start_date":"2025-01-01","end_date":"2025/12/31","budget":1000}`},
		{name: "update", method: http.MethodPut, path: "/api/projects/" + projectID, body: `{"end_date":"not-a-date"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stub := &stubProjectUseCase{out: sampleProject()}
			engine := newTestEngine(NewProjectHandler(stub, &stubAllocationUseCase{}, nil))

			rec := performRequest(engine, tt.method, tt.path, tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			body := decodeBody[ErrorResponse](t, rec)
			assert.Equal(t, CodeInvalidArgument, body.Code)
			assert.Equal(t, project.ErrInvalidEndDate.Error(), body.Detail)
			assert.Empty(t, stub.createInput.Name)
			assert.Empty(t, stub.updateInput.ID)
		})
	}
}

func TestProjectHandler_Delete(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(NewProjectHandler(&stubProjectUseCase{}, &stubAllocationUseCase{}, nil))

	rec := performRequest(engine, http.MethodDelete, "/api/projects/"+projectID, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Project deleted successfully", decodeBody[map[string]string](t, rec)["message"])
}

func TestProjectHandler_Get_NotFound(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(NewProjectHandler(&stubProjectUseCase{err: project.ErrProjectNotFound}, &stubAllocationUseCase{}, nil))

	rec := performRequest(engine, http.MethodGet, "/api/projects/"+projectID, "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Project not found", decodeBody[ErrorResponse](t, rec).Detail)
}

func TestProjectHandler_UpdateProgress(t *testing.T) {
	t.Parallel()

	stub := &stubProjectUseCase{}
	engine := newTestEngine(NewProjectHandler(stub, &stubAllocationUseCase{}, nil))

	rec := performRequest(engine, http.MethodPut, "/api/projects/"+projectID+"/progress", `{"progress": 100}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100.0, stub.progressInput.Progress)
	assert.Equal(t, "COMPLETED", decodeBody[map[string]any](t, rec)["status"])

	rec = performRequest(engine, http.MethodPut, "/api/projects/"+projectID+"/progress", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProjectHandler_BudgetStatus(t *testing.T) {
	t.Parallel()

	stub := &stubProjectUseCase{out: sampleProject()}
	engine := newTestEngine(NewProjectHandler(stub, &stubAllocationUseCase{}, nil))

	rec := performRequest(engine, http.MethodGet, "/api/projects/"+projectID+"/budget?current_spend=1200000.50", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, stub.budgetInput.CurrentSpend.Equal(decimal.RequireFromString("1200000.50")))
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, body["over_budget"])
	assert.Equal(t, "-200000.5", body["remaining"])

	rec = performRequest(engine, http.MethodGet, "/api/projects/"+projectID+"/budget?current_spend=lots", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProjectHandler_AssignEmployee(t *testing.T) {
	t.Parallel()

	stub := &stubProjectUseCase{}
	engine := newTestEngine(NewProjectHandler(stub, &stubAllocationUseCase{}, nil))

	rec := performRequest(engine, http.MethodPut, "/api/projects/"+projectID+"/employees/"+employeeID, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, employeeID, stub.assignInput.EmployeeID)
	assert.Nil(t, stub.assignInput.Role)

	rec = performRequest(engine, http.MethodPut, "/api/projects/"+projectID+"/employees/"+employeeID, `{"role":"foreman"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, stub.assignInput.Role)
	assert.Equal(t, "foreman", *stub.assignInput.Role)

	stub.err = project.ErrAlreadyAssigned
	rec = performRequest(engine, http.MethodPut, "/api/projects/"+projectID+"/employees/"+employeeID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	stub.err = project.ErrEmployeeNotFound
	rec = performRequest(engine, http.MethodDelete, "/api/projects/"+projectID+"/employees/"+employeeID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Employee not found", decodeBody[ErrorResponse](t, rec).Detail)
}

func TestProjectHandler_ListMaterials_ProjectMissing(t *testing.T) {
	t.Parallel()

	allocations := &stubAllocationUseCase{err: material.ErrProjectNotFound}
	projects := &stubProjectUseCase{err: errors.New("project lookup must not run")}
	engine := newTestEngine(NewProjectHandler(projects, allocations, nil))

	rec := performRequest(engine, http.MethodGet, "/api/projects/"+projectID+"/materials", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, allocations.listCalled)
	assert.Equal(t, "Project not found", decodeBody[ErrorResponse](t, rec).Detail)
}

func TestProjectHandler_MaterialAllocations(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	allocations := &stubAllocationUseCase{
		out: &material.ProjectMaterial{
			ID:                "pm-1",
			ProjectID:         projectID,
			MaterialID:        "m-1",
			QuantityAllocated: 10,
			QuantityUsed:      10,
			CreatedAt:         now,
			UpdatedAt:         now,
		},
	}
	engine := newTestEngine(NewProjectHandler(&stubProjectUseCase{out: sampleProject()}, allocations, nil))

	rec := performRequest(engine, http.MethodPost, "/api/projects/"+projectID+"/materials", `{"material_id":"m-1","quantity":10}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, projectID, allocations.allocateInput.ProjectID)
	assert.Equal(t, 10.0, allocations.allocateInput.Quantity)

	rec = performRequest(engine, http.MethodPost, "/api/projects/"+projectID+"/materials/pm-1/usage", `{"quantity":15}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pm-1", allocations.usageInput.AllocationID)
	assert.Equal(t, 15.0, allocations.usageInput.Delta)
	assert.Equal(t, 0.0, decodeBody[map[string]any](t, rec)["remaining_quantity"])

	rec = performRequest(engine, http.MethodDelete, "/api/projects/"+projectID+"/materials/pm-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "pm-1", allocations.releaseInput.AllocationID)

	allocations.err = material.ErrAllocationNotFound
	rec = performRequest(engine, http.MethodDelete, "/api/projects/"+projectID+"/materials/pm-2", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Material allocation not found", decodeBody[ErrorResponse](t, rec).Detail)
}
