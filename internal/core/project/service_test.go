package project

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type fakeProjectRepo struct {
	projects map[string]*Project
	order    []string
	// 削除時に割り当ても消すための参照
	assignments *fakeAssignmentRepo
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: make(map[string]*Project)}
}

func (r *fakeProjectRepo) Create(_ context.Context, p *Project) (*Project, error) {
	clone := cloneProject(p)
	clone.ID = uuid.NewString()
	r.projects[clone.ID] = clone
	r.order = append(r.order, clone.ID)
	return cloneProject(clone), nil
}

func (r *fakeProjectRepo) Update(_ context.Context, p *Project) (*Project, error) {
	if _, ok := r.projects[p.ID]; !ok {
		return nil, ErrProjectNotFound
	}
	r.projects[p.ID] = cloneProject(p)
	return cloneProject(p), nil
}

func (r *fakeProjectRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.projects[id]; !ok {
		return ErrProjectNotFound
	}
	delete(r.projects, id)
	for idx, existingID := range r.order {
		if existingID == id {
			r.order = append(r.order[:idx], r.order[idx+1:]...)
			break
		}
	}
	if r.assignments != nil {
		r.assignments.removeProject(id)
	}
	return nil
}

func (r *fakeProjectRepo) FindByID(_ context.Context, id string) (*Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return nil, ErrProjectNotFound
	}
	return cloneProject(p), nil
}

func (r *fakeProjectRepo) List(_ context.Context, filter ListProjectsFilter) ([]*Project, error) {
	var filtered []*Project
	for _, id := range r.order {
		p := r.projects[id]
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		filtered = append(filtered, cloneProject(p))
	}
	if filter.Offset > len(filtered) {
		return []*Project{}, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[filter.Offset:end], nil
}

type fakeAssignmentRepo struct {
	employees   map[string]bool
	assignments []*Assignment
}

func newFakeAssignmentRepo(employeeIDs ...string) *fakeAssignmentRepo {
	known := make(map[string]bool, len(employeeIDs))
	for _, id := range employeeIDs {
		known[id] = true
	}
	return &fakeAssignmentRepo{employees: known}
}

func (r *fakeAssignmentRepo) Assign(_ context.Context, a *Assignment) (*Assignment, error) {
	if !r.employees[a.EmployeeID] {
		return nil, ErrEmployeeNotFound
	}
	for _, existing := range r.assignments {
		if existing.ProjectID == a.ProjectID && existing.EmployeeID == a.EmployeeID {
			return nil, ErrAlreadyAssigned
		}
	}
	clone := *a
	clone.ID = uuid.NewString()
	r.assignments = append(r.assignments, &clone)
	result := clone
	return &result, nil
}

func (r *fakeAssignmentRepo) Unassign(_ context.Context, projectID, employeeID string) error {
	for idx, existing := range r.assignments {
		if existing.ProjectID == projectID && existing.EmployeeID == employeeID {
			r.assignments = append(r.assignments[:idx], r.assignments[idx+1:]...)
			return nil
		}
	}
	return ErrAssignmentNotFound
}

func (r *fakeAssignmentRepo) ListByProject(_ context.Context, projectID string) ([]*Assignment, error) {
	var result []*Assignment
	for _, existing := range r.assignments {
		if existing.ProjectID == projectID {
			clone := *existing
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (r *fakeAssignmentRepo) removeProject(projectID string) {
	kept := r.assignments[:0]
	for _, existing := range r.assignments {
		if existing.ProjectID != projectID {
			kept = append(kept, existing)
		}
	}
	r.assignments = kept
}

func cloneProject(p *Project) *Project {
	if p == nil {
		return nil
	}
	copy := *p
	if p.Description != nil {
		description := *p.Description
		copy.Description = &description
	}
	if p.EndDate != nil {
		end := *p.EndDate
		copy.EndDate = &end
	}
	if p.ClientName != nil {
		client := *p.ClientName
		copy.ClientName = &client
	}
	return &copy
}

func newTestService(clk Clock, employeeIDs ...string) (*Service, *fakeProjectRepo, *fakeAssignmentRepo) {
	repo := newFakeProjectRepo()
	assignments := newFakeAssignmentRepo(employeeIDs...)
	repo.assignments = assignments
	return NewService(repo, assignments, clk, nil), repo, assignments
}

func validCreateInput() CreateProjectInput {
	return CreateProjectInput{
		Name:      "Riverside Tower",
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Budget:    decimal.RequireFromString("1000000.00"),
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

func intPtr(v int) *int {
	return &v
}

func TestService_CreateProject_Success(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(&stubClock{now: now})

	in := validCreateInput()
	in.Name = "  Riverside Tower "
	client := " ACME "
	in.ClientName = &client

	created, err := svc.CreateProject(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateProject returned error: %v", err)
	}
	if created.Name != "Riverside Tower" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}
	if created.ClientName == nil || *created.ClientName != "ACME" {
		t.Fatalf("expected trimmed client name, got %v", created.ClientName)
	}
	if created.Status != StatusPending || created.Progress != 0 {
		t.Fatalf("expected pending project with zero progress, got %s %v", created.Status, created.Progress)
	}
	if created.Priority != 1 {
		t.Fatalf("expected default priority 1, got %d", created.Priority)
	}
	if !created.CreatedAt.Equal(now) {
		t.Fatalf("expected created_at from clock")
	}
}

func TestService_CreateProject_StatusFromProgressUnlessExplicit(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(nil)

	in := validCreateInput()
	in.Progress = floatPtr(100)
	derived, err := svc.CreateProject(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateProject returned error: %v", err)
	}
	if derived.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", derived.Status)
	}

	explicit := StatusPending
	in.Status = &explicit
	overridden, err := svc.CreateProject(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateProject returned error: %v", err)
	}
	if overridden.Status != StatusPending {
		t.Fatalf("expected explicit PENDING, got %s", overridden.Status)
	}
}

func TestService_CreateProject_ValidationErrors(t *testing.T) {
	t.Parallel()

	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		modify func(*CreateProjectInput)
		want   error
	}{
		{name: "blank name", modify: func(in *CreateProjectInput) { in.Name = "  " }, want: ErrInvalidName},
		{name: "missing start", modify: func(in *CreateProjectInput) { in.StartDate = time.Time{} }, want: ErrInvalidStartDate},
		{name: "end before start", modify: func(in *CreateProjectInput) { in.EndDate = &end }, want: ErrInvalidDateRange},
		{name: "negative budget", modify: func(in *CreateProjectInput) { in.Budget = decimal.NewFromInt(-1) }, want: ErrInvalidBudget},
		{name: "sub-cent budget", modify: func(in *CreateProjectInput) { in.Budget = decimal.RequireFromString("5000.555") }, want: ErrInvalidBudget},
		{name: "budget beyond column", modify: func(in *CreateProjectInput) { in.Budget = decimal.RequireFromString("10000000000000") }, want: ErrInvalidBudget},
		{name: "budget at column limit", modify: func(in *CreateProjectInput) { in.Budget = decimal.RequireFromString("1000000000000") }, want: ErrInvalidBudget},
		{name: "progress above range", modify: func(in *CreateProjectInput) { in.Progress = floatPtr(101) }, want: ErrInvalidProgress},
		{name: "priority out of range", modify: func(in *CreateProjectInput) { in.Priority = intPtr(6) }, want: ErrInvalidPriority},
		{name: "unknown status", modify: func(in *CreateProjectInput) { s := Status("DONE"); in.Status = &s }, want: ErrInvalidStatus},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc, repo, _ := newTestService(nil)
			in := validCreateInput()
			tc.modify(&in)

			if _, err := svc.CreateProject(context.Background(), in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(repo.projects) != 0 {
				t.Fatalf("expected nothing persisted")
			}
		})
	}
}

func TestService_UpdateProject_OnlyBudgetChanges(t *testing.T) {
	t.Parallel()

	clk := &stubClock{now: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)}
	svc, _, _ := newTestService(clk)

	in := validCreateInput()
	in.Progress = floatPtr(35)
	created, err := svc.CreateProject(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateProject returned error: %v", err)
	}

	clk.now = clk.now.Add(time.Hour)
	budget := decimal.RequireFromString("1250000.00")
	updated, err := svc.UpdateProject(context.Background(), UpdateProjectInput{ID: created.ID, Budget: &budget})
	if err != nil {
		t.Fatalf("UpdateProject returned error: %v", err)
	}

	if !updated.Budget.Equal(budget) {
		t.Fatalf("expected budget %s, got %s", budget, updated.Budget)
	}
	if updated.Name != created.Name || updated.Progress != created.Progress || updated.Status != created.Status ||
		updated.Priority != created.Priority || !updated.StartDate.Equal(created.StartDate) {
		t.Fatalf("expected other fields unchanged: before=%+v after=%+v", created, updated)
	}
	if !updated.UpdatedAt.Equal(clk.now) {
		t.Fatalf("expected updated_at from clock")
	}
}

func TestService_Budget_Precision(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(nil)

	for _, raw := range []string{"0", "5000.5", "5000.500", "999999999999.99"} {
		in := validCreateInput()
		in.Budget = decimal.RequireFromString(raw)
		created, err := svc.CreateProject(context.Background(), in)
		if err != nil {
			t.Fatalf("budget %s: CreateProject returned error: %v", raw, err)
		}
		if !created.Budget.Equal(in.Budget) {
			t.Fatalf("budget %s: stored %s", raw, created.Budget)
		}
	}

	created, err := svc.CreateProject(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("CreateProject returned error: %v", err)
	}
	for _, raw := range []string{"5000.555", "1000000000000", "-0.01"} {
		budget := decimal.RequireFromString(raw)
		if _, err := svc.UpdateProject(context.Background(), UpdateProjectInput{ID: created.ID, Budget: &budget}); !errors.Is(err, ErrInvalidBudget) {
			t.Fatalf("budget %s: expected ErrInvalidBudget, got %v", raw, err)
		}
	}
}

func TestService_UpdateProject_ProgressDerivesStatus(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(nil)
	created, err := svc.CreateProject(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("CreateProject returned error: %v", err)
	}

	updated, err := svc.UpdateProject(context.Background(), UpdateProjectInput{ID: created.ID, Progress: floatPtr(40)})
	if err != nil {
		t.Fatalf("UpdateProject returned error: %v", err)
	}
	if updated.Status != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", updated.Status)
	}

	completed := StatusCompleted
	updated, err = svc.UpdateProject(context.Background(), UpdateProjectInput{ID: created.ID, Progress: floatPtr(60), Status: &completed})
	if err != nil {
		t.Fatalf("UpdateProject returned error: %v", err)
	}
	if updated.Status != StatusCompleted {
		t.Fatalf("expected explicit COMPLETED, got %s", updated.Status)
	}
}

func TestService_UpdateProject_ClearsEndDate(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(nil)
	in := validCreateInput()
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	in.EndDate = &end
	created, err := svc.CreateProject(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateProject returned error: %v", err)
	}

	updated, err := svc.UpdateProject(context.Background(), UpdateProjectInput{ID: created.ID, EndDateSet: true})
	if err != nil {
		t.Fatalf("UpdateProject returned error: %v", err)
	}
	if updated.EndDate != nil {
		t.Fatalf("expected end date cleared, got %v", updated.EndDate)
	}
}

func TestService_UpdateProgress(t *testing.T) {
	t.Parallel()

	clk := &stubClock{now: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)}
	svc, _, _ := newTestService(clk)

	in := validCreateInput()
	end := time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)
	in.EndDate = &end
	created, err := svc.CreateProject(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateProject returned error: %v", err)
	}

	report, err := svc.UpdateProgress(context.Background(), UpdateProgressInput{ID: created.ID, Progress: 20})
	if err != nil {
		t.Fatalf("UpdateProgress returned error: %v", err)
	}
	if report.Progress != 20 || report.Status != StatusInProgress {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.CalculatedProgress != 50 {
		t.Fatalf("expected calculated progress 50, got %v", report.CalculatedProgress)
	}

	report, err = svc.UpdateProgress(context.Background(), UpdateProgressInput{ID: created.ID, Progress: 100})
	if err != nil {
		t.Fatalf("UpdateProgress returned error: %v", err)
	}
	if report.Status != StatusCompleted || report.CalculatedProgress != 100 {
		t.Fatalf("unexpected report: %+v", report)
	}

	if _, err := svc.UpdateProgress(context.Background(), UpdateProgressInput{ID: created.ID, Progress: -1}); !errors.Is(err, ErrInvalidProgress) {
		t.Fatalf("expected ErrInvalidProgress, got %v", err)
	}
	if _, err := svc.UpdateProgress(context.Background(), UpdateProgressInput{ID: uuid.NewString(), Progress: 10}); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestService_GetBudgetStatus(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(nil)
	created, err := svc.CreateProject(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("CreateProject returned error: %v", err)
	}

	summary, err := svc.GetBudgetStatus(context.Background(), BudgetStatusInput{ID: created.ID, CurrentSpend: decimal.RequireFromString("1000000.01")})
	if err != nil {
		t.Fatalf("GetBudgetStatus returned error: %v", err)
	}
	if !summary.OverBudget {
		t.Fatalf("expected over budget")
	}

	if _, err := svc.GetBudgetStatus(context.Background(), BudgetStatusInput{ID: created.ID, CurrentSpend: decimal.NewFromInt(-5)}); !errors.Is(err, ErrInvalidSpend) {
		t.Fatalf("expected ErrInvalidSpend, got %v", err)
	}
}

func TestService_ListProjects(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(nil)
	for _, progress := range []float64{0, 50, 100} {
		in := validCreateInput()
		in.Progress = floatPtr(progress)
		if _, err := svc.CreateProject(context.Background(), in); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	status := StatusInProgress
	result, err := svc.ListProjects(context.Background(), ListProjectsInput{Status: &status})
	if err != nil {
		t.Fatalf("ListProjects returned error: %v", err)
	}
	if len(result) != 1 || result[0].Progress != 50 {
		t.Fatalf("unexpected result: %+v", result)
	}

	all, err := svc.ListProjects(context.Background(), ListProjectsInput{Skip: 1, Limit: 5})
	if err != nil {
		t.Fatalf("ListProjects returned error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 projects after skip, got %d", len(all))
	}

	bad := Status("in_progress")
	if _, err := svc.ListProjects(context.Background(), ListProjectsInput{Status: &bad}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := svc.ListProjects(context.Background(), ListProjectsInput{Limit: MaxListLimit + 1}); !errors.Is(err, ErrInvalidPagination) {
		t.Fatalf("expected ErrInvalidPagination, got %v", err)
	}
}

func TestService_Assignments(t *testing.T) {
	t.Parallel()

	employeeID := uuid.NewString()
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	svc, _, assignments := newTestService(&stubClock{now: now}, employeeID)
	ctx := context.Background()

	created, err := svc.CreateProject(ctx, validCreateInput())
	if err != nil {
		t.Fatalf("CreateProject returned error: %v", err)
	}

	role := " foreman "
	assigned, err := svc.AssignEmployee(ctx, AssignEmployeeInput{ProjectID: created.ID, EmployeeID: employeeID, Role: &role})
	if err != nil {
		t.Fatalf("AssignEmployee returned error: %v", err)
	}
	if assigned.Role == nil || *assigned.Role != "foreman" || !assigned.AssignedAt.Equal(now) {
		t.Fatalf("unexpected assignment: %+v", assigned)
	}

	if _, err := svc.AssignEmployee(ctx, AssignEmployeeInput{ProjectID: created.ID, EmployeeID: employeeID}); !errors.Is(err, ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned, got %v", err)
	}
	if _, err := svc.AssignEmployee(ctx, AssignEmployeeInput{ProjectID: created.ID, EmployeeID: uuid.NewString()}); !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
	if _, err := svc.AssignEmployee(ctx, AssignEmployeeInput{ProjectID: uuid.NewString(), EmployeeID: employeeID}); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}

	list, err := svc.ListAssignments(ctx, GetProjectInput{ID: created.ID})
	if err != nil {
		t.Fatalf("ListAssignments returned error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(list))
	}

	if err := svc.UnassignEmployee(ctx, UnassignEmployeeInput{ProjectID: created.ID, EmployeeID: employeeID}); err != nil {
		t.Fatalf("UnassignEmployee returned error: %v", err)
	}
	if err := svc.UnassignEmployee(ctx, UnassignEmployeeInput{ProjectID: created.ID, EmployeeID: employeeID}); !errors.Is(err, ErrAssignmentNotFound) {
		t.Fatalf("expected ErrAssignmentNotFound, got %v", err)
	}

	if _, err := svc.AssignEmployee(ctx, AssignEmployeeInput{ProjectID: created.ID, EmployeeID: employeeID}); err != nil {
		t.Fatalf("re-assign returned error: %v", err)
	}
	if err := svc.DeleteProject(ctx, DeleteProjectInput{ID: created.ID}); err != nil {
		t.Fatalf("DeleteProject returned error: %v", err)
	}
	if len(assignments.assignments) != 0 {
		t.Fatalf("expected assignments removed with project")
	}
}

func TestService_DeleteProject_Errors(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(nil)

	if err := svc.DeleteProject(context.Background(), DeleteProjectInput{ID: "nope"}); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if err := svc.DeleteProject(context.Background(), DeleteProjectInput{ID: uuid.NewString()}); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}
