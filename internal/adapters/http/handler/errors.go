package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/construction-api/internal/core/employee"
	"github.com/ogurasousui/construction-api/internal/core/material"
	"github.com/ogurasousui/construction-api/internal/core/project"
	"github.com/ogurasousui/construction-api/internal/platform/logger"
)

// エラーレスポンスの code に入る値です。
const (
	CodeInvalidArgument = "invalid_argument"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeUnauthenticated = "unauthenticated"
	CodeInternal        = "internal"
)

var (
	errInvalidRequestBody = errors.New("handler: invalid request body")
	errInvalidQuery       = errors.New("handler: invalid query parameter")
)

// ErrorResponse は全エンドポイント共通のエラー本文です。
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

var invalidArgumentErrors = []error{
	errInvalidRequestBody,
	errInvalidQuery,

	employee.ErrInvalidID,
	employee.ErrInvalidEmail,
	employee.ErrInvalidFirstName,
	employee.ErrInvalidLastName,
	employee.ErrInvalidRole,
	employee.ErrInvalidDepartment,
	employee.ErrInvalidHireDate,
	employee.ErrInvalidStatus,
	employee.ErrInvalidHourlyRate,
	employee.ErrInvalidPerformanceScore,
	employee.ErrInvalidHours,
	employee.ErrInvalidPTO,
	employee.ErrInsufficientPTO,
	employee.ErrInvalidPagination,
	employee.ErrSupervisorCycle,

	project.ErrInvalidID,
	project.ErrInvalidName,
	project.ErrFieldTooLong,
	project.ErrInvalidStartDate,
	project.ErrInvalidEndDate,
	project.ErrInvalidDateRange,
	project.ErrInvalidBudget,
	project.ErrInvalidProgress,
	project.ErrInvalidStatus,
	project.ErrInvalidPriority,
	project.ErrInvalidSpend,
	project.ErrInvalidPagination,

	material.ErrInvalidID,
	material.ErrInvalidName,
	material.ErrInvalidSKU,
	material.ErrInvalidUnit,
	material.ErrFieldTooLong,
	material.ErrInvalidQuantity,
	material.ErrInvalidPrice,
	material.ErrInvalidPagination,
}

var conflictErrors = []error{
	employee.ErrEmailAlreadyExists,
	project.ErrAlreadyAssigned,
	material.ErrSKUAlreadyExists,
	material.ErrAlreadyAllocated,
}

// respondError はドメインエラーを HTTP ステータスへ変換して応答します。
// 変換できないエラーは op を添えてログに残し、詳細を隠した 500 を返します。
func respondError(c *gin.Context, log *logger.Logger, op string, err error) {
	status, resp := classifyError(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "operation", op, "path", c.FullPath(), "error", err)
		resp.Detail = "Failed to " + op
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

func classifyError(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, employee.ErrEmployeeNotFound), errors.Is(err, project.ErrEmployeeNotFound):
		return http.StatusNotFound, ErrorResponse{Detail: "Employee not found", Code: CodeNotFound}
	case errors.Is(err, employee.ErrSupervisorNotFound):
		return http.StatusNotFound, ErrorResponse{Detail: "Supervisor not found", Code: CodeNotFound}
	case errors.Is(err, project.ErrProjectNotFound), errors.Is(err, material.ErrProjectNotFound):
		return http.StatusNotFound, ErrorResponse{Detail: "Project not found", Code: CodeNotFound}
	case errors.Is(err, project.ErrAssignmentNotFound):
		return http.StatusNotFound, ErrorResponse{Detail: "Employee is not assigned to this project", Code: CodeNotFound}
	case errors.Is(err, material.ErrMaterialNotFound):
		return http.StatusNotFound, ErrorResponse{Detail: "Material not found", Code: CodeNotFound}
	case errors.Is(err, material.ErrAllocationNotFound):
		return http.StatusNotFound, ErrorResponse{Detail: "Material allocation not found", Code: CodeNotFound}
	case matchesAny(err, conflictErrors):
		return http.StatusConflict, ErrorResponse{Detail: err.Error(), Code: CodeConflict}
	case matchesAny(err, invalidArgumentErrors):
		return http.StatusBadRequest, ErrorResponse{Detail: err.Error(), Code: CodeInvalidArgument}
	default:
		return http.StatusInternalServerError, ErrorResponse{Detail: "Internal server error", Code: CodeInternal}
	}
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
