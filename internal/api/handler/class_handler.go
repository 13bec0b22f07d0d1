package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"team-matching/internal/dto"
	"team-matching/internal/service"
	"team-matching/pkg/response"
)

// ClassHandler 班级 / 学生 / 问卷 HTTP 处理器
type ClassHandler struct {
	classSvc service.ClassService
}

// NewClassHandler 创建 ClassHandler
func NewClassHandler(classSvc service.ClassService) *ClassHandler {
	return &ClassHandler{classSvc: classSvc}
}

// ── 班级 ──

// CreateClass 创建班级
// POST /api/v1/classes
func (h *ClassHandler) CreateClass(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	var req dto.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.classSvc.CreateClass(c.Request.Context(), teacherID, &req)
	if err != nil {
		h.handleClassError(c, err)
		return
	}
	response.Created(c, result)
}

// ListClasses 当前教师的班级列表
// GET /api/v1/classes
func (h *ClassHandler) ListClasses(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	list, err := h.classSvc.ListClasses(c.Request.Context(), teacherID)
	if err != nil {
		h.handleClassError(c, err)
		return
	}
	response.OK(c, list)
}

// ── 学生 ──

// CreateStudents 批量导入学生
// POST /api/v1/classes/:id/students
func (h *ClassHandler) CreateStudents(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	var req dto.CreateStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.classSvc.CreateStudents(c.Request.Context(), teacherID, c.Param("id"), &req)
	if err != nil {
		h.handleClassError(c, err)
		return
	}
	response.Created(c, list)
}

// ListStudents 班级学生列表
// GET /api/v1/classes/:id/students
func (h *ClassHandler) ListStudents(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	list, err := h.classSvc.ListStudents(c.Request.Context(), teacherID, c.Param("id"))
	if err != nil {
		h.handleClassError(c, err)
		return
	}
	response.OK(c, list)
}

// DeleteStudent 删除学生（其偏好级联删除，历史分组保留）
// DELETE /api/v1/students/:id
func (h *ClassHandler) DeleteStudent(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	if err := h.classSvc.DeleteStudent(c.Request.Context(), teacherID, c.Param("id")); err != nil {
		h.handleClassError(c, err)
		return
	}
	response.OK(c, nil)
}

// ── 问卷 ──

// CreateSurvey 创建问卷
// POST /api/v1/classes/:id/surveys
func (h *ClassHandler) CreateSurvey(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	var req dto.CreateSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.classSvc.CreateSurvey(c.Request.Context(), teacherID, c.Param("id"), &req)
	if err != nil {
		h.handleClassError(c, err)
		return
	}
	response.Created(c, result)
}

// ListSurveys 班级问卷列表
// GET /api/v1/classes/:id/surveys
func (h *ClassHandler) ListSurveys(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	list, err := h.classSvc.ListSurveys(c.Request.Context(), teacherID, c.Param("id"))
	if err != nil {
		h.handleClassError(c, err)
		return
	}
	response.OK(c, list)
}

// UpdateSurveyStatus 修改问卷状态
// PUT /api/v1/surveys/:id/status
func (h *ClassHandler) UpdateSurveyStatus(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	var req dto.UpdateSurveyStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.classSvc.UpdateSurveyStatus(c.Request.Context(), teacherID, c.Param("id"), &req)
	if err != nil {
		h.handleClassError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *ClassHandler) handleClassError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFoundOrDenied):
		response.NotFound(c, 20101, service.ErrNotFoundOrDenied.Error())
	case errors.Is(err, service.ErrStudentNoDuplicate):
		response.ErrorWithDetails(c, 400, 20102, "请求内学号重复", err.Error())
	case errors.Is(err, service.ErrStudentNoExists):
		response.Conflict(c, 20103, "班级内已存在该学号")
	default:
		response.InternalError(c)
	}
}
