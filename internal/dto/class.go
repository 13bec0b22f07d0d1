package dto

// ── 班级 / 学生 / 问卷 请求 ──

// CreateClassRequest 创建班级
type CreateClassRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// CreateStudentItem 单个学生
type CreateStudentItem struct {
	StudentNo int    `json:"student_no" binding:"required,min=1"`
	Name      string `json:"name"       binding:"required,min=1,max=100"`
	Sex       *int   `json:"sex"        binding:"required,oneof=0 1"`
	Memo      string `json:"memo"       binding:"max=1000"`
}

// CreateStudentsRequest 批量创建学生（名单导入）
type CreateStudentsRequest struct {
	Students []CreateStudentItem `json:"students" binding:"required,min=1,dive"`
}

// CreateSurveyRequest 创建问卷
type CreateSurveyRequest struct {
	Name    string `json:"name"    binding:"required,min=1,max=100"`
	Status  string `json:"status"  binding:"omitempty,oneof=draft open closed"`
	Context string `json:"context" binding:"max=2000"`
}

// UpdateSurveyStatusRequest 修改问卷状态
type UpdateSurveyStatusRequest struct {
	Status  string  `json:"status"  binding:"required,oneof=draft open closed"`
	Context *string `json:"context" binding:"omitempty,max=2000"`
}

// ── 响应 ──

// ClassResponse 班级
type ClassResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// StudentResponse 学生
type StudentResponse struct {
	ID        string `json:"id"`
	ClassID   string `json:"class_id"`
	StudentNo int    `json:"student_no"`
	Name      string `json:"name"`
	Sex       int    `json:"sex"`
	Memo      string `json:"memo"`
}

// SurveyResponse 问卷
type SurveyResponse struct {
	ID        string `json:"id"`
	ClassID   string `json:"class_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Context   string `json:"context"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
