package dto

import (
	"encoding/json"
	"fmt"

	"team-matching/internal/model"
)

// ── 偏好批量提交（手工录入 / CSV 转换结果） ──

// PreferenceSubmission 单个学生在某问卷下的偏好
// Student 与 Dislikes 可使用 student_no（数字）或 student_id（UUID）。
// 学生本人也可用 student_no / student_id 键给出；多个键同时出现时
// 第一个作为 Student，其余记入 AltRefs，由服务层校验指向同一学生。
type PreferenceSubmission struct {
	Student      model.StudentRef   `json:"student"`
	SurveyID     string             `json:"survey_id"     binding:"required,uuid"`
	MiA          int                `json:"mi_a"          binding:"min=0,max=8"`
	MiB          int                `json:"mi_b"          binding:"min=0,max=8"`
	MiC          int                `json:"mi_c"          binding:"min=0,max=8"`
	MiD          int                `json:"mi_d"          binding:"min=0,max=8"`
	MiE          int                `json:"mi_e"          binding:"min=0,max=8"`
	MiF          int                `json:"mi_f"          binding:"min=0,max=8"`
	MiG          int                `json:"mi_g"          binding:"min=0,max=8"`
	MiH          int                `json:"mi_h"          binding:"min=0,max=8"`
	Leader       int                `json:"leader"        binding:"weight"`
	Eyesight     int                `json:"eyesight"      binding:"weight"`
	PreviousTeam int                `json:"previous_team" binding:"min=0"`
	Dislikes     []model.StudentRef `json:"dislikes"`

	AltRefs []model.StudentRef `json:"-"`
}

func (p *PreferenceSubmission) UnmarshalJSON(data []byte) error {
	type plain PreferenceSubmission
	aux := struct {
		*plain
		StudentNo *model.StudentRef `json:"student_no"`
		StudentID *model.StudentRef `json:"student_id"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	p.AltRefs = nil
	if aux.StudentNo != nil {
		if _, ok := aux.StudentNo.No(); !ok {
			return fmt.Errorf("student_no 必须为整数序号")
		}
		p.addRef(*aux.StudentNo)
	}
	if aux.StudentID != nil {
		if _, ok := aux.StudentID.ID(); !ok {
			return fmt.Errorf("student_id 必须为 UUID")
		}
		p.addRef(*aux.StudentID)
	}
	return nil
}

func (p *PreferenceSubmission) addRef(ref model.StudentRef) {
	if p.Student.IsZero() {
		p.Student = ref
		return
	}
	if ref != p.Student {
		p.AltRefs = append(p.AltRefs, ref)
	}
}

// BatchUpsertPreferencesRequest 批量提交
type BatchUpsertPreferencesRequest struct {
	Preferences []PreferenceSubmission `json:"preferences" binding:"required,min=1,dive"`
}

// BatchUpsertPreferencesResponse 批量提交结果
type BatchUpsertPreferencesResponse struct {
	Total    int `json:"total"`
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Dislikes int `json:"dislikes"`
}

// PreferenceResponse 偏好
type PreferenceResponse struct {
	ID           string `json:"id"`
	SurveyID     string `json:"survey_id"`
	StudentID    string `json:"student_id"`
	StudentNo    int    `json:"student_no"`
	StudentName  string `json:"student_name"`
	MiA          int    `json:"mi_a"`
	MiB          int    `json:"mi_b"`
	MiC          int    `json:"mi_c"`
	MiD          int    `json:"mi_d"`
	MiE          int    `json:"mi_e"`
	MiF          int    `json:"mi_f"`
	MiG          int    `json:"mi_g"`
	MiH          int    `json:"mi_h"`
	Leader       int    `json:"leader"`
	Eyesight     int    `json:"eyesight"`
	PreviousTeam int    `json:"previous_team"`
	Dislikes     []int  `json:"dislikes"` // student_no 列表
	UpdatedAt    string `json:"updated_at"`
}
