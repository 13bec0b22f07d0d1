package model

import "time"

// 领导力 / 视力 权重取值
const (
	WeightHigh   = 8
	WeightMedium = 3
	WeightLow    = 1
)

// StudentPreference 学生问卷偏好（表 student_preferences）
// (student_id, survey_id) 唯一，重复提交走 upsert
type StudentPreference struct {
	PreferenceID string `gorm:"column:student_preference_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"student_preference_id"`
	StudentID    string `gorm:"type:uuid;not null;uniqueIndex:uq_preferences_student_survey"                  json:"student_id"`
	SurveyID     string `gorm:"type:uuid;not null;uniqueIndex:uq_preferences_student_survey"                  json:"survey_id"`
	MiA          int    `gorm:"not null;default:0" json:"mi_a"`
	MiB          int    `gorm:"not null;default:0" json:"mi_b"`
	MiC          int    `gorm:"not null;default:0" json:"mi_c"`
	MiD          int    `gorm:"not null;default:0" json:"mi_d"`
	MiE          int    `gorm:"not null;default:0" json:"mi_e"`
	MiF          int    `gorm:"not null;default:0" json:"mi_f"`
	MiG          int    `gorm:"not null;default:0" json:"mi_g"`
	MiH          int    `gorm:"not null;default:0" json:"mi_h"`
	Leader       int    `gorm:"not null;default:1" json:"leader"`
	Eyesight     int    `gorm:"not null;default:1" json:"eyesight"`
	PreviousTeam int    `gorm:"not null;default:0" json:"previous_team"`
	BaseModel

	// 关联
	Student  *Student         `gorm:"foreignKey:StudentID;references:StudentID"   json:"student,omitempty"`
	Dislikes []StudentDislike `gorm:"foreignKey:PreferenceID;references:PreferenceID" json:"dislikes,omitempty"`
}

func (StudentPreference) TableName() string { return "student_preferences" }

// Scores 返回 mi_a..mi_h 八项得分
func (p *StudentPreference) Scores() [8]int {
	return [8]int{p.MiA, p.MiB, p.MiC, p.MiD, p.MiE, p.MiF, p.MiG, p.MiH}
}

// StudentDislike 回避关系（表 student_dislikes）
// (student_preference_id, student_id) 唯一
type StudentDislike struct {
	DislikeID    string    `gorm:"column:student_dislike_id;type:uuid;primaryKey;default:gen_random_uuid()"     json:"student_dislike_id"`
	PreferenceID string    `gorm:"column:student_preference_id;type:uuid;not null;uniqueIndex:uq_dislikes_pair" json:"student_preference_id"`
	StudentID    string    `gorm:"type:uuid;not null;uniqueIndex:uq_dislikes_pair"                              json:"student_id"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                                           json:"created_at"`

	// 关联
	Student *Student `gorm:"foreignKey:StudentID;references:StudentID" json:"student,omitempty"`
}

func (StudentDislike) TableName() string { return "student_dislikes" }
