package model

// Survey 问卷表（表 surveys）
// Status 语义由调用方定义（draft | open | closed），此处不做状态机校验
type Survey struct {
	SurveyID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"survey_id"`
	ClassID  string `gorm:"type:uuid;not null;index"                       json:"class_id"`
	Name     string `gorm:"type:varchar(100);not null"                     json:"name"`
	Status   string `gorm:"type:varchar(20);not null;default:'draft'"      json:"status"`
	Context  string `gorm:"type:text;not null;default:''"                  json:"context"`
	BaseModel

	// 关联
	Class *Class `gorm:"foreignKey:ClassID;references:ClassID" json:"class,omitempty"`
}

func (Survey) TableName() string { return "surveys" }
