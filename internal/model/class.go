package model

// Class 班级表（表 classes）
type Class struct {
	ClassID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"class_id"`
	TeacherID string `gorm:"type:uuid;not null;index"                       json:"teacher_id"`
	Name      string `gorm:"type:varchar(100);not null"                     json:"name"`
	BaseModel
}

func (Class) TableName() string { return "classes" }
