package model

// Teacher 教师表（表 teachers）
// FirebaseUID 为外部身份服务给出的稳定标识
type Teacher struct {
	TeacherID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"teacher_id"`
	FirebaseUID string `gorm:"type:varchar(128);not null;uniqueIndex"         json:"-"`
	Name        string `gorm:"type:varchar(100);not null;default:''"          json:"name"`
	BaseModel
}

func (Teacher) TableName() string { return "teachers" }
