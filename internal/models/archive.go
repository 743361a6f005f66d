package models

// ArchiveModel is a student's photo archive, looked up by the student's
// business id rather than the row id.
type ArchiveModel struct {
	Base
	StudentID   string      `json:"student_id"   gorm:"index;not null"`
	StudentName string      `json:"student_name"`
	Class       string      `json:"class"`
	Photos      StringArray `json:"photos"       gorm:"type:longtext"`
	Remark      string      `json:"remark"       gorm:"type:text"`
}

func (ArchiveModel) TableName() string { return "archives" }
