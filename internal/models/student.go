package models

// StudentModel is a registered student. StudentID is a dense, zero-padded
// sequential string assigned in creation order; the maintenance resequencer
// restores that invariant when it drifts.
type StudentModel struct {
	Base
	Name      string `json:"name"       gorm:"not null"`
	StudentID string `json:"student_id" gorm:"index"`
	Class     string `json:"class"`
	Phone     string `json:"phone"`
}

func (StudentModel) TableName() string { return "students" }
