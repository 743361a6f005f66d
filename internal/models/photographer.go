package models

// Photographer availability states.
const (
	PhotographerAvailable = "available"
	PhotographerBusy      = "busy"
	PhotographerRetired   = "retired"
)

// PhotographerModel is a studio photographer with sample work.
type PhotographerModel struct {
	Base
	Name            string      `json:"name"             gorm:"not null"`
	Avatar          string      `json:"avatar"`
	Bio             string      `json:"bio"              gorm:"type:text"`
	ReferenceImages StringArray `json:"reference_images" gorm:"type:longtext"`
	Status          string      `json:"status"           gorm:"index;default:'available'"`
}

func (PhotographerModel) TableName() string { return "photographers" }
