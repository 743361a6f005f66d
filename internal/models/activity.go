package models

// Activity publication states.
const (
	ActivityStatusDraft     = "draft"
	ActivityStatusPublished = "published"
	ActivityStatusOffline   = "offline"
)

// ActivityModel is a bookable photo session (campaign) offered by the studio.
// PhotographerIDs references PhotographerModel rows; the reference is resolved
// by the detail aggregator, not enforced by the store.
type ActivityModel struct {
	Base
	Title           string      `json:"title"            gorm:"not null"`
	Category        string      `json:"category"         gorm:"index"`
	Cover           string      `json:"cover"`
	Description     string      `json:"description"      gorm:"type:longtext"`
	Price           int         `json:"price"` // cents
	Status          string      `json:"status"           gorm:"index;default:'draft'"`
	IsDefault       bool        `json:"is_default"       gorm:"index"`
	SortOrder       int         `json:"sort_order"       gorm:"index"`
	PhotographerIDs StringArray `json:"photographer_ids" gorm:"type:longtext"`
	ViewCount       int64       `json:"view_count"`
}

func (ActivityModel) TableName() string { return "activities" }
