package models

// BannerModel is a home carousel image, listed by Order ascending.
type BannerModel struct {
	Base
	Image string `json:"image" gorm:"not null"`
	Link  string `json:"link"`
	Order int    `json:"order" gorm:"column:sort_order;index"`
}

func (BannerModel) TableName() string { return "banners" }
