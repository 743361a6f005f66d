package models

// AnnouncementModel is a site-wide notice shown on the home screen.
// Pinned announcements sort before everything else.
type AnnouncementModel struct {
	Base
	Title   string `json:"title"   gorm:"not null"`
	Content string `json:"content" gorm:"type:longtext"`
	Pinned  bool   `json:"pinned"  gorm:"index"`
}

func (AnnouncementModel) TableName() string { return "announcements" }
