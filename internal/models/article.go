package models

// ArticleModel is long-form editorial content (shooting guides, FAQs).
type ArticleModel struct {
	Base
	Title   string `json:"title"   gorm:"not null"`
	Content string `json:"content" gorm:"type:longtext"`
	Cover   string `json:"cover"`
}

func (ArticleModel) TableName() string { return "articles" }
