package models

// SiteModel is the single-row studio profile served with home data.
type SiteModel struct {
	Base
	Name        string `json:"name"`
	Logo        string `json:"logo"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	WechatQR    string `json:"wechat_qr"`
	Description string `json:"description" gorm:"type:text"`
}

func (SiteModel) TableName() string { return "site" }
