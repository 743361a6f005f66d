package site

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/studiolens/core/internal/models"
	"github.com/studiolens/core/internal/pkg/response"
	"gorm.io/gorm"
)

type UpdateSiteDTO struct {
	Name        *string `json:"name"`
	Logo        *string `json:"logo"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	WechatQR    *string `json:"wechat_qr"`
	Description *string `json:"description"`
}

type siteResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Logo        string    `json:"logo"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	WechatQR    string    `json:"wechat_qr"`
	Description string    `json:"description"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
}

func toResponse(s *models.SiteModel) siteResponse {
	return siteResponse{
		ID: s.ID, Name: s.Name, Logo: s.Logo, Phone: s.Phone,
		Address: s.Address, WechatQR: s.WechatQR, Description: s.Description,
		Created: s.CreatedAt, Modified: s.UpdatedAt,
	}
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Get returns the site profile, or nil before the first write.
func (s *Service) Get() (*models.SiteModel, error) {
	var item models.SiteModel
	if err := s.db.Order("created_at ASC").First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// Update writes the single-row profile, creating it on first use.
func (s *Service) Update(dto *UpdateSiteDTO) (*models.SiteModel, error) {
	item, err := s.Get()
	if err != nil {
		return nil, err
	}
	if item == nil {
		item = &models.SiteModel{}
		if err := s.db.Create(item).Error; err != nil {
			return nil, err
		}
	}

	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.Logo != nil {
		updates["logo"] = *dto.Logo
	}
	if dto.Phone != nil {
		updates["phone"] = *dto.Phone
	}
	if dto.Address != nil {
		updates["address"] = *dto.Address
	}
	if dto.WechatQR != nil {
		updates["wechat_qr"] = *dto.WechatQR
	}
	if dto.Description != nil {
		updates["description"] = *dto.Description
	}
	if len(updates) == 0 {
		return item, nil
	}
	return item, s.db.Model(item).Updates(updates).Error
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/site")
	g.GET("", h.get)
	g.PUT("", authMW, h.update)
}

func (h *Handler) get(c *gin.Context) {
	item, err := h.svc.Get()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if item == nil {
		response.OK(c, nil)
		return
	}
	response.OK(c, toResponse(item))
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateSiteDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	item, err := h.svc.Update(&dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, toResponse(item))
}
