package banner

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/studiolens/core/internal/models"
	"github.com/studiolens/core/internal/pkg/response"
	"gorm.io/gorm"
)

type CreateBannerDTO struct {
	Image string `json:"image" binding:"required"`
	Link  string `json:"link"`
	Order int    `json:"order"`
}

type UpdateBannerDTO struct {
	Image *string `json:"image"`
	Link  *string `json:"link"`
	Order *int    `json:"order"`
}

type bannerResponse struct {
	ID       string    `json:"id"`
	Image    string    `json:"image"`
	Link     string    `json:"link"`
	Order    int       `json:"order"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

func toResponse(b *models.BannerModel) bannerResponse {
	return bannerResponse{
		ID: b.ID, Image: b.Image, Link: b.Link, Order: b.Order,
		Created: b.CreatedAt, Modified: b.UpdatedAt,
	}
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// List returns the full carousel in display order. The set is small enough
// that pagination would only complicate the clients.
func (s *Service) List() ([]models.BannerModel, error) {
	var items []models.BannerModel
	err := s.db.Order("sort_order ASC, created_at DESC").Find(&items).Error
	return items, err
}

func (s *Service) GetByID(id string) (*models.BannerModel, error) {
	var item models.BannerModel
	if err := s.db.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (s *Service) Create(dto *CreateBannerDTO) (*models.BannerModel, error) {
	item := models.BannerModel{Image: dto.Image, Link: dto.Link, Order: dto.Order}
	return &item, s.db.Create(&item).Error
}

func (s *Service) Update(id string, dto *UpdateBannerDTO) (*models.BannerModel, error) {
	item, err := s.GetByID(id)
	if err != nil || item == nil {
		return item, err
	}
	updates := map[string]interface{}{}
	if dto.Image != nil {
		updates["image"] = *dto.Image
	}
	if dto.Link != nil {
		updates["link"] = *dto.Link
	}
	if dto.Order != nil {
		updates["sort_order"] = *dto.Order
	}
	if len(updates) == 0 {
		return item, nil
	}
	return item, s.db.Model(item).Updates(updates).Error
}

func (s *Service) Delete(id string) error {
	return s.db.Delete(&models.BannerModel{}, "id = ?", id).Error
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/banners")
	g.GET("", h.list)
	g.GET("/:id", h.get)

	a := g.Group("", authMW)
	a.POST("", h.create)
	a.PUT("/:id", h.update)
	a.PATCH("/:id", h.update)
	a.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]bannerResponse, len(items))
	for i, b := range items {
		out[i] = toResponse(&b)
	}
	response.OK(c, out)
}

func (h *Handler) get(c *gin.Context) {
	item, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if item == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(item))
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateBannerDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	item, err := h.svc.Create(&dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, toResponse(item))
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateBannerDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	item, err := h.svc.Update(c.Param("id"), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if item == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(item))
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
