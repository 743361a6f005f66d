package photographer

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/studiolens/core/internal/models"
	"github.com/studiolens/core/internal/pkg/pagination"
	"github.com/studiolens/core/internal/pkg/response"
	"gorm.io/gorm"
)

type CreatePhotographerDTO struct {
	Name            string   `json:"name" binding:"required"`
	Avatar          string   `json:"avatar"`
	Bio             string   `json:"bio"`
	ReferenceImages []string `json:"reference_images"`
	Status          string   `json:"status"`
}

type UpdatePhotographerDTO struct {
	Name            *string   `json:"name"`
	Avatar          *string   `json:"avatar"`
	Bio             *string   `json:"bio"`
	ReferenceImages *[]string `json:"reference_images"`
	Status          *string   `json:"status"`
}

type photographerResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Avatar          string    `json:"avatar"`
	Bio             string    `json:"bio"`
	ReferenceImages []string  `json:"reference_images"`
	Status          string    `json:"status"`
	Created         time.Time `json:"created"`
	Modified        time.Time `json:"modified"`
}

func toResponse(p *models.PhotographerModel) photographerResponse {
	return photographerResponse{
		ID: p.ID, Name: p.Name, Avatar: p.Avatar, Bio: p.Bio,
		ReferenceImages: p.ReferenceImages, Status: p.Status,
		Created: p.CreatedAt, Modified: p.UpdatedAt,
	}
}

func validStatus(s string) bool {
	switch s {
	case models.PhotographerAvailable, models.PhotographerBusy, models.PhotographerRetired:
		return true
	default:
		return false
	}
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// List returns photographers newest-first, optionally filtered by status.
func (s *Service) List(status string, q pagination.Query) ([]models.PhotographerModel, response.Pagination, error) {
	tx := s.db.Model(&models.PhotographerModel{}).Order("created_at DESC")
	if status != "" {
		tx = tx.Where("status = ?", status)
	}
	var items []models.PhotographerModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

func (s *Service) GetByID(id string) (*models.PhotographerModel, error) {
	var item models.PhotographerModel
	if err := s.db.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (s *Service) Create(dto *CreatePhotographerDTO) (*models.PhotographerModel, error) {
	status := dto.Status
	if status == "" {
		status = models.PhotographerAvailable
	}
	item := models.PhotographerModel{
		Name: dto.Name, Avatar: dto.Avatar, Bio: dto.Bio,
		ReferenceImages: dto.ReferenceImages, Status: status,
	}
	return &item, s.db.Create(&item).Error
}

func (s *Service) Update(id string, dto *UpdatePhotographerDTO) (*models.PhotographerModel, error) {
	item, err := s.GetByID(id)
	if err != nil || item == nil {
		return item, err
	}
	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.Avatar != nil {
		updates["avatar"] = *dto.Avatar
	}
	if dto.Bio != nil {
		updates["bio"] = *dto.Bio
	}
	if dto.ReferenceImages != nil {
		updates["reference_images"] = models.StringArray(*dto.ReferenceImages)
	}
	if dto.Status != nil {
		updates["status"] = *dto.Status
	}
	if len(updates) == 0 {
		return item, nil
	}
	return item, s.db.Model(item).Updates(updates).Error
}

func (s *Service) Delete(id string) error {
	return s.db.Delete(&models.PhotographerModel{}, "id = ?", id).Error
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/photographers")
	g.GET("", h.list)
	g.GET("/:id", h.get)

	a := g.Group("", authMW)
	a.POST("", h.create)
	a.PUT("/:id", h.update)
	a.PATCH("/:id", h.update)
	a.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	status := c.Query("status")
	if status != "" && !validStatus(status) {
		response.BadRequest(c, "unknown status: "+status)
		return
	}
	items, pag, err := h.svc.List(status, pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]photographerResponse, len(items))
	for i, p := range items {
		out[i] = toResponse(&p)
	}
	response.Paged(c, out, pag)
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
	var dto CreatePhotographerDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if dto.Status != "" && !validStatus(dto.Status) {
		response.BadRequest(c, "unknown status: "+dto.Status)
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
	var dto UpdatePhotographerDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if dto.Status != nil && !validStatus(*dto.Status) {
		response.BadRequest(c, "unknown status: "+*dto.Status)
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
