package announcement

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/studiolens/core/internal/models"
	"github.com/studiolens/core/internal/pkg/pagination"
	"github.com/studiolens/core/internal/pkg/response"
	"gorm.io/gorm"
)

type CreateAnnouncementDTO struct {
	Title   string `json:"title"   binding:"required"`
	Content string `json:"content"`
	Pinned  bool   `json:"pinned"`
}

type UpdateAnnouncementDTO struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Pinned  *bool   `json:"pinned"`
}

type announcementResponse struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Pinned   bool      `json:"pinned"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

func toResponse(a *models.AnnouncementModel) announcementResponse {
	return announcementResponse{
		ID: a.ID, Title: a.Title, Content: a.Content, Pinned: a.Pinned,
		Created: a.CreatedAt, Modified: a.UpdatedAt,
	}
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// List returns announcements pinned-first, newest-first.
func (s *Service) List(q pagination.Query) ([]models.AnnouncementModel, response.Pagination, error) {
	tx := s.db.Model(&models.AnnouncementModel{}).Order("pinned DESC, created_at DESC")
	var items []models.AnnouncementModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

// Top returns the first n announcements in display order, for the home page.
func (s *Service) Top(n int) ([]models.AnnouncementModel, error) {
	var items []models.AnnouncementModel
	err := s.db.Order("pinned DESC, created_at DESC").Limit(n).Find(&items).Error
	return items, err
}

func (s *Service) GetByID(id string) (*models.AnnouncementModel, error) {
	var item models.AnnouncementModel
	if err := s.db.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (s *Service) Create(dto *CreateAnnouncementDTO) (*models.AnnouncementModel, error) {
	item := models.AnnouncementModel{Title: dto.Title, Content: dto.Content, Pinned: dto.Pinned}
	return &item, s.db.Create(&item).Error
}

func (s *Service) Update(id string, dto *UpdateAnnouncementDTO) (*models.AnnouncementModel, error) {
	item, err := s.GetByID(id)
	if err != nil || item == nil {
		return item, err
	}
	updates := map[string]interface{}{}
	if dto.Title != nil {
		updates["title"] = *dto.Title
	}
	if dto.Content != nil {
		updates["content"] = *dto.Content
	}
	if dto.Pinned != nil {
		updates["pinned"] = *dto.Pinned
	}
	if len(updates) == 0 {
		return item, nil
	}
	return item, s.db.Model(item).Updates(updates).Error
}

func (s *Service) Delete(id string) error {
	return s.db.Delete(&models.AnnouncementModel{}, "id = ?", id).Error
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/announcements")
	g.GET("", h.list)
	g.GET("/:id", h.get)

	a := g.Group("", authMW)
	a.POST("", h.create)
	a.PUT("/:id", h.update)
	a.PATCH("/:id", h.update)
	a.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	items, pag, err := h.svc.List(q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]announcementResponse, len(items))
	for i, a := range items {
		out[i] = toResponse(&a)
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
	var dto CreateAnnouncementDTO
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
	var dto UpdateAnnouncementDTO
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
