package activity

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/studiolens/core/internal/models"
	"github.com/studiolens/core/internal/pkg/pagination"
	"github.com/studiolens/core/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const photographerFallbackLimit = 100

type CreateActivityDTO struct {
	Title           string   `json:"title" binding:"required"`
	Category        string   `json:"category"`
	Cover           string   `json:"cover"`
	Description     string   `json:"description"`
	Price           int      `json:"price"`
	Status          string   `json:"status"`
	IsDefault       bool     `json:"is_default"`
	SortOrder       int      `json:"sort_order"`
	PhotographerIDs []string `json:"photographer_ids"`
}

type UpdateActivityDTO struct {
	Title           *string   `json:"title"`
	Category        *string   `json:"category"`
	Cover           *string   `json:"cover"`
	Description     *string   `json:"description"`
	Price           *int      `json:"price"`
	Status          *string   `json:"status"`
	IsDefault       *bool     `json:"is_default"`
	SortOrder       *int      `json:"sort_order"`
	PhotographerIDs *[]string `json:"photographer_ids"`
}

// ListFilter is the conjunctive search predicate: every set field must match.
type ListFilter struct {
	Category string
	Status   string
	Keyword  string
}

type activityResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Category        string    `json:"category"`
	Cover           string    `json:"cover"`
	Description     string    `json:"description"`
	Price           int       `json:"price"`
	Status          string    `json:"status"`
	IsDefault       bool      `json:"is_default"`
	SortOrder       int       `json:"sort_order"`
	PhotographerIDs []string  `json:"photographer_ids"`
	ViewCount       int64     `json:"view_count"`
	Created         time.Time `json:"created"`
	Modified        time.Time `json:"modified"`
}

type photographerBrief struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Avatar          string   `json:"avatar"`
	Bio             string   `json:"bio"`
	ReferenceImages []string `json:"reference_images"`
	Status          string   `json:"status"`
}

// DetailResponse is the aggregated activity page payload.
type DetailResponse struct {
	activityResponse
	Photographers []photographerBrief `json:"photographers"`
}

func toResponse(a *models.ActivityModel) activityResponse {
	return activityResponse{
		ID: a.ID, Title: a.Title, Category: a.Category, Cover: a.Cover,
		Description: a.Description, Price: a.Price, Status: a.Status,
		IsDefault: a.IsDefault, SortOrder: a.SortOrder,
		PhotographerIDs: a.PhotographerIDs, ViewCount: a.ViewCount,
		Created: a.CreatedAt, Modified: a.UpdatedAt,
	}
}

func toBrief(p *models.PhotographerModel) photographerBrief {
	return photographerBrief{
		ID: p.ID, Name: p.Name, Avatar: p.Avatar, Bio: p.Bio,
		ReferenceImages: p.ReferenceImages, Status: p.Status,
	}
}

func validStatus(s string) bool {
	switch s {
	case models.ActivityStatusDraft, models.ActivityStatusPublished, models.ActivityStatusOffline:
		return true
	default:
		return false
	}
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log}
}

func (s *Service) filtered(f ListFilter) *gorm.DB {
	tx := s.db.Model(&models.ActivityModel{})
	if f.Category != "" {
		tx = tx.Where("category = ?", f.Category)
	}
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}
	if f.Keyword != "" {
		tx = tx.Where("title LIKE ?", "%"+f.Keyword+"%")
	}
	return tx
}

// List applies the conjunctive filter, ordered for display. The total comes
// from a second count query over the same predicate.
func (s *Service) List(f ListFilter, q pagination.Query) ([]models.ActivityModel, response.Pagination, error) {
	tx := s.filtered(f).Order("sort_order ASC, created_at DESC")
	var items []models.ActivityModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

// Featured returns the first n published activities in display order.
func (s *Service) Featured(n int) ([]models.ActivityModel, error) {
	var items []models.ActivityModel
	err := s.db.Where("status = ?", models.ActivityStatusPublished).
		Order("sort_order ASC, created_at DESC").
		Limit(n).
		Find(&items).Error
	return items, err
}

func (s *Service) GetByID(id string) (*models.ActivityModel, error) {
	var item models.ActivityModel
	if err := s.db.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// Detail aggregates the activity page: the activity itself, a best-effort
// view-count bump, and the resolved photographer list. Only a missing
// activity fails the call; the other reads degrade.
func (s *Service) Detail(id string) (*DetailResponse, error) {
	item, err := s.GetByID(id)
	if err != nil || item == nil {
		return nil, err
	}

	if err := s.db.Model(&models.ActivityModel{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
		s.log.Warn("view count increment failed", zap.String("activity", id), zap.Error(err))
	} else {
		item.ViewCount++
	}

	detail := &DetailResponse{
		activityResponse: toResponse(item),
		Photographers:    []photographerBrief{},
	}
	for _, p := range s.resolvePhotographers(item.PhotographerIDs) {
		detail.Photographers = append(detail.Photographers, toBrief(&p))
	}
	return detail, nil
}

// resolvePhotographers returns the rows for ids, falling back to every
// available photographer (bounded) when ids is empty or resolves to nothing.
// A query failure degrades to an empty list so the detail page still renders.
func (s *Service) resolvePhotographers(ids []string) []models.PhotographerModel {
	var items []models.PhotographerModel
	if len(ids) > 0 {
		if err := s.db.Where("id IN ?", []string(ids)).Find(&items).Error; err != nil {
			s.log.Warn("photographer lookup failed", zap.Error(err))
			return nil
		}
		if len(items) > 0 {
			return items
		}
	}
	if err := s.db.Where("status = ?", models.PhotographerAvailable).
		Order("created_at DESC").
		Limit(photographerFallbackLimit).
		Find(&items).Error; err != nil {
		s.log.Warn("photographer fallback failed", zap.Error(err))
		return nil
	}
	return items
}

func (s *Service) Create(dto *CreateActivityDTO) (*models.ActivityModel, error) {
	status := dto.Status
	if status == "" {
		status = models.ActivityStatusDraft
	}
	item := models.ActivityModel{
		Title: dto.Title, Category: dto.Category, Cover: dto.Cover,
		Description: dto.Description, Price: dto.Price, Status: status,
		IsDefault: dto.IsDefault, SortOrder: dto.SortOrder,
		PhotographerIDs: dto.PhotographerIDs,
	}
	return &item, s.db.Create(&item).Error
}

func (s *Service) Update(id string, dto *UpdateActivityDTO) (*models.ActivityModel, error) {
	item, err := s.GetByID(id)
	if err != nil || item == nil {
		return item, err
	}
	updates := map[string]interface{}{}
	if dto.Title != nil {
		updates["title"] = *dto.Title
	}
	if dto.Category != nil {
		updates["category"] = *dto.Category
	}
	if dto.Cover != nil {
		updates["cover"] = *dto.Cover
	}
	if dto.Description != nil {
		updates["description"] = *dto.Description
	}
	if dto.Price != nil {
		updates["price"] = *dto.Price
	}
	if dto.Status != nil {
		updates["status"] = *dto.Status
	}
	if dto.IsDefault != nil {
		updates["is_default"] = *dto.IsDefault
	}
	if dto.SortOrder != nil {
		updates["sort_order"] = *dto.SortOrder
	}
	if dto.PhotographerIDs != nil {
		updates["photographer_ids"] = models.StringArray(*dto.PhotographerIDs)
	}
	if len(updates) == 0 {
		return item, nil
	}
	return item, s.db.Model(item).Updates(updates).Error
}

func (s *Service) Delete(id string) error {
	return s.db.Delete(&models.ActivityModel{}, "id = ?", id).Error
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/activities")
	g.GET("", h.list)
	g.GET("/:id", h.detail)

	a := g.Group("", authMW)
	a.GET("/:id/raw", h.get)
	a.POST("", h.create)
	a.PUT("/:id", h.update)
	a.PATCH("/:id", h.update)
	a.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	f := ListFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Keyword:  c.Query("keyword"),
	}
	if f.Status != "" && !validStatus(f.Status) {
		response.BadRequest(c, "unknown status: "+f.Status)
		return
	}
	items, pag, err := h.svc.List(f, pagination.FromLimitSkip(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]activityResponse, len(items))
	for i, a := range items {
		out[i] = toResponse(&a)
	}
	response.Paged(c, out, pag)
}

func (h *Handler) detail(c *gin.Context) {
	detail, err := h.svc.Detail(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if detail == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, detail)
}

// get returns the bare row without the detail aggregation side effects, for
// the admin edit form.
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
	var dto CreateActivityDTO
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
	var dto UpdateActivityDTO
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
