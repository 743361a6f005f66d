package student

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/studiolens/core/internal/models"
	"github.com/studiolens/core/internal/pkg/pagination"
	"github.com/studiolens/core/internal/pkg/response"
	"gorm.io/gorm"
)

type CreateStudentDTO struct {
	Name      string `json:"name" binding:"required"`
	StudentID string `json:"student_id"`
	Class     string `json:"class"`
	Phone     string `json:"phone"`
}

type UpdateStudentDTO struct {
	Name      *string `json:"name"`
	StudentID *string `json:"student_id"`
	Class     *string `json:"class"`
	Phone     *string `json:"phone"`
}

type studentResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StudentID string    `json:"student_id"`
	Class     string    `json:"class"`
	Phone     string    `json:"phone"`
	Created   time.Time `json:"created"`
	Modified  time.Time `json:"modified"`
}

func toResponse(s *models.StudentModel) studentResponse {
	return studentResponse{
		ID: s.ID, Name: s.Name, StudentID: s.StudentID,
		Class: s.Class, Phone: s.Phone,
		Created: s.CreatedAt, Modified: s.UpdatedAt,
	}
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// List returns students ordered by student id, optionally narrowed by a
// keyword matched as a substring of the name or the student id.
func (s *Service) List(keyword string, q pagination.Query) ([]models.StudentModel, response.Pagination, error) {
	tx := s.db.Model(&models.StudentModel{}).Order("student_id ASC, created_at ASC")
	if keyword != "" {
		like := "%" + keyword + "%"
		tx = tx.Where("name LIKE ? OR student_id LIKE ?", like, like)
	}
	var items []models.StudentModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

func (s *Service) GetByID(id string) (*models.StudentModel, error) {
	var item models.StudentModel
	if err := s.db.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// nextStudentID picks the number after the current numeric maximum. Longer
// strings sort higher first so a five-digit id never loses to "9999".
func (s *Service) nextStudentID() (string, error) {
	var last models.StudentModel
	err := s.db.Where("student_id <> ''").
		Order("LENGTH(student_id) DESC, student_id DESC").
		First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "0001", nil
	}
	if err != nil {
		return "", err
	}
	n, convErr := strconv.Atoi(last.StudentID)
	if convErr != nil {
		return "", fmt.Errorf("student id %q is not numeric: %w", last.StudentID, convErr)
	}
	return fmt.Sprintf("%04d", n+1), nil
}

func (s *Service) Create(dto *CreateStudentDTO) (*models.StudentModel, error) {
	sid := dto.StudentID
	if sid == "" {
		var err error
		if sid, err = s.nextStudentID(); err != nil {
			return nil, err
		}
	}
	item := models.StudentModel{Name: dto.Name, StudentID: sid, Class: dto.Class, Phone: dto.Phone}
	return &item, s.db.Create(&item).Error
}

func (s *Service) Update(id string, dto *UpdateStudentDTO) (*models.StudentModel, error) {
	item, err := s.GetByID(id)
	if err != nil || item == nil {
		return item, err
	}
	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.StudentID != nil {
		updates["student_id"] = *dto.StudentID
	}
	if dto.Class != nil {
		updates["class"] = *dto.Class
	}
	if dto.Phone != nil {
		updates["phone"] = *dto.Phone
	}
	if len(updates) == 0 {
		return item, nil
	}
	return item, s.db.Model(item).Updates(updates).Error
}

func (s *Service) Delete(id string) error {
	return s.db.Delete(&models.StudentModel{}, "id = ?", id).Error
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/students", authMW)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	items, pag, err := h.svc.List(c.Query("keyword"), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]studentResponse, len(items))
	for i, s := range items {
		out[i] = toResponse(&s)
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
	var dto CreateStudentDTO
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
	var dto UpdateStudentDTO
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
