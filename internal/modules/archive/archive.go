package archive

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/studiolens/core/internal/models"
	"github.com/studiolens/core/internal/pkg/pagination"
	"github.com/studiolens/core/internal/pkg/response"
	"gorm.io/gorm"
)

type CreateArchiveDTO struct {
	StudentID   string   `json:"student_id" binding:"required"`
	StudentName string   `json:"student_name"`
	Class       string   `json:"class"`
	Photos      []string `json:"photos"`
	Remark      string   `json:"remark"`
}

type UpdateArchiveDTO struct {
	StudentID   *string   `json:"student_id"`
	StudentName *string   `json:"student_name"`
	Class       *string   `json:"class"`
	Photos      *[]string `json:"photos"`
	Remark      *string   `json:"remark"`
}

type archiveResponse struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	Class       string    `json:"class"`
	Photos      []string  `json:"photos"`
	Remark      string    `json:"remark"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
}

func toResponse(a *models.ArchiveModel) archiveResponse {
	return archiveResponse{
		ID: a.ID, StudentID: a.StudentID, StudentName: a.StudentName,
		Class: a.Class, Photos: a.Photos, Remark: a.Remark,
		Created: a.CreatedAt, Modified: a.UpdatedAt,
	}
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) List(q pagination.Query) ([]models.ArchiveModel, response.Pagination, error) {
	tx := s.db.Model(&models.ArchiveModel{}).Order("created_at DESC")
	var items []models.ArchiveModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

func (s *Service) GetByID(id string) (*models.ArchiveModel, error) {
	var item models.ArchiveModel
	if err := s.db.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// GetByStudentID looks an archive up by the student's business id, the key
// the mini-program client actually holds.
func (s *Service) GetByStudentID(studentID string) (*models.ArchiveModel, error) {
	var item models.ArchiveModel
	err := s.db.Where("student_id = ?", studentID).
		Order("created_at DESC").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Service) Create(dto *CreateArchiveDTO) (*models.ArchiveModel, error) {
	item := models.ArchiveModel{
		StudentID: dto.StudentID, StudentName: dto.StudentName,
		Class: dto.Class, Photos: dto.Photos, Remark: dto.Remark,
	}
	return &item, s.db.Create(&item).Error
}

func (s *Service) Update(id string, dto *UpdateArchiveDTO) (*models.ArchiveModel, error) {
	item, err := s.GetByID(id)
	if err != nil || item == nil {
		return item, err
	}
	updates := map[string]interface{}{}
	if dto.StudentID != nil {
		updates["student_id"] = *dto.StudentID
	}
	if dto.StudentName != nil {
		updates["student_name"] = *dto.StudentName
	}
	if dto.Class != nil {
		updates["class"] = *dto.Class
	}
	if dto.Photos != nil {
		updates["photos"] = models.StringArray(*dto.Photos)
	}
	if dto.Remark != nil {
		updates["remark"] = *dto.Remark
	}
	if len(updates) == 0 {
		return item, nil
	}
	return item, s.db.Model(item).Updates(updates).Error
}

func (s *Service) Delete(id string) error {
	return s.db.Delete(&models.ArchiveModel{}, "id = ?", id).Error
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/archives")
	g.GET("/student/:studentId", h.getByStudent)

	a := g.Group("", authMW)
	a.GET("", h.list)
	a.GET("/:id", h.get)
	a.POST("", h.create)
	a.PUT("/:id", h.update)
	a.PATCH("/:id", h.update)
	a.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	items, pag, err := h.svc.List(pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]archiveResponse, len(items))
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

func (h *Handler) getByStudent(c *gin.Context) {
	item, err := h.svc.GetByStudentID(c.Param("studentId"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if item == nil {
		response.NotFoundMsg(c, "档案不存在")
		return
	}
	response.OK(c, toResponse(item))
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateArchiveDTO
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
	var dto UpdateArchiveDTO
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
