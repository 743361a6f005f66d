package auth

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/studiolens/core/internal/middleware"
	"github.com/studiolens/core/internal/models"
	"github.com/studiolens/core/internal/pkg/jwt"
	"github.com/studiolens/core/internal/pkg/response"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	tokenTTL = 7 * 24 * time.Hour

	// failDelay blunts credential guessing a little; applied on every
	// failed login regardless of cause.
	failDelay = 500 * time.Millisecond
)

var (
	ErrBadCredentials = errors.New("bad credentials")
	ErrOwnerExists    = errors.New("owner account already registered")
)

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name"`
}

type userResponse struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Name          string     `json:"name"`
	Avatar        string     `json:"avatar"`
	LastLoginTime *time.Time `json:"last_login_time"`
	LastLoginIP   string     `json:"last_login_ip"`
	Created       time.Time  `json:"created"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toResponse(u *models.UserModel) userResponse {
	return userResponse{
		ID: u.ID, Username: u.Username, Name: u.Name, Avatar: u.Avatar,
		LastLoginTime: u.LastLoginTime, LastLoginIP: u.LastLoginIP,
		Created: u.CreatedAt,
	}
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log}
}

// Login verifies credentials and stamps the last login. The same error comes
// back whether the user is unknown or the password wrong.
func (s *Service) Login(dto *LoginDTO, ip string) (*models.UserModel, string, error) {
	var user models.UserModel
	err := s.db.First(&user, "username = ?", dto.Username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		time.Sleep(failDelay)
		return nil, "", ErrBadCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(dto.Password)) != nil {
		time.Sleep(failDelay)
		s.log.Warn("login rejected", zap.String("username", dto.Username), zap.String("ip", ip))
		return nil, "", ErrBadCredentials
	}

	now := time.Now()
	if err := s.db.Model(&user).Updates(map[string]interface{}{
		"last_login_time": &now,
		"last_login_ip":   ip,
	}).Error; err != nil {
		return nil, "", err
	}

	token, err := jwt.Sign(user.ID, tokenTTL)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// Register creates the owner account. Only the first account can be created
// this way; everything after that returns ErrOwnerExists.
func (s *Service) Register(dto *RegisterDTO) (*models.UserModel, error) {
	var count int64
	if err := s.db.Model(&models.UserModel{}).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrOwnerExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.UserModel{
		Username: dto.Username,
		Name:     dto.Name,
		Password: string(hash),
	}
	return &user, s.db.Create(&user).Error
}

func (s *Service) GetByID(id string) (*models.UserModel, error) {
	var user models.UserModel
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/auth")
	g.POST("/login", h.login)
	g.POST("/register", h.register)
	g.GET("/check", authMW, h.check)
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, token, err := h.svc.Login(&dto, c.ClientIP())
	if errors.Is(err, ErrBadCredentials) {
		response.Unauthorized(c)
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, loginResponse{Token: token, User: toResponse(user)})
}

func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.svc.Register(&dto)
	if errors.Is(err, ErrOwnerExists) {
		response.Conflict(c, "管理员账号已存在")
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, toResponse(user))
}

func (h *Handler) check(c *gin.Context) {
	user, err := h.svc.GetByID(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if user == nil {
		response.Unauthorized(c)
		return
	}
	response.OK(c, toResponse(user))
}
