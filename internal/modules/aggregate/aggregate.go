package aggregate

import (
	"github.com/gin-gonic/gin"
	"github.com/studiolens/core/internal/models"
	"github.com/studiolens/core/internal/modules/activity"
	"github.com/studiolens/core/internal/modules/announcement"
	"github.com/studiolens/core/internal/modules/banner"
	"github.com/studiolens/core/internal/modules/site"
	"github.com/studiolens/core/internal/pkg/response"
)

const (
	topAnnouncements   = 5
	featuredActivities = 20
)

// Service assembles the mini-program home payload from the content modules,
// one round trip instead of four.
type Service struct {
	banners       *banner.Service
	announcements *announcement.Service
	activities    *activity.Service
	site          *site.Service
}

func NewService(b *banner.Service, an *announcement.Service, ac *activity.Service, st *site.Service) *Service {
	return &Service{banners: b, announcements: an, activities: ac, site: st}
}

// HomeData is everything the home page renders.
type HomeData struct {
	Banners       []models.BannerModel       `json:"banners"`
	Announcements []models.AnnouncementModel `json:"announcements"`
	Activities    []models.ActivityModel     `json:"activities"`
	Site          *models.SiteModel          `json:"site"`
}

// Home fails only on a store error; a missing site profile is served as null.
func (s *Service) Home() (*HomeData, error) {
	banners, err := s.banners.List()
	if err != nil {
		return nil, err
	}
	announcements, err := s.announcements.Top(topAnnouncements)
	if err != nil {
		return nil, err
	}
	activities, err := s.activities.Featured(featuredActivities)
	if err != nil {
		return nil, err
	}
	profile, err := s.site.Get()
	if err != nil {
		return nil, err
	}

	return &HomeData{
		Banners:       banners,
		Announcements: announcements,
		Activities:    activities,
		Site:          profile,
	}, nil
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/aggregate", h.home)
}

func (h *Handler) home(c *gin.Context) {
	data, err := h.svc.Home()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, data)
}
