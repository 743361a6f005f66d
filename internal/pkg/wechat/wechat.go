package wechat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultAPIBase = "https://api.weixin.qq.com"

// Service sends mini-program subscribe messages via the platform API.
// Failures are for the caller to log; a missed notification never blocks an
// order flow.
type Service struct {
	client    *resty.Client
	apiBase   string
	appID     string
	appSecret string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New creates a subscribe-message sender. appID/appSecret may be empty, in
// which case every send fails with a configuration error.
func New(appID, appSecret string) *Service {
	return &Service{
		client:    resty.New().SetTimeout(10 * time.Second),
		apiBase:   defaultAPIBase,
		appID:     appID,
		appSecret: appSecret,
	}
}

// SetAPIBase overrides the platform endpoint (tests).
func (s *Service) SetAPIBase(base string) { s.apiBase = base }

// SubscribeMessage is the push payload forwarded to the platform.
type SubscribeMessage struct {
	ToUser     string                       `json:"touser"`
	TemplateID string                       `json:"template_id"`
	Page       string                       `json:"page,omitempty"`
	Data       map[string]map[string]string `json:"data"`
}

// apiResult tolerates both casing conventions the platform uses for its
// result code across API versions.
type apiResult struct {
	ErrCodeSnake int    `json:"errcode"`
	ErrCodeCamel int    `json:"errCode"`
	ErrMsgSnake  string `json:"errmsg"`
	ErrMsgCamel  string `json:"errMsg"`
}

func (r apiResult) code() int {
	if r.ErrCodeSnake != 0 {
		return r.ErrCodeSnake
	}
	return r.ErrCodeCamel
}

func (r apiResult) message() string {
	if r.ErrMsgSnake != "" {
		return r.ErrMsgSnake
	}
	return r.ErrMsgCamel
}

type tokenResult struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
}

// SendSubscribeMessage pushes one subscribe message. A user who revoked the
// subscription (code 43101) is treated as delivered.
func (s *Service) SendSubscribeMessage(ctx context.Context, msg *SubscribeMessage) error {
	token, err := s.accessToken(ctx)
	if err != nil {
		return err
	}

	var result apiResult
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("access_token", token).
		SetBody(msg).
		SetResult(&result).
		Post(s.apiBase + "/cgi-bin/message/subscribe/send")
	if err != nil {
		return fmt.Errorf("subscribe message request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("subscribe message http %d", resp.StatusCode())
	}

	switch result.code() {
	case 0:
		return nil
	case 43101: // user revoked the subscription
		return nil
	default:
		return fmt.Errorf("subscribe message rejected: %d %s", result.code(), result.message())
	}
}

// accessToken returns a cached token, refreshing it when less than a minute
// of validity remains.
func (s *Service) accessToken(ctx context.Context) (string, error) {
	if s.appID == "" || s.appSecret == "" {
		return "", fmt.Errorf("wechat appid/secret not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Until(s.tokenExpiry) > time.Minute {
		return s.token, nil
	}

	var result tokenResult
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"grant_type": "client_credential",
			"appid":      s.appID,
			"secret":     s.appSecret,
		}).
		SetResult(&result).
		Get(s.apiBase + "/cgi-bin/token")
	if err != nil {
		return "", fmt.Errorf("access token request: %w", err)
	}
	if resp.IsError() || result.AccessToken == "" {
		return "", fmt.Errorf("access token rejected: %d %s", result.ErrCode, result.ErrMsg)
	}

	s.token = result.AccessToken
	s.tokenExpiry = time.Now().Add(time.Duration(result.ExpiresIn) * time.Second)
	return s.token, nil
}
