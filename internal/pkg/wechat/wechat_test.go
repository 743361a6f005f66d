package wechat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newPlatform(t *testing.T, sendResult map[string]interface{}) (*Service, *int) {
	t.Helper()
	sends := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/cgi-bin/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-token",
			"expires_in":   7200,
		})
	})
	mux.HandleFunc("/cgi-bin/message/subscribe/send", func(w http.ResponseWriter, r *http.Request) {
		sends++
		if got := r.URL.Query().Get("access_token"); got != "test-token" {
			t.Errorf("access_token = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sendResult)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	svc := New("appid", "secret")
	svc.SetAPIBase(srv.URL)
	return svc, &sends
}

func testMessage() *SubscribeMessage {
	return &SubscribeMessage{
		ToUser:     "o-openid",
		TemplateID: "tpl-1",
		Data:       map[string]map[string]string{"phrase2": {"value": "支付成功"}},
	}
}

func TestSendSubscribeMessage(t *testing.T) {
	t.Run("delivered", func(t *testing.T) {
		svc, sends := newPlatform(t, map[string]interface{}{"errcode": 0, "errmsg": "ok"})
		if err := svc.SendSubscribeMessage(context.Background(), testMessage()); err != nil {
			t.Fatalf("send: %v", err)
		}
		if *sends != 1 {
			t.Errorf("sends = %d", *sends)
		}
	})

	t.Run("revoked subscription counts as delivered", func(t *testing.T) {
		svc, _ := newPlatform(t, map[string]interface{}{"errcode": 43101, "errmsg": "user refused"})
		if err := svc.SendSubscribeMessage(context.Background(), testMessage()); err != nil {
			t.Fatalf("revoked subscription should not error: %v", err)
		}
	})

	t.Run("camel-cased result code", func(t *testing.T) {
		svc, _ := newPlatform(t, map[string]interface{}{"errCode": 40003, "errMsg": "invalid openid"})
		if err := svc.SendSubscribeMessage(context.Background(), testMessage()); err == nil {
			t.Fatal("expected an error for a rejected push")
		}
	})

	t.Run("token cached across sends", func(t *testing.T) {
		tokenCalls := 0
		mux := http.NewServeMux()
		mux.HandleFunc("/cgi-bin/token", func(w http.ResponseWriter, r *http.Request) {
			tokenCalls++
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "test-token", "expires_in": 7200})
		})
		mux.HandleFunc("/cgi-bin/message/subscribe/send", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"errcode": 0})
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)

		svc := New("appid", "secret")
		svc.SetAPIBase(srv.URL)
		for i := 0; i < 3; i++ {
			if err := svc.SendSubscribeMessage(context.Background(), testMessage()); err != nil {
				t.Fatalf("send %d: %v", i, err)
			}
		}
		if tokenCalls != 1 {
			t.Errorf("token fetched %d times, want 1", tokenCalls)
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		svc := New("", "")
		if err := svc.SendSubscribeMessage(context.Background(), testMessage()); err == nil {
			t.Fatal("expected a configuration error")
		}
	})
}
