package auth

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/studiolens/core/internal/models"
	"github.com/studiolens/core/internal/pkg/jwt"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.UserModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(db, zap.NewNop())
}

func TestRegister_FirstOwnerOnly(t *testing.T) {
	svc := newTestService(t)

	user, err := svc.Register(&RegisterDTO{Username: "admin", Password: "secret-pw", Name: "店长"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Password == "secret-pw" {
		t.Error("password stored in plaintext")
	}

	if _, err := svc.Register(&RegisterDTO{Username: "intruder", Password: "whatever1"}); !errors.Is(err, ErrOwnerExists) {
		t.Errorf("second register err = %v, want ErrOwnerExists", err)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Register(&RegisterDTO{Username: "admin", Password: "secret-pw"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	t.Run("success stamps last login", func(t *testing.T) {
		user, token, err := svc.Login(&LoginDTO{Username: "admin", Password: "secret-pw"}, "1.2.3.4")
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		claims, err := jwt.Parse(token)
		if err != nil || claims.UserID != user.ID {
			t.Errorf("token does not resolve to the user: claims=%v err=%v", claims, err)
		}

		reloaded, err := svc.GetByID(user.ID)
		if err != nil || reloaded == nil {
			t.Fatalf("reload: %v", err)
		}
		if reloaded.LastLoginTime == nil || reloaded.LastLoginIP != "1.2.3.4" {
			t.Errorf("last login not stamped: %+v", reloaded)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, _, err := svc.Login(&LoginDTO{Username: "admin", Password: "nope"}, ""); !errors.Is(err, ErrBadCredentials) {
			t.Errorf("err = %v, want ErrBadCredentials", err)
		}
	})

	t.Run("unknown user looks the same", func(t *testing.T) {
		if _, _, err := svc.Login(&LoginDTO{Username: "ghost", Password: "nope"}, ""); !errors.Is(err, ErrBadCredentials) {
			t.Errorf("err = %v, want ErrBadCredentials", err)
		}
	})
}
