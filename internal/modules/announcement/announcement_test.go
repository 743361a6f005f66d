package announcement

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/studiolens/core/internal/models"
	"github.com/studiolens/core/internal/pkg/pagination"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.AnnouncementModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestCreate_StampsTimestamps(t *testing.T) {
	svc := NewService(newTestDB(t))

	item, err := svc.Create(&CreateAnnouncementDTO{Title: "开学拍摄安排"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if item.ID == "" {
		t.Fatal("expected a generated id")
	}
	if item.CreatedAt.IsZero() || item.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}
	if !item.CreatedAt.Equal(item.UpdatedAt) {
		t.Errorf("created %v and modified %v should be equal at creation", item.CreatedAt, item.UpdatedAt)
	}
}

func TestUpdate_RefreshesModifiedKeepsID(t *testing.T) {
	svc := NewService(newTestDB(t))

	item, err := svc.Create(&CreateAnnouncementDTO{Title: "原标题", Content: "正文"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := item.ID
	createdAt := item.CreatedAt

	time.Sleep(10 * time.Millisecond)

	title := "新标题"
	if _, err := svc.Update(id, &UpdateAnnouncementDTO{Title: &title}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := svc.GetByID(id)
	if err != nil || got == nil {
		t.Fatalf("reload: item=%v err=%v", got, err)
	}
	if got.ID != id {
		t.Errorf("id changed: %s -> %s", id, got.ID)
	}
	if got.Title != "新标题" {
		t.Errorf("title = %q, want 新标题", got.Title)
	}
	if got.Content != "正文" {
		t.Errorf("partial update clobbered content: %q", got.Content)
	}
	if !got.UpdatedAt.After(createdAt) {
		t.Errorf("modified %v should be after created %v", got.UpdatedAt, createdAt)
	}
}

func TestUpdate_Missing(t *testing.T) {
	svc := NewService(newTestDB(t))
	title := "x"
	item, err := svc.Update("no-such-id", &UpdateAnnouncementDTO{Title: &title})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item != nil {
		t.Fatal("expected nil for a missing id")
	}
}

func TestList_PinnedFirstThenNewest(t *testing.T) {
	svc := NewService(newTestDB(t))

	for i, a := range []CreateAnnouncementDTO{
		{Title: "old"},
		{Title: "pinned", Pinned: true},
		{Title: "new"},
	} {
		if _, err := svc.Create(&a); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	items, pag, err := svc.List(pagination.Query{Page: 1, Size: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if pag.Total != 3 {
		t.Errorf("total = %d, want 3", pag.Total)
	}
	want := []string{"pinned", "new", "old"}
	for i, w := range want {
		if items[i].Title != w {
			t.Errorf("position %d = %q, want %q", i, items[i].Title, w)
		}
	}
}

func TestDelete_AbsentIsSuccess(t *testing.T) {
	svc := NewService(newTestDB(t))
	if err := svc.Delete("no-such-id"); err != nil {
		t.Fatalf("delete of an absent id should succeed: %v", err)
	}
}
