package student

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/studiolens/core/internal/models"
	"github.com/studiolens/core/internal/pkg/pagination"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.StudentModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(db)
}

func TestCreate_AssignsSequentialIDs(t *testing.T) {
	svc := newTestService(t)

	first, err := svc.Create(&CreateStudentDTO{Name: "张三"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.StudentID != "0001" {
		t.Errorf("first student id = %q, want 0001", first.StudentID)
	}

	second, err := svc.Create(&CreateStudentDTO{Name: "李四"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if second.StudentID != "0002" {
		t.Errorf("second student id = %q, want 0002", second.StudentID)
	}

	t.Run("explicit id is kept", func(t *testing.T) {
		got, err := svc.Create(&CreateStudentDTO{Name: "王五", StudentID: "0100"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if got.StudentID != "0100" {
			t.Errorf("student id = %q, want 0100", got.StudentID)
		}
	})

	t.Run("next id follows the maximum", func(t *testing.T) {
		got, err := svc.Create(&CreateStudentDTO{Name: "赵六"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if got.StudentID != "0101" {
			t.Errorf("student id = %q, want 0101", got.StudentID)
		}
	})
}

func TestList_Keyword(t *testing.T) {
	svc := newTestService(t)
	for _, dto := range []CreateStudentDTO{
		{Name: "张伟", StudentID: "0001"},
		{Name: "张敏", StudentID: "0002"},
		{Name: "李娜", StudentID: "0012"},
	} {
		if _, err := svc.Create(&dto); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	t.Run("by name substring", func(t *testing.T) {
		items, pag, err := svc.List("张", pagination.Query{Page: 1, Size: 10})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if pag.Total != 2 || len(items) != 2 {
			t.Errorf("total = %d len = %d, want 2", pag.Total, len(items))
		}
	})

	t.Run("by student id substring", func(t *testing.T) {
		items, _, err := svc.List("001", pagination.Query{Page: 1, Size: 10})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		// "0001" and "0012" both contain "001".
		if len(items) != 2 {
			t.Errorf("len = %d, want 2", len(items))
		}
	})
}
