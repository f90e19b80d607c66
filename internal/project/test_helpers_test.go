package project

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:cineprompt_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Project{}, &Script{}, &Scene{}, &Character{}, &Dialogue{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	clock := func() time.Time { return time.Unix(1750000000, 0).UTC() }
	service, err := NewService(ServiceConfig{Database: db, Clock: clock})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service, db
}

func mustCreateProject(t *testing.T, service *Service, name string) *Project {
	t.Helper()
	created, err := service.CreateProject(context.Background(), CreateRequest{Name: name})
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	return created
}

func mustUpdateProject(t *testing.T, service *Service, id int64, req UpdateRequest) UpdateResult {
	t.Helper()
	result, err := service.UpdateProject(context.Background(), id, req)
	if err != nil {
		t.Fatalf("failed to update project: %v", err)
	}
	return result
}

func strPtr(value string) *string {
	return &value
}

func intPtr(value int) *int {
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return count
}
