package project

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewServiceRequiresDatabase(t *testing.T) {
	_, err := NewService(ServiceConfig{})
	if err == nil {
		t.Fatalf("expected error for missing database")
	}
}

func TestCreateProjectAttachesEmptyScript(t *testing.T) {
	service, _ := newTestService(t)

	created := mustCreateProject(t, service, "Feature Film")
	if created.ID == 0 {
		t.Fatalf("expected server-assigned project id")
	}
	if created.Script == nil {
		t.Fatalf("expected script to be created with the project")
	}

	loaded, err := service.GetProject(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Script == nil {
		t.Fatalf("expected script on reload")
	}
	if loaded.Script.Content != "" {
		t.Fatalf("expected empty script content, got %q", loaded.Script.Content)
	}
	if loaded.Script.WordCount != 0 {
		t.Fatalf("expected zero word count, got %d", loaded.Script.WordCount)
	}
}

func TestCreateProjectUsesInjectedClock(t *testing.T) {
	service, _ := newTestService(t)
	expected := time.Unix(1750000000, 0).UTC()

	created := mustCreateProject(t, service, "Timed")
	if !created.CreatedAt.Equal(expected) || !created.UpdatedAt.Equal(expected) {
		t.Fatalf("expected clock timestamps, got %v / %v", created.CreatedAt, created.UpdatedAt)
	}

	loaded, err := service.GetProject(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !loaded.CreatedAt.Equal(expected) {
		t.Fatalf("expected stored created timestamp %v, got %v", expected, loaded.CreatedAt)
	}
	if loaded.Script == nil || !loaded.Script.CreatedAt.Equal(expected) {
		t.Fatalf("expected script to share the clock timestamp")
	}
}

func TestCreateProjectRequiresName(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.CreateProject(context.Background(), CreateRequest{Name: "   "})
	if !errors.Is(err, ErrMissingName) {
		t.Fatalf("expected ErrMissingName, got %v", err)
	}
}

func TestCreateProjectStoresGenresAndTones(t *testing.T) {
	service, _ := newTestService(t)

	created, err := service.CreateProject(context.Background(), CreateRequest{
		Name:   "Noir Piece",
		Genres: []string{"drama", "comedy"},
		Tones:  []string{"serious"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := service.GetProject(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(loaded.Genres) != 2 || loaded.Genres[0] != "drama" || loaded.Genres[1] != "comedy" {
		t.Fatalf("unexpected genres: %#v", loaded.Genres)
	}
	if len(loaded.Tones) != 1 || loaded.Tones[0] != "serious" {
		t.Fatalf("unexpected tones: %#v", loaded.Tones)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.GetProject(context.Background(), 4242)
	if !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestListProjectsReturnsAllWithGraph(t *testing.T) {
	service, _ := newTestService(t)

	first := mustCreateProject(t, service, "First")
	mustCreateProject(t, service, "Second")

	mustUpdateProject(t, service, first.ID, UpdateRequest{
		Characters: []CharacterInput{{Name: "Ava"}},
	})

	projects, err := service.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	if projects[0].Script == nil || projects[1].Script == nil {
		t.Fatalf("expected scripts eagerly loaded")
	}
	if len(projects[0].Characters) != 1 {
		t.Fatalf("expected first project to have 1 character, got %d", len(projects[0].Characters))
	}
}

func TestDeleteProjectNotFound(t *testing.T) {
	service, _ := newTestService(t)

	err := service.DeleteProject(context.Background(), 99)
	if !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	service, db := newTestService(t)

	created := mustCreateProject(t, service, "Doomed")
	mustUpdateProject(t, service, created.ID, UpdateRequest{
		Characters: []CharacterInput{{Name: "Ava"}},
		Scenes: []SceneInput{{
			Name: "Opening",
			Dialogues: []DialogueInput{
				{Content: "Hello there.", CharacterName: "Ava"},
			},
		}},
	})

	if err := service.DeleteProject(context.Background(), created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if count := countRows(t, db, &Project{}); count != 0 {
		t.Fatalf("expected 0 projects, got %d", count)
	}
	if count := countRows(t, db, &Script{}); count != 0 {
		t.Fatalf("expected 0 scripts, got %d", count)
	}
	if count := countRows(t, db, &Scene{}); count != 0 {
		t.Fatalf("expected 0 scenes, got %d", count)
	}
	if count := countRows(t, db, &Character{}); count != 0 {
		t.Fatalf("expected 0 characters, got %d", count)
	}
	if count := countRows(t, db, &Dialogue{}); count != 0 {
		t.Fatalf("expected 0 dialogues, got %d", count)
	}
}

func TestCreateDefaultIfEmptySeedsOnce(t *testing.T) {
	service, db := newTestService(t)

	if err := service.CreateDefaultIfEmpty(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := service.CreateDefaultIfEmpty(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if count := countRows(t, db, &Project{}); count != 1 {
		t.Fatalf("expected 1 seeded project, got %d", count)
	}

	projects, err := service.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if projects[0].Name != "My First Project" {
		t.Fatalf("unexpected seeded name: %q", projects[0].Name)
	}
}
