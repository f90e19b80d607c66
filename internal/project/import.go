package project

import (
	"context"
	"strings"

	"github.com/cineprompt/cineprompt/internal/screenplay"
	"go.uber.org/zap"
)

// ImportScript parses screenplay markup and reconciles the result into the
// project: parsed speakers merge with existing characters by case-insensitive
// name (existing rows keep their ids and voice assignments, characters absent
// from the script are retained), scenes are replaced wholesale with ids reused
// for exact name matches, and the stored script text is overwritten with a
// recomputed word count.
func (s *Service) ImportScript(ctx context.Context, id int64, content string) (UpdateResult, error) {
	current, err := s.GetProject(ctx, id)
	if err != nil {
		return UpdateResult{}, err
	}

	parsedScenes := screenplay.Parse(content)
	parsedCharacters := screenplay.Characters(content)

	charByName := make(map[string]*Character, len(current.Characters))
	for i := range current.Characters {
		charByName[strings.ToLower(current.Characters[i].Name)] = &current.Characters[i]
	}

	characters := make([]CharacterInput, 0, len(current.Characters)+len(parsedCharacters))
	matched := make(map[int64]struct{})
	for _, parsed := range parsedCharacters {
		if existing, ok := charByName[strings.ToLower(parsed.Name)]; ok {
			characters = append(characters, CharacterInput{
				ID:          &existing.ID,
				Name:        existing.Name,
				Description: existing.Description,
				Color:       existing.Color,
				VoiceID:     existing.VoiceID,
			})
			matched[existing.ID] = struct{}{}
			continue
		}
		description := parsed.Description
		characters = append(characters, CharacterInput{
			Name:        parsed.Name,
			Description: &description,
			Color:       parsed.Color,
		})
	}
	for i := range current.Characters {
		existing := &current.Characters[i]
		if _, ok := matched[existing.ID]; ok {
			continue
		}
		characters = append(characters, CharacterInput{
			ID:          &existing.ID,
			Name:        existing.Name,
			Description: existing.Description,
			Color:       existing.Color,
			VoiceID:     existing.VoiceID,
		})
	}

	sceneByName := make(map[string]*Scene)
	if current.Script != nil {
		for i := range current.Script.Scenes {
			sceneByName[current.Script.Scenes[i].Name] = &current.Script.Scenes[i]
		}
	}

	scenes := make([]SceneInput, 0, len(parsedScenes))
	for position, parsed := range parsedScenes {
		orderIndex := position
		input := SceneInput{
			Name:       parsed.Name,
			OrderIndex: &orderIndex,
			Dialogues:  make([]DialogueInput, 0, len(parsed.Dialogues)),
		}
		if parsed.Description != "" {
			description := parsed.Description
			input.Description = &description
		}
		if existing, ok := sceneByName[parsed.Name]; ok {
			input.ID = &existing.ID
		}
		for _, dialogue := range parsed.Dialogues {
			order := dialogue.OrderIndex
			input.Dialogues = append(input.Dialogues, DialogueInput{
				Content:       dialogue.Content,
				OrderIndex:    &order,
				CharacterName: dialogue.CharacterName,
			})
		}
		scenes = append(scenes, input)
	}

	wordCount := screenplay.CountWords(content)
	result, err := s.UpdateProject(ctx, id, UpdateRequest{
		Characters: characters,
		Scenes:     scenes,
		Script:     &ScriptInput{Content: &content, WordCount: &wordCount},
	})
	if err != nil {
		s.logError(opImportScript, "reconcile_failed", err, zap.Int64("project_id", id))
		return UpdateResult{}, err
	}

	s.logger.Info("script imported",
		zap.Int64("project_id", id),
		zap.Int("scenes", len(scenes)),
		zap.Int("characters", len(characters)))
	return result, nil
}

// ExportScript composes the project's scenes and dialogues back into
// screenplay markup.
func (s *Service) ExportScript(ctx context.Context, id int64) (string, error) {
	current, err := s.GetProject(ctx, id)
	if err != nil {
		return "", err
	}
	if current.Script == nil {
		return "", nil
	}

	scenes := make([]screenplay.Scene, 0, len(current.Script.Scenes))
	for _, scene := range current.Script.Scenes {
		out := screenplay.Scene{Name: scene.Name}
		if scene.Description != nil {
			out.Description = *scene.Description
		}
		for _, dialogue := range scene.Dialogues {
			speaker := ""
			if dialogue.Character != nil {
				speaker = dialogue.Character.Name
			}
			out.Dialogues = append(out.Dialogues, screenplay.Dialogue{
				CharacterName: speaker,
				Content:       dialogue.Content,
				OrderIndex:    dialogue.OrderIndex,
			})
		}
		scenes = append(scenes, out)
	}
	return screenplay.Compose(scenes), nil
}
