package project

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UpdateProject reconciles the incoming full-state payload against the stored
// aggregate. All writes for one request run inside a single transaction, so a
// mid-batch failure leaves the aggregate untouched. Nil payload fields are
// left as-is; a non-nil collection replaces the stored collection by diff:
// rows matched by id are updated, descriptors without an id create rows, and
// stored rows absent from the payload are deleted. A scene or dialogue
// descriptor carrying an id that matches no current row gets a replacement
// row under a fresh id; an unknown character id is skipped instead, since
// dialogues reference characters and a silently re-keyed speaker would
// corrupt them.
func (s *Service) UpdateProject(ctx context.Context, id int64, req UpdateRequest) (UpdateResult, error) {
	var created []CreatedRef

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target Project
		if err := tx.Take(&target, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProjectNotFound
			}
			return newServiceError(opUpdateProject, "project_select_failed", err)
		}

		fields := map[string]interface{}{}
		if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
			fields["name"] = strings.TrimSpace(*req.Name)
		}
		if req.Genres != nil {
			fields["genres"] = StringList(req.Genres)
		}
		if req.Tones != nil {
			fields["tones"] = StringList(req.Tones)
		}
		if len(fields) > 0 {
			if err := tx.Model(&target).Updates(fields).Error; err != nil {
				return newServiceError(opUpdateProject, "project_update_failed", err)
			}
		}

		script, err := s.ensureScript(tx, target.ID)
		if err != nil {
			return err
		}

		if req.Characters != nil {
			if err := s.reconcileCharacters(tx, target.ID, req.Characters, &created); err != nil {
				return err
			}
		}

		if req.Scenes != nil {
			var current []Character
			if err := tx.Where("project_id = ?", target.ID).Find(&current).Error; err != nil {
				return newServiceError(opUpdateProject, "character_select_failed", err)
			}
			if err := s.reconcileScenes(tx, script.ID, current, req.Scenes, &created); err != nil {
				return err
			}
		}

		if req.Script != nil && req.Script.Content != nil {
			wordCount := 0
			if req.Script.WordCount != nil && *req.Script.WordCount >= 0 {
				wordCount = *req.Script.WordCount
			}
			updates := map[string]interface{}{
				"content":    *req.Script.Content,
				"word_count": wordCount,
			}
			if err := tx.Model(script).Updates(updates).Error; err != nil {
				return newServiceError(opUpdateProject, "script_update_failed", err)
			}
		}

		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrProjectNotFound) {
			s.logError(opUpdateProject, "transaction_failed", txErr, zap.Int64("project_id", id))
		}
		return UpdateResult{}, txErr
	}

	reloaded, err := s.GetProject(ctx, id)
	if err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{Project: reloaded, Created: created}, nil
}

// ensureScript loads the project's script, creating an empty one when a
// legacy row is missing it.
func (s *Service) ensureScript(tx *gorm.DB, projectID int64) (*Script, error) {
	var script Script
	err := tx.Take(&script, "project_id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		script = Script{Content: "", WordCount: 0, ProjectID: projectID}
		if err := tx.Create(&script).Error; err != nil {
			return nil, newServiceError(opUpdateProject, "script_insert_failed", err)
		}
		return &script, nil
	}
	if err != nil {
		return nil, newServiceError(opUpdateProject, "script_select_failed", err)
	}
	return &script, nil
}

func (s *Service) reconcileCharacters(tx *gorm.DB, projectID int64, inputs []CharacterInput, created *[]CreatedRef) error {
	var existing []Character
	if err := tx.Where("project_id = ?", projectID).Find(&existing).Error; err != nil {
		return newServiceError(opUpdateProject, "character_select_failed", err)
	}
	byID := make(map[int64]*Character, len(existing))
	pending := make(map[int64]struct{}, len(existing))
	for i := range existing {
		byID[existing[i].ID] = &existing[i]
		pending[existing[i].ID] = struct{}{}
	}

	for _, input := range inputs {
		if strings.TrimSpace(input.Name) == "" {
			s.logSkip(opUpdateProject, "character_missing_name", zap.String("client_ref", input.ClientRef))
			continue
		}
		color := input.Color
		if color == "" {
			color = DefaultCharacterColor
		}

		if input.ID != nil {
			row, ok := byID[*input.ID]
			if !ok {
				s.logSkip(opUpdateProject, "character_not_found_for_update", zap.Int64("character_id", *input.ID))
				continue
			}
			updates := map[string]interface{}{
				"name":        input.Name,
				"description": input.Description,
				"color":       color,
				"voice_id":    input.VoiceID,
			}
			if err := tx.Model(row).Updates(updates).Error; err != nil {
				return newServiceError(opUpdateProject, "character_update_failed", err)
			}
			delete(pending, *input.ID)
			continue
		}

		row := Character{
			Name:        input.Name,
			Description: input.Description,
			Color:       color,
			VoiceID:     input.VoiceID,
			ProjectID:   projectID,
		}
		if err := tx.Create(&row).Error; err != nil {
			return newServiceError(opUpdateProject, "character_insert_failed", err)
		}
		*created = append(*created, CreatedRef{Entity: EntityCharacter, ClientRef: input.ClientRef, ID: row.ID})
	}

	for charID := range pending {
		if err := tx.Where("character_id = ?", charID).Delete(&Dialogue{}).Error; err != nil {
			return newServiceError(opUpdateProject, "dialogue_delete_failed", err)
		}
		if err := tx.Delete(&Character{}, "id = ?", charID).Error; err != nil {
			return newServiceError(opUpdateProject, "character_delete_failed", err)
		}
		s.logger.Info("character removed by omission", zap.Int64("character_id", charID))
	}
	return nil
}

func (s *Service) reconcileScenes(tx *gorm.DB, scriptID int64, characters []Character, inputs []SceneInput, created *[]CreatedRef) error {
	var existing []Scene
	if err := tx.Where("script_id = ?", scriptID).Find(&existing).Error; err != nil {
		return newServiceError(opUpdateProject, "scene_select_failed", err)
	}
	byID := make(map[int64]*Scene, len(existing))
	pending := make(map[int64]struct{}, len(existing))
	for i := range existing {
		byID[existing[i].ID] = &existing[i]
		pending[existing[i].ID] = struct{}{}
	}

	for position, input := range inputs {
		if strings.TrimSpace(input.Name) == "" {
			s.logSkip(opUpdateProject, "scene_missing_name", zap.String("client_ref", input.ClientRef))
			continue
		}
		orderIndex := effectiveOrder(input.OrderIndex, position)

		// A stale id falls through to create, same as a null one.
		var scene *Scene
		if input.ID != nil {
			if row, ok := byID[*input.ID]; ok {
				updates := map[string]interface{}{
					"name":        input.Name,
					"description": input.Description,
					"order_index": orderIndex,
				}
				if err := tx.Model(row).Updates(updates).Error; err != nil {
					return newServiceError(opUpdateProject, "scene_update_failed", err)
				}
				delete(pending, *input.ID)
				scene = row
			}
		}
		if scene == nil {
			row := Scene{
				Name:        input.Name,
				Description: input.Description,
				OrderIndex:  orderIndex,
				ScriptID:    scriptID,
			}
			if err := tx.Create(&row).Error; err != nil {
				return newServiceError(opUpdateProject, "scene_insert_failed", err)
			}
			*created = append(*created, CreatedRef{Entity: EntityScene, ClientRef: input.ClientRef, ID: row.ID})
			scene = &row
		}

		if input.Dialogues != nil {
			if err := s.reconcileDialogues(tx, scene.ID, characters, input.Dialogues, created); err != nil {
				return err
			}
		}
	}

	for sceneID := range pending {
		if err := tx.Where("scene_id = ?", sceneID).Delete(&Dialogue{}).Error; err != nil {
			return newServiceError(opUpdateProject, "dialogue_delete_failed", err)
		}
		if err := tx.Delete(&Scene{}, "id = ?", sceneID).Error; err != nil {
			return newServiceError(opUpdateProject, "scene_delete_failed", err)
		}
		s.logger.Info("scene removed by omission", zap.Int64("scene_id", sceneID))
	}
	return nil
}

func (s *Service) reconcileDialogues(tx *gorm.DB, sceneID int64, characters []Character, inputs []DialogueInput, created *[]CreatedRef) error {
	var existing []Dialogue
	if err := tx.Where("scene_id = ?", sceneID).Find(&existing).Error; err != nil {
		return newServiceError(opUpdateProject, "dialogue_select_failed", err)
	}
	byID := make(map[int64]*Dialogue, len(existing))
	pending := make(map[int64]struct{}, len(existing))
	for i := range existing {
		byID[existing[i].ID] = &existing[i]
		pending[existing[i].ID] = struct{}{}
	}

	charByID := make(map[int64]*Character, len(characters))
	charByName := make(map[string]*Character, len(characters))
	for i := range characters {
		charByID[characters[i].ID] = &characters[i]
		charByName[strings.ToLower(strings.TrimSpace(characters[i].Name))] = &characters[i]
	}

	// Sort by effective order index so creation order of ties is stable and
	// matches submission order.
	ordered := make([]DialogueInput, len(inputs))
	copy(ordered, inputs)
	orderOf := make(map[int]int, len(inputs))
	for position := range ordered {
		orderOf[position] = effectiveOrder(ordered[position].OrderIndex, position)
	}
	positions := make([]int, len(ordered))
	for i := range positions {
		positions[i] = i
	}
	sort.SliceStable(positions, func(a, b int) bool {
		return orderOf[positions[a]] < orderOf[positions[b]]
	})

	for _, position := range positions {
		input := ordered[position]
		if strings.TrimSpace(input.Content) == "" {
			s.logSkip(opUpdateProject, "dialogue_missing_content", zap.Int64("scene_id", sceneID))
			continue
		}

		speaker := resolveSpeaker(input, charByID, charByName)
		if speaker == nil {
			s.logSkip(opUpdateProject, "dialogue_character_unresolved",
				zap.Int64("scene_id", sceneID),
				zap.String("character_name", input.CharacterName))
			continue
		}
		orderIndex := orderOf[position]

		if input.ID != nil {
			if row, ok := byID[*input.ID]; ok {
				updates := map[string]interface{}{
					"content":      input.Content,
					"order_index":  orderIndex,
					"character_id": speaker.ID,
				}
				if err := tx.Model(row).Updates(updates).Error; err != nil {
					return newServiceError(opUpdateProject, "dialogue_update_failed", err)
				}
				delete(pending, *input.ID)
				continue
			}
		}

		row := Dialogue{
			Content:     input.Content,
			OrderIndex:  orderIndex,
			SceneID:     sceneID,
			CharacterID: speaker.ID,
		}
		if err := tx.Create(&row).Error; err != nil {
			return newServiceError(opUpdateProject, "dialogue_insert_failed", err)
		}
		*created = append(*created, CreatedRef{Entity: EntityDialogue, ClientRef: input.ClientRef, ID: row.ID})
	}

	for dialogueID := range pending {
		if err := tx.Delete(&Dialogue{}, "id = ?", dialogueID).Error; err != nil {
			return newServiceError(opUpdateProject, "dialogue_delete_failed", err)
		}
		s.logger.Info("dialogue removed by omission", zap.Int64("dialogue_id", dialogueID))
	}
	return nil
}

// resolveSpeaker finds the dialogue's character: a characterId wins when it
// belongs to the project, otherwise the name resolves case-insensitively.
func resolveSpeaker(input DialogueInput, byID map[int64]*Character, byName map[string]*Character) *Character {
	if input.CharacterID != nil {
		if row, ok := byID[*input.CharacterID]; ok {
			return row
		}
	}
	name := strings.ToLower(strings.TrimSpace(input.CharacterName))
	if name == "" {
		return nil
	}
	return byName[name]
}

// effectiveOrder applies the ordering contract: the client value wins, a
// missing value defaults to the descriptor's array position.
func effectiveOrder(explicit *int, position int) int {
	if explicit != nil {
		return *explicit
	}
	return position
}
