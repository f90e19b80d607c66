package project

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultCharacterColor is assigned when a character descriptor omits a color.
const DefaultCharacterColor = "#000000"

// StringList stores an ordered list of strings as a JSON-encoded text column.
type StringList []string

// Value serializes the list for storage. A nil list stores as an empty array.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	encoded, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

// Scan deserializes the stored JSON array back into the list.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var raw []byte
	switch typed := value.(type) {
	case []byte:
		raw = typed
	case string:
		raw = []byte(typed)
	default:
		return fmt.Errorf("project: cannot scan %T into StringList", value)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var decoded []string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*l = StringList(decoded)
	return nil
}

// Project is the aggregate root. It owns exactly one Script and any number of
// Characters; deleting a project cascades through the whole aggregate.
type Project struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name      string     `gorm:"column:name;size:255;not null" json:"name"`
	Genres    StringList `gorm:"column:genres;type:text;not null;default:'[]'" json:"genres"`
	Tones     StringList `gorm:"column:tones;type:text;not null;default:'[]'" json:"tones"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"column:updated_at" json:"updatedAt"`

	Script     *Script     `gorm:"foreignKey:ProjectID" json:"script"`
	Characters []Character `gorm:"foreignKey:ProjectID" json:"characters"`
}

// TableName provides the explicit table binding for GORM.
func (Project) TableName() string {
	return "projects"
}

// Script holds the free-form script text for a project. WordCount is supplied
// by the client and never recomputed server-side.
type Script struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Content   string    `gorm:"column:content;type:text;not null" json:"content"`
	WordCount int       `gorm:"column:word_count;not null;default:0" json:"wordCount"`
	ProjectID int64     `gorm:"column:project_id;not null;uniqueIndex" json:"projectId"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`

	Scenes []Scene `gorm:"foreignKey:ScriptID" json:"scenes"`
}

// TableName provides the explicit table binding for GORM.
func (Script) TableName() string {
	return "scripts"
}

// Scene groups dialogues under a script. OrderIndex determines display order
// within the script; clients read scenes back in ascending order.
type Scene struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"column:name;size:255;not null" json:"name"`
	Description *string   `gorm:"column:description;type:text" json:"description"`
	OrderIndex  int       `gorm:"column:order_index;not null;default:0" json:"orderIndex"`
	ScriptID    int64     `gorm:"column:script_id;not null;index" json:"scriptId"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updatedAt"`

	Dialogues []Dialogue `gorm:"foreignKey:SceneID" json:"dialogues"`
}

// TableName provides the explicit table binding for GORM.
func (Scene) TableName() string {
	return "scenes"
}

// Character belongs to a project. VoiceID references an external TTS voice
// catalog and may be null.
type Character struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"column:name;size:255;not null" json:"name"`
	Description *string   `gorm:"column:description;type:text" json:"description"`
	Color       string    `gorm:"column:color;size:32;not null;default:'#000000'" json:"color"`
	VoiceID     *string   `gorm:"column:voice_id;size:255" json:"voiceId"`
	ProjectID   int64     `gorm:"column:project_id;not null;index" json:"projectId"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (Character) TableName() string {
	return "characters"
}

// Dialogue is a single spoken line within a scene. A dialogue cannot outlive
// its speaking character.
type Dialogue struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Content     string    `gorm:"column:content;type:text;not null" json:"content"`
	OrderIndex  int       `gorm:"column:order_index;not null;default:0" json:"orderIndex"`
	SceneID     int64     `gorm:"column:scene_id;not null;index" json:"sceneId"`
	CharacterID int64     `gorm:"column:character_id;not null;index" json:"characterId"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updatedAt"`

	Character *Character `gorm:"foreignKey:CharacterID" json:"character"`
}

// TableName provides the explicit table binding for GORM.
func (Dialogue) TableName() string {
	return "dialogues"
}

// CreateRequest carries the top-level fields for a new project.
type CreateRequest struct {
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
	Tones  []string `json:"tones"`
}

// UpdateRequest is the reconciliation payload. Nil fields are left untouched;
// a non-nil collection is the desired full state for that collection.
type UpdateRequest struct {
	Name       *string          `json:"name"`
	Genres     []string         `json:"genres"`
	Tones      []string         `json:"tones"`
	Characters []CharacterInput `json:"characters"`
	Scenes     []SceneInput     `json:"scenes"`
	Script     *ScriptInput     `json:"script"`
}

// CharacterInput describes the desired state of one character. A nil ID
// signals creation; ClientRef is an optional client-generated correlation
// token echoed back for created rows.
type CharacterInput struct {
	ID          *int64  `json:"id"`
	ClientRef   string  `json:"clientRef"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Color       string  `json:"color"`
	VoiceID     *string `json:"voiceId"`
}

// SceneInput describes the desired state of one scene together with its full
// dialogue list. A nil Dialogues slice leaves the scene's dialogues untouched.
type SceneInput struct {
	ID          *int64          `json:"id"`
	ClientRef   string          `json:"clientRef"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	OrderIndex  *int            `json:"orderIndex"`
	Dialogues   []DialogueInput `json:"dialogues"`
}

// DialogueInput describes one spoken line. The speaking character resolves via
// CharacterID when it belongs to the project, otherwise via a case-insensitive
// CharacterName lookup.
type DialogueInput struct {
	ID            *int64 `json:"id"`
	ClientRef     string `json:"clientRef"`
	Content       string `json:"content"`
	OrderIndex    *int   `json:"orderIndex"`
	CharacterID   *int64 `json:"characterId"`
	CharacterName string `json:"characterName"`
}

// ScriptInput overwrites the script text directly; it is not diffed.
type ScriptInput struct {
	Content   *string `json:"content"`
	WordCount *int    `json:"wordCount"`
}

// CreatedRef maps a client correlation token to the server-assigned id of a
// row created during reconciliation.
type CreatedRef struct {
	Entity    string `json:"entity"`
	ClientRef string `json:"clientRef,omitempty"`
	ID        int64  `json:"id"`
}

// Entity names used in CreatedRef records.
const (
	EntityCharacter = "character"
	EntityScene     = "scene"
	EntityDialogue  = "dialogue"
)

// UpdateResult carries the reloaded aggregate after a reconciliation pass plus
// the correlation records for every created row.
type UpdateResult struct {
	Project *Project
	Created []CreatedRef
}
