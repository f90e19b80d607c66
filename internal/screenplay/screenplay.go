// Package screenplay implements the lightweight script markup used by the
// CinePrompt editor: scenes introduced by a "[SCENE: name]" header, optional
// description lines, and "NAME: line" dialogue rows.
package screenplay

import (
	"regexp"
	"strings"
)

// noDescriptionPlaceholder is emitted by Compose for scenes without a
// description and stripped again by Parse so round-trips stay clean.
const noDescriptionPlaceholder = "(No description)"

const sceneSeparator = "\n\n----------\n\n"

// Scene is a parsed scene block.
type Scene struct {
	Name        string
	Description string
	Dialogues   []Dialogue
}

// Dialogue is a parsed spoken line. OrderIndex is the line's position within
// its scene.
type Dialogue struct {
	CharacterName string
	Content       string
	OrderIndex    int
}

// Character is a speaker extracted from the script text.
type Character struct {
	Name        string
	Description string
	Color       string
}

var (
	sceneHeaderPattern = regexp.MustCompile(`(?i)\[SCENE:\s*([^\]]*)\]`)
	speakerPattern     = regexp.MustCompile(`^([^:]+):\s*(.*)$`)
)

// characterPalette provides deterministic colors for extracted characters,
// assigned in rotation.
var characterPalette = []string{
	"#E57373", "#64B5F6", "#81C784", "#FFD54F",
	"#BA68C8", "#4DB6AC", "#F06292", "#A1887F",
}

// Parse splits script text into scenes with their descriptions and dialogues.
// Scenes without a name are dropped. Lines before the first speaker line form
// the description; a "Speaker: text" line starts a dialogue and subsequent
// non-blank lines attach to it until a blank line or the next speaker.
func Parse(script string) []Scene {
	if strings.TrimSpace(script) == "" {
		return nil
	}

	headers := sceneHeaderPattern.FindAllStringSubmatchIndex(script, -1)
	scenes := make([]Scene, 0, len(headers))
	for i, header := range headers {
		name := strings.TrimSpace(script[header[2]:header[3]])
		if name == "" {
			continue
		}
		blockEnd := len(script)
		if i+1 < len(headers) {
			blockEnd = headers[i+1][0]
		}
		block := script[header[1]:blockEnd]
		scene := Scene{Name: name}
		scene.Description, scene.Dialogues = parseBlock(block)
		scenes = append(scenes, scene)
	}
	return scenes
}

func parseBlock(block string) (string, []Dialogue) {
	var descriptionLines []string
	var dialogues []Dialogue
	current := -1

	for _, rawLine := range strings.Split(block, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || isSeparatorLine(line) {
			current = -1
			continue
		}
		if match := speakerPattern.FindStringSubmatch(line); match != nil && strings.TrimSpace(match[1]) != "" {
			dialogues = append(dialogues, Dialogue{
				CharacterName: strings.TrimSpace(match[1]),
				Content:       strings.TrimSpace(match[2]),
				OrderIndex:    len(dialogues),
			})
			current = len(dialogues) - 1
			continue
		}
		if current >= 0 {
			dialogues[current].Content += "\n" + line
			continue
		}
		if len(dialogues) == 0 {
			descriptionLines = append(descriptionLines, line)
		}
	}

	description := strings.TrimSpace(strings.Join(descriptionLines, "\n"))
	if description == noDescriptionPlaceholder {
		description = ""
	}
	return description, dialogues
}

func isSeparatorLine(line string) bool {
	if len(line) < 3 {
		return false
	}
	for _, r := range line {
		if r != '-' {
			return false
		}
	}
	return true
}

// Characters extracts the distinct speakers from script text. Names are
// deduplicated case-insensitively, scene headings and INT/EXT sluglines are
// excluded, and colors come from a fixed palette in rotation.
func Characters(script string) []Character {
	if strings.TrimSpace(script) == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var ordered []string
	for _, rawLine := range strings.Split(script, "\n") {
		match := speakerPattern.FindStringSubmatch(strings.TrimSpace(rawLine))
		if match == nil {
			continue
		}
		name := strings.TrimSpace(match[1])
		if name == "" {
			continue
		}
		upper := strings.ToUpper(name)
		if strings.Contains(upper, "SCENE") || strings.Contains(upper, "INT") || strings.Contains(upper, "EXT") {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		ordered = append(ordered, key)
	}

	characters := make([]Character, 0, len(ordered))
	for i, key := range ordered {
		display := titleCase(key)
		characters = append(characters, Character{
			Name:        display,
			Description: "Character: " + display,
			Color:       characterPalette[i%len(characterPalette)],
		})
	}
	return characters
}

func titleCase(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// Compose renders scenes back into markup: header, description (or a
// placeholder), then dialogue rows with upper-cased speaker names. Scenes are
// joined by a dashed separator.
func Compose(scenes []Scene) string {
	blocks := make([]string, 0, len(scenes))
	for _, scene := range scenes {
		name := strings.TrimSpace(scene.Name)
		if name == "" {
			continue
		}
		lines := []string{"[SCENE: " + name + "]"}
		description := strings.TrimSpace(scene.Description)
		if description == "" {
			description = noDescriptionPlaceholder
		}
		lines = append(lines, description)
		for _, dialogue := range scene.Dialogues {
			content := strings.TrimSpace(dialogue.Content)
			if content == "" {
				continue
			}
			speaker := strings.ToUpper(strings.TrimSpace(dialogue.CharacterName))
			if speaker == "" {
				speaker = "UNKNOWN"
			}
			lines = append(lines, speaker+": "+content)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, sceneSeparator)
}

// CountWords reports the whitespace-separated word count of script text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
