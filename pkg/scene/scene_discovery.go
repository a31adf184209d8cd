package scene

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ModelInfo describes a selectable model
type ModelInfo struct {
	ID          string `json:"id"`          // Value for the model setting
	DisplayName string `json:"displayName"` // UI display name
	Description string `json:"description"` // Optional description
	Group       string `json:"group"`       // Grouping category
	Type        string `json:"type"`        // "builtin" or "ply"
	FilePath    string `json:"filePath"`    // Path to the PLY file (ply type only)
}

// ModelGroup represents a group of related models
type ModelGroup struct {
	Name   string      `json:"name"`
	Models []ModelInfo `json:"models"`
}

// ModelsResponse represents the complete response for /api/models
type ModelsResponse struct {
	Groups []ModelGroup `json:"groups"`
}

const builtinGroup = "Built-in Models"

var builtinInfo = []ModelInfo{
	{ID: ModelSphere, DisplayName: "Sphere", Description: "Unit sphere", Group: builtinGroup, Type: "builtin"},
	{ID: ModelCubes, DisplayName: "Cubes", Description: "Three boxes merged into one mesh, one material each", Group: builtinGroup, Type: "builtin"},
	{ID: ModelTorus, DisplayName: "Torus", Description: "Tilted ring", Group: builtinGroup, Type: "builtin"},
	{ID: ModelNone, DisplayName: "None", Description: "Environment, floor and light only", Group: builtinGroup, Type: "builtin"},
}

// ListPLYModels scans dir for .ply files. A missing directory yields no models.
func ListPLYModels(dir string) ([]ModelInfo, error) {
	if dir == "" {
		return nil, nil
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.ply"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan models directory: %w", err)
	}

	var models []ModelInfo
	for _, filePath := range files {
		info, err := ParsePLYMetadata(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to parse metadata for %s: %w", filePath, err)
		}
		models = append(models, info)
	}

	sort.Slice(models, func(i, j int) bool {
		return models[i].DisplayName < models[j].DisplayName
	})
	return models, nil
}

// ParsePLYMetadata extracts metadata from "comment Key: value" header lines
func ParsePLYMetadata(filePath string) (ModelInfo, error) {
	filename := filepath.Base(filePath)
	nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))

	info := ModelInfo{
		ID:          filePath,
		DisplayName: titleCase(nameWithoutExt),
		Group:       "PLY Models",
		Type:        "ply",
		FilePath:    filePath,
	}

	file, err := os.Open(filePath)
	if err != nil {
		return info, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "end_header" {
			break
		}

		content, ok := strings.CutPrefix(line, "comment ")
		if !ok {
			continue
		}

		if name, ok := strings.CutPrefix(content, "Model:"); ok {
			info.DisplayName = strings.TrimSpace(name)
		} else if description, ok := strings.CutPrefix(content, "Description:"); ok {
			info.Description = strings.TrimSpace(description)
		} else if group, ok := strings.CutPrefix(content, "Group:"); ok {
			info.Group = strings.TrimSpace(group)
		}
	}

	return info, scanner.Err()
}

// ListAllModels returns the built-in models and the PLY files in dir, grouped
func ListAllModels(dir string) (ModelsResponse, error) {
	var response ModelsResponse

	plyModels, err := ListPLYModels(dir)
	if err != nil {
		return response, err
	}

	allModels := append(append([]ModelInfo{}, builtinInfo...), plyModels...)

	groupMap := make(map[string][]ModelInfo)
	for _, model := range allModels {
		groupMap[model.Group] = append(groupMap[model.Group], model)
	}

	// Built-in first, then alphabetical
	var groupNames []string
	for groupName := range groupMap {
		if groupName != builtinGroup {
			groupNames = append(groupNames, groupName)
		}
	}
	sort.Strings(groupNames)

	response.Groups = append(response.Groups, ModelGroup{Name: builtinGroup, Models: groupMap[builtinGroup]})
	for _, groupName := range groupNames {
		response.Groups = append(response.Groups, ModelGroup{Name: groupName, Models: groupMap[groupName]})
	}

	return response, nil
}

// titleCase converts a filename-style string to title case
// e.g., "stanford-bunny" -> "Stanford Bunny"
func titleCase(s string) string {
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")

	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}

	return strings.Join(words, " ")
}
