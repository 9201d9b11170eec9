// Package prompts embeds the LLM prompt templates used by the generation
// stages. Each stage's templates live in one JSON file mapping template keys
// to text.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"sync"
)

//go:embed *.json
var templateFiles embed.FS

// loadAll parses every embedded template file once. The files ship inside
// the binary, so a parse failure is a build defect surfaced on first use.
var loadAll = sync.OnceValues(func() (map[string]map[string]string, error) {
	names, err := fs.Glob(templateFiles, "*.json")
	if err != nil {
		return nil, err
	}

	all := make(map[string]map[string]string, len(names))
	for _, name := range names {
		data, err := templateFiles.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read template file %s: %w", name, err)
		}
		var templates map[string]string
		if err := json.Unmarshal(data, &templates); err != nil {
			return nil, fmt.Errorf("failed to parse template file %s: %w", name, err)
		}
		all[name] = templates
	}
	return all, nil
})

// Get returns the template stored under key in the named file.
func Get(filename, key string) (string, error) {
	all, err := loadAll()
	if err != nil {
		return "", err
	}

	templates, ok := all[filename]
	if !ok {
		return "", fmt.Errorf("template file %s not found", filename)
	}
	template, ok := templates[key]
	if !ok {
		return "", fmt.Errorf("template key %q not found in %s", key, filename)
	}
	return template, nil
}

// MustGet is Get for templates required at stage construction time; a
// missing template is a programming error and panics.
func MustGet(filename, key string) string {
	template, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load template: %v", err))
	}
	return template
}

// Format replaces {{.Key}} placeholders in the template with values from
// data. Placeholders without a matching key are left as-is.
func Format(template string, data map[string]string) string {
	for key, value := range data {
		template = strings.ReplaceAll(template, "{{."+key+"}}", value)
	}
	return template
}
