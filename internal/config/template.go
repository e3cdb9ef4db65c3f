package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	yaml "gopkg.in/yaml.v3"

	"github.com/talentreach/mailsync/internal/types"
)

// Templates are partial configs that account files can declare via
// meta.template; the account file's own values win on merge.
type TemplateManager struct {
	templates map[string]*types.Config
}

var globalTemplates *TemplateManager

// LoadTemplates reads every *.yaml file in templatesDir, keyed by file name
// without the extension.
func LoadTemplates(templatesDir string) error {
	tm := &TemplateManager{
		templates: make(map[string]*types.Config),
	}

	entries, err := os.ReadDir(templatesDir)
	if err != nil {
		return fmt.Errorf("failed to read templates directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(templatesDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", entry.Name(), err)
		}

		template := &types.Config{}
		if err := yaml.Unmarshal(data, template); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", entry.Name(), err)
		}

		tm.templates[strings.TrimSuffix(entry.Name(), ".yaml")] = template
	}

	globalTemplates = tm
	return nil
}

// ApplyTemplate layers cfg over the named template. The template supplies
// defaults only; anything cfg sets explicitly is preserved.
func ApplyTemplate(cfg *types.Config, templateName string) error {
	if globalTemplates == nil {
		return fmt.Errorf("no templates loaded")
	}

	template, exists := globalTemplates.templates[templateName]
	if !exists {
		return fmt.Errorf("template %s is not defined", templateName)
	}

	// Merge onto a copy so the shared template is never mutated.
	merged := &types.Config{}
	if err := mergo.Merge(merged, template); err != nil {
		return fmt.Errorf("failed to copy template %s: %w", templateName, err)
	}
	if err := mergo.Merge(merged, cfg, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to apply template %s: %w", templateName, err)
	}

	*cfg = *merged
	return nil
}
