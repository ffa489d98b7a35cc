package runbooks

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/opsplatform/core/opscontroller/domain"
)

// actionCatalogFile mirrors the YAML shape operators hand-author for the
// runbook action allow-list, one entry per domain.RunbookAction.
type actionCatalogFile struct {
	Actions []catalogEntry `yaml:"actions"`
}

type catalogEntry struct {
	ID               string         `yaml:"id"`
	Name             string         `yaml:"name"`
	Description      string         `yaml:"description"`
	AllowedParams    []string       `yaml:"allowed_params"`
	CooldownSeconds  int64          `yaml:"cooldown_seconds"`
	RequiresApproval bool           `yaml:"requires_approval"`
	Guardrails       map[string]any `yaml:"guardrails"`
}

// LoadActionCatalog parses a runbook action catalog YAML document, the way
// tarsy's pkg/config loader parses tarsy.yaml into typed config structs.
func LoadActionCatalog(data []byte) ([]domain.RunbookAction, error) {
	var file actionCatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse runbook action catalog: %w", err)
	}

	actions := make([]domain.RunbookAction, 0, len(file.Actions))
	for _, e := range file.Actions {
		if e.ID == "" {
			return nil, fmt.Errorf("runbook action catalog: entry with empty id")
		}
		actions = append(actions, domain.RunbookAction{
			ID:               e.ID,
			Name:             e.Name,
			Description:      e.Description,
			AllowedParams:    e.AllowedParams,
			CooldownSeconds:  e.CooldownSeconds,
			RequiresApproval: e.RequiresApproval,
			Guardrails:       e.Guardrails,
		})
	}
	return actions, nil
}

// LoadActionCatalogFile reads path and registers every parsed action with r,
// the bulk-load counterpart to RegisterAction used at service startup.
func LoadActionCatalogFile(ctx context.Context, r *Runbooks, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read runbook action catalog %s: %w", path, err)
	}
	actions, err := LoadActionCatalog(data)
	if err != nil {
		return err
	}
	for _, action := range actions {
		if err := r.RegisterAction(ctx, action); err != nil {
			return fmt.Errorf("register action %s: %w", action.ID, err)
		}
	}
	return nil
}
