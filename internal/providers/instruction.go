package providers

import (
	"log/slog"

	"swarmsettings/internal/models"
	"swarmsettings/internal/settings"
)

// Default instruction template IDs
const (
	InstructionSystem          = "system"
	InstructionContentCreation = "content_creation"
	InstructionSEO             = "seo"
	InstructionFormatting      = "formatting"
)

// DefaultInstructions returns the templates every store is seeded with
func DefaultInstructions() []*models.InstructionTemplate {
	return []*models.InstructionTemplate{
		{
			ID:          InstructionSystem,
			Name:        "System",
			Description: "Base system instruction",
			Content:     "You are an AI assistant specialising in {domain}.",
			Variables:   models.StringMap{"domain": "content creation"},
			Tags:        models.StringSlice{"system"},
		},
		{
			ID:      InstructionContentCreation,
			Name:    "Content creation",
			Content: "When creating content, follow these rules:\n{rules}",
			Variables: models.StringMap{
				"rules": "1. Write for the target audience.\n2. Keep paragraphs short.",
			},
			Tags: models.StringSlice{"content"},
		},
		{
			ID:      InstructionSEO,
			Name:    "SEO",
			Content: "When optimising for search, consider:\n{checklist}\nPrimary keyword: {keyword}",
			Variables: models.StringMap{
				"checklist": "1. Title and meta description.\n2. Heading structure.",
			},
			Tags: models.StringSlice{"content", "seo"},
		},
		{
			ID:      InstructionFormatting,
			Name:    "Formatting",
			Content: "Content formatting rules:\n{rules}",
			Variables: models.StringMap{
				"rules": "1. Use Markdown headings.\n2. Prefer lists over long paragraphs.",
			},
			Tags: models.StringSlice{"content"},
		},
	}
}

// InstructionProvider exposes instruction templates backed by a Manager
type InstructionProvider struct {
	manager *settings.Manager
	log     *slog.Logger
}

// NewInstructionProvider seeds the default instructions into manager
func NewInstructionProvider(manager *settings.Manager, log *slog.Logger) (*InstructionProvider, error) {
	p := &InstructionProvider{manager: manager, log: log}
	for _, t := range DefaultInstructions() {
		err := manager.CreateTemplate(t)
		if err == nil {
			log.Debug("seeded instruction", "id", t.ID)
			continue
		}
		if !settings.IsDuplicateKey(err) {
			return nil, err
		}
		log.Debug("instruction already exists", "id", t.ID)
	}
	return p, nil
}

// GetInstructions returns all instruction templates keyed by ID
func (p *InstructionProvider) GetInstructions() map[string]*models.InstructionTemplate {
	return p.manager.GetTemplates()
}

// GetInstruction returns one instruction template
func (p *InstructionProvider) GetInstruction(id string) (*models.InstructionTemplate, bool) {
	return p.manager.GetTemplate(id)
}

// CreateInstruction stores a new template under a generated ID and returns the ID
func (p *InstructionProvider) CreateInstruction(name, content string, variables map[string]string) (string, error) {
	t := &models.InstructionTemplate{
		Name:      name,
		Content:   content,
		Variables: variables,
	}
	if err := p.manager.CreateTemplate(t); err != nil {
		return "", err
	}
	if missing := settings.Unresolved(content, variables, nil); len(missing) > 0 {
		p.log.Debug("instruction has placeholders without defaults", "id", t.ID, "placeholders", missing)
	}
	return t.ID, nil
}

// UpdateInstruction replaces an instruction's content and merges variables
func (p *InstructionProvider) UpdateInstruction(id, content string, variables map[string]string) error {
	return p.manager.UpdateTemplate(id, content, variables)
}

// RenderInstruction renders an instruction with caller variables taking precedence
func (p *InstructionProvider) RenderInstruction(id string, variables map[string]string) (string, error) {
	return p.manager.RenderTemplate(id, variables)
}
