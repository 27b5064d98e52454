package providers

import (
	"fmt"
	"sort"
	"sync"
)

// Tool is an opaque tool definition. Its shape is owned by the agent runtime.
type Tool any

// ToolProvider is an in-memory tool registry keyed by tool name. Nothing is persisted.
type ToolProvider struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewToolProvider returns an empty registry
func NewToolProvider() *ToolProvider {
	return &ToolProvider{tools: make(map[string]Tool)}
}

// RegisterTool adds or replaces the tool stored under name
func (p *ToolProvider) RegisterTool(name string, tool Tool) error {
	if !p.ValidateTool(name, tool) {
		return fmt.Errorf("invalid tool %s", name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tools[name] = tool
	return nil
}

// GetTool returns the tool registered under name
func (p *ToolProvider) GetTool(name string) (Tool, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tool, ok := p.tools[name]
	return tool, ok
}

// GetTools returns a copy of the registry
func (p *ToolProvider) GetTools() map[string]Tool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]Tool, len(p.tools))
	for name, tool := range p.tools {
		out[name] = tool
	}
	return out
}

// Names returns registered tool names in sorted order
func (p *ToolProvider) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.tools))
	for name := range p.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateTool accepts any tool.
// TODO: check tool definitions once the agent runtime fixes a tool schema.
func (p *ToolProvider) ValidateTool(name string, tool Tool) bool {
	return true
}
