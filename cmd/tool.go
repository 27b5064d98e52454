package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"swarmsettings/internal/models"
	"swarmsettings/internal/providers"
)

var toolCmd = &cobra.Command{
	Use:     "tool",
	Aliases: []string{"tools"},
	Short:   "Inspect the tools agents may call",
}

var toolListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List known tools and whether the tools setting enables them",
	Args:    cobra.NoArgs,
	RunE:    runToolList,
}

func init() {
	rootCmd.AddCommand(toolCmd)
	toolCmd.AddCommand(toolListCmd)
}

// loadTools registers one tool per option of the tools setting
func loadTools() (*providers.ToolProvider, error) {
	tools := providers.NewToolProvider()
	s, ok := app.manager.GetSetting(providers.SettingTools)
	if !ok {
		return tools, nil
	}
	for _, opt := range s.Options {
		if err := tools.RegisterTool(opt.Value, opt); err != nil {
			return nil, err
		}
	}
	return tools, nil
}

// enabledTools returns the tool names selected in the tools setting
func enabledTools() map[string]bool {
	enabled := make(map[string]bool)
	s, ok := app.manager.GetSetting(providers.SettingTools)
	if !ok {
		return enabled
	}
	if items, ok := s.DefaultValue.([]any); ok {
		for _, item := range items {
			if name, ok := item.(string); ok {
				enabled[name] = true
			}
		}
	}
	return enabled
}

func runToolList(cmd *cobra.Command, args []string) error {
	tools, err := loadTools()
	if err != nil {
		return err
	}
	enabled := enabledTools()
	names := tools.Names()

	if IsJSONOutput() {
		list := make([]map[string]interface{}, 0, len(names))
		for _, name := range names {
			tool, _ := tools.GetTool(name)
			list = append(list, map[string]interface{}{
				"name":    name,
				"tool":    tool,
				"enabled": enabled[name],
			})
		}
		OutputJSON(map[string]interface{}{"count": len(list), "tools": list})
		return nil
	}

	if len(names) == 0 {
		fmt.Println("No tools found")
		return nil
	}
	fmt.Printf("Tools (%d):\n", len(names))
	for _, name := range names {
		tool, _ := tools.GetTool(name)
		label := name
		if opt, ok := tool.(models.SettingOption); ok && opt.Label != "" {
			label = opt.Label
		}
		mark := " "
		if enabled[name] {
			mark = "x"
		}
		fmt.Printf("  [%s] %-12s %s\n", mark, name, label)
	}
	return nil
}
