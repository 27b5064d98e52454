package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"swarmsettings/internal/models"
	"swarmsettings/internal/settings"
)

var (
	tmplID          string
	tmplDescription string
	tmplContent     string
	tmplFile        string
	tmplVars        []string
	tmplTags        []string
	tmplListTag     string
)

var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"tmpl", "instruction"},
	Short:   "Manage instruction templates",
	Long: `Instruction templates are text with {name} placeholders. Each template
carries default values for its placeholders; values passed when rendering win.
Placeholders without a value are left as they are.`,
}

var templateCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateCreate,
}

var templateUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Replace a template's content and merge variable defaults",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateUpdate,
}

var templateListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all templates",
	Args:    cobra.NoArgs,
	RunE:    runTemplateList,
}

var templateShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show template details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateShow,
}

var templateRenderCmd = &cobra.Command{
	Use:   "render <id>",
	Short: "Render a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateRender,
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateCreateCmd)
	templateCmd.AddCommand(templateUpdateCmd)
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateShowCmd)
	templateCmd.AddCommand(templateRenderCmd)

	templateCreateCmd.Flags().StringVar(&tmplID, "id", "", "Template ID (default: generated)")
	templateCreateCmd.Flags().StringVarP(&tmplDescription, "description", "d", "", "Description")
	templateCreateCmd.Flags().StringVarP(&tmplContent, "content", "c", "", "Template text")
	templateCreateCmd.Flags().StringVarP(&tmplFile, "file", "f", "", "Read template text from file")
	templateCreateCmd.Flags().StringArrayVar(&tmplVars, "var", nil, "Variable default as name=value (repeatable)")
	templateCreateCmd.Flags().StringSliceVarP(&tmplTags, "tag", "t", nil, "Tags")

	templateUpdateCmd.Flags().StringVarP(&tmplContent, "content", "c", "", "New template text")
	templateUpdateCmd.Flags().StringVarP(&tmplFile, "file", "f", "", "Read new template text from file")
	templateUpdateCmd.Flags().StringArrayVar(&tmplVars, "var", nil, "Variable default as name=value (repeatable)")

	templateListCmd.Flags().StringVarP(&tmplListTag, "tag", "t", "", "Only templates with this tag")

	templateRenderCmd.Flags().StringArrayVar(&tmplVars, "var", nil, "Variable as name=value (repeatable)")
}

func runTemplateCreate(cmd *cobra.Command, args []string) error {
	content, err := readContent(tmplContent, tmplFile)
	if err != nil {
		return err
	}
	if content == "" {
		return fmt.Errorf("template content is required (use --content or --file)")
	}
	vars, err := parseVariables(tmplVars)
	if err != nil {
		return err
	}

	template := &models.InstructionTemplate{
		ID:          tmplID,
		Name:        args[0],
		Description: tmplDescription,
		Content:     content,
		Variables:   vars,
		Tags:        tmplTags,
	}
	if err := app.manager.CreateTemplate(template); err != nil {
		return fmt.Errorf("cannot create template '%s': %w", args[0], err)
	}

	missing := settings.Unresolved(content, vars, nil)
	if IsJSONOutput() {
		created, _ := app.manager.GetTemplate(template.ID)
		OutputJSON(map[string]interface{}{"template": created, "unresolved": missing})
		return nil
	}
	fmt.Printf("Created template: %s (%s)\n", template.Name, template.ID)
	if len(missing) > 0 {
		fmt.Printf("  placeholders without a default: %v\n", missing)
	}
	return nil
}

func runTemplateUpdate(cmd *cobra.Command, args []string) error {
	current, ok := app.manager.GetTemplate(args[0])
	if !ok {
		return fmt.Errorf("template '%s' not found (use 'swarmctl template list' to see available templates)", args[0])
	}

	content := current.Content
	if cmd.Flags().Changed("content") || tmplFile != "" {
		var err error
		if content, err = readContent(tmplContent, tmplFile); err != nil {
			return err
		}
	}
	vars, err := parseVariables(tmplVars)
	if err != nil {
		return err
	}

	if err := app.manager.UpdateTemplate(args[0], content, vars); err != nil {
		return fmt.Errorf("cannot update template: %w", err)
	}

	if IsJSONOutput() {
		updated, _ := app.manager.GetTemplate(args[0])
		formatter().Template(updated)
		return nil
	}
	fmt.Printf("Updated template: %s\n", args[0])
	return nil
}

func runTemplateList(cmd *cobra.Command, args []string) error {
	all := app.manager.GetTemplates()
	list := make([]*models.InstructionTemplate, 0, len(all))
	for _, t := range all {
		if tmplListTag == "" || t.HasTag(tmplListTag) {
			list = append(list, t)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	if len(list) == 0 && !IsJSONOutput() {
		fmt.Println("No templates found")
		return nil
	}
	formatter().TemplateList(list)
	return nil
}

func runTemplateShow(cmd *cobra.Command, args []string) error {
	template, ok := app.manager.GetTemplate(args[0])
	if !ok {
		return fmt.Errorf("template '%s' not found (use 'swarmctl template list' to see available templates)", args[0])
	}

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{
			"template":     template,
			"placeholders": settings.Placeholders(template.Content),
		})
		return nil
	}
	formatter().Template(template)
	if missing := settings.Unresolved(template.Content, template.Variables, nil); len(missing) > 0 {
		fmt.Printf("\nPlaceholders without a default: %v\n", missing)
	}
	return nil
}

func runTemplateRender(cmd *cobra.Command, args []string) error {
	vars, err := parseVariables(tmplVars)
	if err != nil {
		return err
	}
	rendered, err := app.manager.RenderTemplate(args[0], vars)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{"id": args[0], "rendered": rendered})
		return nil
	}
	fmt.Println(rendered)
	return nil
}
