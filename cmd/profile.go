package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"swarmsettings/internal/models"
	"swarmsettings/internal/settings"
)

var (
	profileID          string
	profileDescription string
	profileDefault     bool
	profileSet         []string
)

var profileCmd = &cobra.Command{
	Use:     "profile",
	Aliases: []string{"profiles"},
	Short:   "Manage settings profiles",
	Long: `A profile is a named set of setting overrides, for example one per agent.
Overrides for registered settings are validated like 'setting set'; overrides
for unknown keys are stored as given.`,
}

var profileCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileCreate,
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update <id> --set key=value...",
	Short: "Merge overrides into a profile (all or nothing)",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileUpdate,
}

var profileListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List profiles",
	Args:    cobra.NoArgs,
	RunE:    runProfileList,
}

var profileShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileShow,
}

var profileDefaultCmd = &cobra.Command{
	Use:   "default [id]",
	Short: "Show or set the default profile",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfileDefault,
}

var profileResolveCmd = &cobra.Command{
	Use:   "resolve [id]",
	Short: "Show every setting value as seen through a profile (default profile if omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfileResolve,
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileCreateCmd)
	profileCmd.AddCommand(profileUpdateCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileDefaultCmd)
	profileCmd.AddCommand(profileResolveCmd)

	profileCreateCmd.Flags().StringVar(&profileID, "id", "", "Profile ID (default: generated)")
	profileCreateCmd.Flags().StringVarP(&profileDescription, "description", "d", "", "Description")
	profileCreateCmd.Flags().BoolVar(&profileDefault, "default", false, "Make this the default profile")
	profileCreateCmd.Flags().StringArrayVar(&profileSet, "set", nil, "Override as key=value (repeatable)")
	profileUpdateCmd.Flags().StringArrayVar(&profileSet, "set", nil, "Override as key=value (repeatable)")
}

func runProfileCreate(cmd *cobra.Command, args []string) error {
	overrides, err := parseAssignments(profileSet)
	if err != nil {
		return err
	}

	// CreateProfile stores overrides as given
	for key, value := range overrides {
		if err := app.manager.ValidateValue(key, value); err != nil && !settings.IsNotFound(err) {
			return fmt.Errorf("cannot create profile: %w", err)
		}
	}

	p := &models.SettingsProfile{
		ID:          profileID,
		Name:        args[0],
		Description: profileDescription,
		Settings:    overrides,
		IsDefault:   profileDefault,
	}
	if err := app.manager.CreateProfile(p); err != nil {
		return fmt.Errorf("cannot create profile: %w", err)
	}

	if IsJSONOutput() {
		created, _ := app.manager.GetProfile(p.ID)
		formatter().Profile(created)
		return nil
	}
	fmt.Printf("Created profile: %s (%s)\n", p.Name, p.ID)
	return nil
}

func runProfileUpdate(cmd *cobra.Command, args []string) error {
	if len(profileSet) == 0 {
		return fmt.Errorf("nothing to update (use --set key=value)")
	}
	overrides, err := parseAssignments(profileSet)
	if err != nil {
		return err
	}
	if err := app.manager.UpdateProfile(args[0], overrides); err != nil {
		return fmt.Errorf("cannot update profile: %w", err)
	}

	if IsJSONOutput() {
		p, _ := app.manager.GetProfile(args[0])
		formatter().Profile(p)
		return nil
	}
	fmt.Printf("Updated profile %s (%d overrides)\n", args[0], len(overrides))
	return nil
}

func sortedProfiles(all map[string]*models.SettingsProfile) []*models.SettingsProfile {
	list := make([]*models.SettingsProfile, 0, len(all))
	for _, p := range all {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func runProfileList(cmd *cobra.Command, args []string) error {
	list := sortedProfiles(app.manager.GetProfiles())
	if len(list) == 0 && !IsJSONOutput() {
		fmt.Println("No profiles found")
		return nil
	}
	formatter().ProfileList(list)
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	p, ok := app.manager.GetProfile(args[0])
	if !ok {
		return fmt.Errorf("profile '%s' not found (use 'swarmctl profile list' to see available profiles)", args[0])
	}
	formatter().Profile(p)
	return nil
}

func runProfileDefault(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		if err := app.manager.SetDefaultProfile(args[0]); err != nil {
			return err
		}
		if IsJSONOutput() {
			OutputJSON(map[string]interface{}{"success": true, "default": args[0]})
			return nil
		}
		fmt.Printf("Default profile: %s\n", args[0])
		return nil
	}

	p, ok := app.manager.DefaultProfile()
	if !ok {
		if IsJSONOutput() {
			OutputJSON(map[string]interface{}{"default": nil})
			return nil
		}
		fmt.Println("No default profile")
		return nil
	}
	formatter().Profile(p)
	return nil
}

func runProfileResolve(cmd *cobra.Command, args []string) error {
	id := ""
	if len(args) == 1 {
		id = args[0]
	} else {
		p, ok := app.manager.DefaultProfile()
		if !ok {
			return fmt.Errorf("no default profile (pass a profile ID)")
		}
		id = p.ID
	}

	values, err := app.manager.ResolveProfile(id)
	if err != nil {
		return err
	}
	// sensitive values stay hidden
	for key, s := range app.manager.GetSettings() {
		if s.Sensitive {
			values[key] = "********"
		}
	}
	formatter().Values("Settings for "+id, values)
	return nil
}
