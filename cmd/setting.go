package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"swarmsettings/internal/models"
	"swarmsettings/internal/output"
	"swarmsettings/internal/settings"
)

var (
	settingListType string

	regType        string
	regLabel       string
	regDescription string
	regDefault     string
	regOptions     []string
	regAffects     []string
	regRequired    bool
	regMin         float64
	regMax         float64
	regMinLength   int
	regMaxLength   int
	regPattern     string
	regErrorMsg    string
	regSensitive   bool
)

var settingCmd = &cobra.Command{
	Use:     "setting",
	Aliases: []string{"settings"},
	Short:   "Inspect and change settings",
}

var settingListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List settings and their current values",
	Args:    cobra.NoArgs,
	RunE:    runSettingList,
}

var settingShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Show a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingShow,
}

var settingSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Validate and store a new value",
	Long: `Validate and store a new value for a setting.

The value is parsed as JSON when possible, so 0.9 is a number, true is a
boolean and '["search","code"]' is a list. Anything else is a plain string.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingSet,
}

var settingValidateCmd = &cobra.Command{
	Use:   "validate <key> <value>",
	Short: "Check a value without storing it",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingValidate,
}

var settingHistoryCmd = &cobra.Command{
	Use:   "history <key>",
	Short: "Show the value history of a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingHistory,
}

var settingRegisterCmd = &cobra.Command{
	Use:   "register <key>",
	Short: "Register a new setting",
	Long: `Register a new setting.

Options for select and multiselect settings are given as value or value:label:
  swarmctl setting register tone --type select --option formal --option casual:Casual`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingRegister,
}

func init() {
	rootCmd.AddCommand(settingCmd)
	settingCmd.AddCommand(settingListCmd)
	settingCmd.AddCommand(settingShowCmd)
	settingCmd.AddCommand(settingSetCmd)
	settingCmd.AddCommand(settingValidateCmd)
	settingCmd.AddCommand(settingHistoryCmd)
	settingCmd.AddCommand(settingRegisterCmd)

	settingListCmd.Flags().StringVarP(&settingListType, "type", "t", "", "Only settings of this type")

	f := settingRegisterCmd.Flags()
	f.StringVarP(&regType, "type", "t", string(models.TypeString), "Setting type")
	f.StringVarP(&regLabel, "label", "l", "", "Display label (default: key)")
	f.StringVarP(&regDescription, "description", "d", "", "Description")
	f.StringVar(&regDefault, "default", "", "Initial value (parsed like 'setting set')")
	f.StringArrayVar(&regOptions, "option", nil, "Option as value or value:label (repeatable)")
	f.StringArrayVar(&regAffects, "affects", nil, "Key of a setting this one affects (repeatable)")
	f.BoolVar(&regRequired, "required", false, "Reject empty values")
	f.Float64Var(&regMin, "min", 0, "Minimum numeric value")
	f.Float64Var(&regMax, "max", 0, "Maximum numeric value")
	f.IntVar(&regMinLength, "min-length", 0, "Minimum string length")
	f.IntVar(&regMaxLength, "max-length", 0, "Maximum string length")
	f.StringVar(&regPattern, "pattern", "", "Regular expression the value must start with")
	f.StringVar(&regErrorMsg, "error-message", "", "Message reported for any invalid value")
	f.BoolVar(&regSensitive, "sensitive", false, "Keep the value in the OS keyring")
}

func sortedSettings(all map[string]*models.Setting) []*models.Setting {
	list := make([]*models.Setting, 0, len(all))
	for _, s := range all {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return list
}

func runSettingList(cmd *cobra.Command, args []string) error {
	var filter models.SettingType
	if settingListType != "" {
		t, err := models.ParseSettingType(settingListType)
		if err != nil {
			return err
		}
		filter = t
	}

	var list []*models.Setting
	for _, s := range sortedSettings(app.manager.GetSettings()) {
		if filter == "" || s.Type == filter {
			list = append(list, s)
		}
	}

	if len(list) == 0 && !IsJSONOutput() {
		fmt.Println("No settings found")
		return nil
	}
	formatter().SettingList(list)
	return nil
}

func runSettingShow(cmd *cobra.Command, args []string) error {
	s, ok := app.manager.GetSetting(args[0])
	if !ok {
		return fmt.Errorf("setting '%s' not found (use 'swarmctl setting list' to see available settings)", args[0])
	}
	formatter().Setting(s)
	return nil
}

func runSettingSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], parseValue(args[1])
	if err := app.manager.UpdateSetting(key, value); err != nil {
		return fmt.Errorf("cannot update setting: %w", err)
	}

	s, _ := app.manager.GetSetting(key)
	if IsJSONOutput() {
		formatter().Setting(s)
		return nil
	}
	if s.Sensitive {
		fmt.Printf("Updated %s\n", key)
		return nil
	}
	fmt.Printf("Updated %s = %s\n", key, output.FormatValue(s.DefaultValue))
	return nil
}

func runSettingValidate(cmd *cobra.Command, args []string) error {
	key, value := args[0], parseValue(args[1])
	err := app.manager.ValidateValue(key, value)

	if IsJSONOutput() {
		result := map[string]interface{}{"key": key, "valid": err == nil}
		if err != nil {
			result["message"] = err.Error()
		}
		OutputJSON(result)
		return nil
	}
	if err != nil {
		fmt.Printf("invalid: %v\n", err)
		return nil
	}
	fmt.Printf("valid: %s accepts %s\n", key, output.FormatValue(value))
	return nil
}

func runSettingHistory(cmd *cobra.Command, args []string) error {
	changes, err := app.manager.SettingHistory(args[0])
	if err != nil {
		return err
	}
	formatter().History(args[0], changes)
	return nil
}

func runSettingRegister(cmd *cobra.Command, args []string) error {
	key := args[0]
	t, err := models.ParseSettingType(regType)
	if err != nil {
		return err
	}

	s := &models.Setting{
		Key:         key,
		Type:        t,
		Label:       regLabel,
		Description: regDescription,
		Sensitive:   regSensitive,
	}
	if s.Label == "" {
		s.Label = key
	}
	if cmd.Flags().Changed("default") {
		s.DefaultValue = parseValue(regDefault)
	}
	for _, raw := range regOptions {
		value, label, found := strings.Cut(raw, ":")
		if !found {
			label = value
		}
		s.Options = append(s.Options, models.SettingOption{Value: value, Label: label})
	}
	if len(regAffects) > 0 {
		s.Affects = models.StringSlice(regAffects)
	}
	s.Validation = registerValidation(cmd)

	// The initial value goes through the same rules as later updates
	if err := settings.CheckValue(s, s.DefaultValue); err != nil {
		return fmt.Errorf("cannot register setting: %w", err)
	}
	if err := app.manager.RegisterSetting(s); err != nil {
		return fmt.Errorf("cannot register setting: %w", err)
	}

	registered, _ := app.manager.GetSetting(key)
	if IsJSONOutput() {
		formatter().Setting(registered)
		return nil
	}
	fmt.Printf("Registered setting: %s (%s)\n", key, t)
	return nil
}

func registerValidation(cmd *cobra.Command) *models.SettingValidation {
	flags := cmd.Flags()
	v := &models.SettingValidation{
		Required:     regRequired,
		Pattern:      regPattern,
		ErrorMessage: regErrorMsg,
	}
	set := regRequired || regPattern != "" || regErrorMsg != ""
	if flags.Changed("min") {
		v.MinValue, set = models.Float(regMin), true
	}
	if flags.Changed("max") {
		v.MaxValue, set = models.Float(regMax), true
	}
	if flags.Changed("min-length") {
		v.MinLength, set = models.Int(regMinLength), true
	}
	if flags.Changed("max-length") {
		v.MaxLength, set = models.Int(regMaxLength), true
	}
	if !set {
		return nil
	}
	return v
}
