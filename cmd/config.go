package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/manav03panchal/bikeguard/internal/config"
	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/model"
)

// configInitFlagForce overwrites an existing config file.
var configInitFlagForce bool

// configCmd represents the config command.
var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"cfg"},
	Short:   "Manage configuration",
	Long: `View the effective configuration and the webhook relay preferences.

Sensor, location, server and schedule options live in the YAML config file.
Threshold, countdown and alarm toggles are stored with your contacts; use
'bikeguard settings' for those.

Examples:
  bikeguard config show
  bikeguard config init
  bikeguard config get notify
  bikeguard config set notify.status enabled
  bikeguard config set notify.test disabled`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx.Formatter.Println(configPath())
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to the config file",
	RunE:  runConfigInit,
}

// configGetCmd gets relay preferences.
var configGetCmd = &cobra.Command{
	Use:   "get [KEY]",
	Short: "Get a relay preference",
	Long: `Get one relay preference or show all of them.

Keys:
  notify          Show all notification types
  notify.<type>   Enable status for one type

Notification types: emergency, impact, cancelled, status, test`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigGet,
}

// configSetCmd sets relay preferences.
var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a relay preference",
	Long: `Enable or disable relaying a notification type to webhooks.
Emergency alerts are always relayed.

Examples:
  bikeguard config set notify.status enabled
  bikeguard config set notify.impact disabled`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitFlagForce, "force", false,
		"Overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.DefaultPath()
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if ctx.IsJSON() {
		return ctx.Formatter.PrintJSON(ctx.Config)
	}
	data, err := yaml.Marshal(ctx.Config)
	if err != nil {
		return err
	}
	ctx.Formatter.Print(string(data))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath()
	if _, err := os.Stat(path); err == nil && !configInitFlagForce {
		return errors.NewUserErrorWithField("path", path, "config file already exists",
			"Use --force to overwrite it")
	}
	if err := config.DefaultRuntimeConfig().Save(path); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.PrintJSON(map[string]any{"status": "written", "path": path})
	}
	ctx.CLIFormatter().Success("Wrote " + path)
	return nil
}

// runConfigGet handles the config get command.
func runConfigGet(cmd *cobra.Command, args []string) error {
	key := "notify"
	if len(args) > 0 {
		key = args[0]
	}
	if key != "notify" && !strings.HasPrefix(key, "notify.") {
		return errors.NewUserErrorWithField("key", key, "unknown config key", "Keys start with 'notify'")
	}

	prefs, err := ctx.NotifyConfig.Get()
	if err != nil {
		return err
	}

	if field := strings.TrimPrefix(key, "notify."); field != key {
		if !model.IsValidNotificationType(field) {
			return unknownNotificationType(field)
		}
		enabled := prefs.IsTypeEnabled(model.NotificationType(field))
		if ctx.IsJSON() {
			return ctx.Formatter.PrintJSON(map[string]any{"type": field, "enabled": enabled})
		}
		ctx.Formatter.Println(enabledString(enabled))
		return nil
	}

	types := model.AllNotificationTypes()
	if ctx.IsJSON() {
		out := make(map[string]bool, len(types))
		for _, t := range types {
			out[string(t)] = prefs.IsTypeEnabled(t)
		}
		return ctx.Formatter.PrintJSON(map[string]any{"enabled": out})
	}

	ctx.Formatter.Println("Notification Types:")
	ctx.Formatter.Println("")
	for _, t := range types {
		ctx.Formatter.Printf("  %-11s %s\n", string(t)+":", enabledString(prefs.IsTypeEnabled(t)))
	}
	return nil
}

// runConfigSet handles the config set command.
func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	field := strings.TrimPrefix(key, "notify.")
	if field == key {
		return errors.NewUserErrorWithField("key", key, "unknown config key", "Use notify.<type>")
	}
	if !model.IsValidNotificationType(field) {
		return unknownNotificationType(field)
	}
	t := model.NotificationType(field)
	if t == model.NotifyEmergency {
		return errors.NewUserError("emergency alerts are always relayed", "")
	}

	enabled, err := parseOnOff(key, value)
	if err != nil {
		return err
	}

	prefs, err := ctx.NotifyConfig.Get()
	if err != nil {
		return err
	}
	prefs.SetTypeEnabled(t, enabled)
	if err := ctx.NotifyConfig.Set(prefs); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.PrintJSON(map[string]any{"type": field, "enabled": enabled})
	}
	ctx.CLIFormatter().Success(fmt.Sprintf("%s notifications %s", field, enabledString(enabled)))
	return nil
}

func unknownNotificationType(t string) error {
	names := make([]string, 0, len(model.AllNotificationTypes()))
	for _, known := range model.AllNotificationTypes() {
		names = append(names, string(known))
	}
	return errors.NewUserErrorWithField("type", t, "unknown notification type",
		"Valid types: "+strings.Join(names, ", "))
}

func enabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
