package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/model"
	"github.com/manav03panchal/bikeguard/internal/output"
	"github.com/manav03panchal/bikeguard/internal/parser"
	"github.com/manav03panchal/bikeguard/internal/validate"
)

// settingsCmd represents the settings command.
var settingsCmd = &cobra.Command{
	Use:     "settings [command]",
	Aliases: []string{"set", "s"},
	Short:   "Show or change detection and alarm settings",
	Long: `Show or change the impact threshold, countdown length and alarm toggles.

Examples:
  bikeguard settings
  bikeguard settings threshold 4.5
  bikeguard settings countdown 30s
  bikeguard settings sound off
  bikeguard settings vibration on`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsThresholdCmd = &cobra.Command{
	Use:   "threshold G",
	Short: "Set the impact threshold in g",
	Long: fmt.Sprintf(`Set the g-force above which an impact triggers the countdown.
Allowed range: %g to %g g.`, validate.MinThreshold, validate.MaxThreshold),
	Args: cobra.ExactArgs(1),
	RunE: runSettingsThreshold,
}

var settingsCountdownCmd = &cobra.Command{
	Use:   "countdown DURATION",
	Short: "Set the countdown before alerts are sent",
	Long: fmt.Sprintf(`Set how long the alarm counts down before contacts are messaged.
Accepts seconds or a duration: 10, 30s, "1 min 30 sec".
Allowed range: %d to %d seconds.`, validate.MinCountdown, validate.MaxCountdown),
	Args: cobra.ExactArgs(1),
	RunE: runSettingsCountdown,
}

var settingsSoundCmd = &cobra.Command{
	Use:       "sound on|off",
	Short:     "Enable or disable the alarm sound",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE:      runSettingsSound,
}

var settingsVibrationCmd = &cobra.Command{
	Use:       "vibration on|off",
	Short:     "Enable or disable the vibration pattern",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE:      runSettingsVibration,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsThresholdCmd)
	settingsCmd.AddCommand(settingsCountdownCmd)
	settingsCmd.AddCommand(settingsSoundCmd)
	settingsCmd.AddCommand(settingsVibrationCmd)

	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	profile, err := ctx.Profiles.Get()
	if err != nil {
		return err
	}
	return printProfile(profile, "")
}

func runSettingsThreshold(cmd *cobra.Command, args []string) error {
	g, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(args[0]), "g"), 64)
	if err != nil {
		return errors.NewUserErrorWithField("threshold", args[0], "Invalid impact threshold",
			fmt.Sprintf("Use a number of g between %g and %g", validate.MinThreshold, validate.MaxThreshold)).
			WithCause(errors.ErrInvalidThreshold)
	}
	profile, err := ctx.Profiles.SetThreshold(g)
	if err != nil {
		return err
	}
	return printProfile(profile, "Impact threshold set to "+output.FormatG(profile.Threshold))
}

func runSettingsCountdown(cmd *cobra.Command, args []string) error {
	seconds, err := parser.ParseSeconds(args[0])
	if err != nil {
		return err
	}
	profile, err := ctx.Profiles.SetCountdown(seconds)
	if err != nil {
		return err
	}
	return printProfile(profile, fmt.Sprintf("Countdown set to %ds", profile.CountdownTime))
}

func runSettingsSound(cmd *cobra.Command, args []string) error {
	on, err := parseOnOff("sound", args[0])
	if err != nil {
		return err
	}
	profile, err := ctx.Profiles.SetSound(on)
	if err != nil {
		return err
	}
	return printProfile(profile, "Sound "+output.OnOff(on))
}

func runSettingsVibration(cmd *cobra.Command, args []string) error {
	on, err := parseOnOff("vibration", args[0])
	if err != nil {
		return err
	}
	profile, err := ctx.Profiles.SetVibration(on)
	if err != nil {
		return err
	}
	return printProfile(profile, "Vibration "+output.OnOff(on))
}

// printProfile prints the profile, preceded by msg when it is not empty.
func printProfile(p *model.Profile, msg string) error {
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintProfile(p)
	}
	cli := ctx.CLIFormatter()
	if msg != "" {
		cli.Success(msg)
		ctx.Formatter.Println()
	}
	cli.PrintProfile(p)
	return nil
}

// parseOnOff accepts on/off and the usual boolean spellings.
func parseOnOff(field, value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "yes", "enable", "enabled":
		return true, nil
	case "off", "no", "disable", "disabled":
		return false, nil
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b, nil
	}
	return false, errors.NewUserErrorWithField(field, value,
		fmt.Sprintf("Invalid value for %s", field), "Use 'on' or 'off'")
}
