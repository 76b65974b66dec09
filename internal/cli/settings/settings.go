package settings

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/julianstephens/tally/internal/calendar"
	"github.com/julianstephens/tally/internal/cli"
	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/models"
)

type SettingsCmd struct {
	List SettingsListCmd `cmd:"" help:"List current settings." default:"1"`
	Get  SettingsGetCmd  `cmd:"" help:"Print one setting."`
	Set  SettingsSetCmd  `cmd:"" help:"Change one setting."`
}

type SettingsListCmd struct{}

func (c *SettingsListCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	values := models.SettingsToMap(settings)

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ctx.Println("Current Settings:")
	for _, k := range keys {
		ctx.Printf("  %-18s %s\n", k, values[k])
	}
	ctx.Printf("\nTimer limit: %d\n", settings.TimerLimit())
	return nil
}

type SettingsGetCmd struct {
	Key string `arg:"" help:"Setting name."`
}

func (c *SettingsGetCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	value, ok := models.SettingsToMap(settings)[c.Key]
	if !ok {
		return unknownKey(c.Key)
	}
	ctx.Println(value)
	return nil
}

type SettingsSetCmd struct {
	Key   string `arg:"" help:"Setting name."`
	Value string `arg:"" help:"New value."`
}

func (c *SettingsSetCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	value, err := normalize(c.Key, c.Value)
	if err != nil {
		return err
	}

	values := models.SettingsToMap(settings)
	if _, ok := values[c.Key]; !ok {
		return unknownKey(c.Key)
	}
	values[c.Key] = value

	updated, err := models.MapToSettings(values)
	if err != nil {
		return err
	}
	if err := ctx.Store.SaveSettings(updated); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	ctx.Printf("%s = %s\n", c.Key, value)
	if c.Key == constants.SettingUnlocked {
		ctx.Printf("Up to %d timers can now run at once.\n", updated.TimerLimit())
	}
	return nil
}

// normalize validates a raw value for key and returns its storage form.
func normalize(key, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	switch key {
	case constants.SettingTimezone:
		if !calendar.ValidateTimezone(raw) {
			return "", fmt.Errorf("invalid timezone %q (use an IANA name such as Europe/Berlin, or Local)", raw)
		}
		if raw == "" {
			return constants.DefaultTimezone, nil
		}
		return raw, nil
	case constants.SettingWeekStart:
		if strings.EqualFold(raw, "auto") {
			return "auto", nil
		}
		wd, ok := calendar.ParseWeekday(raw)
		if !ok {
			return "", fmt.Errorf("invalid week start %q (use a weekday name or auto)", raw)
		}
		return strings.ToLower(wd.String()), nil
	case constants.SettingUnlocked, constants.SettingTrayEnabled:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return "", fmt.Errorf("%s must be true or false", key)
		}
		return strconv.FormatBool(b), nil
	case constants.SettingStaleWindowMin, constants.SettingIncrementSec, constants.SettingDefaultLogDays:
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return "", fmt.Errorf("%s must be a positive integer", key)
		}
		return strconv.Itoa(n), nil
	default:
		return "", unknownKey(key)
	}
}

func unknownKey(key string) error {
	keys := make([]string, 0)
	for k := range models.SettingsToMap(models.DefaultSettings()) {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(keys, ", "))
}
