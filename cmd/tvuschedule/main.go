package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/hrygo/tvuschedule/internal/profile"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "tvuschedule",
	Short: "Answer Trà Vinh University timetable questions and sync classes to a calendar",
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		setupLogger(cmd.ErrOrStderr())
	},
	SilenceUsage: true,
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("output", "text")

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of the process, "dev" or "prod"`)
	flags.String("timezone", "", "IANA timezone in which today is evaluated (default Asia/Ho_Chi_Minh)")
	flags.String("semester", "", "semester code such as 20251; detected from the date when empty")
	flags.String("portal-url", "", "student portal base URL")
	flags.String("portal-token", "", "student portal access token")
	flags.Float64("portal-rate", 0, "portal requests per second")
	flags.String("calendar-id", "", "Google Calendar ID (default primary)")
	flags.String("calendar-token", "", "Google Calendar OAuth2 access token")
	flags.StringP("output", "o", "text", "output format: text, json or yaml")
	flags.Bool("verbose", false, "log at debug level")

	for _, name := range []string{
		"mode", "timezone", "semester", "portal-url", "portal-token", "portal-rate",
		"calendar-id", "calendar-token", "output", "verbose",
	} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("tvuschedule")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindEnv("cron", "TVUSCHEDULE_SYNC_CRON", "TVUSCHEDULE_CRON"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		newResolveCmd(),
		newWeekCmd(),
		newQueryCmd(),
		newSemestersCmd(),
		newWeeksCmd(),
		newSyncCmd(),
		newServeCmd(),
	)
}

// loadProfile builds the profile from flags and environment, then fills the
// remaining defaults.
func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:             viper.GetString("mode"),
		Addr:             viper.GetString("addr"),
		Port:             viper.GetInt("port"),
		Version:          version,
		Timezone:         viper.GetString("timezone"),
		SemesterID:       viper.GetString("semester"),
		PortalURL:        viper.GetString("portal-url"),
		PortalToken:      viper.GetString("portal-token"),
		PortalRatePerSec: viper.GetFloat64("portal-rate"),
		CalendarID:       viper.GetString("calendar-id"),
		CalendarToken:    viper.GetString("calendar-token"),
		SyncCron:         viper.GetString("cron"),
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func setupLogger(w io.Writer) {
	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	var handler slog.Handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	if viper.GetString("mode") == "prod" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

// printResult writes v in the selected output format. text is used for the
// text format; an empty text falls back to YAML.
func printResult(w io.Writer, v any, text string) error {
	switch format := strings.ToLower(viper.GetString("output")); format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case "text", "":
		if text == "" {
			return yaml.NewEncoder(w).Encode(v)
		}
		_, err := fmt.Fprintln(w, text)
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
