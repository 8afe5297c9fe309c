package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/edufarma/edufarma/internal/ui/components"
	"github.com/edufarma/edufarma/internal/weather"
)

var weatherCmd = &cobra.Command{
	Use:   "weather",
	Short: "Show weather and farming advisories for a location",
	RunE: func(cmd *cobra.Command, args []string) error {
		city, _ := cmd.Flags().GetString("city")
		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")
		width, _ := cmd.Flags().GetInt("width")
		hasCoords := cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon")
		if city == "" && !hasCoords {
			return fmt.Errorf("--city or both --lat and --lon are required")
		}

		log, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer log.Sync()

		client := weather.NewClient(weather.ConfigFromEnv(), nil, log)

		sp := spinner.New(spinner.CharSets[11], 100*time.Millisecond)
		sp.Suffix = " Fetching weather..."
		sp.Writer = os.Stderr
		sp.Start()
		var report *weather.Report
		if city != "" {
			report, err = client.ByCity(cmd.Context(), city)
		} else {
			report, err = client.ByCoords(cmd.Context(), lat, lon)
		}
		sp.Stop()
		if err != nil {
			return fmt.Errorf("weather: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), components.WeatherCard(*report, width))
		return nil
	},
}

func init() {
	weatherCmd.Flags().String("city", "", "City name")
	weatherCmd.Flags().Float64("lat", 0, "Latitude")
	weatherCmd.Flags().Float64("lon", 0, "Longitude")
	weatherCmd.Flags().Int("width", 80, "Card width in columns")
}
