package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edufarma/edufarma/internal/cache"
	"github.com/edufarma/edufarma/internal/logger"
)

// DefaultBaseURL is the OpenWeatherMap API root.
const DefaultBaseURL = "https://api.openweathermap.org"

// HeatThresholdC is the temperature above which a heat alert is raised.
const HeatThresholdC = 35.0

// entriesPerDay is how many 3-hour forecast entries make up one day.
const entriesPerDay = 8

var (
	// ErrMissingAPIKey is returned when no OpenWeatherMap key is configured.
	ErrMissingAPIKey = errors.New("weather: OPENWEATHER_API_KEY not set")
	// ErrLocationNotFound is returned when the provider does not know the place.
	ErrLocationNotFound = errors.New("weather: location not found")
)

// Config holds the OpenWeatherMap client settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// DefaultConfig returns defaults with no API key.
func DefaultConfig() Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		Timeout:  10 * time.Second,
		CacheTTL: 10 * time.Minute,
	}
}

// ConfigFromEnv reads OPENWEATHER_API_KEY and EDUFARMA_WEATHER_URL.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.APIKey = strings.TrimSpace(os.Getenv("OPENWEATHER_API_KEY"))
	if u := strings.TrimSpace(os.Getenv("EDUFARMA_WEATHER_URL")); u != "" {
		cfg.BaseURL = u
	}
	return cfg
}

// Conditions is the weather at one point in time.
type Conditions struct {
	Time        time.Time `json:"time"`
	TempC       float64   `json:"temp_c"`
	Humidity    int       `json:"humidity"`
	WindSpeed   float64   `json:"wind_speed"`
	Condition   string    `json:"condition"`
	Description string    `json:"description"`
}

// Alert is a farming advisory derived from current conditions.
type Alert struct {
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Report is the current weather, a daily forecast and advisories.
type Report struct {
	Location string       `json:"location"`
	Current  Conditions   `json:"current"`
	Daily    []Conditions `json:"daily"`
	Alerts   []Alert      `json:"alerts"`
}

// Alerts returns the advisories for the given conditions.
func Alerts(c Conditions) []Alert {
	alerts := []Alert{}
	if c.TempC > HeatThresholdC {
		alerts = append(alerts, Alert{
			Kind:    "heat",
			Title:   "Heat Alert",
			Message: "High temperature detected. Water crops in the evening.",
		})
	}
	if c.Condition == "Rain" {
		alerts = append(alerts, Alert{
			Kind:    "rain",
			Title:   "Rain Alert",
			Message: "Rain expected. Avoid spraying today.",
		})
	}
	return alerts
}

// Client fetches weather reports. It is safe for concurrent use.
type Client struct {
	cfg   Config
	http  *http.Client
	cache cache.Cache
	log   *logger.Logger
}

// NewClient creates a client. A nil cache disables caching.
func NewClient(cfg Config, c cache.Cache, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout},
		cache: c,
		log:   log,
	}
}

// ByCity returns the report for a city name.
func (c *Client) ByCity(ctx context.Context, city string) (*Report, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, fmt.Errorf("weather: city is required")
	}
	q := url.Values{"q": {city}}
	return c.report(ctx, "city:"+strings.ToLower(city), q)
}

// ByCoords returns the report for a latitude and longitude.
func (c *Client) ByCoords(ctx context.Context, lat, lon float64) (*Report, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("weather: coordinates out of range")
	}
	q := url.Values{
		"lat": {strconv.FormatFloat(lat, 'f', 4, 64)},
		"lon": {strconv.FormatFloat(lon, 'f', 4, 64)},
	}
	return c.report(ctx, fmt.Sprintf("coord:%.2f,%.2f", lat, lon), q)
}

func (c *Client) report(ctx context.Context, key string, q url.Values) (*Report, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	cacheKey := "weather:" + key
	if c.cache != nil {
		var cached Report
		if err := cache.GetJSON(ctx, c.cache, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			c.log.Warn("weather cache read failed", "key", cacheKey, "error", err)
		}
	}

	var (
		current  owmCurrent
		forecast owmForecast
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.get(gctx, "/data/2.5/weather", q, &current) })
	g.Go(func() error { return c.get(gctx, "/data/2.5/forecast", q, &forecast) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r := buildReport(current, forecast)
	if c.cache != nil {
		if err := cache.SetJSON(ctx, c.cache, cacheKey, r, c.cfg.CacheTTL); err != nil {
			c.log.Warn("weather cache write failed", "key", cacheKey, "error", err)
		}
	}
	return r, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	params := url.Values{}
	for k, v := range q {
		params[k] = v
	}
	params.Set("appid", c.cfg.APIKey)
	params.Set("units", "metric")

	u := strings.TrimRight(c.cfg.BaseURL, "/") + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build weather request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("weather request %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrLocationNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("weather request %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode weather response: %w", err)
	}
	return nil
}

type owmMain struct {
	Temp     float64 `json:"temp"`
	Humidity int     `json:"humidity"`
}

type owmWeather struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type owmEntry struct {
	Dt      int64        `json:"dt"`
	Main    owmMain      `json:"main"`
	Weather []owmWeather `json:"weather"`
	Wind    struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

type owmCurrent struct {
	owmEntry
	Name string `json:"name"`
}

type owmForecast struct {
	List []owmEntry `json:"list"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
}

func (e owmEntry) conditions() Conditions {
	c := Conditions{
		TempC:     e.Main.Temp,
		Humidity:  e.Main.Humidity,
		WindSpeed: e.Wind.Speed,
	}
	if e.Dt > 0 {
		c.Time = time.Unix(e.Dt, 0).UTC()
	}
	if len(e.Weather) > 0 {
		c.Condition = e.Weather[0].Main
		c.Description = e.Weather[0].Description
	}
	return c
}

func buildReport(current owmCurrent, forecast owmForecast) *Report {
	r := &Report{
		Location: current.Name,
		Current:  current.conditions(),
		Daily:    []Conditions{},
	}
	if r.Location == "" {
		r.Location = forecast.City.Name
	}
	for i := 0; i < len(forecast.List); i += entriesPerDay {
		r.Daily = append(r.Daily, forecast.List[i].conditions())
	}
	r.Alerts = Alerts(r.Current)
	return r
}
