package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edufarma/edufarma/internal/cache"
	"github.com/edufarma/edufarma/internal/diagnosis"
	"github.com/edufarma/edufarma/internal/logger"
)

// DefaultBaseURL is the MyMemory translation API root.
const DefaultBaseURL = "https://api.mymemory.translated.net"

// ErrUnsupportedTarget is returned for target languages other than Hindi
// and English.
var ErrUnsupportedTarget = errors.New("translate: unsupported target language")

// Config holds translation client settings.
type Config struct {
	BaseURL string

	// Email raises MyMemory's anonymous daily quota when set.
	Email       string
	Timeout     time.Duration
	CacheTTL    time.Duration
	Concurrency int
}

// DefaultConfig returns defaults for the public MyMemory endpoint.
func DefaultConfig() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		Timeout:     10 * time.Second,
		CacheTTL:    24 * time.Hour,
		Concurrency: 4,
	}
}

// ConfigFromEnv reads EDUFARMA_TRANSLATE_URL and MYMEMORY_EMAIL.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if u := strings.TrimSpace(os.Getenv("EDUFARMA_TRANSLATE_URL")); u != "" {
		cfg.BaseURL = u
	}
	cfg.Email = strings.TrimSpace(os.Getenv("MYMEMORY_EMAIL"))
	return cfg
}

// Client translates diagnosis text. It is safe for concurrent use.
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
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
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

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus  json.Number `json:"responseStatus"`
	ResponseDetails string      `json:"responseDetails"`
}

// Text translates one string from English to target.
func (c *Client) Text(ctx context.Context, text string, target diagnosis.Language) (string, error) {
	if target != diagnosis.LanguageHindi && target != diagnosis.LanguageEnglish {
		return "", ErrUnsupportedTarget
	}
	if target == diagnosis.LanguageEnglish || strings.TrimSpace(text) == "" {
		return text, nil
	}

	langpair := "en|" + string(target)
	cacheKey := "translate:" + langpair + ":" + text
	if c.cache != nil {
		if b, err := c.cache.Get(ctx, cacheKey); err == nil {
			return string(b), nil
		} else if !errors.Is(err, cache.ErrMiss) {
			c.log.Warn("translation cache read failed", "error", err)
		}
	}

	params := url.Values{"q": {text}, "langpair": {langpair}}
	if c.cfg.Email != "" {
		params.Set("de", c.cfg.Email)
	}
	u := strings.TrimRight(c.cfg.BaseURL, "/") + "/get?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("build translate request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate request: status %d", resp.StatusCode)
	}

	var out myMemoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode translate response: %w", err)
	}
	if s := out.ResponseStatus.String(); s != "" && s != "200" {
		return "", fmt.Errorf("translate: provider status %s: %s", s, out.ResponseDetails)
	}
	translated := out.ResponseData.TranslatedText
	if translated == "" {
		return "", fmt.Errorf("translate: empty translation")
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, []byte(translated), c.cfg.CacheTTL); err != nil {
			c.log.Warn("translation cache write failed", "error", err)
		}
	}
	return translated, nil
}

// Diagnosis translates every field of d, treatment steps included, keeping
// their order. Any failed field fails the whole translation.
func (c *Client) Diagnosis(ctx context.Context, d diagnosis.DiagnosisResult, target diagnosis.Language) (*diagnosis.DiagnosisResult, error) {
	out := diagnosis.DiagnosisResult{Treatment: make([]string, len(d.Treatment))}

	type job struct {
		src string
		dst *string
	}
	jobs := []job{
		{d.Disease, &out.Disease},
		{d.Severity, &out.Severity},
		{d.Description, &out.Description},
		{d.Cause, &out.Cause},
	}
	for i, step := range d.Treatment {
		jobs = append(jobs, job{step, &out.Treatment[i]})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for _, j := range jobs {
		g.Go(func() error {
			s, err := c.Text(gctx, j.src, target)
			if err != nil {
				return err
			}
			*j.dst = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
