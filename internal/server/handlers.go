package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/edufarma/edufarma/internal/diagnosis"
	"github.com/edufarma/edufarma/internal/logger"
	"github.com/edufarma/edufarma/internal/translate"
	"github.com/edufarma/edufarma/internal/weather"
)

const requestIDHeader = "X-Request-ID"

// apiError is an error with the HTTP status and message to send.
type apiError struct {
	Status  int
	Message string
	Err     error
}

func (e *apiError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *apiError) Unwrap() error { return e.Err }

func respondError(c *gin.Context, err *apiError) {
	c.AbortWithStatusJSON(err.Status, gin.H{"message": err.Message})
}

type handlers struct {
	deps Deps
	log  *logger.Logger
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "model": h.deps.ModelID})
}

type diagnoseRequest struct {
	Symptoms *string `json:"symptoms"`
	Language any     `json:"language"`
}

func (h *handlers) diagnose(c *gin.Context) {
	var req diagnoseRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Symptoms == nil || strings.TrimSpace(*req.Symptoms) == "" {
		respondError(c, &apiError{Status: http.StatusBadRequest, Message: "Symptoms text is required", Err: err})
		return
	}
	lang, _ := req.Language.(string)

	ctx := diagnosis.WithRequestID(c.Request.Context(), c.GetString(requestIDHeader))
	out, err := h.deps.Diagnoser.Run(ctx, diagnosis.SymptomReport{
		Symptoms: *req.Symptoms,
		Language: diagnosis.ParseLanguage(lang),
	})
	if err != nil {
		h.log.Error("diagnosis failed", "request_id", c.GetString(requestIDHeader), "error", err)
		respondError(c, &apiError{Status: http.StatusInternalServerError, Message: "AI diagnosis failed", Err: err})
		return
	}
	c.JSON(http.StatusOK, out.Result)
}

func (h *handlers) weather(c *gin.Context) {
	var (
		report *weather.Report
		err    error
	)
	city := strings.TrimSpace(c.Query("city"))
	latStr, lonStr := c.Query("lat"), c.Query("lon")

	switch {
	case city != "":
		report, err = h.deps.Weather.ByCity(c.Request.Context(), city)
	case latStr != "" && lonStr != "":
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lon, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr != nil || lonErr != nil {
			respondError(c, &apiError{Status: http.StatusBadRequest, Message: "lat and lon must be numbers"})
			return
		}
		report, err = h.deps.Weather.ByCoords(c.Request.Context(), lat, lon)
	default:
		respondError(c, &apiError{Status: http.StatusBadRequest, Message: "city or lat/lon is required"})
		return
	}

	if err != nil {
		apiErr := &apiError{Status: http.StatusBadGateway, Message: "Failed to fetch weather", Err: err}
		switch {
		case errors.Is(err, weather.ErrLocationNotFound):
			apiErr.Status, apiErr.Message = http.StatusNotFound, "Location not found"
		case errors.Is(err, weather.ErrMissingAPIKey):
			apiErr.Status, apiErr.Message = http.StatusServiceUnavailable, "Weather service not configured"
		}
		h.log.Warn("weather lookup failed", "city", city, "error", err)
		respondError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, report)
}

type translateRequest struct {
	Diagnosis *diagnosis.DiagnosisResult `json:"diagnosis"`
	Target    string                     `json:"target"`
}

func (h *handlers) translate(c *gin.Context) {
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Diagnosis == nil {
		respondError(c, &apiError{Status: http.StatusBadRequest, Message: "Diagnosis is required", Err: err})
		return
	}
	target := diagnosis.LanguageHindi
	if t := strings.TrimSpace(req.Target); t != "" {
		target = diagnosis.Language(strings.ToLower(t))
	}

	out, err := h.deps.Translator.Diagnosis(c.Request.Context(), *req.Diagnosis, target)
	if err != nil {
		if errors.Is(err, translate.ErrUnsupportedTarget) {
			respondError(c, &apiError{Status: http.StatusBadRequest, Message: "Unsupported target language", Err: err})
			return
		}
		h.log.Warn("translation failed", "target", target, "error", err)
		respondError(c, &apiError{Status: http.StatusBadGateway, Message: "Translation failed", Err: err})
		return
	}
	c.JSON(http.StatusOK, out)
}

// requestID propagates or assigns an X-Request-ID.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString(requestIDHeader),
		)
	}
}
