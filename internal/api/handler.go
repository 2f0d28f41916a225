package api

import (
	"context"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nap4595/CustomPlaceDB/internal/exchange"
	"github.com/nap4595/CustomPlaceDB/internal/extractor"
	"github.com/nap4595/CustomPlaceDB/internal/fetchproxy"
	"github.com/nap4595/CustomPlaceDB/internal/prefs"
	"github.com/nap4595/CustomPlaceDB/internal/store"
	"github.com/nap4595/CustomPlaceDB/pkg/logger"
)

const fetchTimeout = 90 * time.Second

type FetchRequest struct {
	URL string `json:"url" query:"url"`
}

type FetchResponse struct {
	URL         string `json:"url"`
	Success     bool   `json:"success"`
	HTML        string `json:"html,omitempty"`
	HTMLLength  int    `json:"html_length"`
	Error       string `json:"error,omitempty"`
	FetchTimeMs int64  `json:"fetch_time_ms"`
}

// Handler serves the background HTTP API: the fetch proxy the view
// agents call around site CORS rules, plus data and preference access.
type Handler struct {
	proxy   fetchproxy.Proxy
	factory *extractor.Factory
	store   *store.Store
	prefs   *prefs.Prefs
}

func New(proxy fetchproxy.Proxy, factory *extractor.Factory, st *store.Store, pr *prefs.Prefs) *Handler {
	return &Handler{proxy: proxy, factory: factory, store: st, prefs: pr}
}

func (h *Handler) SetupRoutes(app *fiber.App) {
	app.Get("/api/fetch", h.handleFetch)
	app.Post("/api/fetch", h.handleFetch)
	app.Get("/api/place", h.handlePlace)
	app.Get("/api/lists", h.handleLists)
	app.Get("/api/stats", h.handleStats)
	app.Get("/api/theme", h.handleGetTheme)
	app.Put("/api/theme", h.handleSetTheme)
	app.Get("/api/export", h.handleExportJSON)
	app.Get("/api/export.csv", h.handleExportCSV)
	app.Post("/api/import", h.handleImport)
	app.Get("/health", h.handleHealth)
}

func (h *Handler) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handler) handleFetch(c *fiber.Ctx) error {
	log := logger.Log

	var req FetchRequest
	if c.Method() == fiber.MethodPost {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	} else {
		req.URL = c.Query("url")
	}

	if req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url is required"})
	}

	log.Info().Str("url", req.URL).Msg("fetch request received")

	ctx, cancel := context.WithTimeout(c.Context(), fetchTimeout)
	defer cancel()

	start := time.Now()
	result, err := h.proxy.Fetch(ctx, req.URL)
	elapsed := time.Since(start)

	if err != nil {
		log.Error().Err(err).Str("url", req.URL).Msg("fetch failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":         err.Error(),
			"url":           req.URL,
			"fetch_time_ms": elapsed.Milliseconds(),
		})
	}

	resp := FetchResponse{
		URL:         req.URL,
		Success:     result.Success,
		HTML:        result.Data,
		HTMLLength:  len(result.Data),
		Error:       result.Error,
		FetchTimeMs: elapsed.Milliseconds(),
	}

	log.Info().
		Str("url", req.URL).
		Bool("success", result.Success).
		Int("html_len", len(result.Data)).
		Int64("time_ms", elapsed.Milliseconds()).
		Msg("fetch completed")

	return c.JSON(resp)
}

func (h *Handler) handlePlace(c *fiber.Ctx) error {
	raw := c.Query("url")
	if raw == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url is required"})
	}
	u, err := url.Parse(raw)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid url"})
	}

	page := extractor.Page{URL: u}
	ex, err := h.factory.ForPage(page)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Context(), fetchTimeout)
	defer cancel()

	place, err := ex.Extract(ctx, page)
	if err != nil {
		logger.Log.Error().Err(err).Str("url", raw).Msg("extraction failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	if place == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no place on this page"})
	}
	return c.JSON(place)
}

func (h *Handler) handleLists(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"lists":         h.store.Lists(),
		"currentListId": h.store.CurrentListID(),
	})
}

func (h *Handler) handleStats(c *fiber.Ctx) error {
	return c.JSON(h.store.Stats())
}

func (h *Handler) handleGetTheme(c *fiber.Ctx) error {
	theme := h.prefs.Theme(c.Context())
	return c.JSON(fiber.Map{
		"theme":  theme,
		"colors": prefs.ThemeColors(theme),
		"themes": prefs.Themes(),
	})
}

func (h *Handler) handleSetTheme(c *fiber.Ctx) error {
	var req struct {
		Theme string `json:"theme"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.prefs.SetTheme(c.Context(), req.Theme); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"theme": req.Theme})
}

func (h *Handler) handleExportJSON(c *fiber.Ctx) error {
	data, err := exchange.ExportJSON(h.store.Lists())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="customplacedb-backup.json"`)
	return c.Send(data)
}

func (h *Handler) handleExportCSV(c *fiber.Ctx) error {
	data, err := exchange.ExportCSV(h.store.Lists())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="customplacedb-export.csv"`)
	return c.Send(data)
}

func (h *Handler) handleImport(c *fiber.Ctx) error {
	mode := c.Query("mode", "merge")
	if mode != "merge" && mode != "replace" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "mode must be merge or replace"})
	}

	incoming, err := exchange.ImportJSON(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result := incoming
	if mode == "merge" {
		result = exchange.Merge(h.store.Lists(), incoming)
	}
	if err := h.store.ReplaceAll(c.Context(), result); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	logger.Log.Info().Str("mode", mode).Int("lists", result.Len()).Msg("import applied")
	return c.JSON(fiber.Map{"mode": mode, "lists": result.Len()})
}
