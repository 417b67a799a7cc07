package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/perpdesk/perpdesk/marketdata"
)

type RatesHandler struct {
	poller *marketdata.Poller
}

func NewRatesHandler(poller *marketdata.Poller) *RatesHandler {
	return &RatesHandler{poller}
}

// Handles GET /rates.
func (h *RatesHandler) GetRates(c fiber.Ctx) error {
	snapshots, sourceErrors := h.poller.Snapshots()

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"rates":  snapshots,
		"errors": sourceErrors,
	})
}

// Handles POST /rates/refresh. Runs one fetch cycle across all sources and
// returns the refreshed cache.
func (h *RatesHandler) RefreshRates(c fiber.Ctx) error {
	log.Info().Msg("manual rate refresh requested")
	h.poller.Refresh(c.Context())

	snapshots, sourceErrors := h.poller.Snapshots()

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"rates":  snapshots,
		"errors": sourceErrors,
	})
}

// Handles GET /rates/:asset/best.
func (h *RatesHandler) GetBestRate(c fiber.Ctx) error {
	asset := strings.ToUpper(c.Params("asset"))

	if asset == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "asset parameter is required",
		})
	}

	best, ok := h.poller.BestRate(asset)

	if !ok {
		log.Warn().Str("asset", asset).Msg("no funding rate cached for asset")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "asset not available, check tracked assets",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"asset": asset,
		"best":  best,
	})
}
