package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/perpdesk/perpdesk/exchanges/hyperliquid"
)

type PricesHandler struct {
	mids *hyperliquid.MidsStream
}

func NewPricesHandler(mids *hyperliquid.MidsStream) *PricesHandler {
	return &PricesHandler{mids}
}

// Handles GET /prices/:coin, served from the websocket mid cache.
func (h *PricesHandler) GetMid(c fiber.Ctx) error {
	coin := strings.ToUpper(c.Params("coin"))

	if h.mids == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "price stream is not enabled",
		})
	}

	mid, ok := h.mids.Mid(coin)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no mid received for coin yet",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"coin": coin,
		"mid":  mid,
	})
}
