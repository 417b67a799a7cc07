package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/perpdesk/perpdesk/bridge"
)

type BalancesHandler struct {
	bridge *bridge.Client
}

func NewBalancesHandler(bridgeClient *bridge.Client) *BalancesHandler {
	return &BalancesHandler{bridgeClient}
}

// Handles GET /balances/:address.
func (h *BalancesHandler) GetBalances(c fiber.Ctx) error {
	address := c.Params("address")

	if !strings.HasPrefix(address, "0x") || len(address) != 42 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "address must be a 0x-prefixed 20-byte hex string",
		})
	}

	if h.bridge == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "balance aggregator is not configured",
		})
	}

	balances, err := h.bridge.UnifiedBalances(c.Context(), address)
	if err != nil {
		log.Error().Err(err).Str("address", address).Msg("unified balance lookup failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "balance aggregator unavailable",
		})
	}

	return c.Status(fiber.StatusOK).JSON(balances)
}
