package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/perpdesk/perpdesk/position"
)

type PositionsHandler struct {
	positions *position.Adapter
}

func NewPositionsHandler(positions *position.Adapter) *PositionsHandler {
	return &PositionsHandler{positions}
}

type openPositionRequest struct {
	Coin     string `json:"coin"`
	Side     string `json:"side"`
	Leverage int64  `json:"leverage"`
}

// Handles POST /positions.
func (h *PositionsHandler) OpenPosition(c fiber.Ctx) error {
	var req openPositionRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	side := strings.ToLower(req.Side)
	if req.Coin == "" || (side != "long" && side != "short") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "coin and side (long or short) are required",
		})
	}

	log.Info().
		Str("coin", req.Coin).
		Str("side", side).
		Int64("leverage", req.Leverage).
		Msg("position open requested")

	result := h.positions.Open(c.Context(), position.OpenParams{
		Coin:     strings.ToUpper(req.Coin),
		IsLong:   side == "long",
		Leverage: req.Leverage,
	})
	if result.Fault != nil {
		return respondFault(c, result.Fault)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// Handles DELETE /positions/:coin.
func (h *PositionsHandler) ClosePosition(c fiber.Ctx) error {
	coin := strings.ToUpper(c.Params("coin"))

	if coin == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "coin parameter is required",
		})
	}

	log.Info().Str("coin", coin).Msg("position close requested")

	result := h.positions.Close(c.Context(), coin)
	if result.Fault != nil {
		return respondFault(c, result.Fault)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
