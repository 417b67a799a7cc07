package handlers

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/perpdesk/perpdesk/deposit"
)

type DepositsHandler struct {
	deposits  *deposit.Adapter
	isMainnet bool
}

func NewDepositsHandler(deposits *deposit.Adapter, isMainnet bool) *DepositsHandler {
	return &DepositsHandler{deposits, isMainnet}
}

// Handles POST /deposits.
func (h *DepositsHandler) CreateDeposit(c fiber.Ctx) error {
	var params deposit.Params
	if err := c.Bind().Body(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	params.IsMainnet = h.isMainnet

	log.Info().
		Str("venue", params.Venue).
		Str("amount", params.Amount).
		Uint64("sourceChainId", params.SourceChainID).
		Msg("deposit requested")

	result := h.deposits.Deposit(c.Context(), params)
	if result.Fault != nil {
		return respondFault(c, result.Fault)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
