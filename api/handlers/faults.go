package handlers

import (
	"github.com/gofiber/fiber/v3"

	"github.com/perpdesk/perpdesk/fault"
)

func statusForFault(f *fault.Fault) int {
	switch f.Kind {
	case fault.WalletNotConnected, fault.UserRejectedSignature:
		return fiber.StatusUnauthorized
	case fault.BelowMinimumAmount, fault.UnsupportedToken, fault.InvalidOrderParams, fault.WrongNetwork:
		return fiber.StatusBadRequest
	case fault.InsufficientBalance:
		return fiber.StatusPaymentRequired
	case fault.ContractPaused:
		return fiber.StatusServiceUnavailable
	case fault.ExecutionReverted, fault.ExchangeRejectedOrder:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func respondFault(c fiber.Ctx, f *fault.Fault) error {
	return c.Status(statusForFault(f)).JSON(fiber.Map{
		"error": f.Message,
		"kind":  string(f.Kind),
	})
}
