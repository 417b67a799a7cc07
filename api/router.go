package api

import (
	"github.com/gofiber/fiber/v3"

	"github.com/perpdesk/perpdesk/api/handlers"
	"github.com/perpdesk/perpdesk/bridge"
	"github.com/perpdesk/perpdesk/deposit"
	"github.com/perpdesk/perpdesk/exchanges/hyperliquid"
	"github.com/perpdesk/perpdesk/marketdata"
	"github.com/perpdesk/perpdesk/position"
)

// Dependencies carries the adapters the HTTP surface exposes. Mids may be
// nil when the price stream is disabled.
type Dependencies struct {
	Poller    *marketdata.Poller
	Bridge    *bridge.Client
	Deposits  *deposit.Adapter
	Positions *position.Adapter
	Mids      *hyperliquid.MidsStream
	IsMainnet bool
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	app.Use(RequestID())

	ratesHandler := handlers.NewRatesHandler(deps.Poller)
	balancesHandler := handlers.NewBalancesHandler(deps.Bridge)
	depositsHandler := handlers.NewDepositsHandler(deps.Deposits, deps.IsMainnet)
	positionsHandler := handlers.NewPositionsHandler(deps.Positions)
	pricesHandler := handlers.NewPricesHandler(deps.Mids)

	v1 := app.Group("/v1")

	v1.Get("/rates", ratesHandler.GetRates)
	v1.Post("/rates/refresh", ratesHandler.RefreshRates)
	v1.Get("/rates/:asset/best", ratesHandler.GetBestRate)
	v1.Get("/prices/:coin", pricesHandler.GetMid)
	v1.Get("/balances/:address", balancesHandler.GetBalances)
	v1.Post("/deposits", depositsHandler.CreateDeposit)
	v1.Post("/positions", positionsHandler.OpenPosition)
	v1.Delete("/positions/:coin", positionsHandler.ClosePosition)
}
