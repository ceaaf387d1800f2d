package api

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gpufutures.com/internal/domain"
	"gpufutures.com/internal/model"
)

// FuturesHandler exposes the order, contract and parameter operations.
type FuturesHandler struct {
	futuresSvc domain.FuturesService
}

func NewFuturesHandler(futuresSvc domain.FuturesService) *FuturesHandler {
	return &FuturesHandler{futuresSvc: futuresSvc}
}

// OrderRequest is the order submission payload. Collateral is the
// native value accompanying a buy order; sell orders draw on the
// trader's token allowance instead.
type OrderRequest struct {
	Side           model.OrderSide `json:"Side"`
	Price          int64           `json:"Price"`
	Quantity       int64           `json:"Quantity"`
	ExpirationUnix int64           `json:"ExpirationUnix"`
	Collateral     int64           `json:"Collateral"`
}

// CreateOrder submits an order.
// POST /api/futures/orders
func (h *FuturesHandler) CreateOrder(c *fiber.Ctx) error {
	var req OrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Invalid request body"})
	}

	order, contract, err := h.futuresSvc.CreateOrder(context.Background(), domain.CreateOrderInput{
		Trader:         callerIdentity(c),
		Side:           req.Side,
		Price:          req.Price,
		Quantity:       req.Quantity,
		ExpirationUnix: req.ExpirationUnix,
		Collateral:     req.Collateral,
	})
	if err != nil {
		return handleError(c, err)
	}

	resp := fiber.Map{"Order": order}
	if contract != nil {
		resp["Contract"] = contract
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// CancelOrder cancels an open order owned by the caller.
// POST /api/futures/orders/:id/cancel
func (h *FuturesHandler) CancelOrder(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Invalid order id"})
	}

	order, err := h.futuresSvc.CancelOrder(context.Background(), callerIdentity(c), id)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(order)
}

// SweepExpiredOrders retires stale open orders. Keeper-facing.
// POST /api/futures/orders/sweep
func (h *FuturesHandler) SweepExpiredOrders(c *fiber.Ctx) error {
	expired, err := h.futuresSvc.SweepExpiredOrders(context.Background())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"Expired": expired})
}

// GetOrder returns one order.
// GET /api/futures/orders/:id
func (h *FuturesHandler) GetOrder(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Invalid order id"})
	}

	order, err := h.futuresSvc.GetOrder(context.Background(), id)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(order)
}

// GetOpenOrders lists the open book, optionally one side.
// GET /api/futures/orders/open?side=buy
func (h *FuturesHandler) GetOpenOrders(c *fiber.Ctx) error {
	ctx := context.Background()
	side := model.OrderSide(c.Query("side"))

	if side == model.SideBuy || side == model.SideSell {
		orders, err := h.futuresSvc.GetOpenOrders(ctx, side)
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(orders)
	}

	buys, err := h.futuresSvc.GetOpenOrders(ctx, model.SideBuy)
	if err != nil {
		return handleError(c, err)
	}
	sells, err := h.futuresSvc.GetOpenOrders(ctx, model.SideSell)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"Buy": buys, "Sell": sells})
}

// GetContract returns one futures contract.
// GET /api/futures/contracts/:id
func (h *FuturesHandler) GetContract(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Invalid contract id"})
	}

	contract, err := h.futuresSvc.GetContract(context.Background(), id)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(contract)
}

// SettleContract settles an expired contract. Anyone may call it:
// either counterparty or a third-party keeper forcing settlement.
// POST /api/futures/contracts/:id/settle
func (h *FuturesHandler) SettleContract(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Invalid contract id"})
	}

	contract, err := h.futuresSvc.SettleContract(context.Background(), callerIdentity(c), id)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(contract)
}

// Liquidate force-closes an overdue contract.
// POST /api/futures/contracts/:id/liquidate
func (h *FuturesHandler) Liquidate(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Invalid contract id"})
	}

	contract, err := h.futuresSvc.Liquidate(context.Background(), callerIdentity(c), id)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(contract)
}

// GetUserOrders lists a trader's orders.
// GET /api/users/:userID/orders
func (h *FuturesHandler) GetUserOrders(c *fiber.Ctx) error {
	trader := c.Params("userID")
	page, pageSize := pageParams(c)

	orders, total, err := h.futuresSvc.GetUserOrders(context.Background(), trader, page, pageSize)
	if err != nil {
		return handleError(c, err)
	}
	return SendPaginatedResponse(c, orders, page, pageSize, total)
}

// GetUserContracts lists the contracts a trader is party to.
// GET /api/users/:userID/contracts
func (h *FuturesHandler) GetUserContracts(c *fiber.Ctx) error {
	trader := c.Params("userID")
	page, pageSize := pageParams(c)

	contracts, total, err := h.futuresSvc.GetUserContracts(context.Background(), trader, page, pageSize)
	if err != nil {
		return handleError(c, err)
	}
	return SendPaginatedResponse(c, contracts, page, pageSize, total)
}

// GetParameters returns the risk parameters in effect.
// GET /api/futures/params
func (h *FuturesHandler) GetParameters(c *fiber.Ctx) error {
	params, err := h.futuresSvc.GetParameters(context.Background())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(params)
}

// ParameterRequest carries a percent value for a parameter update.
type ParameterRequest struct {
	Percent int64 `json:"Percent"`
}

// UpdateCollateralRequirement sets the collateral ratio. Admin only.
// PUT /api/futures/params/collateral
func (h *FuturesHandler) UpdateCollateralRequirement(c *fiber.Ctx) error {
	return h.updateParameter(c, h.futuresSvc.UpdateCollateralRequirement)
}

// UpdateLiquidationThreshold sets the liquidation threshold. Admin only.
// PUT /api/futures/params/liquidation
func (h *FuturesHandler) UpdateLiquidationThreshold(c *fiber.Ctx) error {
	return h.updateParameter(c, h.futuresSvc.UpdateLiquidationThreshold)
}

// UpdatePlatformFee sets the settlement fee. Admin only.
// PUT /api/futures/params/fee
func (h *FuturesHandler) UpdatePlatformFee(c *fiber.Ctx) error {
	return h.updateParameter(c, h.futuresSvc.UpdatePlatformFee)
}

// GetStats returns engine counters.
// GET /api/futures/stats
func (h *FuturesHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.futuresSvc.GetStats(context.Background())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stats)
}

func (h *FuturesHandler) updateParameter(c *fiber.Ctx, update func(context.Context, string, int64) error) error {
	var req ParameterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Invalid request body"})
	}
	if err := update(context.Background(), callerIdentity(c), req.Percent); err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"Message": "Parameter updated"})
}

func pageParams(c *fiber.Ctx) (int, int) {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize", "50"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}
	return page, pageSize
}
