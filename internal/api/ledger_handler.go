package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"gpufutures.com/internal/domain"
)

// LedgerHandler exposes the escrow and token-ledger glue endpoints.
type LedgerHandler struct {
	ledgerSvc domain.LedgerService
}

func NewLedgerHandler(ledgerSvc domain.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

type AmountRequest struct {
	Amount int64 `json:"Amount"`
}

type MintRequest struct {
	To     string `json:"To"`
	Amount int64  `json:"Amount"`
}

// Deposit credits the caller's native escrow balance.
// POST /api/ledger/deposit
func (h *LedgerHandler) Deposit(c *fiber.Ctx) error {
	var req AmountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Invalid request body"})
	}
	if err := h.ledgerSvc.Deposit(context.Background(), callerIdentity(c), req.Amount); err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"Message": "Deposit credited"})
}

// Withdraw debits the caller's free native escrow balance.
// POST /api/ledger/withdraw
func (h *LedgerHandler) Withdraw(c *fiber.Ctx) error {
	var req AmountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Invalid request body"})
	}
	if err := h.ledgerSvc.Withdraw(context.Background(), callerIdentity(c), req.Amount); err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"Message": "Withdrawal debited"})
}

// ApproveVault sets the vault's allowance on the caller's tokens.
// POST /api/ledger/approve
func (h *LedgerHandler) ApproveVault(c *fiber.Ctx) error {
	var req AmountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Invalid request body"})
	}
	if err := h.ledgerSvc.ApproveVault(context.Background(), callerIdentity(c), req.Amount); err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"Message": "Allowance set"})
}

// MintTokens issues compute-hour tokens to an account. Admin only.
// POST /api/ledger/mint
func (h *LedgerHandler) MintTokens(c *fiber.Ctx) error {
	var req MintRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Invalid request body"})
	}
	if req.To == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "To is required"})
	}
	if err := h.ledgerSvc.MintTokens(context.Background(), callerIdentity(c), req.To, req.Amount); err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"Message": "Tokens minted"})
}

// Balances returns an account's free native and token balances.
// GET /api/users/:userID/balances
func (h *LedgerHandler) Balances(c *fiber.Ctx) error {
	account := c.Params("userID")
	if account == "" {
		account = callerIdentity(c)
	}

	native, tokens, err := h.ledgerSvc.Balances(context.Background(), account)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{
		"Account": account,
		"Native":  native,
		"Tokens":  tokens,
	})
}
