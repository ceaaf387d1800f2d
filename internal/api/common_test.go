package api

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpufutures.com/internal/domain"
)

func TestHandleErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid input", domain.ErrInvalidInput, fiber.StatusBadRequest},
		{"insufficient collateral", domain.ErrInsufficientCollateral, fiber.StatusBadRequest},
		{"not order owner", domain.ErrNotOrderOwner, fiber.StatusForbidden},
		{"not administrator", domain.ErrNotAdministrator, fiber.StatusForbidden},
		{"unknown order", domain.ErrUnknownOrder, fiber.StatusNotFound},
		{"unknown contract", domain.ErrUnknownContract, fiber.StatusNotFound},
		{"order not open", domain.ErrOrderNotOpen, fiber.StatusConflict},
		{"not expired", domain.ErrContractNotExpired, fiber.StatusConflict},
		{"not overdue", domain.ErrContractNotOverdue, fiber.StatusConflict},
		{"already settled", domain.ErrAlreadySettled, fiber.StatusConflict},
		{"unauthorized", domain.ErrUnauthorized, fiber.StatusUnauthorized},
		{"app error passthrough", domain.NewNotFoundError("no such thing"), fiber.StatusNotFound},
		{"unknown error", assert.AnError, fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/boom", func(c *fiber.Ctx) error {
				return handleError(c, tc.err)
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestPageParams(t *testing.T) {
	cases := []struct {
		name     string
		url      string
		page     int
		pageSize int
	}{
		{"defaults", "/list", 1, 50},
		{"explicit", "/list?page=3&pageSize=10", 3, 10},
		{"zero page clamps", "/list?page=0", 1, 50},
		{"oversized page size clamps", "/list?pageSize=5000", 1, 50},
		{"garbage falls back", "/list?page=abc&pageSize=xyz", 1, 50},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var page, pageSize int
			app := fiber.New()
			app.Get("/list", func(c *fiber.Ctx) error {
				page, pageSize = pageParams(c)
				return c.SendStatus(fiber.StatusOK)
			})

			_, err := app.Test(httptest.NewRequest("GET", tc.url, nil))
			require.NoError(t, err)
			assert.Equal(t, tc.page, page)
			assert.Equal(t, tc.pageSize, pageSize)
		})
	}
}
