package api

import (
	"errors"
	"math"

	"github.com/gofiber/fiber/v2"
	"gpufutures.com/internal/domain"
)

// Pagination metadata.
type Pagination struct {
	Page      int   `json:"Page"`
	PageSize  int   `json:"PageSize"`
	Total     int64 `json:"Total"`
	TotalPage int   `json:"TotalPage"`
}

// ListResponse is the uniform paged list envelope.
type ListResponse struct {
	Data       interface{} `json:"Data"`
	Pagination Pagination  `json:"Pagination"`
}

// SendPaginatedResponse sends the standard paged envelope.
func SendPaginatedResponse(c *fiber.Ctx, data interface{}, page, pageSize int, total int64) error {
	totalPage := 0
	if pageSize > 0 {
		totalPage = int(math.Ceil(float64(total) / float64(pageSize)))
	}

	return c.JSON(ListResponse{
		Data: data,
		Pagination: Pagination{
			Page:      page,
			PageSize:  pageSize,
			Total:     total,
			TotalPage: totalPage,
		},
	})
}

// handleError maps domain rejections onto HTTP statuses. Every
// rejection carries its specific reason in the body; nothing degrades
// silently.
func handleError(c *fiber.Ctx, err error) error {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Code).JSON(fiber.Map{"Error": appErr.Message})
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInsufficientCollateral):
		status = fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotOrderOwner),
		errors.Is(err, domain.ErrNotAdministrator):
		status = fiber.StatusForbidden
	case errors.Is(err, domain.ErrUnknownOrder),
		errors.Is(err, domain.ErrUnknownContract),
		errors.Is(err, domain.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, domain.ErrOrderNotOpen),
		errors.Is(err, domain.ErrContractNotExpired),
		errors.Is(err, domain.ErrContractNotOverdue),
		errors.Is(err, domain.ErrAlreadySettled),
		errors.Is(err, domain.ErrAlreadyExists):
		status = fiber.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	}
	return c.Status(status).JSON(fiber.Map{"Error": err.Error()})
}

// callerIdentity reads the authenticated username the middleware
// stored on the request.
func callerIdentity(c *fiber.Ctx) string {
	username, _ := c.Locals("username").(string)
	return username
}
