package v1

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventpass/eventpass-api/internal/api/handler/v1/response"
	"github.com/eventpass/eventpass-api/internal/api/middleware"
	"github.com/eventpass/eventpass-api/internal/domain"
	"github.com/eventpass/eventpass-api/internal/service"
)

var errNoUserInContext = errors.New("no authenticated user in request context")

type UserFinder interface {
	GetUser(ctx context.Context, id uuid.UUID) (domain.User, error)
}

func getUserIDFromContext(ctx *gin.Context) (uuid.UUID, *response.Err) {
	id, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, response.ErrUnauthorized(errNoUserInContext)
	}

	return id, nil
}

// getUserFromContext loads the authenticated user. A token for a deleted
// account is treated as unauthorized.
func getUserFromContext(ctx *gin.Context, users UserFinder) (domain.User, *response.Err) {
	id, respErr := getUserIDFromContext(ctx)
	if respErr != nil {
		return domain.User{}, respErr
	}

	user, err := users.GetUser(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return domain.User{}, response.ErrUnauthorized(err)
		}

		return domain.User{}, response.ErrInternalServerError(fmt.Errorf("users.GetUser -> %w", err))
	}

	return user, nil
}

func parseUUIDParam(ctx *gin.Context, name string) (uuid.UUID, *response.Err) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		return uuid.Nil, response.ErrBadRequest(fmt.Errorf("%s: must be a valid UUID", name))
	}

	return id, nil
}
