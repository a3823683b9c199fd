package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// contextObjectKey holds the detail object loaded from the :id path parameter.
var contextObjectKey = "object"

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// studentMiddleware only lets through accounts linked to a student record and stores its id in the context.
func studentMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if !claims.IsStudent || claims.StudentID == nil {
				return errHttpForbidden
			}
			ctx.Set(contextStudentKey, *claims.StudentID)
			return next(ctx)
		}
	}
}

// objectMiddleware loads the object named by the :id path parameter and stores it in the context.
// Malformed ids are reported as not found.
func objectMiddleware(load func(ctx echo.Context, id int) (interface{}, error)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := paramID(ctx)
			if err != nil {
				return err
			}
			obj, err := load(ctx, id)
			if err != nil {
				return err
			}
			ctx.Set(contextObjectKey, obj)
			return next(ctx)
		}
	}
}

func paramID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// queryID reads an id filter from the query string. Missing or malformed values mean no filter.
func queryID(ctx echo.Context, name string) int {
	id, err := strconv.Atoi(ctx.QueryParam(name))
	if err != nil || id < 0 {
		return 0
	}
	return id
}
