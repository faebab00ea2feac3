package middleware

import (
	"errors"
	"net/http"

	"loyalty-engine/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// Error renders the last error attached to the gin context as the errutil
// JSON envelope. Handlers attach domain errors with c.Error and return.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		var be errutil.BaseError
		if errors.As(last.Err, &be) {
			c.JSON(be.Code.HTTPStatus(), be.JSON())
			return
		}

		c.JSON(http.StatusInternalServerError, errutil.BaseError{
			Code:    errutil.StatusInternal,
			Message: "internal error",
		}.JSON())
	}
}
