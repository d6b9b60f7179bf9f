package respond

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// PathID reads the :id path parameter as a positive integer. On failure it
// answers 400 and reports false.
func PathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		Error(c, http.StatusBadRequest, "invalid_id", "Invalid id", nil)
		return 0, false
	}
	return id, true
}
