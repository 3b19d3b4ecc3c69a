package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/karmalog/internal/db"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

// queryDate 读取日期查询参数，缺省时回退到今天
func queryDate(c *gin.Context, key string) string {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return time.Now().In(time.Local).Format(db.DateFormat)
	}
	return value
}
