package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/courtlink/playerfinder/pkg/response"
)

// Health reports service liveness and database reachability.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		dbStatus := "ok"

		if db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
				status = "degraded"
				dbStatus = "unreachable"
			}
		}

		response.Success(c, http.StatusOK, gin.H{
			"status":   status,
			"database": dbStatus,
		})
	}
}
