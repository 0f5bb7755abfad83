package dashboard

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"questboard/internal/quest"
	"questboard/internal/store"
)

// registerRoutes sets up all dashboard API routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB) {
	api := router.Group("/api")

	api.GET("/health", handleHealth(db))
	api.GET("/overview", handleOverview(db))
	api.GET("/quests", handleQuestList(db))
	api.GET("/quests/:id", handleQuestDetail(db))
	api.GET("/records", handleRecordList(db))
	api.GET("/summaries", handleSummaryList(db))
	api.GET("/failures", handleFailureList(db))
}

func handleHealth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func handleOverview(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ov, err := BuildOverview(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, ov)
	}
}

func handleQuestList(db *gorm.DB) gin.HandlerFunc {
	quests := store.Quests{DB: db}
	return func(c *gin.Context) {
		list, err := quests.List(c.Query("status"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"quests": list})
	}
}

func handleQuestDetail(db *gorm.DB) gin.HandlerFunc {
	quests := store.Quests{DB: db}
	return func(c *gin.Context) {
		q, err := quests.Get(c.Param("id"))
		if err != nil {
			var notFound *quest.NotFoundError
			if errors.As(err, &notFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, q)
	}
}

func handleRecordList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := ListRecords(db, c.Query("status"), queryLimit(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": rows})
	}
}

func handleSummaryList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := ListSummaries(db, c.Query("status"), queryLimit(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"summaries": rows})
	}
}

func handleFailureList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := ListFailures(db, c.Query("kind"), queryLimit(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"failures": rows})
	}
}

// queryLimit parses the optional ?limit= query parameter.
func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return limit
}
