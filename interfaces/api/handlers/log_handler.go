package handlers

import (
	"crypto/subtle"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"smart-gallery/pkg/logger"
	"smart-gallery/pkg/utils"
)

// LogHandler handles log-related API requests
type LogHandler struct {
	adminToken string
}

// NewLogHandler creates a new log handler. adminToken is compared against X-Admin-Token.
func NewLogHandler(adminToken string) *LogHandler {
	return &LogHandler{adminToken: adminToken}
}

// RequireAdminToken rejects requests without the log access token in the X-Admin-Token header
// or ?token= query.
func (h *LogHandler) RequireAdminToken(c *fiber.Ctx) error {
	token := c.Get("X-Admin-Token")
	if token == "" {
		token = c.Query("token")
	}
	if h.adminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
		return utils.UnauthorizedResponse(c, "Invalid admin token")
	}
	return c.Next()
}

// GetLogs returns log entries
// @Summary Get application logs
// @Tags Admin
// @Security AdminToken
// @Param lines query int false "Number of lines" default(100)
// @Param level query string false "Filter by level (DEBUG, INFO, WARN, ERROR)"
// @Param category query string false "Filter by category (auth, api, enrichment, vision, import, storage, scheduler)"
// @Param search query string false "Search in message/action"
// @Success 200 {object} utils.Response
// @Router /api/v1/admin/logs [get]
func (h *LogHandler) GetLogs(c *fiber.Ctx) error {
	opts := logger.ReadLogsOptions{
		Lines:    c.QueryInt("lines", 100),
		Level:    logger.Level(c.Query("level")),
		Category: logger.Category(c.Query("category")),
		Search:   c.Query("search"),
	}

	entries, err := logger.ReadLogs(opts)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read logs", err)
	}

	return utils.SuccessResponse(c, "Logs retrieved", fiber.Map{
		"entries": entries,
		"count":   len(entries),
		"filters": fiber.Map{
			"lines":    opts.Lines,
			"level":    opts.Level,
			"category": opts.Category,
			"search":   opts.Search,
		},
	})
}

// GetLogStats returns log statistics
// @Summary Get log statistics
// @Tags Admin
// @Security AdminToken
// @Success 200 {object} utils.Response
// @Router /api/v1/admin/logs/stats [get]
func (h *LogHandler) GetLogStats(c *fiber.Ctx) error {
	allLogs, _ := logger.ReadLogs(logger.ReadLogsOptions{Lines: 1000})

	levelCounts := map[logger.Level]int{
		logger.LevelDebug: 0,
		logger.LevelInfo:  0,
		logger.LevelWarn:  0,
		logger.LevelError: 0,
	}
	categoryCounts := make(map[logger.Category]int)
	for _, entry := range allLogs {
		levelCounts[entry.Level]++
		categoryCounts[entry.Category]++
	}

	var totalSize int64
	var totalFiles int
	if files, err := os.ReadDir(logger.GetLogDir()); err == nil {
		for _, f := range files {
			if f.IsDir() || filepath.Ext(f.Name()) != ".log" {
				continue
			}
			if info, err := f.Info(); err == nil {
				totalFiles++
				totalSize += info.Size()
			}
		}
	}

	return utils.SuccessResponse(c, "Log stats retrieved", fiber.Map{
		"total_entries":    len(allLogs),
		"by_level":         levelCounts,
		"by_category":      categoryCounts,
		"total_files":      totalFiles,
		"total_size_bytes": totalSize,
	})
}
