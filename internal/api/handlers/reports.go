package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/leozw/wp-maintenance/internal/api/middleware"
	"github.com/leozw/wp-maintenance/internal/reports"
	"go.uber.org/zap"
)

// GetMaintenanceReport serves the assembled report for
// /websites/:websiteId/maintenance-reports/:reportId.
func (h *Handler) GetMaintenanceReport(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	websiteID, reportID, err := reports.ParseIdentifiers(c.Param("websiteId"), c.Param("reportId"))
	if err != nil {
		var invalid *reports.InvalidIdentifierError
		if errors.As(err, &invalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + invalid.Field})
			return
		}
		h.internalError(c, err, userID)
		return
	}

	doc, err := h.reports.Assemble(c.Request.Context(), userID, websiteID, reportID)
	if err != nil {
		var notFound *reports.NotFoundError
		switch {
		case errors.As(err, &notFound):
			if notFound.Entity == reports.EntityWebsite {
				c.JSON(http.StatusNotFound, gin.H{"error": "Website not found"})
			} else {
				c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			}
		case errors.Is(err, reports.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "Report does not belong to this website"})
		default:
			h.internalError(c, err, userID,
				zap.Int64("website_id", websiteID),
				zap.Int64("report_id", reportID),
			)
		}
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) internalError(c *gin.Context, err error, userID int64, fields ...zap.Field) {
	fields = append(fields,
		zap.Error(err),
		zap.Int64("user_id", userID),
		zap.String("request_id", c.GetString(middleware.RequestIDKey)),
	)
	h.logger.Error("Failed to assemble maintenance report", fields...)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
