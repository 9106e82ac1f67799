package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/dto"
	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/service"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// ReportsHandler serves the management reports.
type ReportsHandler struct {
	service *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// Summary GET /reports/summary.
func (h *ReportsHandler) Summary(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	summary, err := h.service.Summary(c.UserContext(), actor)
	if err != nil {
		return err
	}

	byType := make([]dto.IssueTypeCountResponse, 0, len(summary.ByIssueType))
	for _, row := range summary.ByIssueType {
		byType = append(byType, dto.IssueTypeCountResponse{IssueType: row.IssueType, Count: row.Count})
	}
	return c.JSON(fiber.Map{"data": dto.SummaryResponse{
		Total:              summary.Total,
		Completed:          summary.Completed,
		AverageRepairHours: summary.AverageRepairHours(),
		ByIssueType:        byType,
	}})
}

// Overdue GET /reports/overdue.
func (h *ReportsHandler) Overdue(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.service.Overdue(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": dto.OverdueResponse{Tickets: items}})
}
