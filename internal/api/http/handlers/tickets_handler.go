package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/dto"
	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
	"github.com/spec-kit/repair-service/internal/service"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// TicketsHandler manages ticket endpoints. Tickets are addressed externally
// by their request number.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		ApplianceType:      req.ApplianceType,
		ApplianceModel:     req.ApplianceModel,
		IssueType:          req.IssueType,
		ProblemDescription: req.ProblemDescription,
		ClientName:         req.ClientName,
		ClientPhone:        req.ClientPhone,
		AssigneeUsername:   req.AssigneeUsername,
		Status:             req.Status,
		DueAt:              req.DueAt,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.service.ListTickets(c.UserContext(), actor, parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:number.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	number, err := requestNumber(c)
	if err != nil {
		return err
	}
	detail, err := h.service.GetTicketDetail(c.UserContext(), actor, number)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(detail)})
}

// UpdateTicket PUT /tickets/:number.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	number, err := requestNumber(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.UpdateTicket(c.UserContext(), actor, number, service.TicketUpdateInput{
		ApplianceType:      req.ApplianceType,
		ApplianceModel:     req.ApplianceModel,
		IssueType:          req.IssueType,
		ProblemDescription: req.ProblemDescription,
		ClientName:         req.ClientName,
		ClientPhone:        req.ClientPhone,
		AssigneeUsername:   req.AssigneeUsername,
		Status:             req.Status,
		DueAt:              req.DueAt,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// DeleteTicket DELETE /tickets/:number.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	number, err := requestNumber(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), actor, number); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ChangeStatus POST /tickets/:number/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	number, err := requestNumber(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.ChangeStatus(c.UserContext(), actor, number, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// AssignSpecialist POST /tickets/:number/assignee.
func (h *TicketsHandler) AssignSpecialist(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	number, err := requestNumber(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Username) == "" {
		return apperrors.NewValidationError("username required", nil)
	}
	ticket, err := h.service.AssignSpecialist(c.UserContext(), actor, number, req.Username)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// AddComment POST /tickets/:number/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	number, err := requestNumber(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.service.AddComment(c.UserContext(), actor, number, req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// AddPart POST /tickets/:number/parts.
func (h *TicketsHandler) AddPart(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	number, err := requestNumber(c)
	if err != nil {
		return err
	}
	var req dto.CreatePartRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	part, err := h.service.AddPart(c.UserContext(), actor, number, req.PartName, req.Quantity)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": partResponse(part)})
}

// RemovePart DELETE /tickets/:number/parts/:partID.
func (h *TicketsHandler) RemovePart(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	number, err := requestNumber(c)
	if err != nil {
		return err
	}
	partID, err := strconv.ParseInt(c.Params("partID"), 10, 64)
	if err != nil {
		return apperrors.NewValidationError("invalid part id", nil)
	}
	if err := h.service.RemovePart(c.UserContext(), actor, number, partID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ExtendDeadline POST /tickets/:number/extensions.
func (h *TicketsHandler) ExtendDeadline(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	number, err := requestNumber(c)
	if err != nil {
		return err
	}
	var req dto.ExtendDeadlineRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.NewDueAt.IsZero() {
		return apperrors.NewValidationError("new_due_at required", nil)
	}
	extension, err := h.service.ExtendDeadline(c.UserContext(), actor, number, req.NewDueAt, req.Reason)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": extensionResponse(extension)})
}

func requestNumber(c *fiber.Ctx) (int64, error) {
	number, err := strconv.ParseInt(c.Params("number"), 10, 64)
	if err != nil || number <= 0 {
		return 0, apperrors.NewValidationError("invalid request number", nil)
	}
	return number, nil
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if assignee := c.Query("assignee_id"); assignee != "" {
		if id, err := strconv.ParseInt(assignee, 10, 64); err == nil {
			filter.AssigneeID = &id
		}
	}
	if search := c.Query("q"); search != "" {
		filter.SearchTerm = &search
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:                   ticket.ID,
		RequestNumber:        ticket.RequestNumber,
		Status:               ticket.Status,
		ClientID:             ticket.ClientID,
		ApplianceID:          ticket.ApplianceID,
		IssueTypeID:          ticket.IssueTypeID,
		ProblemDescription:   ticket.ProblemDescription,
		AssignedSpecialistID: ticket.AssignedSpecialistID,
		CreatedAt:            ticket.CreatedAt,
		UpdatedAt:            ticket.UpdatedAt,
		DueAt:                ticket.DueAt,
		StartedAt:            ticket.StartedAt,
		CompletedAt:          ticket.CompletedAt,
	}
}

func ticketDetail(detail *service.TicketDetail) dto.TicketDetailResponse {
	history := make([]dto.StatusChangeResponse, 0, len(detail.History))
	for _, entry := range detail.History {
		history = append(history, dto.StatusChangeResponse{
			ID:              entry.ID,
			OldStatus:       entry.OldStatus,
			NewStatus:       entry.NewStatus,
			ChangedByUserID: entry.ChangedByUserID,
			ChangedAt:       entry.ChangedAt,
		})
	}
	comments := make([]dto.CommentResponse, 0, len(detail.Comments))
	for i := range detail.Comments {
		comments = append(comments, commentResponse(&detail.Comments[i]))
	}
	parts := make([]dto.PartResponse, 0, len(detail.Parts))
	for i := range detail.Parts {
		parts = append(parts, partResponse(&detail.Parts[i]))
	}
	extensions := make([]dto.ExtensionResponse, 0, len(detail.Extensions))
	for i := range detail.Extensions {
		extensions = append(extensions, extensionResponse(&detail.Extensions[i]))
	}
	return dto.TicketDetailResponse{
		TicketSummary: ticketSummary(detail.Ticket),
		Client: dto.ClientResponse{
			ID:       detail.Client.ID,
			FullName: detail.Client.FullName,
			Phone:    detail.Client.Phone,
		},
		Appliance: dto.ApplianceResponse{
			ID:             detail.Appliance.ID,
			ApplianceType:  detail.Appliance.ApplianceType,
			ApplianceModel: detail.Appliance.ApplianceModel,
		},
		History:    history,
		Comments:   comments,
		Parts:      parts,
		Extensions: extensions,
	}
}

func commentResponse(comment *domain.TicketComment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:           comment.ID,
		AuthorUserID: comment.AuthorUserID,
		Body:         comment.Body,
		CreatedAt:    comment.CreatedAt,
	}
}

func partResponse(part *domain.TicketPart) dto.PartResponse {
	return dto.PartResponse{
		ID:        part.ID,
		PartName:  part.PartName,
		Quantity:  part.Quantity,
		CreatedAt: part.CreatedAt,
	}
}

func extensionResponse(extension *domain.DeadlineExtension) dto.ExtensionResponse {
	return dto.ExtensionResponse{
		ID:                extension.ID,
		OldDueAt:          extension.OldDueAt,
		NewDueAt:          extension.NewDueAt,
		Reason:            extension.Reason,
		RequestedByUserID: extension.RequestedByUserID,
		CreatedAt:         extension.CreatedAt,
	}
}
