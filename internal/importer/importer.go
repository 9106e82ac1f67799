// Package importer loads repair tickets in bulk from CSV exports.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
	"github.com/spec-kit/repair-service/internal/service"
)

// Column order of the CSV contract. A header row with these names is
// accepted and skipped; files without a header are read positionally.
var expectedColumns = []string{
	"appliance_type",
	"appliance_model",
	"issue_type",
	"problem_description",
	"client_name",
	"client_phone",
	"status",
	"assigned_master_username",
	"due_at",
}

// defaultDueIn is applied to rows with an empty due_at column.
const defaultDueIn = 72 * time.Hour

// SkippedRow records one row the importer refused, with the reason.
type SkippedRow struct {
	Line   int
	Reason string
}

// Result summarizes an import run.
type Result struct {
	Imported int
	Skipped  []SkippedRow
}

// Dependencies bundles the repositories the importer writes through.
type Dependencies struct {
	TicketRepo    repository.TicketRepository
	ClientRepo    repository.ClientRepository
	ApplianceRepo repository.ApplianceRepository
	IssueTypeRepo repository.IssueTypeRepository
	UserRepo      repository.UserRepository
	HistoryRepo   repository.StatusHistoryRepository
	AssigneeRepo  repository.AssigneeRepository
	Logger        *zap.Logger
	Now           func() time.Time
}

// Importer maps CSV rows onto client, appliance, issue type and ticket
// rows, deduplicating by the natural keys. Bad rows are skipped and
// reported, never aborting the run.
type Importer struct {
	tickets    repository.TicketRepository
	clients    repository.ClientRepository
	appliances repository.ApplianceRepository
	issueTypes repository.IssueTypeRepository
	users      repository.UserRepository
	history    repository.StatusHistoryRepository
	assignees  repository.AssigneeRepository
	logger     *zap.Logger
	now        func() time.Time
}

// New constructs an importer.
func New(deps Dependencies) *Importer {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		tickets:    deps.TicketRepo,
		clients:    deps.ClientRepo,
		appliances: deps.ApplianceRepo,
		issueTypes: deps.IssueTypeRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		assignees:  deps.AssigneeRepo,
		logger:     logger,
		now:        now,
	}
}

// Run reads CSV rows from r and imports them on behalf of actorID, the user
// recorded as the author of the creation history rows. Returns the counts
// and the per-row skip reasons.
func (imp *Importer) Run(ctx context.Context, r io.Reader, actorID int64) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var result Result
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("read csv: %w", err)
		}
		line++

		if line == 1 && isHeaderRow(record) {
			continue
		}

		if err := imp.importRow(ctx, record, actorID); err != nil {
			var skip *skipError
			if errors.As(err, &skip) {
				imp.logger.Warn("skipping row",
					zap.Int("line", line),
					zap.String("reason", skip.reason))
				result.Skipped = append(result.Skipped, SkippedRow{Line: line, Reason: skip.reason})
				continue
			}
			return result, fmt.Errorf("row %d: %w", line, err)
		}
		result.Imported++
	}
	return result, nil
}

type skipError struct {
	reason string
}

func (e *skipError) Error() string { return e.reason }

func skipf(format string, args ...any) error {
	return &skipError{reason: fmt.Sprintf(format, args...)}
}

func isHeaderRow(record []string) bool {
	if len(record) == 0 {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(record[0]), expectedColumns[0])
}

func (imp *Importer) importRow(ctx context.Context, record []string, actorID int64) error {
	if len(record) < len(expectedColumns) {
		return skipf("expected %d columns, got %d", len(expectedColumns), len(record))
	}
	field := func(i int) string { return strings.TrimSpace(record[i]) }

	applianceType := field(0)
	applianceModel := field(1)
	issueTypeName := field(2)
	problemDescription := field(3)
	clientName := field(4)
	clientPhone := field(5)
	rawStatus := field(6)
	masterUsername := field(7)
	rawDueAt := field(8)

	if applianceType == "" || applianceModel == "" || problemDescription == "" || clientName == "" {
		return skipf("missing required fields")
	}
	phone, err := service.NormalizePhone(clientPhone)
	if err != nil {
		return skipf("invalid phone %q", clientPhone)
	}

	now := imp.now()

	status := domain.TicketStatus(strings.ToLower(rawStatus))
	if !domain.ValidStatus(status) {
		status = domain.TicketStatusNew
	}

	dueAt := now.Add(defaultDueIn)
	if rawDueAt != "" {
		parsed, err := parseDueAt(rawDueAt)
		if err != nil {
			return skipf("unparseable due_at %q", rawDueAt)
		}
		dueAt = parsed
	}

	clientID, err := imp.getOrCreateClient(ctx, clientName, phone)
	if err != nil {
		return err
	}
	applianceID, err := imp.getOrCreateAppliance(ctx, applianceType, applianceModel)
	if err != nil {
		return err
	}
	issueTypeID, err := imp.getOrCreateIssueType(ctx, issueTypeName)
	if err != nil {
		return err
	}

	var assignee *domain.User
	if masterUsername != "" {
		assignee, err = imp.resolveMaster(ctx, masterUsername)
		if err != nil {
			return err
		}
	}

	number, err := imp.tickets.NextRequestNumber(ctx)
	if err != nil {
		return err
	}

	ticket := &domain.Ticket{
		RequestNumber:      number,
		Status:             status,
		ClientID:           clientID,
		ApplianceID:        applianceID,
		IssueTypeID:        issueTypeID,
		ProblemDescription: problemDescription,
		CreatedAt:          now,
		UpdatedAt:          now,
		DueAt:              &dueAt,
	}
	if assignee != nil {
		ticket.AssignedSpecialistID = &assignee.ID
	}
	switch status {
	case domain.TicketStatusInProgress:
		ticket.StartedAt = &now
	case domain.TicketStatusReady:
		ticket.StartedAt = &now
		ticket.CompletedAt = &now
	}

	if err := imp.tickets.Create(ctx, ticket); err != nil {
		return err
	}
	if err := imp.history.Append(ctx, &domain.StatusChange{
		TicketID:        ticket.ID,
		OldStatus:       nil,
		NewStatus:       status,
		ChangedByUserID: actorID,
		ChangedAt:       now,
	}); err != nil {
		return err
	}
	if assignee != nil {
		if err := imp.assignees.Upsert(ctx, &domain.TicketAssignee{
			TicketID:         ticket.ID,
			UserID:           assignee.ID,
			Role:             domain.AssigneeRolePrimary,
			AssignedByUserID: actorID,
			AssignedAt:       now,
		}); err != nil {
			return err
		}
	}
	return nil
}

func parseDueAt(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time format %q", raw)
}

func (imp *Importer) getOrCreateClient(ctx context.Context, fullName, phone string) (int64, error) {
	existing, err := imp.clients.GetByPhone(ctx, phone)
	if err == nil {
		if existing.FullName != fullName {
			if err := imp.clients.UpdateName(ctx, existing.ID, fullName); err != nil {
				return 0, err
			}
		}
		return existing.ID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	client := &domain.Client{FullName: fullName, Phone: phone}
	if err := imp.clients.Create(ctx, client); err != nil {
		return 0, err
	}
	return client.ID, nil
}

func (imp *Importer) getOrCreateAppliance(ctx context.Context, applianceType, applianceModel string) (int64, error) {
	existing, err := imp.appliances.GetByTypeModel(ctx, applianceType, applianceModel)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	appliance := &domain.Appliance{ApplianceType: applianceType, ApplianceModel: applianceModel}
	if err := imp.appliances.Create(ctx, appliance); err != nil {
		return 0, err
	}
	return appliance.ID, nil
}

func (imp *Importer) getOrCreateIssueType(ctx context.Context, name string) (*int64, error) {
	if name == "" {
		return nil, nil
	}
	existing, err := imp.issueTypes.GetByName(ctx, name)
	if err == nil {
		return &existing.ID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	issueType := &domain.IssueType{Name: name}
	if err := imp.issueTypes.Create(ctx, issueType); err != nil {
		return nil, err
	}
	return &issueType.ID, nil
}

func (imp *Importer) resolveMaster(ctx context.Context, username string) (*domain.User, error) {
	user, err := imp.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, skipf("unknown master %q", username)
		}
		return nil, err
	}
	if user.Role != domain.RoleMaster {
		return nil, skipf("user %q is not a master", username)
	}
	return user, nil
}
