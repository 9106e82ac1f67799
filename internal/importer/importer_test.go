package importer_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/importer"
	"github.com/spec-kit/repair-service/internal/repository/repotest"
)

var importNow = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func newImporter(store *repotest.Store) *importer.Importer {
	return importer.New(importer.Dependencies{
		TicketRepo:    store.TicketsRepo(),
		ClientRepo:    store.ClientsRepo(),
		ApplianceRepo: store.AppliancesRepo(),
		IssueTypeRepo: store.IssueTypesRepo(),
		UserRepo:      store.Users(),
		HistoryRepo:   store.HistoryRepo(),
		AssigneeRepo:  store.AssigneesRepo(),
		Now:           func() time.Time { return importNow },
	})
}

const header = "appliance_type,appliance_model,issue_type,problem_description,client_name,client_phone,status,assigned_master_username,due_at\n"

func TestImportBasic(t *testing.T) {
	store := repotest.NewStore()
	admin := store.AddUser(domain.User{Username: "admin", Role: domain.RoleAdmin, IsActive: true})
	master := store.AddUser(domain.User{Username: "ivanov", Role: domain.RoleMaster, IsActive: true})
	imp := newImporter(store)

	csv := header +
		"fridge,Bosch KGN39,No cooling,compressor dead,Ivan Petrov,+7 912 000-11-22,in_progress,ivanov,2026-04-10 12:00:00\n" +
		"oven,Gorenje BO735,,door glass cracked,Olga Ivanova,79995554433,,,\n"

	result, err := imp.Run(context.Background(), strings.NewReader(csv), admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Empty(t, result.Skipped)

	tickets := store.Tickets()
	require.Len(t, tickets, 2)

	first := tickets[0]
	assert.Equal(t, domain.TicketStatusInProgress, first.Status)
	require.NotNil(t, first.AssignedSpecialistID)
	assert.Equal(t, master.ID, *first.AssignedSpecialistID)
	require.NotNil(t, first.DueAt)
	assert.Equal(t, time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC), *first.DueAt)
	require.NotNil(t, first.StartedAt)

	second := tickets[1]
	assert.Equal(t, domain.TicketStatusNew, second.Status)
	assert.Nil(t, second.AssignedSpecialistID)
	require.NotNil(t, second.DueAt)
	assert.Equal(t, importNow.Add(72*time.Hour), *second.DueAt)
	assert.Nil(t, second.IssueTypeID)

	history := store.History()
	require.Len(t, history, 2)
	for _, change := range history {
		assert.Nil(t, change.OldStatus)
		assert.Equal(t, admin.ID, change.ChangedByUserID)
	}
}

func TestImportReusesClientByPhone(t *testing.T) {
	store := repotest.NewStore()
	admin := store.AddUser(domain.User{Username: "admin", Role: domain.RoleAdmin, IsActive: true})
	imp := newImporter(store)

	csv := header +
		"fridge,Bosch KGN39,No cooling,warm inside,Ivan Petrov,+7 (999) 111-22-33,new,,\n" +
		"kettle,Philips HD93,No heating,does not boil,I. Petrov,79991112233,new,,\n"

	result, err := imp.Run(context.Background(), strings.NewReader(csv), admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)

	clients := store.Clients()
	require.Len(t, clients, 1)
	assert.Equal(t, "79991112233", clients[0].Phone)
	// The later row wins the name.
	assert.Equal(t, "I. Petrov", clients[0].FullName)
}

func TestImportSkipsBadRows(t *testing.T) {
	store := repotest.NewStore()
	admin := store.AddUser(domain.User{Username: "admin", Role: domain.RoleAdmin, IsActive: true})
	imp := newImporter(store)

	csv := header +
		"fridge,Bosch KGN39,No cooling,warm inside,Ivan Petrov,12345,new,,\n" + // bad phone
		",Bosch KGN39,No cooling,warm inside,Ivan Petrov,79991112233,new,,\n" + // missing type
		"fridge,Bosch KGN39,No cooling,warm inside,Ivan Petrov,79991112233,new,nobody,\n" + // unknown master
		"fridge,Bosch KGN39,No cooling,warm inside,Ivan Petrov,79991112233,broken,,\n" // unknown status is tolerated

	result, err := imp.Run(context.Background(), strings.NewReader(csv), admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.Skipped, 3)
	assert.Equal(t, 2, result.Skipped[0].Line)
	assert.Equal(t, 3, result.Skipped[1].Line)
	assert.Equal(t, 4, result.Skipped[2].Line)

	tickets := store.Tickets()
	require.Len(t, tickets, 1)
	assert.Equal(t, domain.TicketStatusNew, tickets[0].Status)
}

func TestImportUniqueRequestNumbers(t *testing.T) {
	store := repotest.NewStore()
	admin := store.AddUser(domain.User{Username: "admin", Role: domain.RoleAdmin, IsActive: true})
	imp := newImporter(store)

	var sb strings.Builder
	sb.WriteString(header)
	for i := 0; i < 4; i++ {
		sb.WriteString("fridge,Bosch,No cooling,warm,Ivan Petrov,79991112233,new,,\n")
	}

	result, err := imp.Run(context.Background(), strings.NewReader(sb.String()), admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Imported)

	seen := map[int64]bool{}
	for _, ticket := range store.Tickets() {
		assert.False(t, seen[ticket.RequestNumber])
		seen[ticket.RequestNumber] = true
	}
}
