package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/mocks"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
	"github.com/ersonp/pjud-tracker/internal/domain/services"
)

var enginePDF = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF\n")

func engineRows() []entities.RawLogRow {
	mk := func(folio, procedure, description string) entities.RawLogRow {
		return entities.RawLogRow{Folio: folio, Procedure: procedure, Description: description, Date: "02/05/2023", Page: "1"}
	}
	exceptions := mk("4", "Escrito", "Opone excepciones")
	exceptions.Download = &entities.DownloadHandle{Ref: "doc-exceptions"}
	return []entities.RawLogRow{
		exceptions,
		mk("3", "Actuación Receptor", "Notificación exitosa"),
		mk("2", "Escrito", "Téngase presente"),
		mk("1", "Ingreso", "Ingreso demanda ejecutiva"),
	}
}

// Runs the reconciliation engine against a real database to exercise the
// transactional path end to end.
func TestRepository_ReconcileTwice(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	c := saveTestCase(t, repo, "case-1")

	session := mocks.NewPortalSession()
	session.AddPDF("doc-exceptions", enginePDF)

	gens := make(map[string]ports.ResponseGenerator)
	for _, route := range services.SuggestionRoutes {
		gens[route.Selector] = &mocks.ResponseGenerator{}
	}
	blobs := mocks.NewBlobStore()
	engine := services.NewReconciliationEngine(services.EngineDeps{
		DB:         repo,
		Fetcher:    services.NewDocumentFetcher(session, t.TempDir()),
		Generator:  &mocks.ContentGenerator{},
		Dispatcher: services.NewSuggestionDispatcher(gens, nil, 0, nil),
		Blobs:      blobs,
	}, services.EngineConfig{Workers: 2})

	first, err := engine.Reconcile(ctx, c.ID, engineRows())
	require.NoError(t, err)
	require.Len(t, first.Ingested, 3)
	assert.Empty(t, first.Failures)

	second, err := engine.Reconcile(ctx, c.ID, engineRows())
	require.NoError(t, err)
	assert.Empty(t, second.Ingested)
	assert.Equal(t, 3, second.SkippedDuplicate)

	events, err := repo.ListEvents(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	folios, err := repo.ListFolios(ctx, c.Role, c.Year)
	require.NoError(t, err)
	assert.Len(t, folios, 3)
	for _, f := range folios {
		assert.Equal(t, first.RunID, f.SessionID)
	}

	violations, err := services.NewCaseEventChain().Verify(ctx, repo, c.ID)
	require.NoError(t, err)
	assert.Empty(t, violations)

	exceptionsEvent := first.Ingested[2]
	suggestions, err := repo.ListSuggestions(ctx, exceptionsEvent.EventID)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, entities.SuggestionExceptionsResponse, suggestions[0].Type)
	assert.Equal(t, 1, blobs.Len())

	updated, err := repo.FindCase(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.CaseStatusActive, updated.Status)
}
