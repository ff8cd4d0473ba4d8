package handlers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/mocks"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
	"github.com/ersonp/pjud-tracker/internal/domain/services"
)

func newTestEngine(t *testing.T, db *mocks.RelationalDB) *services.ReconciliationEngine {
	t.Helper()
	gens := make(map[string]ports.ResponseGenerator)
	for _, route := range services.SuggestionRoutes {
		gens[route.Selector] = &mocks.ResponseGenerator{}
	}
	return services.NewReconciliationEngine(services.EngineDeps{
		DB:         db,
		Fetcher:    services.NewDocumentFetcher(mocks.NewPortalSession(), t.TempDir()),
		Generator:  &mocks.ContentGenerator{},
		Dispatcher: services.NewSuggestionDispatcher(gens, nil, 0, nil),
	}, services.EngineConfig{Workers: 2})
}

const jsonDump = `[
	{"folio": "3", "procedure": "Actuación Receptor", "description": "Búsqueda negativa", "date": "08/03/2023", "page": "3"},
	{"folio": "2", "procedure": "Escrito", "description": "Téngase presente", "date": "03/03/2023", "page": "2"},
	{"folio": "1", "procedure": "Ingreso", "description": "Ingreso demanda ejecutiva", "date": "01/03/2023", "page": "1"}
]`

const csvDump = "folio,procedure,description,date,page\n" +
	"2,Actuación Receptor,Notificación exitosa,09/03/2023,2\n" +
	"1,Ingreso,Ingreso demanda,01/03/2023,1\n"

func writeDump(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReconcileHandler_Handle_JSONFile(t *testing.T) {
	db := mocks.NewRelationalDB()
	cases := NewCaseHandler(db, nil)
	createCase(t, cases, "case-1")
	handler := NewReconcileHandler(newTestEngine(t, db), nil)

	path := writeDump(t, t.TempDir(), "case-1.json", jsonDump)
	summary, err := handler.Handle(context.Background(), "case-1", path, ReconcileOptions{})

	require.NoError(t, err)
	assert.Equal(t, 3, summary.Rows)
	assert.Equal(t, 2, summary.Classified)
	assert.Equal(t, 1, summary.Adopted)
	require.Len(t, summary.Ingested, 2)
	assert.Equal(t, "NOTIFICATION.1", summary.Ingested[1].Tag)

	chain, err := cases.HandleChain(context.Background(), "case-1", false)
	require.NoError(t, err)
	assert.Len(t, chain, 2)
}

func TestReconcileHandler_Handle_Errors(t *testing.T) {
	db := mocks.NewRelationalDB()
	handler := NewReconcileHandler(newTestEngine(t, db), nil)
	dir := t.TempDir()

	t.Run("unsupported format", func(t *testing.T) {
		path := writeDump(t, dir, "case-1.xml", "<rows/>")
		_, err := handler.Handle(context.Background(), "case-1", path, ReconcileOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported format")
	})

	t.Run("file not found", func(t *testing.T) {
		_, err := handler.Handle(context.Background(), "case-1", filepath.Join(dir, "missing.json"), ReconcileOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "opening file")
	})

	t.Run("explicit format overrides extension", func(t *testing.T) {
		createCase(t, NewCaseHandler(db, nil), "case-2")
		path := writeDump(t, dir, "case-2.txt", jsonDump)
		summary, err := handler.Handle(context.Background(), "case-2", path, ReconcileOptions{Format: "json"})
		require.NoError(t, err)
		assert.Len(t, summary.Ingested, 2)
	})

	t.Run("unknown case", func(t *testing.T) {
		path := writeDump(t, dir, "case-9.json", jsonDump)
		_, err := handler.Handle(context.Background(), "case-9", path, ReconcileOptions{})
		assert.ErrorIs(t, err, entities.ErrCaseNotFound)
	})
}

func TestReconcileHandler_HandleDirectory(t *testing.T) {
	db := mocks.NewRelationalDB()
	cases := NewCaseHandler(db, nil)
	createCase(t, cases, "case-a")
	createCase(t, cases, "case-b")
	handler := NewReconcileHandler(newTestEngine(t, db), nil)

	dir := t.TempDir()
	writeDump(t, dir, "case-a.json", jsonDump)
	writeDump(t, dir, "case-b.csv", csvDump)
	writeDump(t, dir, "case-c.json", jsonDump) // no such case
	writeDump(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.json"), 0755))

	runs, err := handler.HandleDirectory(context.Background(), dir, 2)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	assert.Equal(t, "case-a", runs[0].CaseID)
	require.NoError(t, runs[0].Err)
	assert.Len(t, runs[0].Summary.Ingested, 2)

	assert.Equal(t, "case-b", runs[1].CaseID)
	require.NoError(t, runs[1].Err)
	assert.Len(t, runs[1].Summary.Ingested, 2)
	assert.Equal(t, 1, runs[1].Summary.Adopted)

	assert.Equal(t, "case-c", runs[2].CaseID)
	assert.ErrorIs(t, runs[2].Err, entities.ErrCaseNotFound)

	// A second sweep finds nothing new.
	runs, err = handler.HandleDirectory(context.Background(), dir, 0)
	require.NoError(t, err)
	assert.Empty(t, runs[0].Summary.Ingested)
	assert.Equal(t, 2, runs[0].Summary.SkippedDuplicate)
}

func TestReconcileHandler_HandleDirectory_Cancelled(t *testing.T) {
	db := mocks.NewRelationalDB()
	handler := NewReconcileHandler(newTestEngine(t, db), nil)
	dir := t.TempDir()
	writeDump(t, dir, "case-a.json", jsonDump)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runs, err := handler.HandleDirectory(ctx, dir, 1)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, runs, 1)
	assert.Error(t, runs[0].Err)
}

func TestReconcileHandler_HandleDirectory_MissingDir(t *testing.T) {
	handler := NewReconcileHandler(newTestEngine(t, mocks.NewRelationalDB()), nil)
	_, err := handler.HandleDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"), 1)
	require.Error(t, err)
}
