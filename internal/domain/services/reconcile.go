package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
	"github.com/ersonp/pjud-tracker/internal/infrastructure/logger"
)

// Worker pool bounds for document extraction within one run.
const (
	DefaultWorkers = 4
	MaxWorkers     = 5
)

// EngineConfig holds the tunables of a reconciliation run.
type EngineConfig struct {
	Workers         int
	FetchTimeout    time.Duration
	GenerateTimeout time.Duration
	CommitTimeout   time.Duration
}

// IngestedMilestone is one milestone committed by a run.
type IngestedMilestone struct {
	Folio      int    `json:"folio"`
	Tag        string `json:"tag"`
	EventID    string `json:"event_id"`
	DocumentID string `json:"document_id,omitempty"`
	// Adopted is set when the row was matched to an existing root instead of
	// creating an event.
	Adopted     bool `json:"adopted,omitempty"`
	Suggestions int  `json:"suggestions"`
}

// Summary reports the outcome of a run. Failures holds the row-local
// errors, each a *entities.RowError.
type Summary struct {
	RunID            string              `json:"run_id"`
	CaseID           string              `json:"case_id"`
	Rows             int                 `json:"rows"`
	Classified       int                 `json:"classified"`
	SkippedDuplicate int                 `json:"skipped_duplicate"`
	Adopted          int                 `json:"adopted"`
	Malformed        int                 `json:"malformed"`
	FetchFailed      int                 `json:"fetch_failed"`
	GeneratorFailed  int                 `json:"generator_failed"`
	AppendFailed     int                 `json:"append_failed"`
	SuggestionFailed int                 `json:"suggestion_failed"`
	Ingested         []IngestedMilestone `json:"ingested"`
	Failures         []error             `json:"-"`
	Cancelled        bool                `json:"cancelled,omitempty"`
}

func (s *Summary) fail(stage entities.RowStage, row entities.TaggedRow, err error) {
	switch stage {
	case entities.StageValidate:
		s.Malformed++
	case entities.StageFetch:
		s.FetchFailed++
	case entities.StageGenerate:
		s.GeneratorFailed++
	case entities.StageAppend:
		s.AppendFailed++
	case entities.StageDispatch:
		s.SuggestionFailed++
	}
	tag := ""
	if row.Tag != nil {
		tag = row.Tag.String()
	}
	s.Failures = append(s.Failures, &entities.RowError{Folio: row.Row.Folio, Tag: tag, Stage: stage, Err: err})
}

// ReconciliationEngine merges newly observed portal milestones into a
// case's event chain.
//
// Runs for the same case are serialized; runs for different cases proceed
// in parallel. Within a run, document fetch and content generation fan out
// over a bounded pool, and results are applied to the chain strictly in
// chronological order.
type ReconciliationEngine struct {
	db         ports.RelationalDB
	ledger     *FolioLedger
	chain      *CaseEventChain
	fetcher    *DocumentFetcher
	generator  ports.ContentGenerator
	dispatcher *SuggestionDispatcher
	blobs      ports.BlobStore
	cfg        EngineConfig
	log        *logger.Logger
	locks      *caseLocks
}

// EngineDeps groups the collaborators of the engine. Blobs is optional.
type EngineDeps struct {
	DB         ports.RelationalDB
	Ledger     *FolioLedger
	Chain      *CaseEventChain
	Fetcher    *DocumentFetcher
	Generator  ports.ContentGenerator
	Dispatcher *SuggestionDispatcher
	Blobs      ports.BlobStore
	Log        *logger.Logger
}

// NewReconciliationEngine creates a new engine.
func NewReconciliationEngine(deps EngineDeps, cfg EngineConfig) *ReconciliationEngine {
	switch {
	case cfg.Workers <= 0:
		cfg.Workers = DefaultWorkers
	case cfg.Workers > MaxWorkers:
		cfg.Workers = MaxWorkers
	}
	if deps.Ledger == nil {
		deps.Ledger = NewFolioLedger()
	}
	if deps.Chain == nil {
		deps.Chain = NewCaseEventChain()
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	return &ReconciliationEngine{
		db:         deps.DB,
		ledger:     deps.Ledger,
		chain:      deps.Chain,
		fetcher:    deps.Fetcher,
		generator:  deps.Generator,
		dispatcher: deps.Dispatcher,
		blobs:      deps.Blobs,
		cfg:        cfg,
		log:        deps.Log,
		locks:      newCaseLocks(),
	}
}

// pendingRow is a tagged row that passed validation and the ledger check.
type pendingRow struct {
	row  entities.TaggedRow
	key  entities.FolioKey
	spec entities.MilestoneSpec

	// Filled by prepare.
	doc     *FetchedDocument
	content *ports.GeneratedContent
	stage   entities.RowStage
	err     error
}

// Reconcile ingests the new milestones found in rows (portal order, most
// recent first) into the case chain.
//
// The returned summary is never nil. The error is non-nil only when the
// case cannot be resolved, when an invariant violation aborted the run, or
// when ctx was cancelled; committed progress stays valid in every case.
func (e *ReconciliationEngine) Reconcile(ctx context.Context, caseID string, rows []entities.RawLogRow) (*Summary, error) {
	summary := &Summary{RunID: uuid.New().String(), CaseID: caseID, Rows: len(rows)}

	unlock := e.locks.lock(caseID)
	defer unlock()

	c, err := e.db.FindCase(ctx, caseID)
	if err != nil {
		return summary, fmt.Errorf("finding case: %w", err)
	}
	if c == nil {
		return summary, fmt.Errorf("%w: %s", entities.ErrCaseNotFound, caseID)
	}

	log := e.log.With("case_id", caseID, "run_id", summary.RunID)

	branch, err := e.chain.Ordered(ctx, e.db, caseID, c.Simulated)
	if err != nil {
		return summary, fmt.Errorf("loading chain: %w", err)
	}
	hasRoot := len(branch) > 0

	tagged := Chronological(Classify(rows))
	summary.Classified = len(tagged)

	pending := make([]*pendingRow, 0, len(tagged))
	for _, tr := range tagged {
		if err := tr.Row.Validate(); err != nil {
			log.Warn("skipping malformed row", "folio", tr.Row.Folio, "error", err)
			summary.fail(entities.StageValidate, tr, err)
			continue
		}
		spec, ok := entities.MilestoneFor(tr.Tag.Type)
		if !ok {
			summary.fail(entities.StageValidate, tr, fmt.Errorf("no milestone configured for %s", tr.Tag.Type))
			continue
		}
		key, err := e.ledger.KeyFor(c, tr.Row)
		if err != nil {
			summary.fail(entities.StageValidate, tr, err)
			continue
		}
		exists, err := e.ledger.Exists(ctx, e.db, key)
		if err != nil {
			summary.fail(entities.StageAppend, tr, err)
			continue
		}
		if exists {
			summary.SkippedDuplicate++
			continue
		}
		pending = append(pending, &pendingRow{row: tr, key: key, spec: spec})
	}

	defer func() {
		for _, p := range pending {
			e.release(log, p)
		}
	}()

	e.prepareAll(ctx, c, pending, hasRoot)

	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			summary.Cancelled = true
			log.Info("reconciliation cancelled", "ingested", len(summary.Ingested))
			return summary, err
		}
		if p.err != nil {
			log.Warn("skipping row", "folio", p.row.Row.Folio, "tag", p.row.Tag.String(), "stage", p.stage, "error", p.err)
			summary.fail(p.stage, p.row, p.err)
			e.release(log, p)
			continue
		}

		ingested, event, err := e.apply(ctx, c, summary.RunID, p)
		e.release(log, p)
		switch {
		case errors.Is(err, errAlreadyIngested):
			summary.SkippedDuplicate++
			continue
		case err != nil && entities.IsInvariantViolation(err):
			log.Error("aborting case run", "folio", p.row.Row.Folio, "tag", p.row.Tag.String(), "error", err)
			summary.fail(entities.StageAppend, p.row, err)
			return summary, fmt.Errorf("applying folio %s: %w", p.row.Row.Folio, err)
		case err != nil:
			log.Warn("skipping row", "folio", p.row.Row.Folio, "tag", p.row.Tag.String(), "stage", entities.StageAppend, "error", err)
			summary.fail(entities.StageAppend, p.row, err)
			continue
		}

		if ingested.Adopted {
			summary.Adopted++
		} else if e.dispatcher != nil {
			suggestions, err := e.dispatcher.Dispatch(ctx, e.db, c, event, p.content.Payload)
			ingested.Suggestions = len(suggestions)
			if err != nil {
				summary.fail(entities.StageDispatch, p.row, err)
			}
		}
		summary.Ingested = append(summary.Ingested, *ingested)
		log.Info("milestone ingested", "folio", ingested.Folio, "tag", ingested.Tag, "event_id", ingested.EventID, "adopted", ingested.Adopted)
	}

	return summary, nil
}

// prepareAll fetches documents and runs the content generator for every
// pending row over a bounded pool. Errors are stored on the rows.
func (e *ReconciliationEngine) prepareAll(ctx context.Context, c *entities.Case, pending []*pendingRow, hasRoot bool) {
	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for _, p := range pending {
		if p.row.Tag.Type == entities.EventDemandStart && hasRoot {
			// Adopted by the existing root; nothing to generate.
			continue
		}
		g.Go(func() error {
			e.prepare(ctx, c, p)
			return nil
		})
	}
	_ = g.Wait()
}

func (e *ReconciliationEngine) prepare(ctx context.Context, c *entities.Case, p *pendingRow) {
	if err := ctx.Err(); err != nil {
		p.stage, p.err = entities.StageFetch, err
		return
	}

	if p.spec.RequiresDocument {
		if e.fetcher == nil {
			p.stage, p.err = entities.StageFetch, errors.New("no document fetcher configured")
			return
		}
		fetchCtx, cancel := withTimeout(ctx, e.cfg.FetchTimeout)
		doc, err := e.fetcher.Fetch(fetchCtx, p.row.Row.Download, p.row.Tag.Type)
		cancel()
		if err != nil {
			p.stage, p.err = entities.StageFetch, err
			return
		}
		p.doc = doc
	}

	if e.generator == nil {
		p.stage, p.err = entities.StageGenerate, errors.New("no content generator configured")
		return
	}
	req := ports.GenerationRequest{
		Case:      *c,
		Tag:       *p.row.Tag,
		Row:       p.row.Row,
		Milestone: p.spec,
	}
	if p.doc != nil {
		req.Document = p.doc.Bytes
	}
	genCtx, cancel := withTimeout(ctx, e.cfg.GenerateTimeout)
	content, err := e.generator.Generate(genCtx, req)
	cancel()
	if err != nil {
		p.stage, p.err = entities.StageGenerate, err
		return
	}
	if content == nil {
		p.stage, p.err = entities.StageGenerate, errors.New("generator returned no content")
		return
	}
	if content.Payload == nil {
		content.Payload = entities.Payload{}
	}
	p.content = content
}

var errAlreadyIngested = errors.New("folio already ingested")

// apply commits one prepared row: event, document, ledger entry and status
// transition in a single transaction.
func (e *ReconciliationEngine) apply(ctx context.Context, c *entities.Case, runID string, p *pendingRow) (*IngestedMilestone, *entities.CaseEvent, error) {
	commitCtx, cancel := withTimeout(ctx, e.cfg.CommitTimeout)
	defer cancel()

	var (
		ingested    *IngestedMilestone
		event       *entities.CaseEvent
		uploadedKey string
		activated   bool
	)

	err := e.db.RunInTx(commitCtx, func(q ports.Queries) error {
		exists, err := e.ledger.Exists(commitCtx, q, p.key)
		if err != nil {
			return err
		}
		if exists {
			return errAlreadyIngested
		}

		branch, err := e.chain.Ordered(commitCtx, q, c.ID, c.Simulated)
		if err != nil {
			return err
		}

		entry := &entities.FolioEntry{FolioKey: p.key, Tag: p.row.Tag.String(), SessionID: runID}

		if p.row.Tag.Type == entities.EventDemandStart && len(branch) > 0 {
			entry.EventID = branch[0].ID
			if err := e.ledger.Record(commitCtx, q, entry); err != nil {
				return err
			}
			ingested = &IngestedMilestone{Folio: p.key.Folio, Tag: entry.Tag, EventID: entry.EventID, Adopted: true}
			return nil
		}
		if p.content == nil {
			return fmt.Errorf("no generated content for %s", p.row.Tag)
		}

		event, err = e.newEvent(c, p)
		if err != nil {
			return err
		}

		switch {
		case p.row.Tag.Type == entities.EventDemandStart:
			_, err = e.chain.Append(commitCtx, q, event, nil)
		case len(branch) == 0:
			err = fmt.Errorf("%w: cannot place %s", entities.ErrMissingRoot, p.row.Tag)
		case len(branch) == 1 && branch[0].Type == entities.EventDemandStart && p.spec.RootLinkable:
			_, err = e.chain.AppendAfterRoot(commitCtx, q, branch[0], event)
		default:
			_, err = e.chain.Append(commitCtx, q, event, &branch[len(branch)-1].ID)
		}
		if err != nil {
			return err
		}

		doc := &entities.Document{
			ID:        uuid.New().String(),
			EventID:   event.ID,
			Type:      p.spec.DocumentType,
			Content:   p.content.Payload,
			Generated: true,
			Simulated: event.Simulated,
			CreatedAt: event.CreatedAt,
		}
		if p.doc != nil && e.blobs != nil {
			key := BlobKey(c.ID, event.ID)
			if err := e.blobs.Put(commitCtx, key, "application/pdf", bytes.NewReader(p.doc.Bytes)); err != nil {
				return fmt.Errorf("storing original: %w", err)
			}
			uploadedKey = key
			doc.StorageKey = &key
		}
		if err := q.InsertDocument(commitCtx, doc); err != nil {
			return fmt.Errorf("inserting document: %w", err)
		}

		entry.EventID = event.ID
		if err := e.ledger.Record(commitCtx, q, entry); err != nil {
			return err
		}

		if !event.Simulated && c.Status == entities.CaseStatusDraft {
			if err := q.UpdateCaseStatus(commitCtx, c.ID, entities.CaseStatusActive); err != nil {
				return fmt.Errorf("activating case: %w", err)
			}
			activated = true
		}

		ingested = &IngestedMilestone{Folio: p.key.Folio, Tag: entry.Tag, EventID: event.ID, DocumentID: doc.ID}
		return nil
	})
	if err != nil {
		if uploadedKey != "" {
			if delErr := e.blobs.Delete(context.WithoutCancel(ctx), uploadedKey); delErr != nil {
				e.log.Warn("removing orphaned original", "key", uploadedKey, "error", delErr)
			}
		}
		return nil, nil, err
	}
	if activated {
		c.Status = entities.CaseStatusActive
	}
	return ingested, event, nil
}

func (e *ReconciliationEngine) newEvent(c *entities.Case, p *pendingRow) (*entities.CaseEvent, error) {
	date, err := p.row.Row.ProcedureDate()
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(p.content.Title)
	if title == "" {
		title, err = RenderTitle(p.spec, *p.row.Tag, p.row.Row)
		if err != nil {
			return nil, err
		}
	}
	return &entities.CaseEvent{
		CaseID:        c.ID,
		Title:         title,
		SourceParty:   p.spec.Source,
		TargetParty:   p.spec.Target,
		Type:          p.row.Tag.Type,
		Simulated:     c.Simulated,
		ProcedureDate: date,
	}, nil
}

func (e *ReconciliationEngine) release(log *logger.Logger, p *pendingRow) {
	if p.doc == nil {
		return
	}
	if err := e.fetcher.Release(p.doc.TempID); err != nil {
		log.Warn("releasing document", "temp_id", p.doc.TempID, "error", err)
	}
	p.doc = nil
}

// BlobKey is the storage key of an event's original document.
func BlobKey(caseID, eventID string) string {
	return fmt.Sprintf("cases/%s/events/%s.pdf", caseID, eventID)
}

// RenderTitle renders the milestone title template for a row.
func RenderTitle(spec entities.MilestoneSpec, tag entities.MilestoneTag, row entities.RawLogRow) (string, error) {
	if spec.TitleTemplate == "" {
		return tag.String(), nil
	}
	tmpl, err := template.New(string(spec.Type)).Parse(spec.TitleTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing title template: %w", err)
	}
	var buf bytes.Buffer
	data := struct {
		Tag entities.MilestoneTag
		Row entities.RawLogRow
	}{Tag: tag, Row: row}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering title: %w", err)
	}
	return buf.String(), nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
