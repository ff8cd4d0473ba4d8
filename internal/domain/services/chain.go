package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
)

// CaseEventChain maintains the per-case, per-branch event path.
//
// The real branch (simulated=false) and the simulated branch are separate
// paths. The simulated branch may attach to a real event exactly once, as
// the predecessor of its first event.
//
// Every method takes the Queries it runs on; pass a transaction so that the
// two sides of a link commit together.
type CaseEventChain struct {
	now func() time.Time
}

// NewCaseEventChain creates a new chain service.
func NewCaseEventChain() *CaseEventChain {
	return &CaseEventChain{now: time.Now}
}

// branch holds the events of one case branch indexed by id and the
// case-wide index needed to resolve cross-links.
type branch struct {
	simulated bool
	events    []*entities.CaseEvent
	all       map[string]*entities.CaseEvent
}

func (c *CaseEventChain) loadBranch(ctx context.Context, q ports.Queries, caseID string, simulated bool) (*branch, error) {
	events, err := q.ListEvents(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	b := &branch{simulated: simulated, all: make(map[string]*entities.CaseEvent, len(events))}
	for _, e := range events {
		b.all[e.ID] = e
		if e.Simulated == simulated {
			b.events = append(b.events, e)
		}
	}
	return b, nil
}

// isRoot reports whether e starts its branch: no predecessor, or a
// predecessor on the other branch.
func (b *branch) isRoot(e *entities.CaseEvent) bool {
	if e.PreviousEventID == nil {
		return true
	}
	prev, ok := b.all[*e.PreviousEventID]
	return ok && prev.Simulated != e.Simulated
}

func (b *branch) roots() []*entities.CaseEvent {
	var roots []*entities.CaseEvent
	for _, e := range b.events {
		if b.isRoot(e) {
			roots = append(roots, e)
		}
	}
	return roots
}

func (c *CaseEventChain) requireCase(ctx context.Context, q ports.Queries, caseID string) error {
	found, err := q.FindCase(ctx, caseID)
	if err != nil {
		return fmt.Errorf("finding case: %w", err)
	}
	if found == nil {
		return fmt.Errorf("%w: %s", entities.ErrCaseNotFound, caseID)
	}
	return nil
}

func (c *CaseEventChain) prepare(event *entities.CaseEvent) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = c.now().UTC()
	}
	event.NextEventID = nil
}

// Append inserts event after predecessorID (nil for the branch root) and
// returns the new event's id.
func (c *CaseEventChain) Append(ctx context.Context, q ports.Queries, event *entities.CaseEvent, predecessorID *string) (string, error) {
	if err := c.requireCase(ctx, q, event.CaseID); err != nil {
		return "", err
	}
	b, err := c.loadBranch(ctx, q, event.CaseID, event.Simulated)
	if err != nil {
		return "", err
	}

	c.prepare(event)

	if predecessorID == nil {
		if len(b.roots()) > 0 {
			return "", fmt.Errorf("%w: case %s", entities.ErrDuplicateRoot, event.CaseID)
		}
		event.PreviousEventID = nil
		if err := q.InsertEvent(ctx, event); err != nil {
			return "", fmt.Errorf("inserting event: %w", err)
		}
		return event.ID, nil
	}

	pred, err := q.FindEvent(ctx, *predecessorID)
	if err != nil {
		return "", fmt.Errorf("finding predecessor: %w", err)
	}
	if pred == nil {
		return "", fmt.Errorf("%w: predecessor %s", entities.ErrEventNotFound, *predecessorID)
	}
	if pred.CaseID != event.CaseID {
		return "", fmt.Errorf("%w: predecessor %s is on case %s", entities.ErrCrossCase, pred.ID, pred.CaseID)
	}

	if pred.Simulated != event.Simulated {
		// Only a simulated branch may start from a real event, and only once.
		if !event.Simulated || len(b.events) > 0 {
			return "", fmt.Errorf("%w: case %s", entities.ErrCrossBranch, event.CaseID)
		}
		event.PreviousEventID = &pred.ID
		if err := q.InsertEvent(ctx, event); err != nil {
			return "", fmt.Errorf("inserting event: %w", err)
		}
		return event.ID, nil
	}

	if pred.HasSuccessor() {
		return "", fmt.Errorf("%w: %s -> %s", entities.ErrChainAlreadyLinked, pred.ID, *pred.NextEventID)
	}

	event.PreviousEventID = &pred.ID
	if err := q.InsertEvent(ctx, event); err != nil {
		return "", fmt.Errorf("inserting event: %w", err)
	}
	if err := q.SetNextEvent(ctx, pred.ID, &event.ID); err != nil {
		return "", fmt.Errorf("linking predecessor: %w", err)
	}
	return event.ID, nil
}

// LinkRoot links a lone DEMAND_START root directly to a dispatch-type event
// that has no predecessor. It is the single supported re-link: the root
// must have no successor and the two events must be the only events of
// their branch.
func (c *CaseEventChain) LinkRoot(ctx context.Context, q ports.Queries, caseID, demandEventID, dispatchEventID string) error {
	if err := c.requireCase(ctx, q, caseID); err != nil {
		return err
	}

	demand, err := q.FindEvent(ctx, demandEventID)
	if err != nil {
		return fmt.Errorf("finding demand event: %w", err)
	}
	dispatch, err := q.FindEvent(ctx, dispatchEventID)
	if err != nil {
		return fmt.Errorf("finding dispatch event: %w", err)
	}
	if demand == nil || dispatch == nil {
		return fmt.Errorf("%w: %s, %s", entities.ErrEventNotFound, demandEventID, dispatchEventID)
	}
	if demand.CaseID != caseID || dispatch.CaseID != caseID {
		return fmt.Errorf("%w: link %s -> %s", entities.ErrCrossCase, demand.ID, dispatch.ID)
	}
	if demand.HasSuccessor() {
		return fmt.Errorf("%w: %s -> %s", entities.ErrChainAlreadyLinked, demand.ID, *demand.NextEventID)
	}

	spec, _ := entities.MilestoneFor(dispatch.Type)
	if demand.Type != entities.EventDemandStart ||
		!demand.IsRoot() ||
		!dispatch.IsRoot() ||
		demand.Simulated != dispatch.Simulated ||
		!spec.RootLinkable {
		return fmt.Errorf("%w: %s(%s) -> %s(%s)", entities.ErrRelinkNotSupported, demand.ID, demand.Type, dispatch.ID, dispatch.Type)
	}

	b, err := c.loadBranch(ctx, q, caseID, demand.Simulated)
	if err != nil {
		return err
	}
	for _, e := range b.events {
		if e.ID != demand.ID && e.ID != dispatch.ID {
			return fmt.Errorf("%w: case %s has events beyond the root", entities.ErrRelinkNotSupported, caseID)
		}
	}

	if err := q.SetNextEvent(ctx, demand.ID, &dispatch.ID); err != nil {
		return fmt.Errorf("linking root: %w", err)
	}
	if err := q.SetPreviousEvent(ctx, dispatch.ID, &demand.ID); err != nil {
		return fmt.Errorf("linking dispatch: %w", err)
	}
	return nil
}

// AppendAfterRoot inserts event detached and auto-links it after the lone
// DEMAND_START root via LinkRoot. Both writes happen on q.
func (c *CaseEventChain) AppendAfterRoot(ctx context.Context, q ports.Queries, root *entities.CaseEvent, event *entities.CaseEvent) (string, error) {
	c.prepare(event)
	event.PreviousEventID = nil
	if err := q.InsertEvent(ctx, event); err != nil {
		return "", fmt.Errorf("inserting event: %w", err)
	}
	if err := c.LinkRoot(ctx, q, event.CaseID, root.ID, event.ID); err != nil {
		return "", err
	}
	return event.ID, nil
}

// Ordered walks the branch from its root to its tail.
func (c *CaseEventChain) Ordered(ctx context.Context, q ports.Queries, caseID string, simulated bool) ([]*entities.CaseEvent, error) {
	b, err := c.loadBranch(ctx, q, caseID, simulated)
	if err != nil {
		return nil, err
	}
	roots := b.roots()
	if len(roots) == 0 {
		return nil, nil
	}
	if len(roots) > 1 {
		return nil, fmt.Errorf("%w: case %s has %d roots", entities.ErrDuplicateRoot, caseID, len(roots))
	}

	out := make([]*entities.CaseEvent, 0, len(b.events))
	seen := make(map[string]bool, len(b.events))
	for cur := roots[0]; cur != nil; {
		if seen[cur.ID] {
			return nil, fmt.Errorf("cycle at event %s", cur.ID)
		}
		seen[cur.ID] = true
		out = append(out, cur)
		if cur.NextEventID == nil {
			break
		}
		next, ok := b.all[*cur.NextEventID]
		if !ok || next.Simulated != simulated {
			return nil, fmt.Errorf("%w: dangling successor %s of %s", entities.ErrEventNotFound, *cur.NextEventID, cur.ID)
		}
		cur = next
	}
	return out, nil
}

// Tail returns the last event of the branch, or nil when it is empty.
func (c *CaseEventChain) Tail(ctx context.Context, q ports.Queries, caseID string, simulated bool) (*entities.CaseEvent, error) {
	ordered, err := c.Ordered(ctx, q, caseID, simulated)
	if err != nil {
		return nil, err
	}
	if len(ordered) == 0 {
		return nil, nil
	}
	return ordered[len(ordered)-1], nil
}

// ViolationKind names a broken chain invariant.
type ViolationKind string

const (
	ViolationMultipleRoots  ViolationKind = "multiple_roots"
	ViolationNoRoot         ViolationKind = "no_root"
	ViolationFanOut         ViolationKind = "fan_out"
	ViolationAsymmetricLink ViolationKind = "asymmetric_link"
	ViolationDanglingLink   ViolationKind = "dangling_link"
	ViolationCrossCase      ViolationKind = "cross_case"
	ViolationUnreachable    ViolationKind = "unreachable"
)

// Violation describes one broken invariant.
type Violation struct {
	Kind      ViolationKind `json:"kind"`
	EventID   string        `json:"event_id,omitempty"`
	Simulated bool          `json:"simulated"`
	Detail    string        `json:"detail"`
}

// Verify checks that each branch of the case is a simple path and returns
// every violation found. A nil result means the chain is sound.
func (c *CaseEventChain) Verify(ctx context.Context, q ports.Queries, caseID string) ([]Violation, error) {
	if err := c.requireCase(ctx, q, caseID); err != nil {
		return nil, err
	}
	var violations []Violation
	for _, simulated := range []bool{false, true} {
		b, err := c.loadBranch(ctx, q, caseID, simulated)
		if err != nil {
			return nil, err
		}
		violations = append(violations, b.verify()...)
	}
	return violations, nil
}

func (b *branch) verify() []Violation {
	if len(b.events) == 0 {
		return nil
	}
	var out []Violation
	add := func(kind ViolationKind, id, format string, args ...any) {
		out = append(out, Violation{Kind: kind, EventID: id, Simulated: b.simulated, Detail: fmt.Sprintf(format, args...)})
	}

	predecessorOf := make(map[string]string)
	for _, e := range b.events {
		if e.NextEventID != nil {
			next, ok := b.all[*e.NextEventID]
			switch {
			case !ok:
				add(ViolationDanglingLink, e.ID, "successor %s does not exist", *e.NextEventID)
			case next.CaseID != e.CaseID:
				add(ViolationCrossCase, e.ID, "successor %s is on case %s", next.ID, next.CaseID)
			case next.PreviousEventID == nil || *next.PreviousEventID != e.ID:
				add(ViolationAsymmetricLink, e.ID, "successor %s does not point back", next.ID)
			}
		}
		if e.PreviousEventID == nil {
			continue
		}
		prev, ok := b.all[*e.PreviousEventID]
		switch {
		case !ok:
			add(ViolationDanglingLink, e.ID, "predecessor %s does not exist", *e.PreviousEventID)
			continue
		case prev.CaseID != e.CaseID:
			add(ViolationCrossCase, e.ID, "predecessor %s is on case %s", prev.ID, prev.CaseID)
			continue
		case prev.Simulated != e.Simulated:
			// Cross-link into the other branch; the predecessor keeps its
			// own successor.
			continue
		case prev.NextEventID == nil || *prev.NextEventID != e.ID:
			add(ViolationAsymmetricLink, e.ID, "predecessor %s does not point forward", prev.ID)
		}
		if other, dup := predecessorOf[prev.ID]; dup {
			add(ViolationFanOut, prev.ID, "has two successors: %s and %s", other, e.ID)
		}
		predecessorOf[prev.ID] = e.ID
	}

	roots := b.roots()
	switch {
	case len(roots) == 0:
		add(ViolationNoRoot, "", "every event has a predecessor (cycle)")
	case len(roots) > 1:
		add(ViolationMultipleRoots, roots[1].ID, "%d roots", len(roots))
	}

	reached := make(map[string]bool, len(b.events))
	for _, root := range roots {
		for cur := root; cur != nil && !reached[cur.ID]; {
			reached[cur.ID] = true
			if cur.NextEventID == nil {
				break
			}
			cur = b.all[*cur.NextEventID]
			if cur != nil && cur.Simulated != b.simulated {
				break
			}
		}
	}
	for _, e := range b.events {
		if !reached[e.ID] {
			add(ViolationUnreachable, e.ID, "not reachable from a root")
		}
	}
	return out
}
