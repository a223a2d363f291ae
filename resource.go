package arbor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	// ErrLoadCancelled is reported by providers for loads cancelled through
	// CancelLoad.
	ErrLoadCancelled = errors.New("arbor: resource load cancelled")
	// ErrUnknownTicket is returned for ticket ids the manager does not track.
	ErrUnknownTicket = errors.New("arbor: unknown resource ticket")
	// ErrNoProvider is reported when a resource is requested from a core
	// without a provider.
	ErrNoProvider = errors.New("arbor: no resource provider")
)

// TicketID identifies a resource request.
type TicketID uint32

// TicketState is the state of a ticket as seen by its client.
type TicketState uint8

const (
	TicketLoading TicketState = iota
	TicketSucceeded
	TicketFailed
	TicketDead
)

// String returns the state name.
func (s TicketState) String() string {
	switch s {
	case TicketLoading:
		return "Loading"
	case TicketSucceeded:
		return "Succeeded"
	case TicketFailed:
		return "Failed"
	case TicketDead:
		return "Dead"
	default:
		return fmt.Sprintf("TicketState(%d)", s)
	}
}

// ticketPhase is the internal bookkeeping state. New outcomes are notified
// once and then move to their old counterpart.
type ticketPhase uint8

const (
	phaseLoading ticketPhase = iota
	phaseNewSucceeded
	phaseOldSucceeded
	phaseNewFailed
	phaseOldFailed
	phaseDead
)

// LoadNotifier receives load outcomes. Safe from any goroutine.
type LoadNotifier interface {
	NotifyLoadSucceeded(id TicketID, h ResourceHandle)
	NotifyLoadFailed(id TicketID, err error)
}

// ResourceProvider loads resources asynchronously. Load must not block; the
// provider reports exactly one outcome per ticket to n, from any goroutine,
// even after CancelLoad (typically failing with ErrLoadCancelled).
type ResourceProvider interface {
	Load(id TicketID, path string, n LoadNotifier)
	CancelLoad(id TicketID)
}

// resourceBinding receives the outcome of a load on the update stage.
type resourceBinding interface {
	resourceLoaded(h ResourceHandle)
	resourceFailed(err error)
}

var ticketIDCounter atomic.Uint32

// Ticket tracks one resource request. Its state is owned by the update
// stage; the producer learns about it through notifications.
type Ticket struct {
	id      TicketID
	path    string
	phase   ticketPhase
	handle  ResourceHandle
	err     error
	binding resourceBinding
}

// NewTicket creates a ticket for path. Safe from any goroutine.
func NewTicket(path string) *Ticket {
	return &Ticket{id: TicketID(ticketIDCounter.Add(1)), path: path}
}

// ID returns the ticket identifier.
func (t *Ticket) ID() TicketID { return t.id }

// Path returns the requested path.
func (t *Ticket) Path() string { return t.path }

// State returns the client-visible state. Update stage only.
func (t *Ticket) State() TicketState {
	switch t.phase {
	case phaseNewSucceeded, phaseOldSucceeded:
		return TicketSucceeded
	case phaseNewFailed, phaseOldFailed:
		return TicketFailed
	case phaseDead:
		return TicketDead
	default:
		return TicketLoading
	}
}

// Handle returns the loaded handle, or nil.
func (t *Ticket) Handle() ResourceHandle { return t.handle }

// Err returns the failure, or nil.
func (t *Ticket) Err() error { return t.err }

type completion struct {
	id     TicketID
	handle ResourceHandle
	err    error
}

// ResourceManager tracks tickets from request to notification. Provider
// completions arrive on any goroutine and wait in an inbox until the update
// stage drains them with UpdateCache.
type ResourceManager struct {
	provider ResourceProvider
	logger   *slog.Logger

	mu    sync.Mutex
	inbox []completion

	drained []completion
	tickets map[TicketID]*Ticket
	loading int
	fresh   []*Ticket
}

// NewResourceManager creates a manager loading through provider, which may be
// nil.
func NewResourceManager(provider ResourceProvider, logger *slog.Logger) *ResourceManager {
	if logger == nil {
		logger = discardLogger()
	}
	return &ResourceManager{
		provider: provider,
		logger:   logger,
		tickets:  make(map[TicketID]*Ticket),
	}
}

// NotifyLoadSucceeded records a successful load. Safe from any goroutine.
func (m *ResourceManager) NotifyLoadSucceeded(id TicketID, h ResourceHandle) {
	m.mu.Lock()
	m.inbox = append(m.inbox, completion{id: id, handle: h})
	m.mu.Unlock()
}

// NotifyLoadFailed records a failed load. Safe from any goroutine.
func (m *ResourceManager) NotifyLoadFailed(id TicketID, err error) {
	if err == nil {
		err = errors.New("unknown failure")
	}
	m.mu.Lock()
	m.inbox = append(m.inbox, completion{id: id, err: err})
	m.mu.Unlock()
}

// request registers t and starts loading. Update stage only.
func (m *ResourceManager) request(t *Ticket, b resourceBinding) {
	if _, ok := m.tickets[t.id]; ok {
		return
	}
	t.binding = b
	t.phase = phaseLoading
	m.tickets[t.id] = t
	m.loading++
	if m.provider == nil {
		m.NotifyLoadFailed(t.id, ErrNoProvider)
		return
	}
	m.logger.Debug("Resource requested.", "ticket", t.id, "path", t.path)
	m.provider.Load(t.id, t.path, m)
}

// Ticket returns the tracked ticket with id.
func (m *ResourceManager) Ticket(id TicketID) (*Ticket, bool) {
	t, ok := m.tickets[id]
	return t, ok
}

// UpdateCache applies every completion received since the last call.
// Handles that arrive for dead or unknown tickets are passed to release.
// Update stage only.
func (m *ResourceManager) UpdateCache(release func(ResourceHandle)) int {
	m.mu.Lock()
	m.drained, m.inbox = m.inbox, m.drained[:0]
	m.mu.Unlock()

	for i, c := range m.drained {
		m.complete(c, release)
		m.drained[i] = completion{}
	}
	return len(m.drained)
}

func (m *ResourceManager) complete(c completion, release func(ResourceHandle)) {
	t, ok := m.tickets[c.id]
	if !ok {
		m.logger.Warn("Completion for unknown ticket dropped.", "ticket", c.id, "error", ErrUnknownTicket)
		if c.handle != nil {
			release(c.handle)
		}
		return
	}
	switch t.phase {
	case phaseLoading:
		m.loading--
		if c.err != nil {
			t.phase = phaseNewFailed
			t.err = fmt.Errorf("load %q: %w", t.path, c.err)
			if t.binding != nil {
				t.binding.resourceFailed(t.err)
			}
		} else {
			t.phase = phaseNewSucceeded
			t.handle = c.handle
			if t.binding != nil {
				t.binding.resourceLoaded(c.handle)
			}
		}
		m.fresh = append(m.fresh, t)
	case phaseDead:
		m.loading--
		delete(m.tickets, t.id)
		if c.handle != nil {
			release(c.handle)
		}
		m.logger.Debug("Dead ticket drained.", "ticket", t.id)
	default:
		m.logger.Warn("Duplicate completion ignored.", "ticket", t.id, "state", t.State())
	}
}

// NotifyTickets emits one notification per outcome recorded since the last
// call and moves those tickets to their old state. Update stage only.
func (m *ResourceManager) NotifyTickets(emit func(Notification)) {
	for i, t := range m.fresh {
		m.fresh[i] = nil
		switch t.phase {
		case phaseNewSucceeded:
			t.phase = phaseOldSucceeded
			emit(Notification{Type: ResourceLoaded, Ticket: t.id, Path: t.path, Handle: t.handle})
		case phaseNewFailed:
			t.phase = phaseOldFailed
			emit(Notification{Type: ResourceFailed, Ticket: t.id, Path: t.path, Err: t.err})
		}
	}
	m.fresh = m.fresh[:0]
}

// Discard drops a ticket. A load in flight is cancelled and the ticket stays
// dead until the provider reports its outcome; a loaded handle is passed to
// release. Update stage only.
func (m *ResourceManager) Discard(id TicketID, release func(ResourceHandle)) error {
	t, ok := m.tickets[id]
	if !ok {
		return fmt.Errorf("discard ticket %d: %w", id, ErrUnknownTicket)
	}
	switch t.phase {
	case phaseLoading:
		t.phase = phaseDead
		t.binding = nil
		if m.provider != nil {
			m.provider.CancelLoad(id)
		}
		return nil
	case phaseDead:
		return nil
	case phaseNewSucceeded, phaseOldSucceeded:
		if t.handle != nil {
			release(t.handle)
		}
	}
	t.phase = phaseDead
	t.binding = nil
	t.handle = nil
	delete(m.tickets, id)
	return nil
}

// ResourcesToProcess reports whether loads are in flight or outcomes wait to
// be notified, so the caller keeps updating.
func (m *ResourceManager) ResourcesToProcess() bool {
	if m.loading > 0 || len(m.fresh) > 0 {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inbox) > 0
}
