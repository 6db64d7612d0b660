package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
	"github.com/custodia-labs/mailpilot/internal/core/ports/driven"
	"github.com/custodia-labs/mailpilot/internal/core/ports/driving"
	"github.com/custodia-labs/mailpilot/internal/logger"
)

// Ensure Poller implements the interface.
var _ driving.Poller = (*Poller)(nil)

// repliedIDsCap bounds the persisted replied-id log; oldest ids fall off
// first, mirroring the reply log cap.
const repliedIDsCap = 1000

// cycleHistoryKeep is how many cycle results the history store retains.
const cycleHistoryKeep = 100

// Poller is the mailbox monitoring state machine. Each cycle probes
// connectivity, fetches unread messages, filters them, mirrors the filtered
// set to the cache, and — when auto-send is eligible — drafts and dispatches
// replies sequentially.
//
// All mutable poll state (single-flight flag, in-progress ids, replied ids)
// lives on this struct; cycles are self-excluding and a trigger during an
// active cycle is a silent no-op.
type Poller struct {
	transport  driven.MailTransport
	filter     *EmailFilter
	replier    driving.ReplyService
	dispatcher *Dispatcher
	knowledge  driving.KnowledgeService
	state      driven.ReplyStateStore
	cycles     driven.CycleStore
	audit      driven.AuditLog
	settings   SettingsProvider

	mu          sync.Mutex
	cycleActive bool
	inProgress  map[string]struct{}
	replied     map[string]struct{}
	repliedLog  []string
	onlineKnown bool
	online      bool
	running     bool
	stopCh      chan struct{}
	checkCh     chan struct{}
	subscribers []chan driving.PollerEvent
	wg          sync.WaitGroup

	now func() time.Time
}

// NewPoller creates a poller. The knowledge service, cycle store and audit
// log are optional.
func NewPoller(
	transport driven.MailTransport,
	replier driving.ReplyService,
	dispatcher *Dispatcher,
	knowledge driving.KnowledgeService,
	state driven.ReplyStateStore,
	cycles driven.CycleStore,
	audit driven.AuditLog,
	settings SettingsProvider,
) *Poller {
	if settings == nil {
		settings = func() domain.AssistantSettings { return domain.DefaultSettings() }
	}
	return &Poller{
		transport:  transport,
		filter:     NewEmailFilter(),
		replier:    replier,
		dispatcher: dispatcher,
		knowledge:  knowledge,
		state:      state,
		cycles:     cycles,
		audit:      audit,
		settings:   settings,
		inProgress: make(map[string]struct{}),
		replied:    make(map[string]struct{}),
		checkCh:    make(chan struct{}, 1),
		now:        time.Now,
	}
}

// Run starts the poll loop. It blocks until the context is cancelled or
// Stop is called. Shutdown stops future ticks but never preempts an
// in-flight cycle.
func (p *Poller) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	if err := p.loadRepliedIDs(ctx); err != nil {
		logger.Warn("Loading replied ids failed, starting empty: %v", err)
	}

	// First check immediately on startup.
	p.CheckOnce(ctx) //nolint:errcheck

	ticker := time.NewTicker(p.settings().PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			return ctx.Err()
		case <-stopCh:
			p.wg.Wait()
			return nil
		case <-ticker.C:
			p.CheckOnce(ctx) //nolint:errcheck
		case <-p.checkCh:
			p.CheckOnce(ctx) //nolint:errcheck
		}
	}
}

// Stop prevents future ticks and waits for the active cycle to finish.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// CheckNow queues an out-of-band poll cycle, e.g. on a transport push
// notification. The queue holds at most one pending check.
func (p *Poller) CheckNow() {
	select {
	case p.checkCh <- struct{}{}:
	default:
	}
}

// Subscribe registers an observer for poller events. Slow observers miss
// events rather than blocking the cycle.
func (p *Poller) Subscribe() <-chan driving.PollerEvent {
	ch := make(chan driving.PollerEvent, 16)
	p.mu.Lock()
	p.subscribers = append(p.subscribers, ch)
	p.mu.Unlock()
	return ch
}

func (p *Poller) broadcast(ev driving.PollerEvent) {
	p.mu.Lock()
	subs := make([]chan driving.PollerEvent, len(p.subscribers))
	copy(subs, p.subscribers)
	p.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// CheckOnce runs one guarded poll cycle. A call that finds a cycle already
// active returns ErrCycleInProgress without queuing or retrying — skipped
// cycles are intentional backpressure.
func (p *Poller) CheckOnce(ctx context.Context) error {
	p.mu.Lock()
	if p.cycleActive {
		p.mu.Unlock()
		logger.Debug("Poll cycle already active, skipping trigger")
		return domain.ErrCycleInProgress
	}
	p.cycleActive = true
	p.mu.Unlock()

	p.wg.Add(1)
	defer p.wg.Done()
	defer func() {
		p.mu.Lock()
		p.cycleActive = false
		p.mu.Unlock()
	}()

	p.runCycle(ctx)
	return nil
}

// runCycle executes the Checking → Filtering → ReplyDrafting → Sending →
// MarkingRead sequence. Errors are caught per stage and per message; a
// cycle always runs to completion once started.
func (p *Poller) runCycle(ctx context.Context) {
	logger.Section("Poll Cycle")

	result := driven.CycleResult{
		ID:        uuid.New().String(),
		StartedAt: p.now(),
	}
	defer func() {
		result.EndedAt = p.now()
		p.recordCycle(ctx, result)
	}()

	// Connectivity probe first; offline skips the fetch entirely.
	if err := p.transport.Ping(ctx); err != nil {
		logger.Info("Transport unreachable: %v", err)
		p.setConnectivity(false)
		result.Offline = true
		return
	}
	p.setConnectivity(true)

	emails, err := p.transport.FetchUnread(ctx)
	if err != nil {
		logger.Warn("Unread fetch failed: %v", err)
		result.Error = err.Error()
		return
	}
	result.Fetched = len(emails)

	settings := p.settings()
	outcome := p.filter.Apply(emails, settings)
	result.Filtered = len(outcome.Kept)
	for _, drop := range outcome.Dropped {
		if p.audit != nil {
			p.audit.Event("filtered %s (%s): %s", drop.Email.ID, drop.Email.From, drop.Reason)
		}
	}

	// Mirror the filtered set so consumers can read without re-fetching.
	if err := p.state.SaveCachedEmails(ctx, outcome.Kept); err != nil {
		logger.Warn("Email cache mirror failed: %v", err)
	}
	p.broadcast(driving.PollerEvent{Kind: "emails", Emails: outcome.Kept})

	p.ingestEmails(ctx, outcome.Kept)

	if !p.autoReplyEligible(settings, outcome.Kept) {
		return
	}

	// Sequential processing keeps in-progress bookkeeping simple and
	// avoids duplicate-reply races on the same mailbox.
	for _, email := range outcome.Kept {
		if p.processMessage(ctx, email) {
			result.Replied++
		}
	}
}

// autoReplyEligible gates reply drafting: auto-send on, current local time
// inside the send window, and at least one candidate.
func (p *Poller) autoReplyEligible(settings domain.AssistantSettings, kept []domain.Email) bool {
	if !settings.AutoSend || len(kept) == 0 {
		return false
	}
	clock := p.now().Format("15:04")
	if !settings.InSendWindow(clock) {
		logger.Debug("Outside send window %s-%s (now %s)", settings.SendStart, settings.SendEnd, clock)
		return false
	}
	return true
}

// processMessage drafts and dispatches one reply. The message id is claimed
// into the in-progress set before any asynchronous work and released on
// every exit path. Returns true when the reply was fully committed.
func (p *Poller) processMessage(ctx context.Context, email domain.Email) bool {
	if IsNoReplySender(email) {
		logger.Debug("Skipping no-reply sender %s", email.From)
		return false
	}

	p.mu.Lock()
	if _, done := p.replied[email.ID]; done {
		p.mu.Unlock()
		return false
	}
	if _, busy := p.inProgress[email.ID]; busy {
		p.mu.Unlock()
		return false
	}
	p.inProgress[email.ID] = struct{}{}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.inProgress, email.ID)
		p.mu.Unlock()
	}()

	draft, err := p.replier.Draft(ctx, email)
	if err != nil {
		logger.Warn("Draft failed for %s: %v", email.ID, err)
		if p.audit != nil {
			p.audit.Event("draft failed for %s: %v", email.ID, err)
		}
		return false
	}

	if err := p.dispatcher.Dispatch(ctx, email, draft); err != nil {
		logger.Warn("Dispatch failed for %s: %v", email.ID, err)
		return false
	}

	p.commitReplied(ctx, email.ID)
	p.broadcast(driving.PollerEvent{Kind: "replied", MessageID: email.ID})
	return true
}

// commitReplied records the id as answered, persists the capped log and
// removes the message from the cached filtered set.
func (p *Poller) commitReplied(ctx context.Context, id string) {
	p.mu.Lock()
	p.replied[id] = struct{}{}
	p.repliedLog = append(p.repliedLog, id)
	if len(p.repliedLog) > repliedIDsCap {
		drop := p.repliedLog[:len(p.repliedLog)-repliedIDsCap]
		for _, old := range drop {
			delete(p.replied, old)
		}
		p.repliedLog = p.repliedLog[len(p.repliedLog)-repliedIDsCap:]
	}
	ids := make([]string, len(p.repliedLog))
	copy(ids, p.repliedLog)
	p.mu.Unlock()

	if err := p.state.SaveRepliedIDs(ctx, ids); err != nil {
		logger.Warn("Persisting replied ids failed: %v", err)
	}

	cached, err := p.state.LoadCachedEmails(ctx)
	if err != nil {
		return
	}
	remaining := cached[:0]
	for _, email := range cached {
		if email.ID != id {
			remaining = append(remaining, email)
		}
	}
	if err := p.state.SaveCachedEmails(ctx, remaining); err != nil {
		logger.Warn("Updating email cache failed: %v", err)
	}
}

// ingestEmails adds the filtered messages to the knowledge base so future
// replies can retrieve them. Best effort.
func (p *Poller) ingestEmails(ctx context.Context, emails []domain.Email) {
	if p.knowledge == nil || len(emails) == 0 {
		return
	}

	docs := make([]domain.IngestDocument, 0, len(emails))
	for _, email := range emails {
		if email.Body == "" {
			continue
		}
		docs = append(docs, domain.IngestDocument{
			ID:      email.ID,
			From:    email.From,
			Subject: email.Subject,
			Date:    email.Date,
			Body:    email.Body,
			Kind:    domain.ProvenanceEmail,
		})
	}
	if len(docs) == 0 {
		return
	}

	if _, err := p.knowledge.AddDocuments(ctx, docs); err != nil {
		logger.Warn("Email ingestion failed: %v", err)
	}
}

// setConnectivity emits online/offline events edge-triggered: once per
// transition, including the first determination.
func (p *Poller) setConnectivity(online bool) {
	p.mu.Lock()
	changed := !p.onlineKnown || p.online != online
	p.onlineKnown = true
	p.online = online
	p.mu.Unlock()

	if !changed {
		return
	}
	kind := "online"
	if !online {
		kind = "offline"
	}
	logger.Info("Connectivity: %s", kind)
	p.broadcast(driving.PollerEvent{Kind: kind})
}

func (p *Poller) loadRepliedIDs(ctx context.Context) error {
	ids, err := p.state.LoadRepliedIDs(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.repliedLog = ids
	p.replied = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		p.replied[id] = struct{}{}
	}
	return nil
}

func (p *Poller) recordCycle(ctx context.Context, result driven.CycleResult) {
	if p.cycles == nil {
		return
	}
	if err := p.cycles.Record(ctx, result); err != nil {
		logger.Warn("Recording cycle failed: %v", err)
		return
	}
	if err := p.cycles.Prune(ctx, cycleHistoryKeep); err != nil {
		logger.Warn("Pruning cycle history failed: %v", err)
	}
}
