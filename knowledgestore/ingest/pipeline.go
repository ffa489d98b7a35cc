// Package ingest implements KnowledgeStore's ingestion pipeline: the
// normalize/fingerprint/enrich/summarize/persist/index/audit sequence run
// per request within an idempotent, append-only IngestionRun.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/opsplatform/core/knowledgestore/domain"
	"github.com/opsplatform/core/knowledgestore/ports"
	"github.com/opsplatform/core/pkg/apierr"
	"github.com/opsplatform/core/pkg/common"
	"github.com/opsplatform/core/pkg/observe"
)

const summaryMaxLen = 140

// Pipeline is KnowledgeStore's ingestion, search, and reprocess use-case.
// It depends only on ports, per the platform's layering rule that the core
// never imports a concrete adapter.
type Pipeline struct {
	Repo  ports.Repository
	Index ports.SearchIndex
	Blob  ports.BlobStore // optional; nil disables persist-raw
	Clock common.Clock
	Hook  observe.Hook

	// entryLocks serializes version appends per (source.id, external_id),
	// satisfying the per-entry ordering guarantee.
	entryLocks *common.KeyedMutex
}

// New builds a Pipeline. Clock and Hook default to SystemClock and Noop if
// nil, matching the platform's "adapters are optional, wiring is explicit"
// construction style.
func New(repo ports.Repository, index ports.SearchIndex, blob ports.BlobStore, clock common.Clock, hook observe.Hook) *Pipeline {
	if clock == nil {
		clock = common.SystemClock{}
	}
	if hook == nil {
		hook = observe.Noop{}
	}
	return &Pipeline{
		Repo:       repo,
		Index:      index,
		Blob:       blob,
		Clock:      clock,
		Hook:       hook,
		entryLocks: common.NewKeyedMutex(),
	}
}

// Ingest runs the pipeline over requests within a single run. If runID is
// empty a fresh one is minted. Ingest is idempotent on runID: a prior
// run with the same id (completed or failed) is returned verbatim with no
// new side effects, contract.
func (p *Pipeline) Ingest(ctx context.Context, runID string, requests []domain.IngestionRequest) (*domain.IngestionRun, error) {
	if runID == "" {
		runID = common.NewID()
	}
	if existing, err := p.Repo.GetRun(ctx, runID); err == nil {
		return existing, nil
	}

	p.Hook.OnEvent(ctx, "ingest.start", map[string]any{"run_id": runID, "count": len(requests)})

	run := &domain.IngestionRun{
		RunID:     runID,
		Requests:  requests,
		StartedAt: p.Clock.Now(),
	}

	results := make([]domain.IngestionResult, len(requests))
	events := make([][]domain.AuditEvent, len(requests))

	// Documents within one run may be processed concurrently, as long as
	// per-entry ordering (enforced by entryLocks inside processOne) holds.
	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req domain.IngestionRequest) {
			defer wg.Done()
			res, evs := p.processOne(ctx, runID, req)
			results[i] = res
			events[i] = evs
		}(i, req)
	}
	wg.Wait()

	anySucceeded := false
	for i := range results {
		run.AuditEvents = append(run.AuditEvents, events[i]...)
		if !results[i].Failed {
			anySucceeded = true
		}
	}
	run.Results = results
	run.FinishedAt = p.Clock.Now()
	if anySucceeded {
		run.Status = domain.RunCompleted
	} else {
		run.Status = domain.RunFailed
	}

	if err := p.Repo.PutRun(ctx, run); err != nil {
		return nil, apierr.Externalf(err, "persisting ingestion run %s", runID)
	}
	p.Hook.OnEvent(ctx, "ingest.complete", map[string]any{"run_id": runID, "status": string(run.Status)})
	return run, nil
}

func (p *Pipeline) processOne(ctx context.Context, runID string, req domain.IngestionRequest) (domain.IngestionResult, []domain.AuditEvent) {
	var events []domain.AuditEvent
	audit := func(step domain.AuditStep, status domain.AuditStatus, entryID string, detail string) {
		var d *string
		if detail != "" {
			d = &detail
		}
		events = append(events, domain.AuditEvent{
			RunID:   runID,
			Step:    step,
			Status:  status,
			EntryID: entryID,
			Ts:      p.Clock.Now(),
			Detail:  d,
		})
		p.Hook.OnEvent(ctx, "ingest.step", map[string]any{"run_id": runID, "entry_id": entryID, "step": string(step), "status": string(status)})
	}

	entryID := domain.EntryID(req.Source.ID, req.ExternalID)
	p.Hook.OnEvent(ctx, "ingest.step", map[string]any{"run_id": runID, "entry_id": entryID, "step": "start"})

	var rawURI *string
	if p.Blob != nil {
		key := path.Join("runs", runID, req.ExternalID+".txt")
		uri, err := p.Blob.Put(ctx, key, []byte(req.Content))
		if err != nil {
			audit(domain.StepPersistRaw, domain.StatusFailed, entryID, err.Error())
			return failResult(runID, err), events
		}
		rawURI = &uri
	}
	audit(domain.StepPersistRaw, domain.StatusOK, entryID, "")

	normalized, taxonomy := normalize(req.Content, req.Taxonomy)
	audit(domain.StepNormalize, domain.StatusOK, entryID, "")

	sum := sha256.Sum256([]byte(normalized))
	fingerprint := hex.EncodeToString(sum[:])

	tags := enrich(req.Tags, req.Source.Type)
	audit(domain.StepEnrich, domain.StatusOK, entryID, "")

	summary := req.Summary
	if summary == nil || *summary == "" {
		s := summarize(normalized)
		summary = &s
	}
	audit(domain.StepSummarize, domain.StatusOK, entryID, "")

	version := domain.Version{
		ID:                common.NewID(),
		Fingerprint:       fingerprint,
		NormalizedContent: normalized,
		Summary:           *summary,
		Tags:              tags,
		Taxonomy:          taxonomy,
		RawURI:            rawURI,
		CreatedAt:         p.Clock.Now(),
	}

	p.entryLocks.Lock(entryID)
	entry, deduped, err := p.persist(ctx, entryID, req, version)
	p.entryLocks.Unlock(entryID)
	if err != nil {
		audit(domain.StepPersist, domain.StatusFailed, entryID, err.Error())
		return failResult(runID, err), events
	}
	if deduped {
		latest, _ := entry.LatestVersion()
		audit(domain.StepPersist, domain.StatusDeduplicated, entryID, "")
		if err := p.Index.Index(ctx, entry, latest); err != nil {
			audit(domain.StepIndex, domain.StatusFailed, entryID, err.Error())
			return failResult(runID, err), events
		}
		audit(domain.StepIndex, domain.StatusOK, entryID, "")
		return domain.IngestionResult{
			EntryID:      entryID,
			VersionID:    latest.ID,
			Fingerprint:  latest.Fingerprint,
			RunID:        runID,
			Deduplicated: true,
		}, events
	}

	audit(domain.StepPersist, domain.StatusVersioned, entryID, "")
	if err := p.Index.Index(ctx, entry, version); err != nil {
		audit(domain.StepIndex, domain.StatusFailed, entryID, err.Error())
		return failResult(runID, err), events
	}
	audit(domain.StepIndex, domain.StatusOK, entryID, "")

	return domain.IngestionResult{
		EntryID:      entryID,
		VersionID:    version.ID,
		Fingerprint:  version.Fingerprint,
		RunID:        runID,
		Deduplicated: false,
	}, events
}

// persist loads the entry (if any), decides dedup vs version-append under
// the entry lock already held by the caller, and writes the result back.
func (p *Pipeline) persist(ctx context.Context, entryID string, req domain.IngestionRequest, version domain.Version) (*domain.KnowledgeEntry, bool, error) {
	entry, err := p.Repo.GetEntry(ctx, entryID)
	if err != nil {
		if !apierr.IsNotFound(err) {
			return nil, false, err
		}
		entry = &domain.KnowledgeEntry{
			ID:         entryID,
			Source:     req.Source,
			ExternalID: req.ExternalID,
		}
	}

	if latest, ok := entry.LatestVersion(); ok && latest.Fingerprint == version.Fingerprint {
		return entry, true, nil
	}

	if err := entry.AddVersion(version); err != nil {
		return nil, false, err
	}
	if err := p.Repo.PutEntry(ctx, entry); err != nil {
		return nil, false, apierr.Externalf(err, "persisting entry %s", entryID)
	}
	return entry, false, nil
}

func failResult(runID string, err error) domain.IngestionResult {
	return domain.IngestionResult{RunID: runID, Failed: true, Error: err.Error()}
}

// normalize converts CRLF to LF, strips leading/trailing whitespace per
// line and joins the lines with "\n" (no trailing newline is added), and
// deduplicates taxonomy tokens preserving first occurrence
func normalize(content string, taxonomy []string) (string, []string) {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	normalized := strings.Join(lines, "\n")

	seen := make(map[string]struct{}, len(taxonomy))
	dedup := make([]string, 0, len(taxonomy))
	for _, t := range taxonomy {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		dedup = append(dedup, t)
	}
	return normalized, dedup
}

// enrich unions the incoming tag set with a derived source:<type> tag,
// duplicates dropped by key
func enrich(tags []domain.Tag, sourceType domain.SourceType) []domain.Tag {
	byKey := make(map[string]domain.Tag, len(tags)+1)
	order := make([]string, 0, len(tags)+1)
	for _, t := range tags {
		if _, ok := byKey[t.Key]; !ok {
			order = append(order, t.Key)
		}
		byKey[t.Key] = t
	}
	derivedValue := string(sourceType)
	derivedKey := "source"
	if _, ok := byKey[derivedKey]; !ok {
		order = append(order, derivedKey)
	}
	byKey[derivedKey] = domain.Tag{Key: derivedKey, Value: &derivedValue}

	out := make([]domain.Tag, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out
}

// summarize produces a deterministic 140-character, ellipsis-truncated
// single-line projection of normalized content
func summarize(normalized string) string {
	singleLine := strings.Join(strings.Fields(normalized), " ")
	if len(singleLine) <= summaryMaxLen {
		return singleLine
	}
	return fmt.Sprintf("%s…", singleLine[:summaryMaxLen-1])
}
