package sync

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"dirsync/core/directory"
	"dirsync/core/progress"
	"dirsync/core/provision"

	"go.uber.org/zap"
)

// Session is the explicit per-run handoff object between the upload, analyze
// and execute phases. It is owned by the orchestrating caller and passed by
// reference; no dataset ever lives in package-level state.
type Session struct {
	// ID identifies the run for logging and progress correlation.
	ID string

	// Rows is the uploaded snapshot, one SourceRow per input record.
	Rows []SourceRow

	// Analysis is set by Analyze and consumed by Execute.
	Analysis *AnalysisResult
}

// ErrNotAnalyzed is returned by Execute when the session has no analysis yet.
var ErrNotAnalyzed = errors.New("session has not been analyzed")

// Engine is the top-level plan-then-execute reconciliation engine. It holds
// only collaborators and configuration; all run state lives in the Session
// and the values returned from Analyze and Execute.
type Engine struct {
	dir      directory.Directory
	prov     provision.Provisioner
	reporter progress.Reporter
	mapper   *Mapper
	opts     Options
	log      *zap.Logger
}

// New creates an engine. prov may be nil when home provisioning is disabled
// and reporter may be nil to disable progress reporting.
func New(dir directory.Directory, prov provision.Provisioner, reporter progress.Reporter, mapper *Mapper, opts Options, log *zap.Logger) *Engine {
	opts.setDefaults()
	if reporter == nil {
		reporter = progress.NopReporter{}
	}
	return &Engine{dir: dir, prov: prov, reporter: reporter, mapper: mapper, opts: opts, log: log}
}

// Analyze diffs the session's snapshot against live directory state and
// stores the resulting action plan on the session. Planning problems surface
// as Error actions inside the returned analysis, never as a returned error.
func (e *Engine) Analyze(ctx context.Context, session *Session) (*AnalysisResult, error) {
	log := e.log.With(zap.String("session", session.ID))
	e.reporter.Publish(progress.Update{
		Session: session.ID, Percent: 0, Status: "planning",
		Message: "disambiguating identities",
	})

	// Identity disambiguation runs over the full ordered row set before any
	// per-row attribute finalization.
	disamb := NewDisambiguator(e.mapper, e.opts.FirstNameColumn, e.opts.LastNameColumn, e.opts.MaxIdentifierLength)
	dres := disamb.Run(session.Rows)

	keys, paths := e.candidates(dres)

	e.reporter.Publish(progress.Update{
		Session: session.ID, Percent: 10, Status: "planning",
		Message: "preloading directory state",
	})
	cache := BuildCache(ctx, e.dir, keys, paths, log)
	cache.SetResolved(dres.Identifiers)
	log.Info("directory state preloaded",
		zap.Int("candidate_keys", len(keys)),
		zap.Int("candidate_paths", len(paths)),
		zap.Int("existing_entities", cache.EntityCount()),
	)

	e.reporter.Publish(progress.Update{
		Session: session.ID, Percent: 30, Status: "planning",
		Message: "diffing rows against directory state",
	})
	planner := NewPlanner(e.dir, e.prov, e.mapper, e.opts, log)
	actions, noops := planner.Plan(ctx, dres.Rows, cache)

	var scopes []string
	if e.opts.DeleteOrphans {
		e.reporter.Publish(progress.Update{
			Session: session.ID, Percent: 70, Status: "planning",
			Message: "scanning for orphans",
		})
		scan := DetectOrphans(ctx, e.dir, identifierSet(dres), e.opts.ManagedRoot, log)
		actions = append(actions, scan.Actions...)
		scopes = scan.Scopes

		if len(scopes) > 0 {
			cleanup := PlanCleanup(ctx, e.dir, scopes, scan.Actions, e.opts.ManagedRoot, e.opts.GroupPrefix, log)
			actions = append(actions, cleanup...)
		}
	}

	result := &AnalysisResult{
		Actions: Sort(actions),
		Summary: summarize(actions, len(session.Rows), noops),
		Scopes:  scopes,
	}
	session.Analysis = result

	e.reporter.Publish(progress.Update{
		Session: session.ID, Percent: 100, Status: "planned",
		Message: analysisMessage(result),
	})
	return result, nil
}

// Execute runs the session's analysis. The returned result always reports
// attempted, succeeded and failed counts, even on cancellation.
func (e *Engine) Execute(ctx context.Context, session *Session) (*ExecutionResult, error) {
	if session.Analysis == nil {
		return nil, ErrNotAnalyzed
	}
	exec := NewExecutor(e.dir, e.prov, e.reporter, e.opts, e.log.With(zap.String("session", session.ID)))
	return exec.Execute(ctx, session.ID, session.Analysis), nil
}

// Run is a convenience wrapper performing Analyze then Execute.
func (e *Engine) Run(ctx context.Context, session *Session) (*AnalysisResult, *ExecutionResult, error) {
	analysis, err := e.Analyze(ctx, session)
	if err != nil {
		return nil, nil, err
	}
	execution, err := e.Execute(ctx, session)
	if err != nil {
		return analysis, nil, err
	}
	return analysis, execution, nil
}

// candidates collects the unique identity keys and container paths named by
// the snapshot, feeding the bulk preload.
func (e *Engine) candidates(dres *DisambiguationResult) ([]string, []string) {
	keySet := make(map[string]struct{})
	pathSet := make(map[string]struct{})
	var keys, paths []string

	for i, row := range dres.Rows {
		if id := dres.Identifiers[i]; id != "" {
			if _, ok := keySet[id]; !ok {
				keySet[id] = struct{}{}
				keys = append(keys, id)
			}
		}
		rec, err := e.mapper.Map(row)
		if err != nil && !errors.Is(err, ErrMissingIdentity) {
			continue
		}
		dn := BuildPath(rec.Get(e.opts.LocationAttribute), e.opts.DefaultRoot).DN()
		if _, ok := pathSet[strings.ToLower(dn)]; !ok {
			pathSet[strings.ToLower(dn)] = struct{}{}
			paths = append(paths, dn)
		}
	}
	return keys, paths
}

// identifierSet returns the authoritative identity-key set of the snapshot,
// lower-cased for comparison with directory listings.
func identifierSet(dres *DisambiguationResult) map[string]struct{} {
	set := make(map[string]struct{}, len(dres.Identifiers))
	for _, id := range dres.Identifiers {
		if id != "" {
			set[strings.ToLower(id)] = struct{}{}
		}
	}
	return set
}

func analysisMessage(r *AnalysisResult) string {
	s := r.Summary
	var parts []string
	for _, p := range []string{
		plural(s.Creates, "create"),
		plural(s.Updates, "update"),
		plural(s.Moves, "move"),
		plural(s.Deletes, "delete"),
		plural(s.Errors, "error"),
	} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "directory already in sync"
	}
	return strings.Join(parts, ", ")
}

func plural(n int, word string) string {
	if n == 0 {
		return ""
	}
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
