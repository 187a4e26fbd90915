package sync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"dirsync/core/directory"
	"dirsync/core/progress"
	"dirsync/core/provision"

	"go.uber.org/zap"
)

// Executor runs a planned action list class-by-class in scheduler order.
// Parallel-safe classes run under a bounded worker pool; container and group
// mutation classes run one action at a time. Every error thrown during an
// action is converted to a Failed outcome; it never aborts the remaining
// batch.
type Executor struct {
	dir      directory.Directory
	prov     provision.Provisioner
	reporter progress.Reporter
	opts     Options
	log      *zap.Logger
}

// NewExecutor creates an executor. prov may be nil when no provisioning
// actions are planned; reporter may be nil to disable progress.
func NewExecutor(dir directory.Directory, prov provision.Provisioner, reporter progress.Reporter, opts Options, log *zap.Logger) *Executor {
	opts.setDefaults()
	if reporter == nil {
		reporter = progress.NopReporter{}
	}
	return &Executor{dir: dir, prov: prov, reporter: reporter, opts: opts, log: log}
}

// runState is the shared mutable state of one execution: the result being
// accumulated plus the bookkeeping for the post-execution cleanup pass. All
// writes go through its mutex.
type runState struct {
	mu          sync.Mutex
	session     string
	result      *ExecutionResult
	done        int
	total       int
	deletedKeys map[string]struct{}
	removedDirs map[string]struct{}
}

// Execute runs the analysis. Cancellation is observed between actions, never
// mid-action; on cancellation a partial ExecutionResult describing everything
// completed so far is still returned.
func (e *Executor) Execute(ctx context.Context, session string, analysis *AnalysisResult) *ExecutionResult {
	start := time.Now()
	sorted := Sort(analysis.Actions)
	classes := Partition(sorted)

	st := &runState{
		session:     session,
		result:      &ExecutionResult{ByType: make(map[ActionType]int)},
		total:       len(sorted),
		deletedKeys: make(map[string]struct{}),
		removedDirs: make(map[string]struct{}),
	}

	e.report(session, st, "executing", fmt.Sprintf("executing %d actions", st.total))

	cancelled := false
	for _, class := range classes {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		e.runClass(ctx, class, st)
		e.report(session, st, "executing", fmt.Sprintf("%s actions complete", class.Type))
	}

	if cancelled || ctx.Err() != nil {
		st.result.Warnings = append(st.result.Warnings,
			"run cancelled; result covers completed actions only")
	} else if len(st.deletedKeys) > 0 && len(analysis.Scopes) > 0 {
		// True emptiness is only knowable after deletions commit, so a final
		// pass re-derives what this run's successful deletions left empty.
		e.postCleanup(ctx, session, analysis.Scopes, st)
	}

	st.result.Elapsed = time.Since(start)
	e.report(session, st, "done", st.result.Summary())
	return st.result
}

// runClass executes one scheduler class, fanning out when the class is
// parallel-safe. The provisioning class is dispatched first: it is sequential
// but runs through its own host-batching path, not the plain loop.
func (e *Executor) runClass(ctx context.Context, class Class, st *runState) {
	if class.Type == ActionProvisionResource {
		e.runProvisionClass(ctx, class, st)
		return
	}

	if !class.Parallel {
		for _, action := range class.Actions {
			if ctx.Err() != nil {
				return
			}
			e.runAndRecord(ctx, action, st)
		}
		return
	}

	sem := make(chan struct{}, e.opts.workerCount())
	var wg sync.WaitGroup
	for _, action := range class.Actions {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			e.runAndRecord(ctx, action, st)
		}()
	}
	wg.Wait()
}

// runProvisionClass groups provisioning actions by target host and executes
// them in capped sub-batches with a short pause in between, so one file host
// is never hammered with an unbounded burst.
func (e *Executor) runProvisionClass(ctx context.Context, class Class, st *runState) {
	byHost := make(map[string][]Action)
	var hosts []string
	for _, a := range class.Actions {
		host := ""
		if a.Provision != nil {
			host = a.Provision.Host
		}
		if _, seen := byHost[host]; !seen {
			hosts = append(hosts, host)
		}
		byHost[host] = append(byHost[host], a)
	}

	pause := time.Duration(e.opts.ProvisionPauseMS) * time.Millisecond
	for _, host := range hosts {
		actions := byHost[host]
		for i := 0; i < len(actions); i += e.opts.ProvisionBatchSize {
			if ctx.Err() != nil {
				return
			}
			end := i + e.opts.ProvisionBatchSize
			if end > len(actions) {
				end = len(actions)
			}
			for _, action := range actions[i:end] {
				if ctx.Err() != nil {
					return
				}
				e.runAndRecord(ctx, action, st)
			}
			if end < len(actions) && pause > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(pause):
				}
			}
		}
	}
}

// runAndRecord executes one action and folds its outcome into the shared
// state, emitting progress afterwards.
func (e *Executor) runAndRecord(ctx context.Context, action Action, st *runState) {
	outcome := e.runAction(ctx, action)

	st.mu.Lock()
	st.result.Outcomes = append(st.result.Outcomes, outcome)
	st.result.Attempted++
	st.result.ByType[action.Type]++
	if outcome.Status == StatusSucceeded {
		st.result.Succeeded++
		switch action.Type {
		case ActionDelete:
			st.deletedKeys[strings.ToLower(action.Key)] = struct{}{}
		case ActionDeleteContainer:
			st.removedDirs[strings.ToLower(action.Key)] = struct{}{}
		}
	} else {
		st.result.Failed++
	}
	st.done++
	st.mu.Unlock()

	if outcome.Status == StatusFailed {
		e.log.Warn("action failed",
			zap.String("type", string(action.Type)),
			zap.String("key", action.Key),
			zap.String("reason", outcome.Message),
		)
	}

	e.report(st.session, st, "executing",
		fmt.Sprintf("%s %s: %s", action.Type, action.Key, outcome.Status))
}

// runAction drives one action through its state machine:
// Pending -> Running -> Succeeded | Failed. Panics and errors both terminate
// in Failed with a human-readable message.
func (e *Executor) runAction(ctx context.Context, a Action) (outcome Outcome) {
	started := time.Now()
	outcome = Outcome{Action: a, Status: StatusRunning}
	defer func() {
		if r := recover(); r != nil {
			outcome.Status = StatusFailed
			outcome.Message = fmt.Sprintf("panic during %s: %v", a.Type, r)
		}
		outcome.Duration = time.Since(started)
	}()

	var err error
	switch a.Type {
	case ActionCreateContainer:
		err = e.dir.CreateContainer(ctx, a.Path)
	case ActionCreate:
		err = e.dir.CreateEntity(ctx, directory.Entity{Key: a.Key, Path: a.Path, Attributes: a.Attributes})
	case ActionUpdate:
		err = e.dir.UpdateEntity(ctx, a.Key, a.Attributes)
	case ActionMove:
		err = e.dir.MoveEntity(ctx, a.Key, a.Path)
	case ActionCreateGroup:
		err = e.dir.CreateGroup(ctx, a.Group)
	case ActionAddMembership:
		err = e.dir.AddGroupMember(ctx, a.Group, a.Key)
	case ActionProvisionResource:
		if e.prov == nil || a.Provision == nil {
			err = fmt.Errorf("no provisioner available for %s", a.Key)
		} else {
			err = e.prov.Provision(ctx, *a.Provision)
		}
	case ActionDelete:
		err = e.deleteEntity(ctx, a)
	case ActionDeleteGroup:
		err = e.deleteGroup(ctx, a)
	case ActionDeleteContainer:
		err = e.deleteContainer(ctx, a)
	case ActionError:
		// Planning problems ride along so the caller sees them in the final
		// accounting; they always land in Failed.
		err = fmt.Errorf("planning error: %s", a.Message)
	default:
		err = fmt.Errorf("unknown action type %q", a.Type)
	}

	if err != nil {
		outcome.Status = StatusFailed
		outcome.Message = err.Error()
		return outcome
	}
	outcome.Status = StatusSucceeded
	return outcome
}

// deleteEntity removes an orphaned entity after re-checking the protected
// scope at execution time; the planning-time check is deliberately not
// reused, defending against configuration changes between plan and execute.
func (e *Executor) deleteEntity(ctx context.Context, a Action) error {
	if a.Path != "" && !e.underManagedRoot(a.Path) {
		return fmt.Errorf("refusing to delete %s: %q is outside the managed root %q", a.Key, a.Path, e.opts.ManagedRoot)
	}
	return e.dir.DeleteEntity(ctx, a.Key)
}

// deleteGroup re-validates that the group is empty immediately before
// deletion and refuses when occupants are found.
func (e *Executor) deleteGroup(ctx context.Context, a Action) error {
	members, err := e.dir.ListGroupMembers(ctx, a.Group)
	if err != nil {
		return fmt.Errorf("cannot verify %s is empty: %w", a.Group, err)
	}
	if len(members) > 0 {
		return fmt.Errorf("refusing to delete group %s: %d members remain", a.Group, len(members))
	}
	return e.dir.DeleteGroup(ctx, a.Group)
}

// deleteContainer applies the protected-root guard and re-validates
// emptiness immediately before deletion.
func (e *Executor) deleteContainer(ctx context.Context, a Action) error {
	if e.isProtectedPath(a.Path) {
		return fmt.Errorf("refusing to delete protected container %q", a.Path)
	}
	keys, err := e.dir.ListEntityKeys(ctx, a.Path)
	if err != nil {
		return fmt.Errorf("cannot verify %q is empty: %w", a.Path, err)
	}
	if len(keys) > 0 {
		return fmt.Errorf("refusing to delete container %q: %d entities remain", a.Path, len(keys))
	}
	return e.dir.DeleteContainer(ctx, a.Path)
}

// isProtectedPath reports whether the path is the managed root, an ancestor
// of it, or entirely outside it.
func (e *Executor) isProtectedPath(path string) bool {
	root := strings.ToLower(strings.TrimSpace(e.opts.ManagedRoot))
	if root == "" {
		// Without a configured root nothing can be proven safe to delete.
		return true
	}
	p := strings.ToLower(strings.TrimSpace(path))
	if p == root {
		return true
	}
	if strings.HasSuffix(root, ","+p) {
		return true
	}
	return !strings.HasSuffix(p, ","+root)
}

// underManagedRoot reports whether the path sits strictly inside the managed
// root (or is the root itself).
func (e *Executor) underManagedRoot(path string) bool {
	root := strings.ToLower(strings.TrimSpace(e.opts.ManagedRoot))
	if root == "" {
		return false
	}
	p := strings.ToLower(strings.TrimSpace(path))
	return p == root || strings.HasSuffix(p, ","+root)
}

// postCleanup re-derives the containers and groups left empty specifically
// by this run's successful deletions and executes the additional removals.
// It runs deepest first and skips anything the main pass already removed.
func (e *Executor) postCleanup(ctx context.Context, session string, scopes []string, st *runState) {
	e.report(session, st, "cleanup", "re-checking containers emptied by this run")

	extra := PlanCleanup(ctx, e.dir, scopes, deletedActions(st), e.opts.ManagedRoot, e.opts.GroupPrefix, e.log)
	for _, action := range Sort(extra) {
		if ctx.Err() != nil {
			return
		}
		st.mu.Lock()
		_, alreadyRemoved := st.removedDirs[strings.ToLower(action.Key)]
		st.mu.Unlock()
		if alreadyRemoved {
			continue
		}
		st.mu.Lock()
		st.total++
		st.mu.Unlock()
		e.runAndRecord(ctx, action, st)
	}
}

// deletedActions reconstructs Delete actions from the keys this run removed,
// so the cleanup predictor can subtract them from container membership.
func deletedActions(st *runState) []Action {
	st.mu.Lock()
	defer st.mu.Unlock()
	actions := make([]Action, 0, len(st.deletedKeys))
	for key := range st.deletedKeys {
		actions = append(actions, Action{Type: ActionDelete, Key: key})
	}
	return actions
}

// report publishes a best-effort progress update.
func (e *Executor) report(session string, st *runState, status, message string) {
	st.mu.Lock()
	done, total := st.done, st.total
	st.mu.Unlock()

	percent := 100
	if total > 0 {
		percent = done * 100 / total
	}
	e.reporter.Publish(progress.Update{
		Session: session,
		Percent: percent,
		Status:  status,
		Message: message,
	})
}
