package sync

import (
	"fmt"
	"strings"
	"time"

	"dirsync/core/provision"
)

// SourceRow is one input record: column name to raw string value.
// Rows arrive already parsed; decoding spreadsheet or CSV bytes is the
// caller's concern.
type SourceRow map[string]string

// Lookup returns the value for a column using case-insensitive matching.
func (r SourceRow) Lookup(column string) (string, bool) {
	if v, ok := r[column]; ok {
		return v, true
	}
	for k, v := range r {
		if strings.EqualFold(k, column) {
			return v, true
		}
	}
	return "", false
}

// Set writes a column value, reusing the existing column name casing when the
// column is already present.
func (r SourceRow) Set(column, value string) {
	for k := range r {
		if strings.EqualFold(k, column) {
			r[k] = value
			return
		}
	}
	r[column] = value
}

// Clone returns an independent copy of the row.
func (r SourceRow) Clone() SourceRow {
	out := make(SourceRow, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ActionType identifies the kind of planned action.
type ActionType string

const (
	// ActionCreateContainer creates a missing container.
	ActionCreateContainer ActionType = "create_container"
	// ActionCreate creates a new entity.
	ActionCreate ActionType = "create"
	// ActionUpdate rewrites differing attributes on an existing entity.
	ActionUpdate ActionType = "update"
	// ActionMove relocates an entity to a different container.
	ActionMove ActionType = "move"
	// ActionCreateGroup creates a missing group.
	ActionCreateGroup ActionType = "create_group"
	// ActionProvisionResource provisions a per-identity resource on a host.
	ActionProvisionResource ActionType = "provision_resource"
	// ActionAddMembership adds an entity to a group.
	ActionAddMembership ActionType = "add_membership"
	// ActionDelete removes an orphaned entity.
	ActionDelete ActionType = "delete"
	// ActionDeleteGroup removes a group left without members.
	ActionDeleteGroup ActionType = "delete_group"
	// ActionDeleteContainer removes a container left empty.
	ActionDeleteContainer ActionType = "delete_container"
	// ActionError records a planning problem for the caller; it is reported,
	// never executed.
	ActionError ActionType = "error"
)

// Action is a single planned mutation.
type Action struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// Key is the object key: entity key, container path, group or share name.
	Key string `json:"key"`

	// Path is the target container path.
	Path string `json:"path,omitempty"`

	// SourcePath is the origin container path, set for moves.
	SourcePath string `json:"source_path,omitempty"`

	// Group is the group involved, set for group and membership actions.
	Group string `json:"group,omitempty"`

	// Attributes is the attribute payload for creates and updates.
	Attributes Record `json:"attributes,omitempty"`

	// Provision describes the resource to provision, set for
	// ActionProvisionResource.
	Provision *provision.Request `json:"-"`

	// Message explains why this action is needed.
	Message string `json:"message"`
}

// AnalysisSummary provides aggregate counts for an analysis.
type AnalysisSummary struct {
	Rows             int `json:"rows"`
	Creates          int `json:"creates"`
	Updates          int `json:"updates"`
	Moves            int `json:"moves"`
	NoOps            int `json:"noops"`
	Deletes          int `json:"deletes"`
	ContainerCreates int `json:"container_creates"`
	ContainerDeletes int `json:"container_deletes"`
	GroupCreates     int `json:"group_creates"`
	GroupDeletes     int `json:"group_deletes"`
	Memberships      int `json:"memberships"`
	Provisions       int `json:"provisions"`
	Errors           int `json:"errors"`
}

// AnalysisResult is the outcome of the planning phase: the ordered action
// list plus aggregate counts and the scopes the orphan scan covered.
type AnalysisResult struct {
	// Actions is the dependency-ordered action list.
	Actions []Action `json:"actions"`

	// Summary provides aggregate counts, including explicit no-ops.
	Summary AnalysisSummary `json:"summary"`

	// Scopes lists the container paths the orphan scan actually covered,
	// reused by the post-execution cleanup pass.
	Scopes []string `json:"scopes,omitempty"`
}

// summarize derives the aggregate counts from an action list.
func summarize(actions []Action, rows, noops int) AnalysisSummary {
	s := AnalysisSummary{Rows: rows, NoOps: noops}
	for _, a := range actions {
		switch a.Type {
		case ActionCreateContainer:
			s.ContainerCreates++
		case ActionCreate:
			s.Creates++
		case ActionUpdate:
			s.Updates++
		case ActionMove:
			s.Moves++
		case ActionCreateGroup:
			s.GroupCreates++
		case ActionProvisionResource:
			s.Provisions++
		case ActionAddMembership:
			s.Memberships++
		case ActionDelete:
			s.Deletes++
		case ActionDeleteGroup:
			s.GroupDeletes++
		case ActionDeleteContainer:
			s.ContainerDeletes++
		case ActionError:
			s.Errors++
		}
	}
	return s
}

// ActionStatus is the execution state of one action.
type ActionStatus string

const (
	StatusPending   ActionStatus = "pending"
	StatusRunning   ActionStatus = "running"
	StatusSucceeded ActionStatus = "succeeded"
	StatusFailed    ActionStatus = "failed"
)

// Outcome records the terminal result of one executed action.
type Outcome struct {
	// Action is the planned action this outcome belongs to.
	Action Action `json:"action"`

	// Status is the terminal status (succeeded or failed).
	Status ActionStatus `json:"status"`

	// Message carries the failure reason, empty on success.
	Message string `json:"message,omitempty"`

	// Duration is how long the action took.
	Duration time.Duration `json:"duration"`
}

// ExecutionResult aggregates the outcome of the execution phase.
type ExecutionResult struct {
	// Outcomes holds one entry per attempted action.
	Outcomes []Outcome `json:"outcomes"`

	// Attempted, Succeeded and Failed are the aggregate counts;
	// Succeeded+Failed always equals Attempted.
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`

	// ByType counts attempted actions per type.
	ByType map[ActionType]int `json:"by_type"`

	// Warnings collects non-fatal run-level notices (e.g., cancellation).
	Warnings []string `json:"warnings,omitempty"`

	// Elapsed is the wall-clock duration of the execution phase.
	Elapsed time.Duration `json:"elapsed"`
}

// Summary returns a one-line human-readable description of the run.
func (r *ExecutionResult) Summary() string {
	return fmt.Sprintf("attempted %d actions: %d succeeded, %d failed",
		r.Attempted, r.Succeeded, r.Failed)
}
