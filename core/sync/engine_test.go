package sync

import (
	"context"
	"testing"

	"dirsync/core/directory"
	"dirsync/core/directory/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func engineOptions() Options {
	return Options{Config: Config{
		DefaultRoot: testRoot,
		ManagedRoot: testRoot,
		GroupPrefix: "G-",
	}}
}

func TestEngine_AnalyzeAndExecute_EmptyDirectory(t *testing.T) {
	dir := new(mocks.Directory)
	dir.On("FindEntities", mock.Anything, mock.Anything).Return(map[string]directory.Entity{}, nil)
	dir.On("FilterContainers", mock.Anything, mock.Anything).Return(map[string]bool{}, nil)
	dir.On("CreateContainer", mock.Anything, mock.Anything).Return(nil)
	dir.On("CreateEntity", mock.Anything, mock.Anything).Return(nil)

	opts := engineOptions()
	opts.AutoCreateContainers = true
	engine := New(dir, nil, nil, testMapper(), opts, zap.NewNop())

	session := &Session{ID: "s1", Rows: []SourceRow{
		{"firstname": "Jean", "lastname": "Dupont", "department": "Sales"},
		{"firstname": "Marie", "lastname": "Curie", "department": "Sales"},
		{"firstname": "Ada", "lastname": "Lovelace", "department": "HR"},
	}}

	analysis, err := engine.Analyze(context.Background(), session)
	assert.NoError(t, err)
	assert.Same(t, analysis, session.Analysis)

	assert.Equal(t, 3, analysis.Summary.Rows)
	assert.Equal(t, 3, analysis.Summary.Creates)
	// Two distinct departments, each container planned exactly once.
	assert.Equal(t, 2, analysis.Summary.ContainerCreates)
	assert.Equal(t, 0, analysis.Summary.NoOps)
	assert.Equal(t, 0, analysis.Summary.Errors)

	// Scheduler order: all containers strictly before all entity creates.
	for i, a := range analysis.Actions {
		if a.Type == ActionCreateContainer {
			assert.Less(t, i, 2)
		}
	}

	result, err := engine.Execute(context.Background(), session)
	assert.NoError(t, err)
	assert.Equal(t, 5, result.Attempted)
	assert.Equal(t, 5, result.Succeeded)
	dir.AssertNumberOfCalls(t, "CreateEntity", 3)
	dir.AssertNumberOfCalls(t, "CreateContainer", 2)
}

func TestEngine_AnalyzeDetectsOrphans(t *testing.T) {
	sub := "OU=Sales," + testRoot
	dir := new(mocks.Directory)
	dir.On("FindEntities", mock.Anything, mock.Anything).Return(map[string]directory.Entity{
		"jdupont": {Key: "jdupont", Path: sub, Attributes: map[string]string{
			"displayname": "Jean Dupont",
			"mail":        "jean.dupont@example.org",
			"location":    "Sales",
		}},
	}, nil)
	dir.On("FilterContainers", mock.Anything, mock.Anything).Return(map[string]bool{sub: true}, nil)
	dir.On("ListContainers", mock.Anything, testRoot).Return([]string{sub}, nil)
	dir.On("ListEntityKeys", mock.Anything, testRoot).Return([]string{}, nil)
	dir.On("ListEntityKeys", mock.Anything, sub).Return([]string{"jdupont", "ghost"}, nil)

	opts := engineOptions()
	opts.DeleteOrphans = true
	engine := New(dir, nil, nil, testMapper(), opts, zap.NewNop())

	session := &Session{ID: "s2", Rows: []SourceRow{
		{"firstname": "Jean", "lastname": "Dupont", "department": "Sales"},
	}}

	analysis, err := engine.Analyze(context.Background(), session)
	assert.NoError(t, err)

	assert.Equal(t, 1, analysis.Summary.NoOps)
	assert.Equal(t, 1, analysis.Summary.Deletes)
	assert.Equal(t, []string{testRoot, sub}, analysis.Scopes)

	deletes := actionsOfType(analysis.Actions, ActionDelete)
	if assert.Len(t, deletes, 1) {
		assert.Equal(t, "ghost", deletes[0].Key)
	}
}

func TestEngine_ExecuteWithoutAnalysis(t *testing.T) {
	engine := New(new(mocks.Directory), nil, nil, testMapper(), engineOptions(), zap.NewNop())

	_, err := engine.Execute(context.Background(), &Session{ID: "s3"})
	assert.ErrorIs(t, err, ErrNotAnalyzed)
}

func TestEngine_DuplicateRowsGetDistinctKeys(t *testing.T) {
	dir := new(mocks.Directory)
	dir.On("FindEntities", mock.Anything, mock.Anything).Return(map[string]directory.Entity{}, nil)
	dir.On("FilterContainers", mock.Anything, mock.Anything).Return(map[string]bool{}, nil)

	engine := New(dir, nil, nil, testMapper(), engineOptions(), zap.NewNop())

	session := &Session{ID: "s4", Rows: []SourceRow{
		{"firstname": "Jean", "lastname": "Dupont", "department": "Sales"},
		{"firstname": "Jean", "lastname": "Dupont", "department": "Sales"},
	}}

	analysis, err := engine.Analyze(context.Background(), session)
	assert.NoError(t, err)

	creates := actionsOfType(analysis.Actions, ActionCreate)
	if assert.Len(t, creates, 2) {
		assert.Equal(t, "jdupont", creates[0].Key)
		assert.Equal(t, "jdupont2", creates[1].Key)
		// The suffix propagates into derived attributes, not just the key.
		assert.Equal(t, "jean.dupont2@example.org", creates[1].Attributes.Get("mail"))
		assert.Equal(t, "Jean Dupont2", creates[1].Attributes.Get("displayname"))
	}
}

func TestEngine_UnusableRowCountedInExecution(t *testing.T) {
	dir := new(mocks.Directory)
	dir.On("FindEntities", mock.Anything, mock.Anything).Return(map[string]directory.Entity{}, nil)
	dir.On("FilterContainers", mock.Anything, mock.Anything).Return(map[string]bool{}, nil)
	dir.On("CreateEntity", mock.Anything, mock.Anything).Return(nil)

	engine := New(dir, nil, nil, testMapper(), engineOptions(), zap.NewNop())

	session := &Session{ID: "s5", Rows: []SourceRow{
		{"firstname": "Jean", "lastname": "Dupont", "department": "Sales"},
		{"department": "Sales"},
	}}

	analysis, err := engine.Analyze(context.Background(), session)
	assert.NoError(t, err)
	assert.Equal(t, 1, analysis.Summary.Errors)

	result, err := engine.Execute(context.Background(), session)
	assert.NoError(t, err)
	// The error action rides along as an automatic failure so the run
	// accounting stays complete.
	assert.Equal(t, 2, result.Attempted)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
}
