package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/drawing-engine/internal/config"
	"github.com/spherical-ai/drawing-engine/internal/corpus"
	"github.com/spherical-ai/drawing-engine/internal/domain"
	"github.com/spherical-ai/drawing-engine/internal/embedding"
	"github.com/spherical-ai/drawing-engine/internal/prompts"
)

// stubRasterizer avoids the real renderer in unit tests.
type stubRasterizer struct {
	doc *domain.Document
	err error
}

func (s *stubRasterizer) Rasterize(ctx context.Context, data []byte, dpi int) (*domain.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.doc, nil
}

// scriptedOracle replays canned raw texts per stage.
type scriptedOracle struct {
	byStage  map[string]string
	err      error
	requests []domain.OracleRequest
}

func (o *scriptedOracle) Invoke(ctx context.Context, req domain.OracleRequest) (*domain.OracleResponse, error) {
	o.requests = append(o.requests, req)
	if o.err != nil {
		return nil, o.err
	}
	return &domain.OracleResponse{RawText: o.byStage[req.Stage], Model: "scripted"}, nil
}

type memoryPersister struct {
	saved []*domain.WorkflowState
}

func (p *memoryPersister) SaveWorkflow(ctx context.Context, state *domain.WorkflowState) error {
	p.saved = append(p.saved, state)
	return nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Retry.MaxAttempts = 2
	cfg.Retry.BaseBackoff = time.Millisecond
	cfg.Quality.MinResultCount = 1
	return cfg
}

func testDoc() *domain.Document {
	return &domain.Document{
		Pages: []domain.Page{{Number: 1, PNG: []byte{1}}},
		DPI:   150,
	}
}

const analysisJSON = `{
	"drawing_info": {"drawing_number": "P-1001", "title": "Feed section", "revision": "B"},
	"issues": [{"serial_number": 1, "issue_observed": "PSV-101 lacks upstream isolation", "severity": "major"}],
	"summary": {"total_issues": 1}
}`

func newTestClient(t *testing.T, deps Components) *Client {
	t.Helper()

	if deps.Rasterizer == nil {
		deps.Rasterizer = &stubRasterizer{doc: testDoc()}
	}
	if deps.Embedder == nil {
		deps.Embedder = embedding.NewMockClient(8)
	}
	if deps.Corpus == nil {
		deps.Corpus = corpus.NewMemoryStore(nil)
	}

	client, err := NewWithComponents(testConfig(), deps)
	require.NoError(t, err)
	return client
}

func TestClient_Analyze_ReturnsStageResult(t *testing.T) {
	oracle := &scriptedOracle{byStage: map[string]string{
		prompts.StagePIDAnalysis: analysisJSON,
	}}
	client := newTestClient(t, Components{Oracle: oracle})

	result, err := client.Analyze(context.Background(), []byte("%PDF-fake"), "DWG-7")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, prompts.StagePIDAnalysis, result.Stage)
	assert.Equal(t, 1, result.Attempts)

	issues := result.Payload["issues"].([]any)
	assert.Len(t, issues, 1)
}

func TestClient_Run_InvokesPersister(t *testing.T) {
	oracle := &scriptedOracle{byStage: map[string]string{
		prompts.StagePIDAnalysis: analysisJSON,
	}}
	persister := &memoryPersister{}
	client := newTestClient(t, Components{Oracle: oracle, Persister: persister})

	stage := prompts.PIDAnalysis(1, 0)
	state, err := client.Run(context.Background(), []byte("%PDF-fake"), "DWG-7", []domain.StageSpec{stage})
	require.NoError(t, err)

	require.Len(t, persister.saved, 1)
	assert.Equal(t, state, persister.saved[0])
	assert.Equal(t, "DWG-7", state.DocumentID)
}

func TestClient_Run_DecodeErrorPassesThrough(t *testing.T) {
	client := newTestClient(t, Components{
		Oracle:     &scriptedOracle{},
		Rasterizer: &stubRasterizer{err: domain.DecodeError("document is not a PDF", nil)},
	})

	_, err := client.Run(context.Background(), []byte("junk"), "DWG-7",
		[]domain.StageSpec{prompts.PIDAnalysis(1, 0)})

	require.Error(t, err)
	assert.True(t, domain.IsDecode(err))
}

func TestClient_Run_PersistsEvenWhenWorkflowFails(t *testing.T) {
	oracle := &scriptedOracle{err: domain.TransportError("unreachable", nil)}
	persister := &memoryPersister{}
	client := newTestClient(t, Components{Oracle: oracle, Persister: persister})

	state, err := client.Run(context.Background(), []byte("%PDF-fake"), "DWG-7",
		[]domain.StageSpec{prompts.PIDAnalysis(1, 0)})

	require.Error(t, err)
	require.NotNil(t, state)
	assert.True(t, state.Failed())
	assert.Len(t, persister.saved, 1)
}

func TestClient_Convert_RunsAllStages(t *testing.T) {
	oracle := &scriptedOracle{byStage: map[string]string{
		prompts.StagePFDExtraction:        `{"equipment": [{"tag": "V-101", "service": "feed drum"}], "streams": [], "control_intent": [], "notes": []}`,
		prompts.StagePIDGeneration:        `{"pid_elements": [{"description": "add LT/LIC on V-101"}], "loops": [], "summary": {}}`,
		prompts.StageConversionValidation: `{"validation_findings": [{"finding": "V-101 level loop covered", "disposition": "pass"}], "coverage": {}, "summary": {}}`,
	}}
	client := newTestClient(t, Components{Oracle: oracle})

	state, err := client.Convert(context.Background(), []byte("%PDF-fake"), "PFD-3")
	require.NoError(t, err)

	assert.True(t, state.Terminal())
	assert.False(t, state.Failed())
	assert.Len(t, state.DoneResults(), 3)

	// The generation stage runs without page rasters attached.
	for _, req := range oracle.requests {
		if req.Stage == prompts.StagePIDGeneration {
			assert.Empty(t, req.Pages)
		} else {
			assert.NotEmpty(t, req.Pages)
		}
	}
}
