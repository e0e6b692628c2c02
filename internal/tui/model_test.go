package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedbackexplorer/internal/domain"
	"feedbackexplorer/internal/service"
)

type fakeAPI struct {
	mu        sync.Mutex
	stats     domain.VectorStoreStats
	statusErr error
	lastBatch int
	queries   []domain.QueryRequest
	// staleAfterIngest makes the status endpoint fail once an ingest lands.
	staleAfterIngest bool
}

func (f *fakeAPI) Status(context.Context) (domain.VectorStoreStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats, f.statusErr
}

func (f *fakeAPI) Ingest(_ context.Context, _ domain.UploadFile, batchSize int) (domain.IngestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastBatch = batchSize
	if f.staleAfterIngest {
		f.statusErr = domain.NetworkError("status", "Unable to connect", errors.New("refused"))
	} else {
		f.stats = domain.VectorStoreStats{TotalEntries: 3}
	}
	return domain.IngestResult{Message: "Successfully processed 3 feedback entries", TotalEntries: 3, ProcessedEntries: 3}, nil
}

func (f *fakeAPI) Query(_ context.Context, q domain.QueryRequest) (domain.QueryResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	return domain.QueryResult{
		Summary: "Customers love the battery.",
		Results: []domain.FeedbackResult{
			{Text: "Battery lasts all day. Screen is dim.", Similarity: 0.87, Metadata: domain.Metadata{"overall": 5.0}},
			{Text: "Battery is fine.", Similarity: 0.6, Metadata: domain.Metadata{}},
			{Text: "Charger broke.", Similarity: 0.3, Metadata: domain.Metadata{}},
		},
	}, nil
}

func newModel(t *testing.T, api *fakeAPI) Model {
	t.Helper()
	e := service.NewExplorer(api, service.Options{BatchSize: 32, TopK: 5, GenerateSummary: true}, nil)
	m := New(context.Background(), e)
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

// run executes cmd synchronously and feeds its message back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	return update(t, m, cmd())
}

func started(t *testing.T, m Model) Model {
	t.Helper()
	return run(t, m, m.start())
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+o":
		return tea.KeyMsg{Type: tea.KeyCtrlO}
	case "ctrl+p":
		return tea.KeyMsg{Type: tea.KeyCtrlP}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestStartFailureBlocksEverything(t *testing.T) {
	api := &fakeAPI{statusErr: domain.NetworkError("status", "Unable to connect", errors.New("refused"))}
	m := started(t, newModel(t, api))

	assert.Equal(t, screenUnavailable, m.screen)
	assert.Contains(t, m.View(), "Cannot reach the feedback service")
	assert.Contains(t, m.View(), "Unable to connect")

	// Retry after the service comes back.
	api.statusErr = nil
	next, cmd := m.Update(key("r"))
	m = next.(Model)
	assert.Equal(t, screenConnecting, m.screen)
	m = run(t, m, cmd)
	assert.Equal(t, screenMain, m.screen)
}

func TestStartWithoutDataFocusesUpload(t *testing.T) {
	m := started(t, newModel(t, &fakeAPI{}))
	assert.Equal(t, screenMain, m.screen)
	assert.Equal(t, focusPath, m.focus)
	assert.Contains(t, m.View(), "no data loaded")

	m = update(t, m, key("tab"))
	assert.Equal(t, focusBatch, m.focus)
	m = update(t, m, key("tab"))
	assert.Equal(t, focusPath, m.focus, "question box is skipped until data is loaded")
}

func TestStartWithDataFocusesChat(t *testing.T) {
	m := started(t, newModel(t, &fakeAPI{stats: domain.VectorStoreStats{TotalEntries: 10}}))
	assert.Equal(t, focusChat, m.focus)
	assert.Contains(t, m.View(), "10 feedback entries")
}

func TestBatchSizeEditsIgnoreInvalidInput(t *testing.T) {
	m := started(t, newModel(t, &fakeAPI{}))
	m = update(t, m, key("tab"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, 3, m.explorer.Ingest.BatchSize())
	m = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, 3, m.explorer.Ingest.BatchSize(), "empty input keeps the previous size")
	m = typeText(t, m, "x")
	assert.Equal(t, 3, m.explorer.Ingest.BatchSize())
	m = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	m = typeText(t, m, "8")
	assert.Equal(t, 8, m.explorer.Ingest.BatchSize())
}

func TestBatchInputIgnoresNonKeyMessages(t *testing.T) {
	m := started(t, newModel(t, &fakeAPI{}))
	m = update(t, m, key("tab"))
	require.Equal(t, focusBatch, m.focus)

	notified := 0
	unsub := m.explorer.Ingest.Subscribe(func(domain.UploadJob) { notified++ })
	defer unsub()

	m = update(t, m, struct{}{})
	m = update(t, m, textinput.Blink())
	assert.Zero(t, notified)
	assert.Equal(t, 32, m.explorer.Ingest.BatchSize())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, 1, notified)
	assert.Equal(t, 3, m.explorer.Ingest.BatchSize())
}

func TestUploadRejectsNonCSVInline(t *testing.T) {
	m := started(t, newModel(t, &fakeAPI{}))
	path := filepath.Join(t.TempDir(), "reviews.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	m.pathInput.SetValue(path)
	next, cmd := m.Update(key("enter"))
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.Equal(t, domain.Detail(domain.ErrInvalidFileType), m.notice)
}

func uploadAndAsk(t *testing.T, api *fakeAPI) Model {
	t.Helper()
	m := started(t, newModel(t, api))
	path := filepath.Join(t.TempDir(), "reviews.csv")
	require.NoError(t, os.WriteFile(path, []byte("reviewText\nok\n"), 0o600))

	m.pathInput.SetValue(path)
	next, cmd := m.Update(key("enter"))
	m = run(t, next.(Model), cmd)
	require.True(t, m.explorer.DataLoaded())
	require.Equal(t, focusChat, m.focus)
	assert.Contains(t, m.View(), "Success! Successfully processed 3 feedback entries")

	m = typeText(t, m, "battery?")
	next, cmd = m.Update(key("enter"))
	m = next.(Model)
	assert.Empty(t, m.chatInput.Value())
	return run(t, m, cmd)
}

func TestUploadThenAsk(t *testing.T) {
	api := &fakeAPI{}
	m := uploadAndAsk(t, api)

	assert.Equal(t, 32, api.lastBatch)
	require.Len(t, api.queries, 1)
	assert.Equal(t, "battery?", api.queries[0].QueryText)
	assert.True(t, api.queries[0].GenerateSummary)

	assert.Equal(t, 2, m.explorer.Session.Len())
	chat := m.renderChat()
	assert.Contains(t, chat, "Customers love the battery.")
	assert.Contains(t, chat, "87% match")
	assert.Contains(t, chat, "view all 3 sources")
	assert.NotContains(t, chat, "Charger broke.", "preview shows two sources")
}

func TestHeaderCountsIngestWhileStatsAreStale(t *testing.T) {
	m := uploadAndAsk(t, &fakeAPI{staleAfterIngest: true})
	assert.Zero(t, m.explorer.Tracker.Stats().TotalEntries)
	header := m.renderHeader()
	assert.Contains(t, header, "3 feedback entries")
	assert.NotContains(t, header, "0 feedback entries")
}

func TestEmptyQuestionShowsNotice(t *testing.T) {
	m := uploadAndAsk(t, &fakeAPI{})
	next, cmd := m.Update(key("enter"))
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.Equal(t, "Type a question first.", m.notice)
	assert.Equal(t, 2, m.explorer.Session.Len())
}

func TestSummaryToggle(t *testing.T) {
	api := &fakeAPI{}
	m := uploadAndAsk(t, api)
	m = update(t, m, key("ctrl+s"))
	assert.False(t, m.explorer.Session.GenerateSummary())
	assert.Contains(t, m.View(), "summary: off")

	m = typeText(t, m, "screen")
	next, cmd := m.Update(key("enter"))
	run(t, next.(Model), cmd)
	require.Len(t, api.queries, 2)
	assert.False(t, api.queries[1].GenerateSummary)
}

func TestSourcesPanel(t *testing.T) {
	api := &fakeAPI{}
	m := uploadAndAsk(t, api)
	m = update(t, m, key("ctrl+o"))
	require.True(t, m.showSources)
	content := m.renderSources("Source feedback", "", m.explorer.Session.Results().Results, "battery")
	assert.Contains(t, content, "Charger broke.")
	assert.Contains(t, content, "★★★★★")

	m = update(t, m, key("esc"))
	assert.False(t, m.showSources)

	// Selecting an earlier turn reads its own sources.
	m = update(t, m, key("ctrl+p"))
	assert.Equal(t, 1, m.selected)
	m = update(t, m, key("ctrl+o"))
	assert.True(t, m.showSources)
	assert.Len(t, api.queries, 1, "viewing sources never queries")
}

func TestSourcesPanelEmpty(t *testing.T) {
	m := started(t, newModel(t, &fakeAPI{stats: domain.VectorStoreStats{TotalEntries: 1}}))
	m = update(t, m, key("ctrl+o"))
	assert.False(t, m.showSources)
	assert.Equal(t, "No sources to show yet.", m.notice)
}

func TestHighlightBestSentence(t *testing.T) {
	style := DefaultStyles().Highlight
	out := highlightBestSentence("Screen is dim. Battery lasts all day.", "battery life", style)
	assert.Contains(t, out, style.Render("Battery lasts all day."))
	assert.Equal(t, "No overlap here.", highlightBestSentence("No overlap here.", "battery", style))
}
