package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"feedbackexplorer/internal/domain"
	"feedbackexplorer/internal/textutil"
)

const snippetLen = 120

// View renders the current screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	s := m.styles
	switch m.screen {
	case screenConnecting:
		return s.Title.Render("Customer Feedback Explorer") + "\n\n" +
			m.spinner.View() + " Connecting to the feedback service..."
	case screenUnavailable:
		return s.Title.Render("Customer Feedback Explorer") + "\n\n" +
			s.StatusFailed.Render("Cannot reach the feedback service") + "\n" +
			domain.Detail(m.connErr) + "\n\n" +
			s.Help.Render("r retry • q quit")
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.panel(m.focus != focusChat).Render(m.renderUpload()))
	b.WriteString("\n")
	if m.showSources {
		b.WriteString(s.ActivePanel.Render(m.sources.View()))
	} else {
		b.WriteString(s.Panel.Render(m.chat.View()))
	}
	b.WriteString("\n")
	b.WriteString(m.panel(m.focus == focusChat).Render(m.renderQuestionBox()))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) panel(active bool) lipgloss.Style {
	if active {
		return m.styles.ActivePanel
	}
	return m.styles.Panel
}

func (m Model) renderHeader() string {
	s := m.styles
	stats := m.explorer.Tracker.Stats()
	badge := s.StatusPending.Render("no data loaded")
	if m.explorer.DataLoaded() {
		label := "data loaded"
		if stats.TotalEntries > 0 {
			label = fmt.Sprintf("%d feedback entries", stats.TotalEntries)
		} else if job := m.explorer.Ingest.Job(); job.Stats != nil && job.Stats.Processed > 0 {
			// Latched by an ingest whose confirming refresh has not landed.
			label = fmt.Sprintf("%d feedback entries", job.Stats.Processed)
		}
		badge = s.StatusSuccess.Render(label)
	}
	return s.Title.Render("Customer Feedback Explorer") + "  " + badge
}

func (m Model) renderUpload() string {
	s := m.styles
	job := m.explorer.Ingest.Job()
	line := m.pathInput.View() + "   " + m.batchInput.View()

	var state string
	switch job.State {
	case domain.UploadIdle:
		if job.Message != "" {
			state = s.StatusFailed.Render(job.Message)
		} else {
			state = s.Subtitle.Render("Select a CSV file with a reviewText column and press Enter.")
		}
	case domain.UploadReady:
		state = s.Subtitle.Render("Ready: " + job.File.Name)
	case domain.UploadUploading:
		state = m.spinner.View() + " " + s.StatusPending.Render(job.Message)
	case domain.UploadSucceeded:
		state = s.StatusSuccess.Render(job.Message)
		if job.Stats != nil {
			state += s.Subtitle.Render(fmt.Sprintf("  (%d of %d entries processed)", job.Stats.Processed, job.Stats.Total))
		}
	case domain.UploadFailed:
		state = s.StatusFailed.Render(job.Message)
	}
	return line + "\n" + state
}

func (m Model) renderQuestionBox() string {
	if !m.explorer.DataLoaded() {
		return m.styles.Help.Render("Upload feedback data to start asking questions.")
	}
	return m.chatInput.View()
}

func (m Model) renderFooter() string {
	s := m.styles
	summary := "summary: off"
	if m.explorer.Session.GenerateSummary() {
		summary = "summary: on"
	}
	help := s.Help.Render(summary + " • tab focus • ctrl+s summary • ctrl+p/ctrl+n select • ctrl+o sources • ctrl+r refresh • ctrl+c quit")
	if m.showSources {
		help = s.Help.Render("↑/↓ scroll • esc close")
	}
	if m.notice == "" {
		return help
	}
	return s.StatusFailed.Render(m.notice) + "\n" + help
}

func (m Model) renderChat() string {
	s := m.styles
	turns := m.explorer.Session.Turns()
	if len(turns) == 0 {
		return s.Subtitle.Render("Ask a question about your customer feedback.")
	}
	width := max(20, m.chat.Width-2)
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for i, t := range turns {
		switch t.Kind {
		case domain.TurnUser:
			b.WriteString(s.UserTurn.Render("You: ") + wrap.Render(t.Text))
		case domain.TurnError:
			b.WriteString(s.ErrorTurn.Render("Error: " + t.Text))
		case domain.TurnAssistant:
			label := "Assistant: "
			if i == m.selected {
				label = s.Selected.Render("▶ Assistant: ")
			}
			b.WriteString(label + s.AssistantTurn.Render(wrap.Render(t.Text)))
			for _, r := range t.Preview() {
				b.WriteString("\n  " + m.renderBadges(r) + " " + snippet(r.Text))
			}
			if n := len(t.Sources); n > 0 {
				b.WriteString("\n  " + s.Help.Render(fmt.Sprintf("view all %d sources", n)))
			}
		}
		b.WriteString("\n\n")
	}
	if m.explorer.Session.InFlight() {
		b.WriteString(m.spinner.View() + " Searching feedback...")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderSources(title, summary string, results []domain.FeedbackResult, query string) string {
	s := m.styles
	wrap := lipgloss.NewStyle().Width(max(20, m.sources.Width-2))

	var b strings.Builder
	b.WriteString(s.Title.Render(title))
	b.WriteString("\n")
	if summary != "" {
		b.WriteString(wrap.Render(summary))
		b.WriteString("\n")
	}
	for i, r := range results {
		b.WriteString(fmt.Sprintf("\n#%d %s", i+1, m.renderBadges(r)))
		if v, ok := r.Metadata.String(domain.MetaReviewerName); ok {
			b.WriteString(s.Subtitle.Render("  " + v))
		}
		if v, ok := r.Metadata.String(domain.MetaReviewTime); ok {
			b.WriteString(s.Subtitle.Render("  " + v))
		}
		b.WriteString("\n")
		b.WriteString(wrap.Render(highlightBestSentence(r.Text, query, s.Highlight)))
		b.WriteString("\n")
	}
	return b.String()
}

// renderBadges shows the match percentage, star rating and helpful votes.
func (m Model) renderBadges(r domain.FeedbackResult) string {
	s := m.styles
	out := s.MatchBadge.Render(fmt.Sprintf("%d%% match", r.MatchPercent()))
	if rating, ok := r.Metadata.Rating(); ok {
		stars := int(rating + 0.5)
		out += " " + s.Rating.Render(strings.Repeat("★", stars)+strings.Repeat("☆", 5-stars))
	}
	if up, total, ok := r.Metadata.Helpful(); ok && total > 0 {
		out += s.Subtitle.Render(fmt.Sprintf(" %d/%d found helpful", up, total))
	}
	return out
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= snippetLen {
		return text
	}
	return string(r[:snippetLen-1]) + "…"
}

// highlightBestSentence emphasizes the sentence sharing the most terms with query.
func highlightBestSentence(text, query string, style lipgloss.Style) string {
	sentences := textutil.Sentences(text)
	if len(sentences) == 0 {
		return text
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, 0
	for i, sent := range sentences {
		if score := tokenOverlapScore(qTokens, sent); score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestScore > 0 {
		sentences[bestIdx] = style.Render(sentences[bestIdx])
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := textutil.Tokens(s)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := make(map[string]struct{})
	for _, t := range textutil.Tokens(sentence) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
