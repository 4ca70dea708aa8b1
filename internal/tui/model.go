// Package tui is the interactive terminal front end: a Search tab, an Insert tab
// and a Settings tab whose values override the configured connection for each action.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	semsearch "github.com/FrenchMajesty/semantic-search"
	"github.com/FrenchMajesty/semantic-search/pkg/config"
	"github.com/FrenchMajesty/semantic-search/pkg/types"
)

// Service is the part of the orchestrator the UI drives
type Service interface {
	Search(ctx context.Context, overrides config.Overrides, q types.Query) ([]types.Match, error)
	Insert(ctx context.Context, overrides config.Overrides, req semsearch.InsertRequest) (types.UpsertReceipt, error)
}

type tab int

const (
	tabSearch tab = iota
	tabInsert
	tabSettings
	tabCount
)

var tabNames = [tabCount]string{"Search", "Insert", "Settings"}

// Settings fields, in display order
const (
	settingEmbeddingKey = iota
	settingStoreKey
	settingIndex
	settingNamespace
	settingHost
	settingCount
)

type searchDoneMsg struct {
	matches []types.Match
	err     error
}

type insertDoneMsg struct {
	receipt types.UpsertReceipt
	err     error
}

type metadataRow struct {
	key   textinput.Model
	value textinput.Model
}

// Model is the bubbletea model for the whole UI
type Model struct {
	ctx      context.Context
	svc      Service
	defaults config.ConnectionConfig
	styles   styles

	tab   tab
	focus int

	query textinput.Model
	topK  textinput.Model

	text     textinput.Model
	docID    textinput.Model
	metadata []metadataRow

	settings [settingCount]textinput.Model

	spinner spinner.Model
	busy    bool

	matches   []types.Match
	lastQuery string
	searched  bool
	receipt   *types.UpsertReceipt
	status    string
	statusErr bool

	width  int
	height int
}

// New builds the model. overrides pre-fill the Settings tab; defaults are shown as placeholders.
func New(ctx context.Context, svc Service, overrides config.Overrides, defaults config.ConnectionConfig) Model {
	if ctx == nil {
		ctx = context.Background()
	}

	m := Model{
		ctx:      ctx,
		svc:      svc,
		defaults: defaults,
		styles:   defaultStyles(),
		query:    newInput("Enter your search query...", 512),
		topK:     newInput(strconv.Itoa(types.DefaultTopK), 3),
		text:     newInput("Text to embed and insert...", 4096),
		docID:    newInput("Leave empty for a random UUID", 256),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	m.topK.SetValue(strconv.Itoa(types.DefaultTopK))
	m.metadata = []metadataRow{newMetadataRow()}

	m.settings[settingEmbeddingKey] = newSecretInput(placeholder(defaults.EmbeddingAPIKey != "", "Embedding API key"))
	m.settings[settingStoreKey] = newSecretInput(placeholder(defaults.StoreAPIKey != "", "Vector database API key"))
	m.settings[settingIndex] = newInput(orDefault(defaults.IndexName, "Index name"), 256)
	m.settings[settingNamespace] = newInput(orDefault(defaults.Namespace, "Namespace"), 256)
	m.settings[settingHost] = newInput(orDefault(defaults.StoreHost, "Index host (optional)"), 512)

	m.settings[settingEmbeddingKey].SetValue(overrides.EmbeddingAPIKey)
	m.settings[settingStoreKey].SetValue(overrides.StoreAPIKey)
	m.settings[settingIndex].SetValue(overrides.IndexName)
	m.settings[settingNamespace].SetValue(overrides.Namespace)
	m.settings[settingHost].SetValue(overrides.StoreHost)

	m.focusField()
	return m
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = 60
	return ti
}

func newSecretInput(placeholder string) textinput.Model {
	ti := newInput(placeholder, 256)
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	return ti
}

func newMetadataRow() metadataRow {
	key := newInput("key", 128)
	key.Width = 20
	value := newInput("value", 512)
	value.Width = 36
	return metadataRow{key: key, value: value}
}

func placeholder(configured bool, name string) string {
	if configured {
		return name + " (from environment)"
	}
	return name
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

// Overrides returns the Settings tab values as action overrides
func (m Model) Overrides() config.Overrides {
	return config.Overrides{
		EmbeddingAPIKey: strings.TrimSpace(m.settings[settingEmbeddingKey].Value()),
		StoreAPIKey:     strings.TrimSpace(m.settings[settingStoreKey].Value()),
		IndexName:       strings.TrimSpace(m.settings[settingIndex].Value()),
		Namespace:       strings.TrimSpace(m.settings[settingNamespace].Value()),
		StoreHost:       strings.TrimSpace(m.settings[settingHost].Value()),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case searchDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.matches = msg.matches
		m.searched = true
		if len(msg.matches) == 0 {
			m.setStatus("No results found.")
		} else {
			m.setStatus(fmt.Sprintf("Found %d result(s).", len(msg.matches)))
		}
		return m, nil

	case insertDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		receipt := msg.receipt
		m.receipt = &receipt
		m.text.SetValue("")
		m.docID.SetValue("")
		m.metadata = []metadataRow{newMetadataRow()}
		m.focus = 0
		m.focusField()
		m.setStatus(fmt.Sprintf("Successfully inserted text into %s.", receipt.Index))
		return m, nil
	}

	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.tab = (m.tab + 1) % tabCount
		m.focus = 0
		return m, m.focusField()
	case "shift+tab":
		m.tab = (m.tab + tabCount - 1) % tabCount
		m.focus = 0
		return m, m.focusField()
	case "up":
		if m.focus > 0 {
			m.focus--
		}
		return m, m.focusField()
	case "down":
		if m.focus < m.fieldCount()-1 {
			m.focus++
		}
		return m, m.focusField()
	case "ctrl+n":
		if m.tab == tabInsert {
			m.metadata = append(m.metadata, newMetadataRow())
			m.focus = m.fieldCount() - 2
			return m, m.focusField()
		}
		return m, nil
	case "enter":
		return m.submit()
	}

	return m.updateFocused(msg)
}

// submit starts the action of the current tab. Nothing happens while an action is running.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	switch m.tab {
	case tabSearch:
		text := strings.TrimSpace(m.query.Value())
		if text == "" {
			m.setStatus("Please enter a search query.")
			m.statusErr = true
			return m, nil
		}
		topK, err := strconv.Atoi(strings.TrimSpace(m.topK.Value()))
		if err != nil {
			m.setStatus("Number of results must be a whole number.")
			m.statusErr = true
			return m, nil
		}

		m.busy = true
		m.lastQuery = text
		m.setStatus("Searching...")
		return m, tea.Batch(m.spinner.Tick, m.searchCmd(types.Query{Text: text, TopK: topK}))

	case tabInsert:
		if strings.TrimSpace(m.text.Value()) == "" {
			m.setStatus("Please enter text to insert.")
			m.statusErr = true
			return m, nil
		}

		req := semsearch.InsertRequest{
			ID:   m.docID.Value(),
			Text: m.text.Value(),
		}
		for _, row := range m.metadata {
			req.Metadata = append(req.Metadata, types.MetadataPair{
				Key:   strings.TrimSpace(row.key.Value()),
				Value: strings.TrimSpace(row.value.Value()),
			})
		}

		m.busy = true
		m.setStatus("Generating embedding and inserting...")
		return m, tea.Batch(m.spinner.Tick, m.insertCmd(req))

	case tabSettings:
		m.setStatus("Settings apply to the next action.")
	}
	return m, nil
}

func (m Model) searchCmd(q types.Query) tea.Cmd {
	ctx, svc, overrides := m.ctx, m.svc, m.Overrides()
	return func() tea.Msg {
		matches, err := svc.Search(ctx, overrides, q)
		return searchDoneMsg{matches: matches, err: err}
	}
}

func (m Model) insertCmd(req semsearch.InsertRequest) tea.Cmd {
	ctx, svc, overrides := m.ctx, m.svc, m.Overrides()
	return func() tea.Msg {
		receipt, err := svc.Insert(ctx, overrides, req)
		return insertDoneMsg{receipt: receipt, err: err}
	}
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = semsearch.UserMessage(err)
	m.statusErr = true
}

func (m Model) fieldCount() int {
	switch m.tab {
	case tabSearch:
		return 2
	case tabInsert:
		return 2 + 2*len(m.metadata)
	default:
		return settingCount
	}
}

// field returns the input that has keyboard focus
func (m *Model) field() *textinput.Model {
	switch m.tab {
	case tabSearch:
		if m.focus == 0 {
			return &m.query
		}
		return &m.topK
	case tabInsert:
		switch m.focus {
		case 0:
			return &m.text
		case 1:
			return &m.docID
		}
		row := &m.metadata[(m.focus-2)/2]
		if (m.focus-2)%2 == 0 {
			return &row.key
		}
		return &row.value
	default:
		return &m.settings[m.focus]
	}
}

func (m *Model) focusField() tea.Cmd {
	m.query.Blur()
	m.topK.Blur()
	m.text.Blur()
	m.docID.Blur()
	for i := range m.metadata {
		m.metadata[i].key.Blur()
		m.metadata[i].value.Blur()
	}
	for i := range m.settings {
		m.settings[i].Blur()
	}
	return m.field().Focus()
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	f := m.field()
	var cmd tea.Cmd
	*f, cmd = f.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Semantic Search"))
	b.WriteString("\n")
	b.WriteString(m.tabsView())
	b.WriteString("\n\n")

	switch m.tab {
	case tabSearch:
		b.WriteString(m.searchView())
	case tabInsert:
		b.WriteString(m.insertView())
	case tabSettings:
		b.WriteString(m.settingsView())
	}

	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("tab: switch tab • ↑/↓: move • enter: submit • ctrl+n: add metadata • ctrl+c: quit"))
	return b.String()
}

func (m Model) tabsView() string {
	tabs := make([]string, 0, tabCount)
	for i, name := range tabNames {
		if tab(i) == m.tab {
			tabs = append(tabs, m.styles.ActiveTab.Render(name))
		} else {
			tabs = append(tabs, m.styles.InactiveTab.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) searchView() string {
	var b strings.Builder
	b.WriteString(m.styles.Label.Render("Query") + "\n" + m.query.View() + "\n\n")
	b.WriteString(m.styles.Label.Render(fmt.Sprintf("Number of results (1-%d)", types.MaxTopK)) + "\n" + m.topK.View() + "\n\n")

	if !m.searched {
		return b.String()
	}
	if len(m.matches) == 0 {
		b.WriteString(m.styles.Muted.Render("No results found.") + "\n")
		return b.String()
	}

	b.WriteString(m.styles.Label.Render(fmt.Sprintf("Top %d results for '%s'", len(m.matches), m.lastQuery)) + "\n")
	for i, match := range m.matches {
		b.WriteString(m.matchView(i+1, match) + "\n")
	}
	return b.String()
}

func (m Model) matchView(rank int, match types.Match) string {
	score := lipgloss.NewStyle().Bold(true).Foreground(scoreColor(match.Score)).
		Render(fmt.Sprintf("%.4f", match.Score))

	lines := []string{
		fmt.Sprintf("#%d  %s  %s", rank, score, m.styles.Muted.Render(match.ID)),
		match.Text,
	}
	for _, k := range sortedKeys(match.Metadata) {
		lines = append(lines, m.styles.Muted.Render(fmt.Sprintf("%s: %v", k, match.Metadata[k])))
	}

	style := m.styles.Result
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (m Model) insertView() string {
	var b strings.Builder
	b.WriteString(m.styles.Label.Render("Text") + "\n" + m.text.View() + "\n\n")
	b.WriteString(m.styles.Label.Render("Document ID") + "\n" + m.docID.View() + "\n\n")
	b.WriteString(m.styles.Label.Render("Metadata") + "\n")
	for _, row := range m.metadata {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, row.key.View(), "  ", row.value.View()) + "\n")
	}

	if m.receipt != nil {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("Vector ID: %s\nIndex: %s\nNamespace: %s\n", m.receipt.ID, m.receipt.Index, semsearch.DisplayNamespace(m.receipt.Namespace)))
	}
	return b.String()
}

func (m Model) settingsView() string {
	labels := [settingCount]string{"Embedding API key", "Vector database API key", "Index name", "Namespace", "Index host"}

	var b strings.Builder
	for i, label := range labels {
		b.WriteString(m.styles.Label.Render(label) + "\n" + m.settings[i].View() + "\n\n")
	}
	b.WriteString(m.styles.Muted.Render("Empty fields use the configured defaults.") + "\n")
	return b.String()
}

func (m Model) statusView() string {
	switch {
	case m.busy:
		return m.styles.Status.Render(m.spinner.View() + " " + m.status)
	case m.status == "":
		return ""
	case m.statusErr:
		return m.styles.Error.Render(m.status)
	default:
		return m.styles.Success.Render(m.status)
	}
}

func sortedKeys(md types.Metadata) []string {
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
