// Package selector resolves a search term to a GitHub repository, asking the
// user to pick one when the search is ambiguous.
package selector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dikkadev/relwatch/pkg/github"
)

var (
	// ErrNoSelection is returned when the picker was closed without choosing
	ErrNoSelection = errors.New("no repository selected")
	// ErrAmbiguous is returned in non-interactive mode when several repositories match
	ErrAmbiguous = errors.New("search term matches several repositories")
)

const maxCandidates = 5

type RepoItem struct {
	repo github.Repository
}

func (i RepoItem) Title() string {
	return i.repo.FullName
}

func (i RepoItem) Description() string {
	prefix := fmt.Sprintf("⭐ %d | ", i.repo.Stars)
	if !i.repo.UpdatedAt.IsZero() {
		prefix += "updated " + i.repo.UpdatedAt.Format("2006-01-02") + " | "
	}
	desc := i.repo.Description
	maxLen := 100 - len(prefix)
	if len(desc) > maxLen {
		desc = desc[:maxLen-3] + "..."
	}
	return prefix + desc
}

func (i RepoItem) FilterValue() string {
	return i.repo.FullName
}

type model struct {
	list     list.Model
	selected *github.Repository
	quitting bool
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if i, ok := m.list.SelectedItem().(RepoItem); ok {
				m.selected = &i.repo
				return m, tea.Quit
			}
		case "ctrl+n":
			m.list.CursorDown()
			return m, nil
		case "ctrl+p":
			m.list.CursorUp()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.quitting || m.selected != nil {
		return ""
	}
	help := "\nNavigate: ↑/↓ • Filter: / • Watch: Enter • Quit: Esc/q\n"
	return m.list.View() + help
}

// searchRepositories tries an exact owner/repo match first and then widens
// the search to names and users
func searchRepositories(ctx context.Context, client github.Client, input string) (*github.SearchResult, error) {
	var result *github.SearchResult

	if owner, repo, err := github.SplitRepository(input); err == nil {
		result, err = client.SearchRepositories(ctx, fmt.Sprintf("repo:%s/%s", owner, repo))
		if err != nil {
			return nil, fmt.Errorf("failed to search for exact match: %w", err)
		}
		if result.TotalCount == 1 {
			return result, nil
		}

		result, err = client.SearchRepositories(ctx, fmt.Sprintf("user:%s %s in:name", owner, repo))
		if err != nil {
			return nil, fmt.Errorf("failed to search with user and name: %w", err)
		}
	}

	var err error
	if result == nil || result.TotalCount == 0 {
		result, err = client.SearchRepositoriesByName(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to search by name: %w", err)
		}
	}

	if result.TotalCount == 0 {
		result, err = client.SearchRepositoriesByUser(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to search by user: %w", err)
		}
	}

	if result.TotalCount == 0 || len(result.Items) == 0 {
		return nil, fmt.Errorf("no repositories found matching '%s'", input)
	}
	return result, nil
}

// Resolve turns input into a single repository. A unique hit is returned
// directly. Otherwise the user picks one from a list, or, when interactive is
// false, ErrAmbiguous names the best candidates.
func Resolve(ctx context.Context, client github.Client, input string, interactive bool) (*github.Repository, error) {
	result, err := searchRepositories(ctx, client, input)
	if err != nil {
		return nil, err
	}

	if len(result.Items) == 1 {
		return &result.Items[0], nil
	}
	for i := range result.Items {
		if strings.EqualFold(result.Items[i].FullName, input) {
			return &result.Items[i], nil
		}
	}

	if !interactive {
		names := make([]string, 0, maxCandidates)
		for i, repo := range result.Items {
			if i == maxCandidates {
				break
			}
			names = append(names, repo.FullName)
		}
		return nil, fmt.Errorf("%w: %s (use owner/repo)", ErrAmbiguous, strings.Join(names, ", "))
	}

	return pick(result)
}

func newModel(result *github.SearchResult) model {
	items := make([]list.Item, len(result.Items))
	for i, repo := range result.Items {
		items[i] = RepoItem{repo: repo}
	}

	height := min(20, len(items)+5)
	l := list.New(items, list.NewDefaultDelegate(), 80, height)
	l.Title = fmt.Sprintf("Select a repository to watch (found %d)", result.TotalCount)
	l.SetShowHelp(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	return model{list: l}
}

func pick(result *github.SearchResult) (*github.Repository, error) {
	finalModel, err := tea.NewProgram(newModel(result)).Run()
	if err != nil {
		return nil, fmt.Errorf("failed to run UI: %w", err)
	}
	if m, ok := finalModel.(model); ok && m.selected != nil {
		return m.selected, nil
	}
	return nil, ErrNoSelection
}
