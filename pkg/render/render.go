// Package render formats programs and history entries as terminal tables.
package render

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dikkadev/relwatch/pkg/storage"
)

// DateFormat is used for every timestamp shown in a table
const DateFormat = "2006-01-02 15:04:05"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	updateStyle = cellStyle.Foreground(lipgloss.Color("3"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}

// Programs renders the tracked programs. Rows with a pending update are highlighted.
func Programs(programs []*storage.Program) string {
	rows := make([][]string, 0, len(programs))
	for _, p := range programs {
		rows = append(rows, []string{
			p.Name,
			p.CurrentVersion,
			p.CurrentVersionLastUpdated.Local().Format(DateFormat),
			p.LatestVersion,
			p.LatestVersionLastUpdated.Local().Format(DateFormat),
			p.Provider.String(),
			notificationState(p),
		})
	}

	t := newTable("Name", "Current version", "Last updated", "Latest version", "Last checked", "Provider", "Notified").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row >= 0 && row < len(programs) && programs[row].UpdateAvailable() {
				return updateStyle
			}
			return cellStyle
		})
	return t.String()
}

// UpdateChecks renders the update check history
func UpdateChecks(entries []*storage.UpdateCheckHistoryEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Date.Local().Format(DateFormat),
			string(e.Kind),
			strconv.Itoa(e.UpdatesAvailable),
			e.Programs,
		})
	}
	return newTable("Date", "Type", "Updates available", "Programs").
		Rows(rows...).
		StyleFunc(plainStyle).
		String()
}

// Updates renders the performed updates
func Updates(entries []*storage.UpdateHistoryEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Date.Local().Format(DateFormat),
			e.Name,
			e.OldVersion,
			e.UpdatedTo,
		})
	}
	return newTable("Date", "Name", "Old version", "Updated to").
		Rows(rows...).
		StyleFunc(plainStyle).
		String()
}

func plainStyle(row, col int) lipgloss.Style {
	if row == table.HeaderRow {
		return headerStyle
	}
	return cellStyle
}

func notificationState(p *storage.Program) string {
	switch {
	case p.NotificationSentOn != nil:
		return p.NotificationSentOn.Local().Format(DateFormat)
	case p.NotificationSent && p.UpdateAvailable():
		return "manually checked"
	case p.NotificationSent:
		return "yes"
	default:
		return "no"
	}
}
