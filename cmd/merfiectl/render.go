package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"merfie/app/internal/search"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			Margin(0, 0, 1, 0)

	resultStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	noResultsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("32"))
)

func renderPage(term string, page *search.Page) string {
	var b strings.Builder

	heading := "Newest content"
	if strings.TrimSpace(term) != "" {
		heading = fmt.Sprintf("Results for %q", term)
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s (page %d of %d, %d total)",
		heading, page.Page, page.TotalPages, page.TotalCount)))
	b.WriteString("\n")

	if len(page.Results) == 0 {
		b.WriteString(noResultsStyle.Render("No results found"))
		b.WriteString("\n")
		return b.String()
	}

	for _, result := range page.Results {
		b.WriteString(resultStyle.Render(renderSummary(result)))
		b.WriteString("\n")
	}
	return b.String()
}

func renderSummary(result search.Summary) string {
	lines := []string{titleStyle.Render(result.Title)}
	if result.Subtitle != nil && *result.Subtitle != "" {
		lines = append(lines, *result.Subtitle)
	}

	meta := fmt.Sprintf("#%d %s /%s %s", result.ID, result.ContentType, result.Slug,
		result.CreatedAt.Format("2006-01-02"))
	if !result.Published {
		meta += " draft"
	}
	lines = append(lines, metaStyle.Render(meta))

	if len(result.Tags) > 0 {
		lines = append(lines, metaStyle.Render("tags: "+strings.Join(result.Tags, ", ")))
	}
	if result.Image != nil {
		lines = append(lines, metaStyle.Render("image: "+result.Image.Path))
	}
	return strings.Join(lines, "\n")
}
