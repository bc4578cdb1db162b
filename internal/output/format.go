// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"lockin/internal/service"
)

const (
	clockLayout = "15:04"
	dateLayout  = "2006-01-02 15:04"
)

// FormatTime renders a number of minutes as "1 D:2 H:30 M".
// Zero components are left out; zero minutes renders as "0 min".
func FormatTime(totalMinutes int) string {
	if totalMinutes < 0 {
		totalMinutes = 0
	}
	days := totalMinutes / 1440
	hours := totalMinutes % 1440 / 60
	minutes := totalMinutes % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d D", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d H", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d M", minutes))
	}
	if len(parts) == 0 {
		return "0 min"
	}
	return strings.Join(parts, ":")
}

// FormatTask formats an ongoing task line.
// Format: "{N:>4}  {NAME}  [{ESTIMATE}]  {START}-{END}\n"
func FormatTask(w io.Writer, num int, task service.Task) {
	fmt.Fprintf(w, "%4d  %s  [%s]  %s-%s\n",
		num,
		normalizeName(task.Name),
		FormatTime(task.EstimatedMinutes),
		task.StartTime.Format(clockLayout),
		task.CompletionTime.Format(clockLayout),
	)
}

// FormatTimeLeft prints the remaining time of the task at the head of the queue.
func FormatTimeLeft(w io.Writer, task service.Task, now time.Time) {
	left := int(task.CompletionTime.Sub(now) / time.Minute)
	fmt.Fprintf(w, "time left: %s\n", FormatTime(max(left, 0)))
}

// FormatCompletedTask formats a completed task line.
func FormatCompletedTask(w io.Writer, num int, task service.CompletedTask) {
	fmt.Fprintf(w, "%4d  %s  [%s]  done %s\n",
		num,
		normalizeName(task.Name),
		FormatTime(task.EstimatedMinutes),
		task.CompletionTime.Format(dateLayout),
	)
}

// FormatSavedTask formats a saved task template line.
func FormatSavedTask(w io.Writer, num int, task service.SavedTask) {
	fmt.Fprintf(w, "%4d  %s  [%s]\n", num, normalizeName(task.Name), FormatTime(task.EstimatedMinutes))
}

// normalizeName normalizes a task name for display.
// - Empty or whitespace-only names become "(untitled)"
// - Newlines are replaced with spaces
func normalizeName(name string) string {
	name = strings.ReplaceAll(name, "\r", " ")
	name = strings.ReplaceAll(name, "\n", " ")

	if strings.TrimSpace(name) == "" {
		return "(untitled)"
	}
	return name
}
