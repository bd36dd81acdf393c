package store

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	responseBodyLimit = 500
	consoleErrorLimit = 10
)

// GenerateReport renders a group and one of its occurrences into a
// Markdown debug report suitable for an issue tracker or AI assistant.
// occurrenceID 0 selects the group's most recent occurrence; a group
// with no occurrences renders with empty occurrence data. Returns
// ok=false when the group (or the named occurrence) does not exist.
// Pure rendering over stored data, no mutation.
func (s *Store) GenerateReport(groupID, occurrenceID int64) (string, bool, error) {
	detail, err := s.GetErrorDetail(groupID)
	if err != nil {
		return "", false, err
	}
	if detail == nil {
		return "", false, nil
	}

	var occ ErrorOccurrence
	if occurrenceID != 0 {
		found, err := s.GetOccurrence(occurrenceID)
		if err != nil {
			return "", false, err
		}
		if found == nil {
			return "", false, nil
		}
		occ = *found
	} else if len(detail.Occurrences) > 0 {
		occ = detail.Occurrences[0]
	}

	return renderReport(detail, &occ), true, nil
}

func renderReport(detail *ErrorDetail, occ *ErrorOccurrence) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Error Debug Report\n\n")
	fmt.Fprintf(&b, "**Error ID**: %d\n", detail.ID)
	fmt.Fprintf(&b, "**Category**: %s (`%s`)\n", detail.CategoryLabel, detail.Category)
	fmt.Fprintf(&b, "**Occurrences**: %d times\n\n", detail.OccurrenceCount)

	fmt.Fprintf(&b, "### Timeline\n")
	fmt.Fprintf(&b, "- **First Occurred**: %s\n", detail.FirstOccurred)
	fmt.Fprintf(&b, "- **Last Occurred**: %s\n\n", detail.LastOccurred)

	fmt.Fprintf(&b, "### Error Details\n")
	fmt.Fprintf(&b, "- **Type**: `%s`\n", detail.ErrorType)
	fmt.Fprintf(&b, "- **Message**:\n```\n%s\n```\n\n", detail.ErrorMessage)

	fmt.Fprintf(&b, "### Context\n%s\n\n", strOr(occ.Context, "No context provided"))

	fmt.Fprintf(&b, "### Stack Trace\n```\n%s\n```\n", strOr(occ.StackTrace, "No stack trace available"))

	if occ.RequestURL != nil {
		fmt.Fprintf(&b, "\n### Request\n- **URL**: %s\n", *occ.RequestURL)
		if occ.HTTPStatus != nil {
			fmt.Fprintf(&b, "- **HTTP Status**: %d\n", *occ.HTTPStatus)
		}
		if occ.ResponseBody != nil {
			fmt.Fprintf(&b, "\n```\n%s\n```\n", truncate(*occ.ResponseBody, responseBodyLimit))
		}
	}

	if occ.PageURL != nil {
		fmt.Fprintf(&b, "\n### Page URL\n%s\n", *occ.PageURL)
	}

	if logs := occ.ConsoleLogEntries(); len(logs) > 0 {
		var errs []ConsoleLogEntry
		for _, l := range logs {
			if l.Type == "error" {
				errs = append(errs, l)
			}
		}
		if len(errs) > 0 {
			fmt.Fprintf(&b, "\n### Console Errors (%d)\n```\n", len(errs))
			for i, l := range errs {
				if i == consoleErrorLimit {
					break
				}
				if i > 0 {
					b.WriteByte('\n')
				}
				fmt.Fprintf(&b, "[%s] %s", l.Type, l.Body())
			}
			fmt.Fprintf(&b, "\n```\n")
		}
	}

	if extra := occ.ExtraDataMap(); len(extra) > 0 {
		pretty, err := json.MarshalIndent(extra, "", "  ")
		if err == nil {
			fmt.Fprintf(&b, "\n### Extra Data\n```json\n%s\n```\n", pretty)
		}
	}

	if occ.TestID != nil {
		fmt.Fprintf(&b, "\n### Test Details\n")
		fmt.Fprintf(&b, "- **Test**: `%s` — %s\n", *occ.TestID, strOr(occ.TestName, ""))
		fmt.Fprintf(&b, "- **Suite**: %s\n", strOr(occ.Suite, ""))
		fmt.Fprintf(&b, "- **Run ID**: %s\n", strOr(occ.RunID, ""))
	}

	fmt.Fprintf(&b, "\n---\n*This error has occurred %d time(s). Please investigate and suggest a fix.*\n", detail.OccurrenceCount)
	return b.String()
}

func strOr(p *string, def string) string {
	if p != nil && *p != "" {
		return *p
	}
	return def
}
