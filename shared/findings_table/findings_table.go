// Package findingstable renders audit findings as console tables.
package findingstable

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/thirukguru/aws-posture/model"
	"github.com/thirukguru/aws-posture/service/finding"
	"github.com/thirukguru/aws-posture/shared/compliance"
)

var categoryTitles = map[finding.Category]string{
	finding.AdminViaPolicy:   "👑 Administrator Access via Attached Policy",
	finding.AdminViaGroup:    "👥 Administrator Access via Group Membership",
	finding.NoMfa:            "🔐 Users Without MFA",
	finding.StalePassword:    "⏳ Stale Console Passwords",
	finding.StaleAccessKey:   "🗝️  Access Keys Past Rotation Window",
	finding.UnusedAccessKey:  "💤 Access Keys Not Used Within Rotation Window",
	finding.OpenCriticalPort: "🚨 Critical Ports Open to the Internet",
	finding.PublicInstance:   "🌐 Instances With Public IPs",
	finding.MissingKeyPair:   "🔑 Instances Without Key Pairs",
}

// DrawAuditTable renders the audit result to stdout.
func DrawAuditTable(input model.RenderAuditInput) {
	drawAudit(os.Stdout, input)
}

func drawAudit(w io.Writer, input model.RenderAuditInput) {
	fmt.Fprintf(w, "\n🛡️  AWS Posture Audit - Account: %s\n", input.AccountID)
	if !input.ReportGeneratedAt.IsZero() {
		fmt.Fprintf(w, "   Credential report generated %s\n", input.ReportGeneratedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	}

	if len(input.Findings) == 0 {
		fmt.Fprintln(w, text.FgGreen.Sprint("\n✅ No posture issues found!"))
	} else {
		drawSeveritySummary(w, input.Findings)

		grouped := make(map[finding.Category][]finding.Finding)
		for _, f := range input.Findings {
			grouped[f.Category] = append(grouped[f.Category], f)
		}

		for _, c := range finding.Categories {
			if len(grouped[c]) > 0 {
				drawCategoryTable(w, c, grouped[c])
			}
		}
	}

	if len(input.InputErrors) > 0 {
		drawMessages(w, text.FgYellow.Sprint("⚠️  Input Errors"), "Error", input.InputErrors)
	}

	if len(input.Notes) > 0 {
		drawMessages(w, text.FgCyan.Sprint("ℹ️  Notes"), "Note", input.Notes)
	}
}

func drawSeveritySummary(w io.Writer, findings []finding.Finding) {
	counts := finding.CountBySeverity(findings)

	fmt.Fprintf(w, "   ")
	if n := counts[finding.SeverityCritical]; n > 0 {
		fmt.Fprintf(w, "%s ", text.FgRed.Sprintf("🔴 %d Critical", n))
	}
	if n := counts[finding.SeverityHigh]; n > 0 {
		fmt.Fprintf(w, "%s ", text.FgHiRed.Sprintf("🟠 %d High", n))
	}
	if n := counts[finding.SeverityMedium]; n > 0 {
		fmt.Fprintf(w, "%s ", text.FgYellow.Sprintf("🟡 %d Medium", n))
	}
	if n := counts[finding.SeverityLow]; n > 0 {
		fmt.Fprintf(w, "%s ", text.FgCyan.Sprintf("🔵 %d Low", n))
	}
	if n := counts[finding.SeverityInfo]; n > 0 {
		fmt.Fprintf(w, "%s ", text.FgGreen.Sprintf("🟢 %d Info", n))
	}
	fmt.Fprintln(w)
}

func drawCategoryTable(w io.Writer, c finding.Category, findings []finding.Finding) {
	title, ok := categoryTitles[c]
	if !ok {
		title = string(c)
	}
	fmt.Fprintln(w, "\n"+title)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Severity", "Subject", "Details", "CIS"})

	for _, f := range findings {
		t.AppendRow(table.Row{
			formatSeverity(f.Severity()),
			f.Subject,
			truncate(formatDetail(f), 70),
			strings.Join(compliance.CISControls(c), ", "),
		})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

func drawMessages(w io.Writer, title, column string, messages []string) {
	fmt.Fprintln(w, "\n"+title)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", column})
	for i, m := range messages {
		t.AppendRow(table.Row{i + 1, m})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func formatDetail(f finding.Finding) string {
	parts := make([]string, 0, len(f.Detail))
	for _, k := range f.DetailKeys() {
		parts = append(parts, k+"="+f.Detail[k])
	}
	return strings.Join(parts, " ")
}

func formatSeverity(severity string) string {
	switch severity {
	case finding.SeverityCritical:
		return text.FgRed.Sprint("🔴 CRITICAL")
	case finding.SeverityHigh:
		return text.FgHiRed.Sprint("🟠 HIGH")
	case finding.SeverityMedium:
		return text.FgYellow.Sprint("🟡 MEDIUM")
	case finding.SeverityLow:
		return text.FgCyan.Sprint("🔵 LOW")
	case finding.SeverityInfo:
		return text.FgGreen.Sprint("🟢 INFO")
	default:
		return severity
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
