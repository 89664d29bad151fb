package migrate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/danielolaszy/bzmigrate/internal/config"
	"github.com/danielolaszy/bzmigrate/pkg/models"
)

// otherOS is Bugzilla's catch-all op_sys value; it never becomes a label.
const otherOS = "Other"

// noMilestone is Bugzilla's placeholder for an unset target milestone.
const noMilestone = "---"

const extendedDescriptionHeading = "\n## Extended Description \n"

var firstToken = regexp.MustCompile(`^(\S*)`)

// IssueBuilder converts a bug record into an Issue, absorbing the
// reporter's narrative and attachments into the description.
type IssueBuilder struct {
	mappings    *config.Mappings
	attachments *AttachmentResolver
	bugzillaURL string
}

// NewIssueBuilder returns an IssueBuilder.
func NewIssueBuilder(m *config.Mappings, attachments *AttachmentResolver, bugzillaURL string) *IssueBuilder {
	return &IssueBuilder{mappings: m, attachments: attachments, bugzillaURL: bugzillaURL}
}

// Build returns the issue for record together with the comments that were
// not absorbed into its description, in their original order. The record
// itself is left untouched.
func (b *IssueBuilder) Build(ctx context.Context, record *models.RawBugRecord) (*models.Issue, []models.RawComment, error) {
	reporter, err := resolveUser(b.mappings, record.Reporter())
	if err != nil {
		return nil, nil, err
	}

	issue := &models.Issue{
		Owner:     reporter.Identity,
		Title:     record.Field("short_desc"),
		Status:    record.Field("bug_status"),
		Labels:    b.labels(record.Field("component"), record.Field("op_sys")),
		Milestone: b.milestone(record.Field("target_milestone")),
	}

	if login := record.AssignedTo(); login != "" {
		assignee, err := resolveUser(b.mappings, login)
		if err != nil {
			return nil, nil, err
		}
		issue.Assignee = assignee.Identity
	}

	table, err := b.metadataTable(record)
	if err != nil {
		return nil, nil, err
	}

	// Validate before any attachment is transferred; the remaining steps
	// only ever append to a non-empty description.
	issue.Description = table
	if err := issue.Validate(); err != nil {
		return nil, nil, &ValidationError{Err: err}
	}

	remaining := append([]models.RawComment(nil), record.Comments...)

	var extended string
	if len(remaining) > 0 && remaining[0].Who == record.Reporter() && remaining[0].Text != "" {
		extended = remaining[0].Text
		remaining = remaining[1:]
	}

	var references []string
	kept := remaining[:0]
	for _, c := range remaining {
		if c.HasAttachment() && c.Who == record.Reporter() {
			reference, err := b.attachments.Resolve(ctx, c.AttachID, c.Text)
			if err != nil {
				return nil, nil, err
			}
			references = append(references, reference)
			continue
		}
		kept = append(kept, c)
	}
	remaining = kept

	var sb strings.Builder
	sb.WriteString(table)
	if len(references) > 0 {
		sb.WriteString(tableRow("Attachments", strings.Join(references, ", ")))
	}
	if who := b.reporterOverride(record.Reporter(), reporter, extended); who != "" {
		sb.WriteString(tableRow("Reporter", who))
	}
	if extended != "" {
		sb.WriteString(extendedDescriptionHeading)
		sb.WriteString(rewrap(extended))
	}
	issue.Description = sb.String()

	if err := issue.Validate(); err != nil {
		return nil, nil, &ValidationError{Err: err}
	}
	return issue, remaining, nil
}

// metadataTable renders the fixed rows of the description table.
func (b *IssueBuilder) metadataTable(record *models.RawBugRecord) (string, error) {
	var sb strings.Builder
	sb.WriteString(tableHeader)

	link := fmt.Sprintf("%sshow_bug.cgi?id=%s", b.bugzillaURL, record.BugID)
	sb.WriteString(tableRow("Bugzilla Link", fmt.Sprintf("[%s](%s)", record.BugID, link)))

	created, err := formatTimestamp(record.Field("creation_ts"))
	if err != nil {
		return "", err
	}
	sb.WriteString(tableRow("Created on", created))

	if resolution := record.Field("resolution"); resolution != "" {
		resolved, err := formatTimestamp(record.Field("delta_ts"))
		if err != nil {
			return "", err
		}
		sb.WriteString(tableRow("Resolution", resolution))
		sb.WriteString(tableRow("Resolved on", resolved))
	}

	sb.WriteString(tableRow("Version", record.Field("version")))
	sb.WriteString(tableRow("OS", record.Field("op_sys")))
	sb.WriteString(tableRow("Architecture", record.Field("rep_platform")))
	return sb.String(), nil
}

func (b *IssueBuilder) labels(component, operatingSystem string) []string {
	labels := []string{b.mappings.ProvenanceLabel}

	if label := b.mappings.ComponentLabel(component); label != "" {
		labels = append(labels, label)
	}
	if operatingSystem != "" && operatingSystem != otherOS {
		labels = append(labels, operatingSystem)
	}

	if b.mappings.DedupeLabels {
		return dedupe(labels)
	}
	return labels
}

func (b *IssueBuilder) milestone(bugzillaMilestone string) string {
	if bugzillaMilestone == "" || bugzillaMilestone == noMilestone {
		return ""
	}
	return b.mappings.Milestone(bugzillaMilestone)
}

// reporterOverride returns the value of the Reporter row, or "" when the
// owner identity already names the reporter. The row only accompanies an
// extended description.
func (b *IssueBuilder) reporterOverride(login string, reporter user, extended string) string {
	if extended == "" {
		return ""
	}
	if b.mappings.AnonymousReporter != "" && login == b.mappings.AnonymousReporter {
		if submitter := findSubmitter(extended, b.mappings.SubmitterMarker); submitter != "" {
			return submitter
		}
	}
	if reporter.isGhost(b.mappings) {
		return login
	}
	return ""
}

// findSubmitter returns the token right after the last marker in text.
func findSubmitter(text, marker string) string {
	idx := strings.LastIndex(text, marker)
	if idx < 0 {
		return ""
	}
	m := firstToken.FindStringSubmatch(text[idx+len(marker):])
	if m == nil {
		return ""
	}
	return m[1]
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
