package migrate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/danielolaszy/bzmigrate/internal/logging"
	"github.com/danielolaszy/bzmigrate/pkg/models"
)

var attachmentMarker = regexp.MustCompile(`(?m)^Created attachment (\d*)\s?(.*)$`)

// ParseAttachmentFilename extracts the filename Bugzilla wrote into the
// comment that announced an attachment. A marker that carries no filename,
// such as "Created attachment 3", is a ParseError.
func ParseAttachmentFilename(text string) (string, error) {
	matches := attachmentMarker.FindStringSubmatch(text)
	if matches == nil {
		return "", &ParseError{What: "attachment marker", Text: text}
	}
	filename := strings.TrimSpace(matches[2])
	if filename == "" {
		return "", &ParseError{What: "attachment filename", Text: text}
	}
	return filename, nil
}

// AttachmentResolver re-hosts Bugzilla attachments in the target tracker.
type AttachmentResolver struct {
	source  Source
	tracker Tracker
	dryRun  bool
}

// NewAttachmentResolver returns a resolver. source and tracker may be nil in
// dry-run mode.
func NewAttachmentResolver(source Source, tracker Tracker, dryRun bool) *AttachmentResolver {
	return &AttachmentResolver{source: source, tracker: tracker, dryRun: dryRun}
}

// Resolve uploads attachment sourceID under the filename parsed from
// rawText and returns the tracker's reference to it. Every call fetches the
// payload again.
func (r *AttachmentResolver) Resolve(ctx context.Context, sourceID, rawText string) (string, error) {
	filename, err := ParseAttachmentFilename(rawText)
	if err != nil {
		return "", err
	}
	ref := models.AttachmentRef{SourceID: sourceID, Filename: filename}

	if r.dryRun {
		logging.Debug("dry run: skipping attachment transfer", "attachment_id", ref.SourceID, "filename", ref.Filename)
		return fmt.Sprintf("[attachment](%s)", ref.Filename), nil
	}

	data, err := r.source.FetchAttachment(ctx, ref.SourceID)
	if err != nil {
		return "", &TransportError{Op: fmt.Sprintf("fetch attachment %s", ref.SourceID), Err: err}
	}

	reference, err := r.tracker.UploadFile(ctx, ref.Filename, data)
	if err != nil {
		return "", &TransportError{Op: fmt.Sprintf("upload attachment %s", ref.SourceID), Err: err}
	}

	logging.Debug("uploaded attachment",
		"attachment_id", ref.SourceID,
		"filename", ref.Filename,
		"size", len(data))
	return reference, nil
}
