package migrate

import (
	"context"
	"fmt"

	"github.com/danielolaszy/bzmigrate/internal/config"
	"github.com/danielolaszy/bzmigrate/pkg/models"
)

// CommentBuilder converts Bugzilla comments into target comments. The
// returned comments have no IssueID yet.
type CommentBuilder struct {
	mappings         *config.Mappings
	attachments      *AttachmentResolver
	attributeAuthors bool
}

// NewCommentBuilder returns a CommentBuilder. With attributeAuthors set every
// body starts with "By <author> on <time>", not only those of ghost users.
func NewCommentBuilder(m *config.Mappings, attachments *AttachmentResolver, attributeAuthors bool) *CommentBuilder {
	return &CommentBuilder{mappings: m, attachments: attachments, attributeAuthors: attributeAuthors}
}

// Build converts one raw comment. A comment announcing an attachment is
// replaced by the attachment reference.
func (b *CommentBuilder) Build(ctx context.Context, raw models.RawComment) (*models.Comment, error) {
	author, err := resolveUser(b.mappings, raw.Who)
	if err != nil {
		return nil, err
	}

	when, err := formatTimestamp(raw.When)
	if err != nil {
		return nil, err
	}

	var body string
	if author.isGhost(b.mappings) || b.attributeAuthors {
		body = fmt.Sprintf("By %s on %s\n\n", raw.Who, when)
	} else {
		body = when + "\n\n"
	}

	if raw.HasAttachment() {
		reference, err := b.attachments.Resolve(ctx, raw.AttachID, raw.Text)
		if err != nil {
			return nil, err
		}
		body += reference
	} else {
		body += raw.Text
	}

	return &models.Comment{Owner: author.Identity, Body: body}, nil
}
