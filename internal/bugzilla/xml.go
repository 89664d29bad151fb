package bugzilla

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/danielolaszy/bzmigrate/pkg/models"
)

// node is a generic XML element; Bugzilla adds fields between versions, so
// the bug is decoded by tag name instead of into a fixed struct.
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content string     `xml:",chardata"`
	Nodes   []node     `xml:",any"`
}

func (n node) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// children returns the text of every child element keyed by tag. Repeated
// tags are joined with ", ".
func (n node) children() map[string]string {
	out := make(map[string]string, len(n.Nodes))
	for _, child := range n.Nodes {
		tag := child.XMLName.Local
		if prev, ok := out[tag]; ok && prev != "" {
			out[tag] = prev + ", " + child.Content
			continue
		}
		out[tag] = child.Content
	}
	return out
}

// charsetReader lets old installations that still export latin1 be read.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
}

// ParseBugXML decodes the first bug of a show_bug.cgi?ctype=xml document.
func ParseBugXML(data []byte) (*models.RawBugRecord, error) {
	var root node
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.CharsetReader = charsetReader
	if err := decoder.Decode(&root); err != nil {
		return nil, err
	}

	var bug *node
	for i := range root.Nodes {
		if root.Nodes[i].XMLName.Local == "bug" {
			bug = &root.Nodes[i]
			break
		}
	}
	if bug == nil {
		return nil, fmt.Errorf("no bug element in response")
	}
	if e := bug.attr("error"); e != "" {
		return nil, fmt.Errorf("bugzilla reported error %q", e)
	}

	record := &models.RawBugRecord{Fields: map[string]string{}}
	for _, field := range bug.Nodes {
		switch field.XMLName.Local {
		case "long_desc":
			values := field.children()
			record.Comments = append(record.Comments, models.RawComment{
				CommentID: values["commentid"],
				Who:       strings.TrimSpace(values["who"]),
				When:      values["bug_when"],
				Text:      values["thetext"],
				AttachID:  strings.TrimSpace(values["attachid"]),
				IsPrivate: field.attr("isprivate") == "1",
			})
		case "attachment":
			values := field.children()
			record.Attachments = append(record.Attachments, models.RawAttachment{
				ID:          values["attachid"],
				Filename:    values["filename"],
				Description: values["desc"],
				MimeType:    values["type"],
				Size:        values["size"],
			})
		case "cc":
			record.Watchers = append(record.Watchers, strings.TrimSpace(field.Content))
		default:
			tag := field.XMLName.Local
			if prev, ok := record.Fields[tag]; ok && prev != "" {
				record.Fields[tag] = prev + ", " + field.Content
				continue
			}
			record.Fields[tag] = field.Content
		}
	}

	record.BugID = strings.TrimSpace(record.Fields["bug_id"])
	if record.BugID == "" {
		return nil, fmt.Errorf("bug element has no bug_id")
	}
	return record, nil
}
