package fundboard

import (
	"strings"
	"time"
)

// Profile is the public part of a user profile.
type Profile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Reaction is a single reaction left on a comment.
type Reaction struct {
	Reactor  string `json:"reactor_id"`
	Reaction string `json:"reaction"`
}

// Comment is a comment on a project. A comment with an empty ReplyingTo is a
// root comment; otherwise, ReplyingTo holds the ID of the root it replies to.
// Comments are never edited once created.
type Comment struct {
	ID         string     `json:"id"`
	ProjectID  string     `json:"project"`
	Commenter  string     `json:"commenter"`
	ReplyingTo string     `json:"replying_to,omitempty"`
	Content    Doc        `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
	Author     Profile    `json:"profiles"`
	Reactions  []Reaction `json:"comment_rxns,omitempty"`
}

// IsReply returns true if the comment replies to another comment.
func (c Comment) IsReply() bool { return c.ReplyingTo != "" }

// ReactionCounts tallies reactions by kind.
func (c Comment) ReactionCounts() map[string]int {
	counts := make(map[string]int, len(c.Reactions))
	for _, r := range c.Reactions {
		counts[r.Reaction]++
	}
	return counts
}

// Node types understood by Doc.
const (
	DocType       = "doc"
	ParagraphType = "paragraph"
	TextType      = "text"
	MentionType   = "mention"
	HardBreakType = "hardBreak"
)

// Doc is a rich-text document as produced by the comment editor. It is a
// tree of typed nodes; leaves are text or mention nodes.
type Doc struct {
	Type    string                 `json:"type"`
	Text    string                 `json:"text,omitempty"`
	Attrs   map[string]interface{} `json:"attrs,omitempty"`
	Content []Doc                  `json:"content,omitempty"`
}

// NewTextDoc builds a document from plain text. Blank lines separate
// paragraphs.
func NewTextDoc(text string) Doc {
	doc := Doc{Type: DocType}

	for _, para := range strings.Split(text, "\n\n") {
		p := Doc{Type: ParagraphType}
		if para != "" {
			p.Content = []Doc{{Type: TextType, Text: para}}
		}
		doc.Content = append(doc.Content, p)
	}

	return doc
}

// ReplyPrompt returns the document a reply to target starts with: a mention
// of the target's author followed by a space.
func ReplyPrompt(target Comment) Doc {
	return Doc{
		Type: DocType,
		Content: []Doc{{
			Type: ParagraphType,
			Content: []Doc{
				{
					Type: MentionType,
					Attrs: map[string]interface{}{
						"id":    target.Commenter,
						"label": target.Author.Username,
					},
				},
				{Type: TextType, Text: " "},
			},
		}},
	}
}

// PlainText flattens the document into text. Top-level blocks are separated
// by blank lines and mentions render as @label.
func (d Doc) PlainText() string {
	var b strings.Builder
	d.writeText(&b)
	return b.String()
}

func (d Doc) writeText(b *strings.Builder) {
	switch d.Type {
	case TextType:
		b.WriteString(d.Text)
		return
	case MentionType:
		b.WriteByte('@')
		if label, ok := d.Attrs["label"].(string); ok {
			b.WriteString(label)
		}
		return
	case HardBreakType:
		b.WriteByte('\n')
		return
	}

	for i, child := range d.Content {
		if d.Type == DocType && i > 0 {
			b.WriteString("\n\n")
		}
		child.writeText(b)
	}
}

// IsBlank returns true if the document has no text other than whitespace.
// Mentions count as text.
func (d Doc) IsBlank() bool {
	return strings.TrimSpace(d.PlainText()) == ""
}
