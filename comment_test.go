package fundboard

import (
	"encoding/json"
	"testing"
)

func TestDocPlainText(t *testing.T) {
	tests := []struct {
		name  string
		doc   Doc
		text  string
		blank bool
	}{
		{
			name:  "empty",
			doc:   Doc{Type: DocType},
			text:  "",
			blank: true,
		},
		{
			name:  "paragraphs",
			doc:   NewTextDoc("hello\n\nworld"),
			text:  "hello\n\nworld",
			blank: false,
		},
		{
			name:  "whitespace",
			doc:   NewTextDoc("  \n\n\t"),
			text:  "  \n\n\t",
			blank: true,
		},
		{
			name: "mention",
			doc: ReplyPrompt(Comment{
				Commenter: "u1",
				Author:    Profile{ID: "u1", Username: "ana"},
			}),
			text:  "@ana ",
			blank: false,
		},
		{
			name: "hard break",
			doc: Doc{Type: DocType, Content: []Doc{{
				Type: ParagraphType,
				Content: []Doc{
					{Type: TextType, Text: "a"},
					{Type: HardBreakType},
					{Type: TextType, Text: "b"},
				},
			}}},
			text:  "a\nb",
			blank: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if text := test.doc.PlainText(); text != test.text {
				t.Errorf("expected text %q, got %q", test.text, text)
			}
			if blank := test.doc.IsBlank(); blank != test.blank {
				t.Errorf("expected blank %v, got %v", test.blank, blank)
			}
		})
	}
}

func TestDocJSON(t *testing.T) {
	const input = `{"type":"doc","content":[{"type":"paragraph","content":[` +
		`{"type":"mention","attrs":{"id":"u1","label":"ana"}},{"type":"text","text":" hi"}]}]}`

	var doc Doc
	if err := json.Unmarshal([]byte(input), &doc); err != nil {
		t.Fatal("failed to unmarshal:", err)
	}

	if text := doc.PlainText(); text != "@ana hi" {
		t.Fatalf("unexpected text %q", text)
	}

	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatal("failed to marshal:", err)
	}

	if string(b) != input {
		t.Fatalf("unexpected JSON %s", b)
	}
}

func TestReactionCounts(t *testing.T) {
	c := Comment{Reactions: []Reaction{
		{Reactor: "a", Reaction: "heart"},
		{Reactor: "b", Reaction: "heart"},
		{Reactor: "a", Reaction: "eyes"},
	}}

	counts := c.ReactionCounts()
	if counts["heart"] != 2 || counts["eyes"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}
