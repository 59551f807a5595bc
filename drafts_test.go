package fundboard

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestDraftKey(t *testing.T) {
	tests := []struct {
		project, reply, want string
	}{
		{"p1", "", "CommentOnp1"},
		{"p1", "c9", "CommentOnp1ReplyingToc9"},
	}

	for _, test := range tests {
		if got := DraftKey(test.project, test.reply); got != test.want {
			t.Errorf("DraftKey(%q, %q) = %q, want %q", test.project, test.reply, got, test.want)
		}
	}
}

func TestDrafts(t *testing.T) {
	bolt, err := OpenDrafts(filepath.Join(t.TempDir(), "drafts.db"), false)
	if err != nil {
		t.Fatal("failed to open drafts:", err)
	}
	t.Cleanup(func() { bolt.Close() })

	stores := map[string]Drafts{
		"bolt":   bolt,
		"memory": &MemDrafts{},
	}

	doc := ReplyPrompt(Comment{Commenter: "u1", Author: Profile{Username: "ana"}})
	key := DraftKey("p1", "c1")

	for name, drafts := range stores {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := drafts.Get(key); err != nil || ok {
				t.Fatalf("expected no draft, got ok=%v err=%v", ok, err)
			}

			if err := drafts.Put(key, doc); err != nil {
				t.Fatal("failed to put:", err)
			}

			got, ok, err := drafts.Get(key)
			if err != nil || !ok {
				t.Fatalf("expected draft, got ok=%v err=%v", ok, err)
			}

			if !reflect.DeepEqual(got, doc) {
				t.Fatalf("draft mismatch:\n%#v\n%#v", got, doc)
			}

			if _, ok, _ := drafts.Get(DraftKey("p1", "")); ok {
				t.Fatal("root draft must not share the reply's key")
			}

			if err := drafts.Clear(key); err != nil {
				t.Fatal("failed to clear:", err)
			}
			if err := drafts.Clear(key); err != nil {
				t.Fatal("clearing twice failed:", err)
			}

			if _, ok, _ := drafts.Get(key); ok {
				t.Fatal("draft still exists after clear")
			}
		})
	}
}

func TestDraftsReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.db")

	if _, err := OpenDrafts(path, true); err == nil {
		t.Fatal("expected error opening a missing file with existingOnly")
	}

	d, err := OpenDrafts(path, false)
	if err != nil {
		t.Fatal("failed to open drafts:", err)
	}

	if err := d.Put("k", NewTextDoc("hello")); err != nil {
		t.Fatal("failed to put:", err)
	}
	d.Close()

	d, err = OpenDrafts(path, true)
	if err != nil {
		t.Fatal("failed to reopen drafts:", err)
	}
	defer d.Close()

	doc, ok, err := d.Get("k")
	if err != nil || !ok {
		t.Fatalf("expected draft, got ok=%v err=%v", ok, err)
	}
	if doc.PlainText() != "hello" {
		t.Fatalf("unexpected draft %q", doc.PlainText())
	}
}

func TestDecodeDraftUnversioned(t *testing.T) {
	var doc Doc
	if err := decodeDraft([]byte(`{"type":"doc"}`), &doc); err == nil {
		t.Fatal("expected an error decoding a draft without a version prefix")
	}

	b, err := encodeDraft(NewTextDoc("hi"))
	if err != nil {
		t.Fatal("failed to encode:", err)
	}
	if err := decodeDraft(b, &doc); err != nil {
		t.Fatal("failed to decode:", err)
	}
	if doc.PlainText() != "hi" {
		t.Fatalf("unexpected draft %q", doc.PlainText())
	}
}
