package fundboard

import (
	"testing"
	"time"
)

func commentAt(id, replyingTo string, ms int64) Comment {
	return Comment{
		ID:         id,
		ReplyingTo: replyingTo,
		CreatedAt:  time.UnixMilli(ms),
	}
}

func threadIDs(threads Threads) map[string][]string {
	ids := make(map[string][]string, len(threads.Threads))
	for _, thread := range threads.Threads {
		replies := make([]string, len(thread.Replies))
		for i, reply := range thread.Replies {
			replies[i] = reply.ID
		}
		ids[thread.Root.ID] = replies
	}
	return ids
}

func TestGenThreads(t *testing.T) {
	roots := []Comment{
		commentAt("1", "", 10),
		commentAt("2", "", 20),
	}
	replies := []Comment{
		commentAt("3", "1", 15),
		commentAt("4", "2", 18),
	}

	threads := GenThreads(roots, replies)

	if len(threads.Threads) != 2 {
		t.Fatalf("expected 2 threads, got %d", len(threads.Threads))
	}

	expects := []struct {
		root    string
		replies []string
	}{
		{"2", []string{"4"}},
		{"1", []string{"3"}},
	}

	for i, expect := range expects {
		thread := threads.Threads[i]
		if thread.Root.ID != expect.root {
			t.Errorf("thread %d: expected root %s, got %s", i, expect.root, thread.Root.ID)
		}
		if len(thread.Replies) != len(expect.replies) || thread.Replies[0].ID != expect.replies[0] {
			t.Errorf("thread %d: unexpected replies %v", i, threadIDs(threads)[thread.Root.ID])
		}
	}

	if len(threads.Orphaned) != 0 {
		t.Errorf("unexpected orphans: %v", threads.Orphaned)
	}
}

func TestThreadComments(t *testing.T) {
	comments := []Comment{
		commentAt("r2", "1", 40),
		commentAt("1", "", 10),
		commentAt("r1", "1", 30),
		commentAt("lost", "gone", 5),
		commentAt("2", "", 50),
		commentAt("r3", "1", 30),
	}

	threads := ThreadComments(comments)

	if n := threads.Len(); n != len(comments) {
		t.Fatalf("expected %d comments, got %d", len(comments), n)
	}

	if threads.Threads[0].Root.ID != "2" {
		t.Fatalf("expected newest thread first, got %s", threads.Threads[0].Root.ID)
	}

	if replies := threads.Threads[0].Replies; replies == nil || len(replies) != 0 {
		t.Fatalf("expected non-nil empty replies, got %#v", replies)
	}

	// Same-time replies keep their input order.
	got := threadIDs(threads)["1"]
	want := []string{"r1", "r3", "r2"}
	if len(got) != len(want) {
		t.Fatalf("expected replies %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected replies %v, got %v", want, got)
		}
	}

	if len(threads.Orphaned) != 1 || threads.Orphaned[0].ID != "lost" {
		t.Fatalf("expected orphaned lost comment, got %v", threads.Orphaned)
	}
}

func TestThreadCommentsEmpty(t *testing.T) {
	threads := ThreadComments(nil)
	if len(threads.Threads) != 0 || len(threads.Orphaned) != 0 {
		t.Fatalf("expected empty threads, got %+v", threads)
	}
}
