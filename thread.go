package fundboard

import "sort"

// Thread is a root comment and its direct replies. Threads are exactly two
// levels deep.
type Thread struct {
	Root    Comment   `json:"root"`
	Replies []Comment `json:"replies"`
}

// Threads is the result of grouping comments into threads.
type Threads struct {
	// Threads is sorted by the root's creation time, most recent first.
	Threads []Thread `json:"threads"`
	// Orphaned contains replies whose parent is not a known root. It is
	// sorted by creation time, oldest first. It is normally empty.
	Orphaned []Comment `json:"orphaned,omitempty"`
}

// Len returns the total number of comments.
func (t Threads) Len() int {
	n := len(t.Orphaned)
	for _, thread := range t.Threads {
		n += 1 + len(thread.Replies)
	}
	return n
}

// PartitionComments splits comments into roots and replies, keeping their
// relative order.
func PartitionComments(comments []Comment) (roots, replies []Comment) {
	for _, c := range comments {
		if c.IsReply() {
			replies = append(replies, c)
		} else {
			roots = append(roots, c)
		}
	}
	return
}

// ThreadComments groups a flat list of a project's comments into threads.
func ThreadComments(comments []Comment) Threads {
	return GenThreads(PartitionComments(comments))
}

// GenThreads groups replies under their root. Replies within a thread are
// sorted oldest first; threads are sorted newest first. Sorting is stable, so
// comments created at the same time keep their input order.
func GenThreads(roots, replies []Comment) Threads {
	threads := make([]Thread, len(roots))
	index := make(map[string]int, len(roots))

	for i, root := range roots {
		threads[i] = Thread{Root: root, Replies: []Comment{}}
		index[root.ID] = i
	}

	var orphaned []Comment

	for _, reply := range replies {
		i, ok := index[reply.ReplyingTo]
		if !ok {
			orphaned = append(orphaned, reply)
			continue
		}
		threads[i].Replies = append(threads[i].Replies, reply)
	}

	for _, thread := range threads {
		sortOldestFirst(thread.Replies)
	}
	sortOldestFirst(orphaned)

	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].Root.CreatedAt.After(threads[j].Root.CreatedAt)
	})

	return Threads{
		Threads:  threads,
		Orphaned: orphaned,
	}
}

func sortOldestFirst(comments []Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
}
