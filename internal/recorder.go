package internal

import (
	"sync"
	"sync/atomic"
)

type frame struct {
	seq uint64

	// nil for untracked frames
	list *AccessList
}

// frameStack is owned by a single goroutine, only the map holding it is shared.
type frameStack struct {
	frames []frame
}

// Handle identifies one activated frame.
type Handle struct {
	gid   int64
	depth int
	seq   uint64
	list  *AccessList
}

var (
	stacks sync.Map // map[int64]*frameStack

	// number of frames currently active across all goroutines
	// lets RecordRead skip the goroutine lookup when nothing is recording
	activeFrames atomic.Int64

	// process-wide so a stale handle never matches a frame of a recreated stack
	frameSeq atomic.Uint64
)

// Activate starts recording reads on the current goroutine into a fresh AccessList.
// Any frame already active is shadowed until the returned handle is deactivated.
func Activate() Handle {
	return push(NewAccessList())
}

// ActivateUntracked suppresses recording on the current goroutine until the
// returned handle is deactivated.
func ActivateUntracked() Handle {
	return push(nil)
}

func push(list *AccessList) Handle {
	gid := getGID()

	v, ok := stacks.Load(gid)
	if !ok {
		v = &frameStack{}
		stacks.Store(gid, v)
	}
	st := v.(*frameStack)

	seq := frameSeq.Add(1)
	st.frames = append(st.frames, frame{seq: seq, list: list})
	activeFrames.Add(1)

	return Handle{gid: gid, depth: len(st.frames), seq: seq, list: list}
}

// Deactivate ends the frame identified by h, along with any frame pushed after
// it and not deactivated, and returns what it recorded.
// Untracked handles return nil. Deactivating twice is a no-op.
func Deactivate(h Handle) *AccessList {
	if h.depth == 0 {
		return nil
	}

	gid := getGID()
	if gid != h.gid {
		panic(ErrForeignHandle)
	}

	v, ok := stacks.Load(gid)
	if !ok {
		return h.list
	}
	st := v.(*frameStack)

	if len(st.frames) < h.depth || st.frames[h.depth-1].seq != h.seq {
		return h.list
	}

	popped := len(st.frames) - h.depth + 1
	clear(st.frames[h.depth-1:])
	st.frames = st.frames[:h.depth-1]
	activeFrames.Add(-int64(popped))

	if len(st.frames) == 0 {
		stacks.Delete(gid)
	}

	return h.list
}

// RecordRead adds (subject, key) to the innermost active frame of the current
// goroutine. It is a no-op when the goroutine is not recording.
func RecordRead(subject Subject, key Key) {
	if subject == nil || activeFrames.Load() == 0 {
		return
	}

	list := currentList()
	if list == nil {
		return
	}

	list.Add(subject, key)
}

// Tracking reports whether reads on the current goroutine are being recorded.
func Tracking() bool {
	if activeFrames.Load() == 0 {
		return false
	}
	return currentList() != nil
}

func currentList() *AccessList {
	v, ok := stacks.Load(getGID())
	if !ok {
		return nil
	}

	st := v.(*frameStack)
	if len(st.frames) == 0 {
		return nil
	}

	return st.frames[len(st.frames)-1].list
}
