package internal

// CallbackQueue collects callbacks while a lock is held so they can be run
// after it is released.
type CallbackQueue struct {
	callbacks []func()
}

func NewCallbackQueue() *CallbackQueue {
	return &CallbackQueue{
		callbacks: make([]func(), 0),
	}
}

func (q *CallbackQueue) Enqueue(fn func()) {
	q.callbacks = append(q.callbacks, fn)
}

func (q *CallbackQueue) Len() int {
	return len(q.callbacks)
}

// Run executes and clears every queued callback, returning how many ran.
// A panicking callback does not stop the others; the first panic is re-raised
// once all of them have run.
func (q *CallbackQueue) Run() int {
	callbacks := q.callbacks
	q.callbacks = nil

	var recovered any
	for _, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil && recovered == nil {
					recovered = r
				}
			}()

			cb()
		}()
	}

	if recovered != nil {
		panic(recovered)
	}

	return len(callbacks)
}
