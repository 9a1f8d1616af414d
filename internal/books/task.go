package books

import "context"

// Task is a background metadata computation.
type Task struct {
	done  chan struct{}
	pages int
	err   error
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

func (t *Task) finish(pages int, err error) {
	t.pages = pages
	t.err = err
	close(t.done)
}

// Done is closed when the task finishes.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) (int, error) {
	select {
	case <-t.done:
		return t.pages, t.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
