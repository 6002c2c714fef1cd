package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"taskboard/internal/models"
	"taskboard/pkg/logger"

	"golang.org/x/sync/singleflight"
)

var ErrNoOpenTask = errors.New("no task open")

const defaultTypingTTL = 3 * time.Second

// TaskAPI is the REST surface the board persists through.
type TaskAPI interface {
	ListTasks(ctx context.Context, projectID int) ([]*models.Task, error)
	GetTask(ctx context.Context, taskID int) (*models.Task, error)
	CreateTask(ctx context.Context, projectID int, req *models.CreateTaskRequest) (*models.Task, error)
	UpdateTask(ctx context.Context, taskID int, req *models.UpdateTaskRequest) (*models.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID int, status models.TaskStatus) (*models.Task, error)
	DeleteTask(ctx context.Context, taskID int) error
	AddComment(ctx context.Context, taskID int, content string) (*models.Comment, error)
	DeleteComment(ctx context.Context, commentID int) error
}

// Transport is the real-time channel the board listens and emits on.
type Transport interface {
	Emit(event models.EventName, data interface{}) error
	On(event models.EventName, fn func(json.RawMessage)) func()
	OnConnect(fn func()) func()
}

type typist struct {
	name string
	at   time.Time
}

// Board holds one client's view of a project: the task list plus the comments
// of the task currently open. Local mutations go through the REST API first
// and are applied from its response before being emitted; inbound events are
// merged without refetching.
type Board struct {
	api       TaskAPI
	transport Transport
	projectID int

	// TypingTTL bounds how long a typing notice stays visible.
	TypingTTL time.Duration
	now       func() time.Time

	mu       sync.Mutex
	tasks    []*models.Task
	open     *models.Task
	typing   map[int]typist
	onChange func(models.EventName)

	// changes applied while a refresh is in flight, replayed onto its result
	refreshing bool
	pending    []func() bool

	refresh singleflight.Group
	unsubs  []func()
}

func NewBoard(api TaskAPI, transport Transport, projectID int) *Board {
	return &Board{
		api:       api,
		transport: transport,
		projectID: projectID,
		TypingTTL: defaultTypingTTL,
		now:       time.Now,
		typing:    make(map[int]typist),
	}
}

func (b *Board) ProjectID() int { return b.projectID }

// OnChange sets a callback invoked after every applied local or remote change.
func (b *Board) OnChange(fn func(models.EventName)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// Attach subscribes to room events and joins the project room, now and after
// every reconnect.
func (b *Board) Attach() {
	b.unsubs = append(b.unsubs,
		b.transport.On(models.EventTaskCreated, b.remote(models.EventTaskCreated, b.applyCreated)),
		b.transport.On(models.EventTaskUpdated, b.remote(models.EventTaskUpdated, b.applyUpdated)),
		b.transport.On(models.EventTaskDeleted, b.remote(models.EventTaskDeleted, b.applyDeleted)),
		b.transport.On(models.EventTaskStatusChanged, b.remote(models.EventTaskStatusChanged, b.applyStatus)),
		b.transport.On(models.EventCommentAdded, b.remote(models.EventCommentAdded, b.applyCommentAdded)),
		b.transport.On(models.EventCommentDeleted, b.remote(models.EventCommentDeleted, b.applyCommentDeleted)),
		b.transport.On(models.EventUserTyping, b.remote(models.EventUserTyping, b.applyTyping)),
		b.transport.OnConnect(b.join),
	)
	b.join()
}

// Detach leaves the room and stops listening.
func (b *Board) Detach() {
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil
	b.emit(models.EventLeaveProject, b.projectID)
}

func (b *Board) join() {
	b.emit(models.EventJoinProject, b.projectID)
}

// Refresh replaces the task list with a fresh read. Concurrent calls share
// one request. Changes applied while the read is in flight are replayed on
// top of the fetched list.
func (b *Board) Refresh(ctx context.Context) error {
	_, err, _ := b.refresh.Do(strconv.Itoa(b.projectID), func() (interface{}, error) {
		b.mu.Lock()
		b.refreshing = true
		b.mu.Unlock()

		tasks, err := b.api.ListTasks(ctx, b.projectID)

		b.mu.Lock()
		defer b.mu.Unlock()
		pending := b.pending
		b.refreshing, b.pending = false, nil
		if err != nil {
			return nil, err
		}
		b.tasks = tasks
		for _, fn := range pending {
			fn()
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("refresh project %d: %w", b.projectID, err)
	}
	b.changed("")
	return nil
}

// Tasks returns a copy of the task list in display order.
func (b *Board) Tasks() []models.Task {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		out = append(out, *t)
	}
	return out
}

func (b *Board) Task(id int) (models.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.indexOf(id); i >= 0 {
		return *b.tasks[i], true
	}
	return models.Task{}, false
}

// OpenTask fetches a task with its comments and makes it the detail view.
func (b *Board) OpenTask(ctx context.Context, id int) (*models.Task, error) {
	task, err := b.api.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.open = task
	b.mu.Unlock()
	return task, nil
}

func (b *Board) CloseTask() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = nil
}

// OpenView returns a copy of the open task and its comments.
func (b *Board) OpenView() (models.Task, []models.Comment, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open == nil {
		return models.Task{}, nil, false
	}
	comments := make([]models.Comment, 0, len(b.open.Comments))
	for _, c := range b.open.Comments {
		comments = append(comments, *c)
	}
	task := *b.open
	task.Comments = nil
	return task, comments, true
}

func (b *Board) CreateTask(ctx context.Context, req *models.CreateTaskRequest) (*models.Task, error) {
	task, err := b.api.CreateTask(ctx, b.projectID, req)
	if err != nil {
		return nil, err
	}
	b.mutate(func() bool { return b.prepend(task) })

	b.emit(models.EventTaskCreated, models.TaskPayload{ProjectID: b.projectID, Task: task})
	b.changed(models.EventTaskCreated)
	return task, nil
}

func (b *Board) UpdateTask(ctx context.Context, id int, req *models.UpdateTaskRequest) (*models.Task, error) {
	task, err := b.api.UpdateTask(ctx, id, req)
	if err != nil {
		return nil, err
	}
	b.mutate(func() bool { return b.replace(task) })

	b.emit(models.EventTaskUpdated, models.TaskPayload{ProjectID: b.projectID, Task: task})
	b.changed(models.EventTaskUpdated)
	return task, nil
}

func (b *Board) DeleteTask(ctx context.Context, id int) error {
	if err := b.api.DeleteTask(ctx, id); err != nil {
		return err
	}
	b.mutate(func() bool { return b.remove(id) })

	b.emit(models.EventTaskDeleted, models.TaskDeletedPayload{ProjectID: b.projectID, TaskID: id})
	b.changed(models.EventTaskDeleted)
	return nil
}

// ChangeStatus moves a task to another column and applies the task the
// server returns.
func (b *Board) ChangeStatus(ctx context.Context, id int, status models.TaskStatus) error {
	task, err := b.api.UpdateTaskStatus(ctx, id, status)
	if err != nil {
		return err
	}
	b.mutate(func() bool { return b.replace(task) })

	b.emit(models.EventTaskStatusChanged, models.TaskStatusPayload{
		ProjectID: b.projectID,
		TaskID:    id,
		NewStatus: status,
	})
	b.changed(models.EventTaskStatusChanged)
	return nil
}

// AddComment comments on the open task.
func (b *Board) AddComment(ctx context.Context, content string) (*models.Comment, error) {
	taskID, err := b.openID()
	if err != nil {
		return nil, err
	}
	comment, err := b.api.AddComment(ctx, taskID, content)
	if err != nil {
		return nil, err
	}
	b.mutate(func() bool { return b.appendComment(taskID, comment) })

	b.emit(models.EventCommentAdded, models.CommentAddedPayload{
		ProjectID: b.projectID,
		TaskID:    taskID,
		Comment:   comment,
	})
	b.changed(models.EventCommentAdded)
	return comment, nil
}

func (b *Board) DeleteComment(ctx context.Context, commentID int) error {
	taskID, err := b.openID()
	if err != nil {
		return err
	}
	if err := b.api.DeleteComment(ctx, commentID); err != nil {
		return err
	}
	b.mutate(func() bool { return b.removeComment(taskID, commentID) })

	b.emit(models.EventCommentDeleted, models.CommentDeletedPayload{
		ProjectID: b.projectID,
		TaskID:    taskID,
		CommentID: commentID,
	})
	b.changed(models.EventCommentDeleted)
	return nil
}

// Typing announces that userName is writing on the open task.
func (b *Board) Typing(userName string) error {
	taskID, err := b.openID()
	if err != nil {
		return err
	}
	return b.transport.Emit(models.EventUserTyping, models.UserTypingPayload{
		ProjectID: b.projectID,
		TaskID:    taskID,
		UserName:  userName,
	})
}

// TypingOn reports who last typed on a task within TypingTTL.
func (b *Board) TypingOn(taskID int) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.typing[taskID]
	if !ok {
		return "", false
	}
	if b.now().Sub(t.at) > b.TypingTTL {
		delete(b.typing, taskID)
		return "", false
	}
	return t.name, true
}

// remote wraps an apply func with decoding, validation and the project
// filter. It reports whether the change was applied.
func (b *Board) remote(event models.EventName, apply func(models.ProjectScoped) bool) func(json.RawMessage) {
	return func(data json.RawMessage) {
		payload := models.NewMutationPayload(event)
		if err := json.Unmarshal(data, payload); err != nil || payload.Validate() != nil {
			logger.Warn("Dropping malformed %s event", event)
			return
		}
		if payload.Project() != b.projectID {
			return
		}

		if b.mutate(func() bool { return apply(payload) }) {
			b.changed(event)
		}
	}
}

func (b *Board) applyCreated(p models.ProjectScoped) bool {
	return b.prepend(p.(*models.TaskPayload).Task)
}

func (b *Board) applyUpdated(p models.ProjectScoped) bool {
	return b.replace(p.(*models.TaskPayload).Task)
}

func (b *Board) applyDeleted(p models.ProjectScoped) bool {
	return b.remove(p.(*models.TaskDeletedPayload).TaskID)
}

func (b *Board) applyStatus(p models.ProjectScoped) bool {
	ev := p.(*models.TaskStatusPayload)
	return b.patchStatus(ev.TaskID, ev.NewStatus)
}

func (b *Board) applyCommentAdded(p models.ProjectScoped) bool {
	ev := p.(*models.CommentAddedPayload)
	return b.appendComment(ev.TaskID, ev.Comment)
}

func (b *Board) applyCommentDeleted(p models.ProjectScoped) bool {
	ev := p.(*models.CommentDeletedPayload)
	return b.removeComment(ev.TaskID, ev.CommentID)
}

func (b *Board) applyTyping(p models.ProjectScoped) bool {
	ev := p.(*models.UserTypingPayload)
	b.typing[ev.TaskID] = typist{name: ev.UserName, at: b.now()}
	return true
}

// mutate applies fn under b.mu, queueing it for replay when a refresh is in
// flight.
func (b *Board) mutate(fn func() bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refreshing {
		b.pending = append(b.pending, fn)
	}
	return fn()
}

// The helpers below expect b.mu to be held.

func (b *Board) indexOf(id int) int {
	for i, t := range b.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (b *Board) prepend(task *models.Task) bool {
	if b.indexOf(task.ID) >= 0 {
		return false
	}
	b.tasks = append([]*models.Task{task}, b.tasks...)
	return true
}

// replace swaps in task by id. Unknown ids are dropped from the list but
// still refresh the open task.
func (b *Board) replace(task *models.Task) bool {
	applied := false
	if b.open != nil && b.open.ID == task.ID {
		comments := b.open.Comments
		updated := *task
		updated.Comments = comments
		b.open = &updated
		applied = true
	}
	i := b.indexOf(task.ID)
	if i < 0 {
		return applied
	}
	b.tasks[i] = task
	return true
}

func (b *Board) remove(id int) bool {
	applied := false
	if b.open != nil && b.open.ID == id {
		b.open = nil
		applied = true
	}
	i := b.indexOf(id)
	if i < 0 {
		return applied
	}
	b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
	return true
}

// patchStatus changes only the status field.
func (b *Board) patchStatus(id int, status models.TaskStatus) bool {
	applied := false
	if b.open != nil && b.open.ID == id {
		open := *b.open
		open.Status = status
		b.open = &open
		applied = true
	}
	i := b.indexOf(id)
	if i < 0 {
		return applied
	}
	patched := *b.tasks[i]
	patched.Status = status
	b.tasks[i] = &patched
	return true
}

func (b *Board) appendComment(taskID int, comment *models.Comment) bool {
	if b.open == nil || b.open.ID != taskID {
		return false
	}
	for _, c := range b.open.Comments {
		if c.ID == comment.ID {
			return false
		}
	}
	open := *b.open
	open.Comments = append(append([]*models.Comment(nil), b.open.Comments...), comment)
	b.open = &open
	return true
}

func (b *Board) removeComment(taskID, commentID int) bool {
	if b.open == nil || b.open.ID != taskID {
		return false
	}
	kept := make([]*models.Comment, 0, len(b.open.Comments))
	for _, c := range b.open.Comments {
		if c.ID != commentID {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(b.open.Comments) {
		return false
	}
	open := *b.open
	open.Comments = kept
	b.open = &open
	return true
}

func (b *Board) openID() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open == nil {
		return 0, ErrNoOpenTask
	}
	return b.open.ID, nil
}

// emit sends best-effort; while disconnected the event is lost for others.
func (b *Board) emit(event models.EventName, data interface{}) {
	if err := b.transport.Emit(event, data); err != nil {
		logger.Warn("Event %s not sent: %v", event, err)
	}
}

func (b *Board) changed(event models.EventName) {
	b.mu.Lock()
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn(event)
	}
}
