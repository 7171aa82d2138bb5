package store_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"time"

	"todosync/internal/service"
	"todosync/internal/store"
	"todosync/internal/testutil"
)

var errBoom = service.NewRemoteFailure(service.KindUnavailable, "test", errors.New("connection refused"))

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// loaded returns a store whose local list mirrors svc after one refresh.
func loaded(t *testing.T, svc service.TaskService) *store.Store {
	t.Helper()
	st := store.New(svc)
	t.Cleanup(func() { _ = st.Close(context.Background()) })
	if err := st.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	st.Wait()
	if err := st.Err(); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	return st
}

func assertTasks(t *testing.T, got []service.Task, want ...service.Task) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected tasks %+v, got %+v", want, got)
	}
}

// Tests for Refresh
func TestRefresh_ReplacesTasksInServerOrder(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("1", "Buy milk", false)
	svc.AddTask("2", "Buy eggs", true)

	st := loaded(t, svc)
	assertTasks(t, st.Tasks(),
		service.Task{ID: "1", Title: "Buy milk"},
		service.Task{ID: "2", Title: "Buy eggs", Done: true},
	)

	svc.AddTask("3", "Bake", false)
	if _, err := svc.Delete(context.Background(), "1"); err != nil {
		t.Fatalf("seed delete: %v", err)
	}

	st.Refresh()
	st.Wait()

	assertTasks(t, st.Tasks(),
		service.Task{ID: "2", Title: "Buy eggs", Done: true},
		service.Task{ID: "3", Title: "Bake"},
	)
	if st.IsLoading() {
		t.Error("expected IsLoading false after refresh")
	}
	if got := svc.Calls("list"); got != 2 {
		t.Errorf("expected 2 list calls, got %d", got)
	}
}

func TestRefresh_LoadingWhileInFlight(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.ListGate = make(chan struct{})
	st := store.New(svc)
	defer st.Close(context.Background())

	st.Refresh()
	if !st.IsLoading() {
		t.Error("expected IsLoading true while list is in flight")
	}
	if st.FormIsLoading() {
		t.Error("refresh must not raise FormIsLoading")
	}

	close(svc.ListGate)
	st.Wait()
	if st.IsLoading() {
		t.Error("expected IsLoading false after refresh")
	}
}

func TestRefresh_FailureKeepsTasksAndClearsFlag(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("1", "Buy milk", false)
	st := loaded(t, svc)

	svc.ListErr = errBoom
	st.Refresh()
	st.Wait()

	assertTasks(t, st.Tasks(), service.Task{ID: "1", Title: "Buy milk"})
	if st.IsLoading() {
		t.Error("expected IsLoading false after failed refresh")
	}
	if !errors.Is(st.Err(), service.ErrRemote) {
		t.Errorf("expected remote failure, got %v", st.Err())
	}
}

func TestRefresh_SuccessClearsError(t *testing.T) {
	svc := testutil.NewFakeService()
	st := store.New(svc)
	defer st.Close(context.Background())

	svc.ListErr = errBoom
	st.Refresh()
	st.Wait()
	if st.Err() == nil {
		t.Fatal("expected error after failed refresh")
	}

	svc.ListErr = nil
	st.Refresh()
	st.Wait()
	if err := st.Err(); err != nil {
		t.Errorf("expected error cleared, got %v", err)
	}
}

func TestRefresh_CollapsesDuplicateIDs(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("1", "First", false)
	svc.AddTask("2", "Second", false)
	svc.AddTask("1", "Shadow", true)

	st := loaded(t, svc)
	assertTasks(t, st.Tasks(),
		service.Task{ID: "1", Title: "First"},
		service.Task{ID: "2", Title: "Second"},
	)
}

// Tests for AddTask
func TestAddTask_AppendsServerTask(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", "Existing", false)
	st := loaded(t, svc)

	if err := st.AddTask("Buy milk"); err != nil {
		t.Fatalf("add: %v", err)
	}
	st.Wait()

	assertTasks(t, st.Tasks(),
		service.Task{ID: "a", Title: "Existing"},
		service.Task{ID: "srv-1", Title: "Buy milk"},
	)
	if st.FormIsLoading() {
		t.Error("expected FormIsLoading false after create")
	}
}

func TestAddTask_FormLoadingWhileInFlight(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.CreateGate = make(chan struct{})
	st := store.New(svc)
	defer st.Close(context.Background())

	st.AddTask("Buy milk")
	if !st.FormIsLoading() {
		t.Error("expected FormIsLoading true while create is in flight")
	}
	if len(st.Tasks()) != 0 {
		t.Error("create must not append before the service answers")
	}

	close(svc.CreateGate)
	st.Wait()
	if st.FormIsLoading() {
		t.Error("expected FormIsLoading false after create")
	}
}

func TestAddTask_BlankTitle(t *testing.T) {
	svc := testutil.NewFakeService()
	st := store.New(svc)
	defer st.Close(context.Background())

	for _, title := range []string{"", "   ", "\t\n"} {
		if err := st.AddTask(title); !errors.Is(err, store.ErrBlankTitle) {
			t.Errorf("AddTask(%q): expected ErrBlankTitle, got %v", title, err)
		}
	}
	st.Wait()

	if got := svc.Calls("create"); got != 0 {
		t.Errorf("expected no create calls, got %d", got)
	}
	if st.FormIsLoading() {
		t.Error("rejected add must not raise FormIsLoading")
	}
}

func TestAddTask_TrimsTitle(t *testing.T) {
	svc := testutil.NewFakeService()
	st := store.New(svc)
	defer st.Close(context.Background())

	st.AddTask("  Buy milk  ")
	st.Wait()

	assertTasks(t, st.Tasks(), service.Task{ID: "srv-1", Title: "Buy milk"})
}

func TestAddTask_FailureAppendsNothing(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.CreateErr = errBoom
	st := store.New(svc)
	defer st.Close(context.Background())

	st.AddTask("Buy milk")
	st.Wait()

	if len(st.Tasks()) != 0 {
		t.Errorf("expected no tasks, got %+v", st.Tasks())
	}
	if st.FormIsLoading() {
		t.Error("expected FormIsLoading false after failed create")
	}
	if !errors.Is(st.Err(), service.ErrUnavailable) {
		t.Errorf("expected unavailable failure, got %v", st.Err())
	}
}

// lateAck creates the task on the server, then holds the response.
type lateAck struct {
	*testutil.FakeService
	ack chan struct{}
}

func (s lateAck) Create(ctx context.Context, draft service.Draft) (service.Task, error) {
	task, err := s.FakeService.Create(ctx, draft)
	<-s.ack
	return task, err
}

func TestAddTask_RefreshSeesTaskBeforeCreateAnswers(t *testing.T) {
	fake := testutil.NewFakeService()
	svc := lateAck{FakeService: fake, ack: make(chan struct{})}
	st := store.New(svc)
	defer st.Close(context.Background())

	st.AddTask("Buy milk")
	eventually(t, "server-side create", func() bool { return len(fake.ServerTasks()) == 1 })

	st.Refresh()
	eventually(t, "refresh commit", func() bool { return len(st.Tasks()) == 1 && !st.IsLoading() })

	close(svc.ack)
	st.Wait()

	assertTasks(t, st.Tasks(), service.Task{ID: "srv-1", Title: "Buy milk"})
}

// Tests for DeleteTask
func TestDeleteTask_RemovesConfirmedTask(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("1", "Buy milk", false)
	svc.AddTask("2", "Buy eggs", false)
	st := loaded(t, svc)

	st.DeleteTask("1")
	st.Wait()

	assertTasks(t, st.Tasks(), service.Task{ID: "2", Title: "Buy eggs"})
	if st.IsLoading() {
		t.Error("expected IsLoading false after delete")
	}
}

func TestDeleteTask_RejectedKeepsTasksAndClearsFlag(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("1", "Buy milk", false)
	st := loaded(t, svc)

	svc.DeleteRejects = true
	st.DeleteTask("1")
	st.Wait()

	assertTasks(t, st.Tasks(), service.Task{ID: "1", Title: "Buy milk"})
	if st.IsLoading() {
		t.Error("expected IsLoading false after rejected delete")
	}
	if !errors.Is(st.Err(), store.ErrDeleteRejected) {
		t.Errorf("expected ErrDeleteRejected, got %v", st.Err())
	}
}

func TestDeleteTask_FailureKeepsTasks(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("1", "Buy milk", false)
	st := loaded(t, svc)

	svc.DeleteErr = errBoom
	st.DeleteTask("1")
	st.Wait()

	assertTasks(t, st.Tasks(), service.Task{ID: "1", Title: "Buy milk"})
	if st.IsLoading() {
		t.Error("expected IsLoading false after failed delete")
	}
	if !service.IsRemote(st.Err()) {
		t.Errorf("expected remote failure, got %v", st.Err())
	}
}

// Tests for UpdateTask
func TestUpdateTask_OptimisticMatchesReconciled(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("1", "X", false)
	st := loaded(t, svc)

	svc.UpdateGate = make(chan struct{})
	if err := st.UpdateTask("1", store.SetDone(true)); err != nil {
		t.Fatalf("update: %v", err)
	}

	optimistic := st.Snapshot()
	if !optimistic.FormIsLoading {
		t.Error("expected FormIsLoading true while update is in flight")
	}
	assertTasks(t, optimistic.Tasks, service.Task{ID: "1", Title: "X", Done: true})

	close(svc.UpdateGate)
	st.Wait()

	final := st.Snapshot()
	assertTasks(t, final.Tasks, optimistic.Tasks...)
	if final.FormIsLoading {
		t.Error("expected FormIsLoading false after update")
	}
}

func TestUpdateTask_KeepsUnsetFields(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("1", "X", true)
	st := loaded(t, svc)

	st.UpdateTask("1", store.SetTitle("Y"))
	st.Wait()

	assertTasks(t, st.Tasks(), service.Task{ID: "1", Title: "Y", Done: true})
	assertTasks(t, svc.ServerTasks(), service.Task{ID: "1", Title: "Y", Done: true})
}

func TestUpdateTask_SetFalseIsNotAbsent(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("1", "X", true)
	st := loaded(t, svc)

	st.UpdateTask("1", store.SetDone(false))
	st.Wait()

	assertTasks(t, st.Tasks(), service.Task{ID: "1", Title: "X"})
}

func TestUpdateTask_ServerCanonicalFormWins(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("1", "x", false)
	svc.Normalize = func(d service.Draft) service.Draft {
		d.Title = strings.ToLower(d.Title)
		return d
	}
	st := loaded(t, svc)

	svc.UpdateGate = make(chan struct{})
	st.UpdateTask("1", store.SetTitle("Buy Milk"))
	assertTasks(t, st.Tasks(), service.Task{ID: "1", Title: "Buy Milk"})

	close(svc.UpdateGate)
	st.Wait()
	assertTasks(t, st.Tasks(), service.Task{ID: "1", Title: "buy milk"})
}

func TestUpdateTask_MissingIDIsNoop(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("1", "X", false)
	st := loaded(t, svc)

	err := st.UpdateTask("missing-id", store.SetTitle("Y"))
	if !errors.Is(err, store.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
	st.Wait()

	if got := svc.Calls("update"); got != 0 {
		t.Errorf("expected no update calls, got %d", got)
	}
	if st.FormIsLoading() {
		t.Error("expected FormIsLoading unchanged")
	}
	assertTasks(t, st.Tasks(), service.Task{ID: "1", Title: "X"})
}

func TestUpdateTask_EmptyUpdateIsNoop(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("1", "X", false)
	st := loaded(t, svc)

	if err := st.UpdateTask("1", store.Update{}); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	st.Wait()
	if got := svc.Calls("update"); got != 0 {
		t.Errorf("expected no update calls, got %d", got)
	}
}

func TestUpdateTask_BlankTitle(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("1", "X", false)
	st := loaded(t, svc)

	if err := st.UpdateTask("1", store.SetTitle("  ")); !errors.Is(err, store.ErrBlankTitle) {
		t.Errorf("expected ErrBlankTitle, got %v", err)
	}
	assertTasks(t, st.Tasks(), service.Task{ID: "1", Title: "X"})
}

func TestUpdateTask_FailureRollsBack(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("1", "X", false)
	st := loaded(t, svc)

	svc.UpdateErr = errBoom
	st.UpdateTask("1", store.SetDone(true).SetTitle("Y"))
	st.Wait()

	assertTasks(t, st.Tasks(), service.Task{ID: "1", Title: "X"})
	if st.FormIsLoading() {
		t.Error("expected FormIsLoading false after failed update")
	}
	if !errors.Is(st.Err(), service.ErrRemote) {
		t.Errorf("expected remote failure, got %v", st.Err())
	}
}

func TestToggleTask(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("1", "X", false)
	st := loaded(t, svc)

	st.ToggleTask("1")
	st.Wait()
	assertTasks(t, st.Tasks(), service.Task{ID: "1", Title: "X", Done: true})

	st.ToggleTask("1")
	st.Wait()
	assertTasks(t, st.Tasks(), service.Task{ID: "1", Title: "X"})

	if err := st.ToggleTask("nope"); !errors.Is(err, store.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

// Tests for racing operations
func TestDeleteBeforeUpdateReconciles_FailedUpdate(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("1", "X", false)
	st := loaded(t, svc)

	svc.UpdateGate = make(chan struct{})
	st.UpdateTask("1", store.SetDone(true))
	st.DeleteTask("1")
	eventually(t, "delete commit", func() bool { return len(st.Tasks()) == 0 })

	// The server no longer has the task, so the update fails.
	close(svc.UpdateGate)
	st.Wait()

	if got := st.Tasks(); len(got) != 0 {
		t.Errorf("deleted task resurrected: %+v", got)
	}
	if st.FormIsLoading() || st.IsLoading() {
		t.Error("expected both loading flags cleared")
	}
}

func TestDeleteBeforeUpdateReconciles_SuccessfulUpdate(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("1", "X", false)
	svc.AddTask("2", "Y", false)
	st := loaded(t, svc)

	svc.UpdateGate = make(chan struct{})
	st.UpdateTask("1", store.SetDone(true))
	st.DeleteTask("1")
	eventually(t, "delete commit", func() bool { return len(st.Tasks()) == 1 })

	// Another client recreates the id so the update succeeds remotely.
	svc.AddTask("1", "X", false)
	close(svc.UpdateGate)
	st.Wait()

	assertTasks(t, st.Tasks(), service.Task{ID: "2", Title: "Y"})
}

func TestOverlappingOperations_FlagsStayRaised(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("1", "X", false)
	st := loaded(t, svc)

	svc.ListGate = make(chan struct{})
	svc.DeleteGate = make(chan struct{})
	svc.DeleteRejects = true

	st.Refresh()
	st.DeleteTask("1")

	svc.DeleteGate <- struct{}{}
	eventually(t, "delete to finish", func() bool { return st.Err() != nil })
	if !st.IsLoading() {
		t.Error("expected IsLoading to stay true while refresh is in flight")
	}

	close(svc.ListGate)
	st.Wait()
	if st.IsLoading() {
		t.Error("expected IsLoading false once everything finished")
	}
}

func TestRandomOperations_NeverDuplicateIDs(t *testing.T) {
	svc := testutil.NewFakeService()
	for i := 0; i < 5; i++ {
		svc.AddTask(fmt.Sprintf("seed-%d", i), fmt.Sprintf("Seed %d", i), false)
	}
	st := loaded(t, svc)

	states, cancel := st.Subscribe()
	defer cancel()

	checked := make(chan error, 1)
	go func() {
		var firstErr error
		for s := range states {
			seen := make(map[string]bool)
			for _, task := range s.Tasks {
				if seen[task.ID] && firstErr == nil {
					firstErr = fmt.Errorf("duplicate id %q in %+v", task.ID, s.Tasks)
				}
				seen[task.ID] = true
			}
		}
		checked <- firstErr
	}()

	rng := rand.New(rand.NewSource(42))
	pick := func() string {
		tasks := st.Tasks()
		if len(tasks) == 0 {
			return "none"
		}
		return tasks[rng.Intn(len(tasks))].ID
	}
	for i := 0; i < 200; i++ {
		switch rng.Intn(5) {
		case 0:
			st.Refresh()
		case 1:
			st.AddTask(fmt.Sprintf("Task %d", i))
		case 2:
			st.DeleteTask(pick())
		case 3:
			st.UpdateTask(pick(), store.SetTitle(fmt.Sprintf("Renamed %d", i)))
		case 4:
			st.ToggleTask(pick())
		}
	}
	st.Wait()
	st.Refresh()
	st.Wait()

	if err := st.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := <-checked; err != nil {
		t.Error(err)
	}
	assertTasks(t, st.Tasks(), svc.ServerTasks()...)
}

// Tests for observation and lifecycle
func TestSubscribe_DeliversLatestState(t *testing.T) {
	svc := testutil.NewFakeService()
	st := store.New(svc)
	defer st.Close(context.Background())

	states, cancel := st.Subscribe()
	defer cancel()

	initial := <-states
	if len(initial.Tasks) != 0 || initial.IsLoading || initial.FormIsLoading {
		t.Errorf("unexpected initial state %+v", initial)
	}

	st.AddTask("Buy milk")

	timeout := time.After(2 * time.Second)
	for {
		select {
		case s := <-states:
			if len(s.Tasks) == 1 && !s.FormIsLoading {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for committed state")
		}
	}
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	st := store.New(testutil.NewFakeService())
	defer st.Close(context.Background())

	states, cancel := st.Subscribe()
	<-states
	cancel()
	cancel()

	if _, ok := <-states; ok {
		t.Error("expected channel closed after cancel")
	}
}

func TestClose_WaitsAndRejects(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.CreateGate = make(chan struct{})
	st := store.New(svc)

	st.AddTask("Buy milk")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := st.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded while create is held, got %v", err)
	}

	if err := st.AddTask("Too late"); !errors.Is(err, store.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := st.Refresh(); !errors.Is(err, store.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	close(svc.CreateGate)
	st.Wait()
	assertTasks(t, st.Tasks(), service.Task{ID: "srv-1", Title: "Buy milk"})

	if err := st.Close(context.Background()); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestClose_RetryAfterTimeoutClosesSubscriptions(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.ListGate = make(chan struct{})
	st := store.New(svc)

	states, _ := st.Subscribe()
	if err := st.Refresh(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := st.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded while refresh is held, got %v", err)
	}

	close(svc.ListGate)
	if err := st.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if st.IsLoading() {
		t.Error("refresh still in flight after Close returned")
	}

	closed := make(chan struct{})
	go func() {
		for range states {
		}
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription still open after a successful Close")
	}

	if err := st.Close(context.Background()); err != nil {
		t.Errorf("third close: %v", err)
	}
}
