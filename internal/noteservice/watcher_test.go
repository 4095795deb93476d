package noteservice

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/zettelnav/internal/testutil"
	"go.uber.org/goleak"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

// The catalog connection opener lives until t.Cleanup closes the database.
var ignoreSQL = goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener")

// startWatcher runs svc.Watch in the background and returns a func that
// stops it and waits for it to return.
func startWatcher(t *testing.T, svc *Service) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Watch(ctx, 20*time.Millisecond) }()
	// Give fsnotify time to register the directory.
	time.Sleep(50 * time.Millisecond)
	return func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Watch: %v", err)
		}
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreSQL)

	_, store := testutil.CorpusDir(t)
	svc, rec := testService(t, store)
	stop := startWatcher(t, svc)
	defer stop()

	if err := store.Write(corpusFile, []byte(testutil.SampleCorpus)); err != nil {
		t.Fatal(err)
	}
	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool {
		return len(svc.ListNotes(context.Background())) == 2
	}, "corpus was not indexed after write")

	if ok, _ := rec.counts(); ok < 1 {
		t.Errorf("rebuild hook not called")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreSQL)

	dir, store := testutil.CorpusDir(t)
	svc, rec := testService(t, store)
	stop := startWatcher(t, svc)
	defer stop()

	if err := os.WriteFile(filepath.Join(dir, "other.md"), []byte("# x - X\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if ok, failed := rec.counts(); ok+failed != 0 {
		t.Errorf("unrelated file triggered %d rebuilds", ok+failed)
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreSQL)

	_, store := testutil.CorpusDir(t)
	svc, rec := testService(t, store)
	stop := startWatcher(t, svc)
	defer stop()

	for i := range 5 {
		content := testutil.SampleCorpus + "\n" + string(rune('a'+i))
		if err := store.Write(corpusFile, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool {
		ok, _ := rec.counts()
		return ok >= 1
	}, "burst never reloaded")
	time.Sleep(100 * time.Millisecond)
	if ok, _ := rec.counts(); ok > 2 {
		t.Errorf("rebuilds = %d, want the burst coalesced", ok)
	}
}

func TestWatcher_NoCorpus(t *testing.T) {
	svc, _ := testService(t, nil)
	if err := svc.Watch(context.Background(), 0); err == nil {
		t.Error("expected error without a corpus")
	}
}

func TestWatcher_SavedFailureNotRepublished(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreSQL)

	_, store := testutil.CorpusDir(t)
	svc, rec := testService(t, store)
	stop := startWatcher(t, svc)
	defer stop()

	if _, err := svc.SaveCorpus(context.Background(), []byte("# nodash\n"), ""); err == nil {
		t.Fatal("expected index error")
	}
	// Let the write event pass through the debounce.
	time.Sleep(300 * time.Millisecond)
	if _, failed := rec.counts(); failed != 1 {
		t.Errorf("failed rebuilds = %d, want 1", failed)
	}
}
