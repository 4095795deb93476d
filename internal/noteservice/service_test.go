package noteservice

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/starford/zettelnav/internal/apperr"
	"github.com/starford/zettelnav/internal/catalog"
	"github.com/starford/zettelnav/internal/checksum"
	"github.com/starford/zettelnav/internal/engine"
	"github.com/starford/zettelnav/internal/metrics"
	"github.com/starford/zettelnav/internal/models"
	"github.com/starford/zettelnav/internal/storage"
	"github.com/starford/zettelnav/internal/testutil"
)

const corpusFile = "notes.md"

type hookRecorder struct {
	mu      sync.Mutex
	results []RebuildResult
	errs    []error
}

func (h *hookRecorder) hook(res RebuildResult, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.errs = append(h.errs, err)
		return
	}
	h.results = append(h.results, res)
}

func (h *hookRecorder) counts() (ok, failed int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.results), len(h.errs)
}

func testService(t *testing.T, store storage.Provider) (*Service, *hookRecorder) {
	t.Helper()
	rec := &hookRecorder{}
	opts := []Option{
		WithLogger(testutil.Logger()),
		WithMetrics(metrics.New()),
		WithRebuildHook(rec.hook),
	}
	if store != nil {
		opts = append(opts, WithCorpus(store, corpusFile))
	}
	return NewService(engine.New(), testutil.TestCatalog(t), opts...), rec
}

func TestRebuild_ReportsCounts(t *testing.T) {
	svc, rec := testService(t, nil)
	res, err := svc.Rebuild(context.Background(), testutil.SampleCorpus)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if res.Notes != 2 || res.Links != 1 {
		t.Errorf("result = %+v, want 2 notes 1 link", res)
	}
	if res.Checksum != checksum.Sum([]byte(testutil.SampleCorpus)) {
		t.Errorf("checksum = %q", res.Checksum)
	}
	if ok, failed := rec.counts(); ok != 1 || failed != 0 {
		t.Errorf("hook calls = %d ok %d failed", ok, failed)
	}
}

func TestRebuild_FailureKeepsIndex(t *testing.T) {
	svc, rec := testService(t, nil)
	ctx := context.Background()
	_, _ = svc.Rebuild(ctx, testutil.SampleCorpus)

	_, err := svc.Rebuild(ctx, "# nodash\n")
	if !errors.Is(err, apperr.ErrInvalidHeader) {
		t.Fatalf("err = %v, want InvalidHeader", err)
	}
	if _, failed := rec.counts(); failed != 1 {
		t.Errorf("failed hook calls = %d, want 1", failed)
	}
	if len(svc.ListNotes(ctx)) != 2 {
		t.Error("failed rebuild replaced the index")
	}
	results, _ := svc.Search(ctx, "sample", 10)
	if len(results) != 1 {
		t.Errorf("catalog changed by failed rebuild: %+v", results)
	}
}

func TestJump(t *testing.T) {
	svc, _ := testService(t, nil)
	ctx := context.Background()
	_, _ = svc.Rebuild(ctx, testutil.SampleCorpus)

	got, err := svc.Jump(ctx, models.NewJumpRequest(models.ModeForward, 7, 6))
	if err != nil {
		t.Fatalf("Jump: %v", err)
	}
	if got != models.LineTarget(1) {
		t.Errorf("target = %+v, want line 1", got)
	}
}

func TestGetNote(t *testing.T) {
	svc, _ := testService(t, nil)
	ctx := context.Background()
	_, _ = svc.Rebuild(ctx, testutil.SampleCorpus)

	n, err := svc.GetNote(ctx, "asdf")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if n.Declaration != "# asdf - This is a sample note" {
		t.Errorf("declaration = %q", n.Declaration)
	}
	if !reflect.DeepEqual(n.Backlinks, []string{"ghjk"}) || !reflect.DeepEqual(n.ReferencedBy, []string{"ghjk"}) {
		t.Errorf("backlinks = %v, referenced by = %v", n.Backlinks, n.ReferencedBy)
	}

	_, err = svc.GetNote(ctx, "nope")
	var me *apperr.MissingNoteError
	if !errors.As(err, &me) || me.ID != "nope" {
		t.Errorf("err = %v, want MissingNote", err)
	}
}

func TestBacklinks_ParsesAddress(t *testing.T) {
	svc, _ := testService(t, nil)
	ctx := context.Background()
	_, _ = svc.Rebuild(ctx, testutil.SampleCorpus)

	got, err := svc.Backlinks(ctx, "@asdf#ignored")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"ghjk"}) {
		t.Errorf("backlinks = %v", got)
	}

	got, _ = svc.Backlinks(ctx, "other.md")
	if got == nil || len(got) != 0 {
		t.Errorf("unlinked address = %#v, want empty slice", got)
	}

	if _, err := svc.Backlinks(ctx, ""); !errors.Is(err, apperr.ErrInvalidLink) {
		t.Errorf("err = %v, want InvalidLink", err)
	}
}

func TestGraph(t *testing.T) {
	svc, _ := testService(t, nil)
	ctx := context.Background()
	_, _ = svc.Rebuild(ctx, testutil.SampleCorpus)

	nodes, edges, err := svc.Graph(ctx)
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(nodes) != 2 || len(edges) != 1 || edges[0].Source != "ghjk" || edges[0].Target != "asdf" {
		t.Errorf("graph = %+v %+v", nodes, edges)
	}
}

func TestSuggest(t *testing.T) {
	svc, _ := testService(t, nil)
	_, _ = svc.Rebuild(context.Background(), "# alpha - A\n\n# alpah - typo\n\n# zzzz - far\n")

	got := svc.Suggest("alpha", 5)
	if len(got) != 2 || got[0] != "alpha" {
		t.Errorf("suggestions = %v", got)
	}
	if got := svc.Suggest("alpha", 0); len(got) != 0 {
		t.Errorf("n=0 suggestions = %v", got)
	}
}

func TestReload_SkipsUnchangedContent(t *testing.T) {
	_, store := testutil.CorpusDirWith(t, corpusFile, testutil.SampleCorpus)
	svc, rec := testService(t, store)
	ctx := context.Background()

	_, changed, err := svc.Reload(ctx)
	if err != nil || !changed {
		t.Fatalf("first Reload: changed=%v err=%v", changed, err)
	}
	_, changed, err = svc.Reload(ctx)
	if err != nil || changed {
		t.Errorf("second Reload: changed=%v err=%v", changed, err)
	}
	if ok, _ := rec.counts(); ok != 1 {
		t.Errorf("rebuilds = %d, want 1", ok)
	}
}

func TestReload_MissingCorpus(t *testing.T) {
	_, store := testutil.CorpusDir(t)
	svc, _ := testService(t, store)
	if _, _, err := svc.Reload(context.Background()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	noCorpus, _ := testService(t, nil)
	if _, _, err := noCorpus.Reload(context.Background()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("no corpus err = %v, want ErrNotFound", err)
	}
}

func TestSaveCorpus_IfMatch(t *testing.T) {
	_, store := testutil.CorpusDirWith(t, corpusFile, testutil.SampleCorpus)
	svc, _ := testService(t, store)
	ctx := context.Background()

	_, sum, err := svc.Corpus(ctx)
	if err != nil {
		t.Fatalf("Corpus: %v", err)
	}

	next := "# only - One note\n"
	if _, err := svc.SaveCorpus(ctx, []byte(next), "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("stale If-Match err = %v, want ErrConflict", err)
	}
	res, err := svc.SaveCorpus(ctx, []byte(next), sum)
	if err != nil {
		t.Fatalf("SaveCorpus: %v", err)
	}
	if res.Notes != 1 {
		t.Errorf("notes = %d, want 1", res.Notes)
	}
	data, _ := store.Read(corpusFile)
	if string(data) != next {
		t.Errorf("stored = %q", data)
	}
	// The save already indexed the content.
	if _, changed, _ := svc.Reload(ctx); changed {
		t.Error("reload after save should be a no-op")
	}
}

func TestSaveCorpus_NoCheckCreatesFile(t *testing.T) {
	_, store := testutil.CorpusDir(t)
	svc, _ := testService(t, store)
	if _, err := svc.SaveCorpus(context.Background(), []byte(testutil.SampleCorpus), ""); err != nil {
		t.Fatalf("SaveCorpus: %v", err)
	}
	if _, err := store.Read(corpusFile); err != nil {
		t.Errorf("corpus not written: %v", err)
	}
}

// flakyCatalog fails Replace while fail is set.
type flakyCatalog struct {
	catalog.Catalog
	fail bool
}

func (c *flakyCatalog) Replace(notes []models.Note) (catalog.Counts, error) {
	if c.fail {
		return catalog.Counts{}, errors.New("disk full")
	}
	return c.Catalog.Replace(notes)
}

func TestRebuild_CatalogFailureKeepsPreviousGeneration(t *testing.T) {
	rec := &hookRecorder{}
	cat := &flakyCatalog{Catalog: testutil.TestCatalog(t)}
	svc := NewService(engine.New(), cat,
		WithLogger(testutil.Logger()),
		WithMetrics(metrics.New()),
		WithRebuildHook(rec.hook))
	ctx := context.Background()

	if _, err := svc.Rebuild(ctx, testutil.SampleCorpus); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	cat.fail = true
	if _, err := svc.Rebuild(ctx, "# z - Z\n"); err == nil {
		t.Fatal("expected catalog error")
	}

	if _, err := svc.GetNote(ctx, "z"); !errors.Is(err, apperr.ErrMissingNote) {
		t.Errorf("engine moved ahead of the catalog: GetNote(z) err = %v", err)
	}
	detail, err := svc.GetNote(ctx, "asdf")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if !reflect.DeepEqual(detail.Backlinks, detail.ReferencedBy) {
		t.Errorf("engine backlinks %v and catalog refs %v disagree", detail.Backlinks, detail.ReferencedBy)
	}
	if ok, failed := rec.counts(); ok != 1 || failed != 1 {
		t.Errorf("hook calls = %d ok %d failed, want 1 and 1", ok, failed)
	}

	// The same content is retried once the catalog recovers.
	cat.fail = false
	if _, err := svc.Rebuild(ctx, "# z - Z\n"); err != nil {
		t.Fatalf("Rebuild after recovery: %v", err)
	}
	if _, err := svc.GetNote(ctx, "z"); err != nil {
		t.Errorf("GetNote(z) after recovery: %v", err)
	}
}

func TestReload_FailedContentReportedOnce(t *testing.T) {
	_, store := testutil.CorpusDir(t)
	svc, rec := testService(t, store)
	ctx := context.Background()

	_, err := svc.SaveCorpus(ctx, []byte("# nodash\n"), "")
	if !errors.Is(err, apperr.ErrInvalidHeader) {
		t.Fatalf("SaveCorpus err = %v, want InvalidHeader", err)
	}
	_, changed, err := svc.Reload(ctx)
	if changed || !errors.Is(err, apperr.ErrInvalidHeader) {
		t.Errorf("Reload = changed %v, err %v; want the recorded failure", changed, err)
	}
	if _, failed := rec.counts(); failed != 1 {
		t.Errorf("failed hook calls = %d, want 1", failed)
	}

	if err := store.Write(corpusFile, []byte(testutil.SampleCorpus)); err != nil {
		t.Fatal(err)
	}
	if _, changed, err := svc.Reload(ctx); err != nil || !changed {
		t.Errorf("Reload of fixed content = changed %v, err %v", changed, err)
	}
}
