package catalog

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"clarity-podcast/internal/models"
)

const sampleCatalog = `[
  {
    "id": 1,
    "title": "Intro",
    "description": "A short one.",
    "author": "A",
    "url": "/post/1",
    "audio_url": "/a1.mp3",
    "pubDate": "2020-01-01",
    "duration": "10:00",
    "file_size": 1000,
    "categories": ["design", "community"]
  },
  {
    "id": 2,
    "title": "Second",
    "description": "Another one.",
    "author": "B",
    "url": "/post/2",
    "audio_url": "/a2.mp3",
    "pubDate": "2020-02-01",
    "duration": "15:00",
    "file_size": 2000,
    "content": "Long form notes."
  }
]`

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}

func writeCatalog(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "posts.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestLoadPreservesFileOrder(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), sampleCatalog)
	store := NewStore(path, discardLogger())

	episodes := store.Load()
	if len(episodes) != 2 {
		t.Fatalf("expected 2 episodes, got %d", len(episodes))
	}
	if episodes[0].ID != 1 || episodes[1].ID != 2 {
		t.Fatalf("unexpected order: %+v", episodes)
	}
	if episodes[0].AudioURL != "/a1.mp3" || episodes[0].PubDate != "2020-01-01" || episodes[0].FileSize != 1000 {
		t.Fatalf("unexpected field mapping: %+v", episodes[0])
	}
	if len(episodes[0].Categories) != 2 || episodes[0].Categories[1] != "community" {
		t.Fatalf("unexpected categories: %v", episodes[0].Categories)
	}
	if episodes[1].Categories != nil {
		t.Fatalf("expected missing categories to stay empty, got %v", episodes[1].Categories)
	}
	if episodes[1].Content != "Long form notes." {
		t.Fatalf("unexpected content %q", episodes[1].Content)
	}
}

func TestLoadReadsFreshOnEveryCall(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir, sampleCatalog)
	store := NewStore(path, discardLogger())

	if len(store.Load()) != 2 {
		t.Fatalf("expected initial catalog")
	}

	writeCatalog(t, dir, `[{"id": 7, "title": "Only"}]`)
	episodes := store.Load()
	if len(episodes) != 1 || episodes[0].ID != 7 {
		t.Fatalf("expected edited catalog on next load, got %+v", episodes)
	}
}

func TestLoadMissingFileYieldsEmpty(t *testing.T) {
	var buf strings.Builder
	store := NewStore(filepath.Join(t.TempDir(), "missing.json"), log.New(&buf))

	episodes := store.Load()
	if episodes == nil || len(episodes) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", episodes)
	}
	if !strings.Contains(buf.String(), "error loading episodes") {
		t.Fatalf("expected load failure to be logged, got %q", buf.String())
	}

	if _, err := store.LoadStrict(); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error from LoadStrict, got %v", err)
	}
}

func TestLoadCorruptFileYieldsEmpty(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), `[{"id": 1, "title": `)
	store := NewStore(path, discardLogger())

	if episodes := store.Load(); len(episodes) != 0 {
		t.Fatalf("expected empty catalog for corrupt json, got %+v", episodes)
	}
	if _, err := store.LoadStrict(); err == nil {
		t.Fatalf("expected parse error from LoadStrict")
	}
}

func TestLoadNullCatalog(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), "null")
	episodes, err := NewStore(path, discardLogger()).LoadStrict()
	if err != nil {
		t.Fatalf("LoadStrict: %v", err)
	}
	if episodes == nil || len(episodes) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", episodes)
	}
}

func TestFind(t *testing.T) {
	episodes := []models.Episode{{ID: 3, Title: "first"}, {ID: 5}, {ID: 3, Title: "dup"}}

	ep, ok := Find(episodes, 3)
	if !ok || ep.Title != "first" {
		t.Fatalf("expected first match, got %+v %t", ep, ok)
	}
	if _, ok := Find(episodes, 4); ok {
		t.Fatalf("expected miss for unknown id")
	}
	if _, ok := Find(nil, 1); ok {
		t.Fatalf("expected miss on empty catalog")
	}

	if id, ok := FirstDuplicateID(episodes); !ok || id != 3 {
		t.Fatalf("expected duplicate 3, got %d %t", id, ok)
	}
	if _, ok := FirstDuplicateID(episodes[:2]); ok {
		t.Fatalf("expected no duplicate")
	}
}

func TestLoadSkipsUndecodableRecords(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), `[
  {"id": 1, "title": "Intro", "duration": "10:00"},
  {"id": 2, "title": "Numeric", "duration": 900, "file_size": "12345"},
  {"id": "three", "title": "Bad id"},
  null,
  {"id": 4, "title": "Last"}
]`)
	store := NewStore(path, discardLogger())

	episodes := store.Load()
	if len(episodes) != 3 {
		t.Fatalf("expected 3 episodes, got %+v", episodes)
	}
	if episodes[1].Duration != "900" || episodes[1].FileSize != 12345 {
		t.Fatalf("expected loose values to be coerced, got %+v", episodes[1])
	}
	if episodes[2].ID != 4 {
		t.Fatalf("expected records after the bad one to load, got %+v", episodes[2])
	}

	_, bad, err := store.Check()
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(bad) != 2 || bad[0].Index != 2 || bad[1].Index != 3 {
		t.Fatalf("unexpected record errors %+v", bad)
	}
}

func TestLoadRejectsNonArray(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), `{"id": 1}`)
	if _, err := NewStore(path, discardLogger()).LoadStrict(); err == nil {
		t.Fatalf("expected error for a catalog that is not an array")
	}
}

func TestUpdateWritesChangesAndKeepsMarkup(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir, sampleCatalog)
	store := NewStore(path, discardLogger())

	changed, err := store.Update(func(episodes []models.Episode) error {
		episodes[0].Duration = "12:34"
		episodes[0].Description = "Q&A <live>"
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected 1 changed record, got %d", changed)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved catalog: %v", err)
	}
	if !strings.Contains(string(raw), "Q&A <live>") {
		t.Fatalf("expected markup to be written unescaped, got %s", raw)
	}

	reloaded := store.Load()
	if len(reloaded) != 2 || reloaded[0].Duration != "12:34" || reloaded[1].Content != "Long form notes." {
		t.Fatalf("unexpected reloaded catalog: %+v", reloaded)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".catalog-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestUpdateKeepsFieldsItDoesNotTouch(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), `[
  {"title": "ok", "id": 1, "image": "/img/1.jpg", "categories": [], "file_size": 10},
  {"id": "broken"},
  {"id": 2, "title": "other", "duration": 900, "extra": {"nested": true}}
]`)
	store := NewStore(path, discardLogger())

	if _, err := store.Update(func(episodes []models.Episode) error {
		episodes[0].FileSize = 2048
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read catalog: %v", err)
	}
	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err != nil {
		t.Fatalf("unmarshal saved catalog: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected all records kept, got %s", raw)
	}

	first := records[0]
	if first["image"] != "/img/1.jpg" || first["file_size"] != float64(2048) {
		t.Fatalf("unexpected first record %v", first)
	}
	if cats, ok := first["categories"].([]any); !ok || len(cats) != 0 {
		t.Fatalf("expected empty categories to survive, got %v", first["categories"])
	}
	for _, key := range []string{"description", "author", "url", "audio_url", "pubDate", "duration"} {
		if _, ok := first[key]; ok {
			t.Fatalf("did not expect %q to be added: %v", key, first)
		}
	}
	if strings.Index(string(raw), `"title"`) > strings.Index(string(raw), `"id"`) {
		t.Fatalf("expected key order to be kept, got %s", raw)
	}

	if records[1]["id"] != "broken" {
		t.Fatalf("expected undecodable record kept verbatim, got %v", records[1])
	}
	if records[2]["duration"] != float64(900) || records[2]["extra"] == nil {
		t.Fatalf("expected untouched record kept verbatim, got %v", records[2])
	}
}

func TestUpdateWithoutChangesDoesNotWrite(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), sampleCatalog)
	store := NewStore(path, discardLogger())

	changed, err := store.Update(func(episodes []models.Episode) error { return nil })
	if err != nil || changed != 0 {
		t.Fatalf("expected no change, got %d %v", changed, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read catalog: %v", err)
	}
	if string(raw) != sampleCatalog {
		t.Fatalf("expected catalog untouched, got %s", raw)
	}

	boom := errors.New("boom")
	if _, err := store.Update(func(episodes []models.Episode) error {
		episodes[0].Title = "changed"
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if store.Load()[0].Title != "Intro" {
		t.Fatalf("expected failed update to leave the catalog alone")
	}
}

func TestUpdateSerializesWriters(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), sampleCatalog)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store := NewStore(path, discardLogger())
			_, err := store.Update(func(episodes []models.Episode) error {
				episodes[0].FileSize++
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	if got := NewStore(path, discardLogger()).Load()[0].FileSize; got != 1000+writers {
		t.Fatalf("expected %d after concurrent updates, got %d", 1000+writers, got)
	}
}
