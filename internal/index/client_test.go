package index

import (
	"context"
	"errors"
	"testing"

	"github.com/datakita/pdpserve/internal/db"
	"github.com/datakita/pdpserve/internal/domain"
)

// --- Mocks ---

type mockStore struct {
	hashes      map[string]map[string]string
	indexExists bool
	created     *db.IndexDefinition
	knnResult   *db.SearchResult
	knnQuery    *db.KNNQuery
	searchErr   error
	deleted     []string
}

func newMockStore() *mockStore {
	return &mockStore{hashes: make(map[string]map[string]string)}
}

func (m *mockStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	for _, item := range items {
		m.hashes[item.Key] = item.Fields
	}
	return nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	return m.hashes[key], nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	m.deleted = append(m.deleted, keys...)
	for _, k := range keys {
		delete(m.hashes, k)
	}
	return nil
}

func (m *mockStore) Scan(_ context.Context, _ string) ([]string, error) {
	keys := make([]string, 0, len(m.hashes))
	for k := range m.hashes {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *mockStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	m.created = def
	return nil
}

func (m *mockStore) IndexExists(_ context.Context, _ string) (bool, error) {
	return m.indexExists, nil
}

func (m *mockStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.knnQuery = q
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.knnResult, nil
}

func (m *mockStore) SearchCount(_ context.Context, _, _ string) (int, error) {
	return len(m.hashes), nil
}

func testPassage(id string, pasal int) domain.Passage {
	return domain.Passage{
		ID:       id,
		Kind:     domain.KindPasal,
		Bab:      "IV",
		BabTitle: "HAK SUBJEK DATA PRIBADI",
		Pasal:    pasal,
		Topics:   []domain.Topic{domain.TopicRights},
		Text:     "Subjek Data Pribadi berhak mendapatkan informasi.",
	}
}

func testVector(dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = 0.1
	}
	return v
}

// --- Tests ---

func TestEnsureIndexCreatesOnce(t *testing.T) {
	store := newMockStore()
	c := New(store, "pdp:", 4, nil)

	if err := c.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex() error = %v", err)
	}
	if store.created == nil {
		t.Fatal("index was not created")
	}
	if store.created.Name != "pdp:passages:idx" {
		t.Errorf("index name = %q", store.created.Name)
	}

	store.created = nil
	store.indexExists = true
	if err := c.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex() second call error = %v", err)
	}
	if store.created != nil {
		t.Error("index was re-created even though it exists")
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	store := newMockStore()
	c := New(store, "pdp:", 4, nil)

	p := testPassage("pasal_8", 8)
	v := testVector(4)

	for range 2 {
		if err := c.Upsert(context.Background(), []domain.Passage{p}, [][]float32{v}, "v1"); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	if len(store.hashes) != 1 {
		t.Fatalf("stored %d hashes, want 1", len(store.hashes))
	}
	fields := store.hashes["pdp:passages:pasal_8"]
	if fields == nil {
		t.Fatal("passage stored under wrong key")
	}
	if fields["pasal"] != "8" || fields["bab"] != "IV" || fields["topic"] != "rights" {
		t.Errorf("unexpected metadata fields: %v", fields)
	}
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	c := New(newMockStore(), "pdp:", 8, nil)
	err := c.Upsert(context.Background(),
		[]domain.Passage{testPassage("pasal_1", 1)},
		[][]float32{testVector(4)}, "v1")
	if err == nil {
		t.Fatal("Upsert() accepted a mismatched vector dimension")
	}
}

func TestQueryTranslatesFiltersAndRanks(t *testing.T) {
	store := newMockStore()
	store.knnResult = &db.SearchResult{
		Total: 3,
		Entries: []db.SearchEntry{
			{Key: "pdp:passages:pasal_9", Score: 0.8, Fields: map[string]string{"__content": "b", "kind": "pasal", "pasal": "9"}},
			{Key: "pdp:passages:pasal_8", Score: 0.8, Fields: map[string]string{"__content": "a", "kind": "pasal", "pasal": "8"}},
			{Key: "pdp:passages:pasal_10", Score: 0.9, Fields: map[string]string{"__content": "c", "kind": "pasal", "pasal": "10"}},
		},
	}
	c := New(store, "pdp:", 4, nil)

	hits, err := c.Query(context.Background(), testVector(4), 5, domain.Filter{
		Kind: domain.KindPasal,
		Bab:  "IV",
	})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if len(store.knnQuery.Terms) != 2 {
		t.Errorf("filter terms = %d, want 2", len(store.knnQuery.Terms))
	}

	if len(hits) != 3 {
		t.Fatalf("hits = %d, want 3", len(hits))
	}
	// highest score first, score ties broken by id ascending
	wantOrder := []string{"pasal_10", "pasal_8", "pasal_9"}
	for i, want := range wantOrder {
		if hits[i].Passage.ID != want {
			t.Errorf("hits[%d].ID = %q, want %q", i, hits[i].Passage.ID, want)
		}
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("scores increase at %d: %f > %f", i, hits[i].Score, hits[i-1].Score)
		}
	}
}

func TestQueryMapsConnectivityFailure(t *testing.T) {
	store := newMockStore()
	store.searchErr = errors.New("connection refused")
	c := New(store, "pdp:", 4, nil)

	_, err := c.Query(context.Background(), testVector(4), 5, domain.Filter{})
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("Query() error = %v, want ErrIndexUnavailable", err)
	}
}

func TestPurgeExceptRemovesStaleVersions(t *testing.T) {
	store := newMockStore()
	c := New(store, "pdp:", 4, nil)

	old := testPassage("pasal_1", 1)
	cur := testPassage("pasal_2", 2)
	if err := c.Upsert(context.Background(), []domain.Passage{old}, [][]float32{testVector(4)}, "v1"); err != nil {
		t.Fatal(err)
	}
	if err := c.Upsert(context.Background(), []domain.Passage{cur}, [][]float32{testVector(4)}, "v2"); err != nil {
		t.Fatal(err)
	}

	removed, err := c.PurgeExcept(context.Background(), "v2")
	if err != nil {
		t.Fatalf("PurgeExcept() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, ok := store.hashes["pdp:passages:pasal_2"]; !ok {
		t.Error("current version passage was removed")
	}
}
