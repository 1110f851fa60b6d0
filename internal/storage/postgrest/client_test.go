package postgrest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

type recorded struct {
	method string
	path   string
	query  map[string]string
	header http.Header
	body   []byte
}

type fakeServer struct {
	mu       sync.Mutex
	requests []recorded
	respond  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	query := make(map[string]string)
	for k, v := range r.URL.Query() {
		query[k] = v[0]
	}
	f.mu.Lock()
	f.requests = append(f.requests, recorded{
		method: r.Method,
		path:   r.URL.Path,
		query:  query,
		header: r.Header.Clone(),
		body:   body,
	})
	f.mu.Unlock()

	if f.respond != nil {
		f.respond(w, r)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func newTestClient(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*Client, *fakeServer) {
	t.Helper()
	fake := &fakeServer{respond: respond}
	server := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(server.Close)

	client, err := New(Options{URL: server.URL + "/", APIKey: "service-key"})
	require.NoError(t, err)
	return client, fake
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Options{URL: "http://localhost"})
	assert.Error(t, err)

	_, err = New(Options{APIKey: "key"})
	assert.Error(t, err)
}

func TestUpsertSet_Headers(t *testing.T) {
	client, fake := newTestClient(t, nil)

	err := client.UpsertSet(context.Background(), models.Set{Code: "BLB", StartDate: "2024-07-30", Active: true})
	require.NoError(t, err)

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/rest/v1/sets", req.path)
	assert.Equal(t, "code", req.query["on_conflict"])
	assert.Equal(t, "service-key", req.header.Get("apikey"))
	assert.Equal(t, "Bearer service-key", req.header.Get("Authorization"))
	assert.Equal(t, "resolution=merge-duplicates", req.header.Get("Prefer"))

	var rows []models.Set
	require.NoError(t, json.Unmarshal(req.body, &rows))
	assert.Equal(t, []models.Set{{Code: "BLB", StartDate: "2024-07-30", Active: true}}, rows)
}

func TestUpsertCardMeta_Batches(t *testing.T) {
	client, fake := newTestClient(t, nil)

	cards := make([]models.CardMeta, 1200)
	for i := range cards {
		cards[i] = models.CardMeta{SetCode: "BLB", Format: "PremierDraft", Name: "Card " + strconv.Itoa(i)}
	}
	require.NoError(t, client.UpsertCardMeta(context.Background(), cards))

	require.Len(t, fake.requests, 3)
	sizes := make([]int, 0, 3)
	for _, req := range fake.requests {
		assert.Equal(t, "set_code,format,card_name", req.query["on_conflict"])
		var rows []map[string]interface{}
		require.NoError(t, json.Unmarshal(req.body, &rows))
		sizes = append(sizes, len(rows))
		assert.Equal(t, []interface{}{}, rows[0]["win_rate_history"])
		assert.NotEqual(t, "0001-01-01T00:00:00Z", rows[0]["updated_at"])
	}
	assert.Equal(t, []int{500, 500, 200}, sizes)
}

func TestUpsert_Empty(t *testing.T) {
	client, fake := newTestClient(t, nil)

	require.NoError(t, client.UpsertTrophyDecks(context.Background(), nil))
	assert.Empty(t, fake.requests)
}

func TestUpsert_ErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"duplicate key"}`))
	})

	err := client.UpsertArchetypeStats(context.Background(), []models.ArchetypeStat{{SetCode: "BLB", Colors: "WU"}})
	require.Error(t, err)

	var pgErr *Error
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, http.StatusConflict, pgErr.StatusCode)
	assert.Contains(t, pgErr.Body, "duplicate key")
}

func TestGetCardMeta_Paginates(t *testing.T) {
	client, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		n := PageSize
		if offset >= PageSize {
			n = 3
		}
		rows := make([]models.CardMeta, n)
		for i := range rows {
			rows[i] = models.CardMeta{Name: "Card " + strconv.Itoa(offset+i)}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rows)
	})

	cards, err := client.GetCardMeta(context.Background(), "BLB", "PremierDraft")
	require.NoError(t, err)
	assert.Len(t, cards, PageSize+3)
	assert.Equal(t, "Card 1002", cards[len(cards)-1].Name)

	require.Len(t, fake.requests, 2)
	first := fake.requests[0]
	assert.Equal(t, http.MethodGet, first.method)
	assert.Equal(t, "/rest/v1/card_stats", first.path)
	assert.Equal(t, "eq.BLB", first.query["set_code"])
	assert.Equal(t, "eq.PremierDraft", first.query["format"])
	assert.Equal(t, "1000", first.query["limit"])
	assert.Equal(t, "0", first.query["offset"])
	assert.Equal(t, "1000", fake.requests[1].query["offset"])
}

func TestListSets_ActiveFilter(t *testing.T) {
	client, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"code":"BLB","start_date":"2024-07-30","active":true}]`))
	})

	sets, err := client.ListSets(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, []models.Set{{Code: "BLB", StartDate: "2024-07-30", Active: true}}, sets)
	assert.Equal(t, "eq.true", fake.requests[0].query["active"])
	assert.Equal(t, "code.asc", fake.requests[0].query["order"])
}

func TestTrophyIDs(t *testing.T) {
	client, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"aggregate_id":"a"},{"aggregate_id":"b"}]`))
	})

	ids, err := client.TrophyIDs(context.Background(), "BLB", "PremierDraft")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}}, ids)
	assert.Equal(t, "aggregate_id", fake.requests[0].query["select"])
}

func TestReplaceSynergies(t *testing.T) {
	client, fake := newTestClient(t, nil)

	pairs := []models.SynergyPair{{CardA: "Alpha", CardB: "Beta", Lift: 2.5, CoOccurrenceCount: 12}}
	require.NoError(t, client.ReplaceSynergies(context.Background(), "BLB", "PremierDraft", pairs))

	require.Len(t, fake.requests, 2)
	del := fake.requests[0]
	assert.Equal(t, http.MethodDelete, del.method)
	assert.Equal(t, "/rest/v1/synergy_scores", del.path)
	assert.Equal(t, "eq.BLB", del.query["set_code"])
	assert.Equal(t, "eq.PremierDraft", del.query["format"])

	ins := fake.requests[1]
	assert.Equal(t, http.MethodPost, ins.method)
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(ins.body, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "BLB", rows[0]["set_code"])
	assert.Equal(t, "PremierDraft", rows[0]["format"])
	assert.Equal(t, 2.5, rows[0]["lift_score"])
	assert.Equal(t, 2.5, rows[0]["synergy_score"])
}

func TestReplaceSynergies_DeleteFails(t *testing.T) {
	client, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := client.ReplaceSynergies(context.Background(), "BLB", "PremierDraft", []models.SynergyPair{{CardA: "A", CardB: "B"}})
	require.Error(t, err)
	assert.Len(t, fake.requests, 1)
}

func TestGetSynergyScores(t *testing.T) {
	client, fake := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"card_a":"A","card_b":"B","synergy_score":1.8}]`))
	})

	scores, err := client.GetSynergyScores(context.Background(), "BLB", "PremierDraft")
	require.NoError(t, err)
	assert.Equal(t, []models.SynergyScore{{CardA: "A", CardB: "B", Score: 1.8}}, scores)
	assert.Equal(t, "gt.0", fake.requests[0].query["synergy_score"])
}

func TestUpsertSkeletons_NonNilAnalytics(t *testing.T) {
	client, fake := newTestClient(t, nil)

	err := client.UpsertSkeletons(context.Background(), []models.ArchetypeSkeleton{{
		SetCode: "BLB", Format: "PremierDraft", ArchetypeName: "WU", RunID: "run-1",
	}})
	require.NoError(t, err)

	req := fake.requests[0]
	assert.Equal(t, "set_code,format,archetype_name,is_alternative", req.query["on_conflict"])
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(req.body, &rows))
	assert.Equal(t, []interface{}{}, rows[0]["sleeper_cards"])
	assert.Equal(t, []interface{}{}, rows[0]["trending_cards"])
	assert.Equal(t, []interface{}{}, rows[0]["importance_cards"])
	assert.Equal(t, "run-1", rows[0]["run_id"])
}
