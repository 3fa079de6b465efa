package search

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/kailas-cloud/storefront-search/internal/domain"
	"github.com/kailas-cloud/storefront-search/internal/domain/geo"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/category"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/result"
	"github.com/kailas-cloud/storefront-search/internal/domain/search/sortby"
	"github.com/kailas-cloud/storefront-search/internal/domain/view"
	"github.com/kailas-cloud/storefront-search/internal/usecase/session"
)

type recordingHistory struct {
	states []*view.State
}

func (h *recordingHistory) Record(_ context.Context, s *view.State) {
	h.states = append(h.states, s)
}

type fixture struct {
	backend   *mockBackend
	suggester *mockSuggester
	tracker   *mockTracker
	locator   *mockLocator
	sessions  *session.Tracker
	composer  *Composer
	history   *recordingHistory
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		backend:   &mockBackend{},
		suggester: &mockSuggester{},
		tracker:   newMockTracker(),
		locator:   &mockLocator{err: domain.NewLocationError(domain.LocationDenied, nil)},
		sessions:  session.NewTracker(time.Hour),
		history:   &recordingHistory{},
	}
	f.composer = NewComposer(f.tracker, time.Second)
	f.svc = New(NewGateway(f.backend, f.suggester, 5), f.locator, f.sessions, f.composer, f.history)
	t.Cleanup(f.composer.Wait)
	return f
}

func request(q string) *Request {
	return &Request{SessionID: "s", UserID: "u", Query: q, Sort: sortby.Relevance, Category: category.All}
}

func TestSearch_DirectLookupService(t *testing.T) {
	f := newFixture(t)
	f.backend.lookupResult = result.Result{
		ID: "svc-7", ReferenceID: "SRV-BHO-007", Type: result.TypeService,
		ShopID: "s9", ShopName: "Barber", ShopAddress: "Main st",
	}

	state, err := f.svc.Search(context.Background(), request("SRV-BHO-007"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !state.Direct {
		t.Error("expected a direct hit")
	}
	if len(state.Services) != 1 || state.Services[0].ID != "svc-7" {
		t.Fatalf("expected exactly one service, got %+v", state.Services)
	}
	if len(state.Items) != 0 || len(state.Offices) != 0 {
		t.Errorf("unexpected extra results %+v", state)
	}
	if len(state.Shops) != 1 || state.Shops[0].ID != "s9" {
		t.Errorf("expected the parent shop to be projected, got %+v", state.Shops)
	}
	if len(f.backend.universalQueries) != 0 {
		t.Error("universal search must not run")
	}
}

func TestSearch_DirectHitIgnoresFilters(t *testing.T) {
	f := newFixture(t)
	f.backend.lookupResult = result.Result{ID: "p1", Type: result.TypeProduct, ShopID: "s1", Category: ptr("dairy")}

	req := request("prd-abc-001")
	req.Category = category.Services
	req.ItemType = "bakery"
	state, err := f.svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.Items) != 1 || state.Category != category.All {
		t.Errorf("direct hit must bypass filters, got %+v", state)
	}
}

func TestSearch_UnusableDirectRecordFallsBack(t *testing.T) {
	f := newFixture(t)
	f.backend.lookupResult = result.Result{ID: "x1", Type: "bogus"}
	f.suggester.suggestions = []string{"PRD-ABC-010"}

	state, err := f.svc.Search(context.Background(), request("PRD-ABC-001"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Direct {
		t.Error("an unclassifiable record must not count as a direct hit")
	}
	if len(f.backend.universalQueries) != 1 {
		t.Errorf("expected universal fallback, got %v", f.backend.universalQueries)
	}
	if len(state.Suggestions) != 1 || state.Suggestions[0] != "PRD-ABC-010" {
		t.Errorf("expected suggestions on the empty fallback, got %v", state.Suggestions)
	}
}

func TestSearch_DistanceOrder(t *testing.T) {
	f := newFixture(t)
	f.backend.universalResults = []result.Result{
		{ID: "nowhere", Type: result.TypeItem, ShopID: "s3"},
		{ID: "far", Type: result.TypeItem, ShopID: "s2", Location: &geo.Coordinate{Latitude: 23.2189, Longitude: 75.1}},
		{ID: "near", Type: result.TypeItem, ShopID: "s1", Location: &geo.Coordinate{Latitude: 23.2036, Longitude: 75.1}},
	}

	req := request("milk")
	req.Origin = &geo.Coordinate{Latitude: 23.2, Longitude: 75.1}
	req.Sort = sortby.Distance

	state, err := f.svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := ids(state.Items); !equalIDs(got, []string{"near", "far", "nowhere"}) {
		t.Fatalf("expected [near far nowhere], got %v", got)
	}
	if d, _ := state.Items[0].Distance(); math.Abs(d-0.4) > 0.01 {
		t.Errorf("expected ~0.4 km, got %f", d)
	}
	if d, _ := state.Items[1].Distance(); math.Abs(d-2.1) > 0.01 {
		t.Errorf("expected ~2.1 km, got %f", d)
	}
	if _, ok := state.Items[2].Distance(); ok {
		t.Error("item without location must have unknown distance")
	}
	if f.backend.universalOrigins[0] == nil {
		t.Error("origin must be sent to universal search")
	}
	if len(f.locator.reported) != 1 {
		t.Error("client-reported origin must be recorded")
	}
}

func TestSearch_EmptyResultsSuggestOnce(t *testing.T) {
	f := newFixture(t)
	f.suggester.suggestions = []string{"milk"}

	state, err := f.svc.Search(context.Background(), request("mlik"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.suggester.queries) != 1 || f.suggester.queries[0] != "mlik" {
		t.Fatalf("expected one did-you-mean call with %q, got %v", "mlik", f.suggester.queries)
	}
	if state.TotalCount != 0 || len(state.Suggestions) != 1 {
		t.Errorf("unexpected state %+v", state)
	}
}

func TestSearch_TracksOutOfStockWithoutBlocking(t *testing.T) {
	f := newFixture(t)
	f.tracker.release = make(chan struct{})
	f.backend.universalResults = []result.Result{
		{ID: "prod-0", Name: "Milk", Type: result.TypeItem, ShopID: "s1", InStock: ptr(0)},
	}

	start := time.Now()
	state, err := f.svc.Search(context.Background(), request("milk"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("search waited for the tracking sink")
	}
	if len(state.Items) != 1 || state.Items[0].ID != "prod-0" {
		t.Fatalf("out-of-stock item must still render, got %+v", state.Items)
	}

	close(f.tracker.release)
	f.composer.Wait()

	a := <-f.tracker.calls
	if len(a.Products) != 1 || a.Products[0].ProductID != "prod-0" || a.SearchQuery != "milk" {
		t.Errorf("unexpected alert %+v", a)
	}
}

func TestSearch_SearchErrorIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.backend.universalErr = &domain.SearchError{Kind: domain.SearchServer, StatusCode: 500}

	_, err := f.svc.Search(context.Background(), request("milk"))
	if !errors.Is(err, domain.ErrSearch) {
		t.Fatalf("expected ErrSearch, got %v", err)
	}
	if got := f.sessions.State("s"); got.Phase != view.Error {
		t.Errorf("expected error phase, got %s", got.Phase)
	}
	if len(f.history.states) != 0 {
		t.Error("failed searches must not reach the history hook")
	}
}

func TestSearch_CategoryItemsNarrowsShops(t *testing.T) {
	f := newFixture(t)
	f.backend.universalResults = []result.Result{
		{ID: "milk", Type: result.TypeItem, ShopID: "s1"},
		{ID: "haircut", Type: result.TypeService, ShopID: "s2"},
		{ID: "s1", Type: result.TypeShop, ShopID: "s1"},
		{ID: "s2", Type: result.TypeShop, ShopID: "s2", Category: ptr("service")},
		{ID: "o1", Type: result.TypeOffice, ShopID: "o1"},
	}

	req := request("milk")
	req.Category = category.Items
	state, err := f.svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.Items) != 1 || len(state.Services) != 0 {
		t.Errorf("unexpected lists %+v", state)
	}
	if len(state.Shops) != 1 || state.Shops[0].ID != "s1" {
		t.Errorf("only shops backing visible items may show, got %+v", state.Shops)
	}
	if len(state.Offices) != 0 {
		t.Errorf("offices without visible items must be hidden, got %+v", state.Offices)
	}
	if state.TotalCount != 2 {
		t.Errorf("expected total 2, got %d", state.TotalCount)
	}
}

func TestSearch_ShopBrowseMode(t *testing.T) {
	f := newFixture(t)
	f.backend.universalResults = []result.Result{
		{ID: "milk", Type: result.TypeItem, ShopID: "s1"},
		{ID: "s1", Type: result.TypeShop, ShopID: "s1"},
		{ID: "s2", Type: result.TypeShop, ShopID: "s2"},
	}

	req := request("milk")
	req.Category = category.Shops
	state, err := f.svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.Shops) != 2 {
		t.Errorf("browse mode must show every shop, got %+v", state.Shops)
	}
	if len(state.Items) != 0 {
		t.Error("browse mode hides item results")
	}
}

func TestSearch_ItemTypeFilter(t *testing.T) {
	f := newFixture(t)
	f.backend.universalResults = []result.Result{
		{ID: "milk", Type: result.TypeItem, ShopID: "s1", Category: ptr("Dairy")},
		{ID: "bread", Type: result.TypeItem, ShopID: "s2", Category: ptr("Bakery")},
		{ID: "s1", Type: result.TypeShop, ShopID: "s1"},
		{ID: "s2", Type: result.TypeShop, ShopID: "s2"},
	}

	req := request("milk")
	req.ItemType = "dairy"
	state, err := f.svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ids(state.Items); !equalIDs(got, []string{"milk"}) {
		t.Errorf("expected [milk], got %v", got)
	}
	if len(state.Shops) != 1 || state.Shops[0].ID != "s1" {
		t.Errorf("expected only s1, got %+v", state.Shops)
	}
}

func TestSearch_LocatorFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.backend.universalResults = []result.Result{
		{ID: "a", Type: result.TypeItem, ShopID: "s1", Location: &geo.Coordinate{Latitude: 1, Longitude: 1}},
	}

	req := request("milk")
	req.Sort = sortby.Distance
	state, err := f.svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("location failure must not abort the search: %v", err)
	}
	if _, ok := state.Items[0].Distance(); ok {
		t.Error("distance must be unknown without an origin")
	}
	if f.backend.universalOrigins[0] != nil {
		t.Error("no origin must be sent")
	}
}

func TestSearch_LocatorFixUsed(t *testing.T) {
	f := newFixture(t)
	f.locator.err = nil
	f.locator.coord = geo.Coordinate{Latitude: 23.2, Longitude: 75.1}
	f.backend.universalResults = []result.Result{
		{ID: "a", Type: result.TypeItem, ShopID: "s1", Location: &geo.Coordinate{Latitude: 23.2, Longitude: 75.1}},
	}

	state, err := f.svc.Search(context.Background(), request("milk"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d, ok := state.Items[0].Distance(); !ok || d != 0 {
		t.Errorf("expected 0 km from the located origin, got %v %v", d, ok)
	}
}

func TestSearch_Superseded(t *testing.T) {
	f := newFixture(t)
	f.locator.err = nil
	f.locator.block = make(chan struct{})
	f.backend.universalResults = []result.Result{item("a", "s1")}

	errCh := make(chan error, 1)
	go func() {
		_, err := f.svc.Search(context.Background(), request("first"))
		errCh <- err
	}()

	// Wait until the first query is in flight.
	deadline := time.Now().Add(time.Second)
	for f.sessions.State("s").Phase != view.Loading {
		if time.Now().After(deadline) {
			t.Fatal("first query never started")
		}
		time.Sleep(time.Millisecond)
	}

	req := request("second")
	req.Origin = &geo.Coordinate{Latitude: 23.2, Longitude: 75.1}
	second, err := f.svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("latest query must succeed: %v", err)
	}

	if err := <-errCh; !errors.Is(err, domain.ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded for the stale query, got %v", err)
	}
	if got := f.sessions.State("s"); got.Seq != second.Seq || got.Phase != view.Ready {
		t.Errorf("unexpected session state %+v", got)
	}
}

func TestSearch_Validation(t *testing.T) {
	f := newFixture(t)

	cases := []*Request{
		request("   "),
		{SessionID: "s", Query: "milk", Sort: "cheapest", Category: category.All},
		{SessionID: "s", Query: "milk", Sort: sortby.Price, Category: "coupons"},
		{SessionID: "s", Query: "milk", Sort: sortby.Price, Category: category.All, Origin: &geo.Coordinate{Latitude: 95}},
	}
	for i, req := range cases {
		if _, err := f.svc.Search(context.Background(), req); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("case %d: expected ErrInvalidRequest, got %v", i, err)
		}
	}
}

func TestSearch_HistoryHook(t *testing.T) {
	f := newFixture(t)
	f.backend.universalResults = []result.Result{item("a", "s1")}

	state, err := f.svc.Search(context.Background(), request("milk"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.history.states) != 1 || f.history.states[0] != state {
		t.Errorf("expected the composed view to be recorded once, got %d", len(f.history.states))
	}
}
