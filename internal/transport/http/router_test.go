package httptransport

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	accountshandler "backoffice/internal/accounts/handler"
	accountsservice "backoffice/internal/accounts/service"
	accountsstore "backoffice/internal/accounts/store"
	"backoffice/internal/audit"
	"backoffice/internal/content"
	"backoffice/internal/moderation"
	moderationhandler "backoffice/internal/moderation/handler"
	moderationservice "backoffice/internal/moderation/service"
	moderationstore "backoffice/internal/moderation/store"
	weightshandler "backoffice/internal/weights/handler"
	weightsservice "backoffice/internal/weights/service"
	weightsstore "backoffice/internal/weights/store"
	"backoffice/pkg/testutil"
)

type noopSyncer struct{}

func (noopSyncer) NotifySet(context.Context, []string) error    { return nil }
func (noopSyncer) NotifyRemove(context.Context, []string) error { return nil }

// RouterSuite drives the assembled HTTP surface end to end over the in-memory
// stores: middleware chain, operator extraction, and module routing.
type RouterSuite struct {
	suite.Suite
	router http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	ctx := context.Background()

	contents := content.NewMemory()
	contents.Add(&content.DependentContent{ID: "p1", GroupID: "g1", Visibility: content.VisibilityDraft})

	items := moderationstore.NewMemory()
	require.NoError(s.T(), items.CreateItem(ctx, &moderation.Item{
		ID:             "item-1",
		ContentGroupID: "g1",
		CreatorID:      "creator-1",
		Name:           "Launch banner",
		Symbol:         "LB",
		Status:         moderation.StatusPending,
	}))

	auditor := audit.NewRecorder(audit.NewMemory(), log)
	moderationSvc := moderationservice.New(items, contents, nil, nil, auditor, nil, log)
	weightsSvc := weightsservice.New(weightsstore.NewMemory(), contents, noopSyncer{}, auditor, nil, log)
	accountsSvc := accountsservice.New(accountsstore.NewMemory(), nil, auditor, log)

	s.router = NewRouter(log,
		moderationhandler.New(moderationSvc, log),
		weightshandler.New(weightsSvc, log),
		accountshandler.New(accountsSvc, log),
	)
}

func (s *RouterSuite) TestHealthz() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
}

func (s *RouterSuite) TestMetricsExposed() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/metrics"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
}

func (s *RouterSuite) TestDecisionThroughFullStack() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/api/v1/moderation/items/item-1/decision",
		map[string]any{"action": "approve", "comment": "ok"})
	rr := testutil.DoRequest(s.router, testutil.WithOperator(req, "op-1", "Moss"))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
	item := (*resp)["item"].(map[string]any)
	s.Equal("approved", item["status"])
	s.Equal("op-1", item["reviewed_by"])
}

func (s *RouterSuite) TestMissingOperatorHeaderRejected() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/api/v1/moderation/items/item-1/decision",
		map[string]any{"action": "approve"})
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	testutil.AssertErrorCode(s.T(), rr, "invalid_input")
}

func (s *RouterSuite) TestWeightAssignmentThroughFullStack() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/weights",
		map[string]any{"post_urls": "https://platform.example/posts/p1", "weight": 1.5})
	rr := testutil.DoRequest(s.router, testutil.WithOperator(req, "op-1", "Moss"))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	list := testutil.DoRequest(s.router,
		testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/weights"))
	testutil.AssertStatus(s.T(), list, http.StatusOK)
	resp := testutil.UnmarshalResponse[map[string]any](s.T(), list)
	s.Equal(float64(1), (*resp)["total"])
}

func (s *RouterSuite) TestUnknownRouteIs404() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/nope"))
	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
}
