package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"backoffice/internal/audit"
	"backoffice/internal/content"
	"backoffice/internal/moderation"
	"backoffice/internal/moderation/store"
	dErrors "backoffice/pkg/domain-errors"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
	ok    bool
}

func (f *fakeNotifier) Notify(ctx context.Context, recipients []string, notificationType string, meta map[string]any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notificationType)
	return f.ok
}

type fakePublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (f *fakePublisher) PublishApproved(ctx context.Context, item *moderation.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, item.ID)
	return nil
}

type ModerationServiceSuite struct {
	suite.Suite
	items      *store.MemoryStore
	contents   *content.MemoryStore
	auditStore *audit.MemoryStore
	notifier   *fakeNotifier
	publisher  *fakePublisher
	service    *Service
}

func TestModerationServiceSuite(t *testing.T) {
	suite.Run(t, new(ModerationServiceSuite))
}

func (s *ModerationServiceSuite) SetupTest() {
	s.items = store.NewMemory()
	s.contents = content.NewMemory()
	s.auditStore = audit.NewMemory()
	s.notifier = &fakeNotifier{ok: true}
	s.publisher = &fakePublisher{}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := audit.NewRecorder(s.auditStore, log)
	s.service = New(s.items, s.contents, s.notifier, s.publisher, recorder, nil, log)
}

func (s *ModerationServiceSuite) seedItem(id, groupID string) {
	err := s.items.CreateItem(context.Background(), &moderation.Item{
		ID:             id,
		ContentGroupID: groupID,
		CreatorID:      "creator-1",
		Name:           "Doge Classic",
		Symbol:         "DOGE",
		Status:         moderation.StatusPending,
		CreatedAt:      time.Now().UTC(),
	})
	s.Require().NoError(err)
}

func (s *ModerationServiceSuite) decide(itemID string, action moderation.Action) (*moderation.DecisionResult, error) {
	return s.service.Decide(context.Background(), moderation.DecideRequest{
		ItemID:     itemID,
		Action:     action,
		Comment:    "reviewed",
		OperatorID: "op-1",
	})
}

func (s *ModerationServiceSuite) TestApprove() {
	s.seedItem("item-1", "g1")
	s.contents.Add(&content.DependentContent{ID: "c1", GroupID: "g1", Visibility: content.VisibilityDraft})

	result, err := s.decide("item-1", moderation.ActionApprove)
	s.Require().NoError(err)

	s.Equal(moderation.StatusApproved, result.Item.Status)
	s.Equal("op-1", result.Item.ReviewedBy)
	s.NotNil(result.Item.ReviewedAt)
	s.Empty(result.DeletedSiblings)
	s.Equal(content.VisibilityVisible, s.contents.Get("c1").Visibility)
	s.Equal([]string{"item-1"}, s.publisher.published)
	s.Equal([]string{"submission_approved"}, s.notifier.calls)

	entries := s.auditStore.Entries()
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionApproveItem, entries[0].ActionType)
	s.Equal("item-1", entries[0].TargetID)
}

func (s *ModerationServiceSuite) TestRejectFansOutAcrossGroup() {
	s.seedItem("item-1", "g1")
	s.seedItem("item-2", "g1")
	s.seedItem("item-3", "g1")
	s.seedItem("other", "g2")
	s.contents.Add(&content.DependentContent{ID: "c1", GroupID: "g1", Visibility: content.VisibilityDraft})
	s.contents.Add(&content.DependentContent{ID: "c2", GroupID: "g1", Visibility: content.VisibilityDraft})
	s.contents.Add(&content.DependentContent{ID: "c-other", GroupID: "g2", Visibility: content.VisibilityDraft})

	result, err := s.decide("item-1", moderation.ActionReject)
	s.Require().NoError(err)

	s.Equal(moderation.StatusRejected, result.Item.Status)
	s.ElementsMatch([]string{"item-2", "item-3"}, result.DeletedSiblings)

	// Siblings are gone; the unrelated group is untouched.
	_, err = s.service.GetItem(context.Background(), "item-2")
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
	_, err = s.service.GetItem(context.Background(), "other")
	s.NoError(err)

	s.Equal(content.VisibilityRemoved, s.contents.Get("c1").Visibility)
	s.Equal(content.VisibilityRemoved, s.contents.Get("c2").Visibility)
	s.Equal(content.VisibilityDraft, s.contents.Get("c-other").Visibility)

	// Nothing published for rejections.
	s.Empty(s.publisher.published)
	s.Equal([]string{"submission_rejected"}, s.notifier.calls)
}

func (s *ModerationServiceSuite) TestSecondDecisionFailsAlreadyDecided() {
	s.seedItem("item-1", "g1")

	_, err := s.decide("item-1", moderation.ActionApprove)
	s.Require().NoError(err)

	_, err = s.decide("item-1", moderation.ActionReject)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeAlreadyDecided))

	// State unchanged by the failed decision.
	item, err := s.service.GetItem(context.Background(), "item-1")
	s.Require().NoError(err)
	s.Equal(moderation.StatusApproved, item.Status)
}

func (s *ModerationServiceSuite) TestConcurrentDecisionsExactlyOneSucceeds() {
	s.seedItem("item-1", "g1")

	const goroutines = 20
	var wg sync.WaitGroup
	results := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		action := moderation.ActionApprove
		if i%2 == 1 {
			action = moderation.ActionReject
		}
		wg.Add(1)
		go func(a moderation.Action) {
			defer wg.Done()
			_, err := s.decide("item-1", a)
			results <- err
		}(action)
	}
	wg.Wait()
	close(results)

	var succeeded, alreadyDecided int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case dErrors.Is(err, dErrors.CodeAlreadyDecided):
			alreadyDecided++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, succeeded)
	s.Equal(goroutines-1, alreadyDecided)
}

func (s *ModerationServiceSuite) TestDecideUnknownItem() {
	_, err := s.decide("missing", moderation.ActionApprove)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *ModerationServiceSuite) TestDecideInvalidAction() {
	s.seedItem("item-1", "g1")
	_, err := s.decide("item-1", moderation.Action("escalate"))
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
}

func (s *ModerationServiceSuite) TestDecideRequiresOperator() {
	s.seedItem("item-1", "g1")
	_, err := s.service.Decide(context.Background(), moderation.DecideRequest{
		ItemID: "item-1",
		Action: moderation.ActionApprove,
	})
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
}

func (s *ModerationServiceSuite) TestAuditFailureDoesNotFailDecision() {
	s.seedItem("item-1", "g1")
	s.auditStore.FailAppend = errors.New("audit store down")

	result, err := s.decide("item-1", moderation.ActionApprove)
	s.Require().NoError(err)
	s.Equal(moderation.StatusApproved, result.Item.Status)
}

func (s *ModerationServiceSuite) TestNotificationAndPublishFailuresAreSwallowed() {
	s.seedItem("item-1", "g1")
	s.notifier.ok = false
	s.publisher.err = errors.New("broker unavailable")

	result, err := s.decide("item-1", moderation.ActionApprove)
	s.Require().NoError(err)
	s.Equal(moderation.StatusApproved, result.Item.Status)
}

func (s *ModerationServiceSuite) TestListPending() {
	s.seedItem("item-1", "g1")
	s.seedItem("item-2", "g2")

	_, err := s.decide("item-1", moderation.ActionApprove)
	s.Require().NoError(err)

	items, total, err := s.service.ListPending(context.Background(), moderation.ListParams{Page: 1, PageSize: 10})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(items, 1)
	s.Equal("item-2", items[0].ID)

	_, _, err = s.service.ListPending(context.Background(), moderation.ListParams{Page: 0, PageSize: 10})
	s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
}
