package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"backoffice/internal/accounts"
	dErrors "backoffice/pkg/domain-errors"
	"backoffice/pkg/requestcontext"
	"backoffice/pkg/testutil"
)

type fakeService struct {
	lastBan   accounts.BanRequest
	lastUnban accounts.UnbanRequest
	banErr    error
}

func (f *fakeService) Ban(_ context.Context, req accounts.BanRequest) (*accounts.BanRecord, error) {
	f.lastBan = req
	if f.banErr != nil {
		return nil, f.banErr
	}
	endsAt := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	return &accounts.BanRecord{
		ID:        "ban-1",
		UserID:    req.UserID,
		Reason:    req.Reason,
		EndsAt:    &endsAt,
		ImposedBy: req.OperatorID,
	}, nil
}

func (f *fakeService) Unban(_ context.Context, req accounts.UnbanRequest) error {
	f.lastUnban = req
	return nil
}

func (f *fakeService) BanHistory(_ context.Context, userID string) ([]*accounts.BanRecord, error) {
	return []*accounts.BanRecord{{ID: "ban-1", UserID: userID}}, nil
}

type HandlerSuite struct {
	suite.Suite
	service *fakeService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.service = &fakeService{}
	h := New(s.service, slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil)))
	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithOperator(r.Context(), requestcontext.OperatorInfo{ID: "op-1", Name: "Moss"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	h.Register(s.router)
}

func (s *HandlerSuite) TestBan() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/users/u1/ban",
		map[string]any{"reason": "spam", "duration_seconds": 3600})
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.Equal("u1", s.service.lastBan.UserID)
	s.Equal(time.Hour, s.service.lastBan.Duration)
	s.Equal("op-1", s.service.lastBan.OperatorID)

	resp := testutil.UnmarshalResponse[banResponse](s.T(), rr)
	s.Equal("ban-1", resp.ID)
	s.NotNil(resp.EndsAt)
}

func (s *HandlerSuite) TestBanConflict() {
	s.service.banErr = dErrors.New(dErrors.CodeConflict, "user already has an active ban")

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/users/u1/ban", map[string]any{})
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusConflict)
	testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeConflict))
}

func (s *HandlerSuite) TestUnbanWithoutBody() {
	req := testutil.NewRequest(s.T(), http.MethodPost, "/users/u1/unban")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	s.Equal("u1", s.service.lastUnban.UserID)
	s.Empty(s.service.lastUnban.Reason)
}

func (s *HandlerSuite) TestUnbanWithReason() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/users/u1/unban",
		map[string]any{"reason": "appeal accepted"})
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	s.Equal("appeal accepted", s.service.lastUnban.Reason)
}

func (s *HandlerSuite) TestBanHistory() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/users/u1/bans"))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[[]banResponse](s.T(), rr)
	s.Require().Len(*resp, 1)
	s.Equal("u1", (*resp)[0].UserID)
}
