package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/source"
	"github.com/nhle/desk/internal/store"
	desksync "github.com/nhle/desk/internal/sync"
	"github.com/nhle/desk/internal/triage"
)

type statusResponse struct {
	Syncing    bool       `json:"syncing"`
	LastSyncAt *time.Time `json:"last_sync_at"`
	LastError  string     `json:"last_error,omitempty"`
}

type dashboardResponse struct {
	triage.Dashboard
	Status statusResponse `json:"status"`
}

type threadListResponse struct {
	Threads []model.Thread `json:"threads"`
	Total   int            `json:"total"`
}

type threadDetailResponse struct {
	Thread     model.Thread            `json:"thread"`
	Questions  []triage.QuestionStatus `json:"questions"`
	OpenCount  int                     `json:"open_questions"`
	Waiting    string                  `json:"waiting"`
	Suggestion *triage.Suggestion      `json:"suggestion,omitempty"`
}

type moveRequest struct {
	Bucket    string `json:"bucket"`
	ApplyRule bool   `json:"apply_rule"`
}

type priorityRequest struct {
	Priority string `json:"priority"`
}

type followUpRequest struct {
	At *time.Time `json:"at"`
}

type ruleRequest struct {
	SenderEmail string `json:"sender_email"`
	Bucket      string `json:"bucket"`
}

func (s *Server) getDashboard(c *fiber.Ctx) error {
	snap := s.store.Snapshot()
	return c.JSON(dashboardResponse{
		Dashboard: triage.BuildDashboard(snap.Threads),
		Status: statusResponse{
			Syncing:    snap.Syncing,
			LastSyncAt: snap.LastSyncAt,
			LastError:  snap.LastError,
		},
	})
}

// getFocus serves the focus queues; limit=0 returns them unbounded.
func (s *Server) getFocus(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", s.focusLimit)
	if limit < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must not be negative")
	}
	snap := s.store.Snapshot()
	return c.JSON(triage.BuildFocus(snap.Threads, s.store.Now(), limit))
}

func (s *Server) listThreads(c *fiber.Ctx) error {
	var f triage.ThreadFilter

	if raw := c.Query("bucket"); raw != "" {
		b, err := model.ParseBucket(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		f.Bucket = &b
	}

	tab, err := triage.ParseTab(c.Query("tab"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	f.Tab = tab
	f.Query = c.Query("q")

	threads := triage.Filter(s.store.Snapshot().Threads, f, s.store.Now())
	if threads == nil {
		threads = []model.Thread{}
	}
	return c.JSON(threadListResponse{Threads: threads, Total: len(threads)})
}

func (s *Server) getThread(c *fiber.Ctx) error {
	t, err := s.thread(c)
	if err != nil {
		return err
	}
	return c.JSON(s.detail(t))
}

func (s *Server) moveThread(c *fiber.Ctx) error {
	t, err := s.thread(c)
	if err != nil {
		return err
	}
	var req moveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	b, err := model.ParseBucket(req.Bucket)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return s.dispatch(c, t.ID, store.MoveThread{ID: t.ID, Bucket: b, ApplyRule: req.ApplyRule})
}

func (s *Server) setPriority(c *fiber.Ctx) error {
	t, err := s.thread(c)
	if err != nil {
		return err
	}
	var req priorityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	p, err := model.ParsePriority(req.Priority)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return s.dispatch(c, t.ID, store.SetPriority{ID: t.ID, Priority: p})
}

func (s *Server) togglePin(c *fiber.Ctx) error {
	t, err := s.thread(c)
	if err != nil {
		return err
	}
	return s.dispatch(c, t.ID, store.TogglePin{ID: t.ID})
}

func (s *Server) archive(c *fiber.Ctx) error {
	t, err := s.thread(c)
	if err != nil {
		return err
	}
	return s.dispatch(c, t.ID, store.Archive{ID: t.ID})
}

func (s *Server) setFollowUp(c *fiber.Ctx) error {
	t, err := s.thread(c)
	if err != nil {
		return err
	}
	var req followUpRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	return s.dispatch(c, t.ID, store.SetFollowUp{ID: t.ID, At: req.At})
}

func (s *Server) toggleQuestion(c *fiber.Ctx) error {
	t, err := s.thread(c)
	if err != nil {
		return err
	}
	msgID := c.Params("messageId")
	found := false
	for _, m := range t.Messages {
		if m.ID == msgID {
			found = true
			break
		}
	}
	if !found {
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("message %q not in thread", msgID))
	}
	return s.dispatch(c, t.ID, store.ToggleQuestionAnswered{ThreadID: t.ID, MessageID: msgID})
}

func (s *Server) listRules(c *fiber.Ctx) error {
	rules := s.store.Snapshot().Rules.Rules()
	if rules == nil {
		rules = []model.RoutingRule{}
	}
	return c.JSON(fiber.Map{"rules": rules})
}

func (s *Server) addRule(c *fiber.Ctx) error {
	var req ruleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if triage.NormalizeSender(req.SenderEmail) == "" || !strings.Contains(req.SenderEmail, "@") {
		return fiber.NewError(fiber.StatusBadRequest, "sender_email is required")
	}
	b, err := model.ParseBucket(req.Bucket)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	snap := s.store.Dispatch(store.AddRoutingRule{SenderEmail: req.SenderEmail, Bucket: b})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"rules": snap.Rules.Rules()})
}

func (s *Server) syncNow(c *fiber.Ctx) error {
	if s.syncer == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, desksync.ErrNoProvider.Error())
	}

	res, err := s.syncer.SyncOnce(c.UserContext())
	switch {
	case err == nil:
		return c.JSON(fiber.Map{
			"provider":    res.Provider,
			"threads":     res.Threads,
			"new_threads": res.NewThreads,
		})
	case errors.Is(err, desksync.ErrNoProvider):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, desksync.ErrSyncInProgress):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case source.IsAuthError(err):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
}

// thread resolves the :id route parameter or fails with 404.
func (s *Server) thread(c *fiber.Ctx) (model.Thread, error) {
	t, err := s.store.Thread(c.Params("id"))
	if errors.Is(err, store.ErrThreadNotFound) {
		return model.Thread{}, fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return t, err
}

// dispatch applies a and responds with the thread's new detail view.
func (s *Server) dispatch(c *fiber.Ctx, id string, a store.Action) error {
	snap := s.store.Dispatch(a)
	i := snap.Find(id)
	if i < 0 {
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("thread %q not found", id))
	}
	return c.JSON(s.detail(snap.Threads[i]))
}

func (s *Server) detail(t model.Thread) threadDetailResponse {
	resp := threadDetailResponse{
		Thread:  t,
		Waiting: triage.WaitingText(t),
	}
	if s.extractor != nil {
		resp.Questions = s.extractor.Questions(t)
		for _, q := range resp.Questions {
			if !q.Answered {
				resp.OpenCount++
			}
		}
	}
	if resp.Questions == nil {
		resp.Questions = []triage.QuestionStatus{}
	}
	if t.Bucket == model.BucketUnassigned {
		if sg, ok := s.advisor.Suggest(t); ok {
			resp.Suggestion = &sg
		}
	}
	return resp
}
