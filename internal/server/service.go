package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/payment-orchestrator/internal/api"
	"github.com/joseph-ayodele/payment-orchestrator/internal/core"
	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
	"github.com/joseph-ayodele/payment-orchestrator/internal/export"
	"github.com/joseph-ayodele/payment-orchestrator/internal/extraction"
	"github.com/joseph-ayodele/payment-orchestrator/internal/providers"
	"github.com/joseph-ayodele/payment-orchestrator/internal/utils"
)

// Deps are the collaborators of a PaymentService.
type Deps struct {
	NewOrchestrator func() *core.Orchestrator
	Registry        *providers.Registry
	Gateway         *extraction.Gateway
	Payments        api.PaymentAPI
	Export          *export.Service
}

// session is one orchestrator plus the document reviewed in it.
type session struct {
	orch     *core.Orchestrator
	review   *entity.DataForReview
	lastUsed time.Time
}

// PaymentService exposes orchestrator sessions over gRPC. Every request and
// response is a google.protobuf.Struct.
type PaymentService struct {
	deps   Deps
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

func NewPaymentService(deps Deps, logger *slog.Logger) *PaymentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentService{
		deps:     deps,
		logger:   logger,
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// CreateSession starts a new orchestrator: providers are loaded and the
// persisted or first provider is selected.
func (s *PaymentService) CreateSession(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	o := s.deps.NewOrchestrator()
	if err := o.Start(ctx); err != nil {
		s.logger.Warn("session.start.failed", "session_id", o.ID(), "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.sessions[o.ID()] = &session{orch: o, lastUsed: s.now()}
	count := len(s.sessions)
	s.mu.Unlock()
	s.logger.Info("session.created", "session_id", o.ID(), "sessions", count)

	resp := s.sessionMap(o)
	resp["providers"] = s.providerList(o.Providers())
	return utils.ToStruct(resp)
}

// CloseSession forgets a session.
func (s *PaymentService) CloseSession(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := utils.StringField(req, "session_id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return nil, status.Error(codes.NotFound, "session not found")
	}
	s.logger.Info("session.closed", "session_id", id)
	return utils.ToStruct(map[string]any{"session_id": id, "closed": true})
}

// GetSession reports the state of a session.
func (s *PaymentService) GetSession(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.lookup(req)
	if err != nil {
		return nil, err
	}
	return utils.ToStruct(s.sessionMap(sess.orch))
}

// Sweep drops sessions idle for longer than idle and returns how many went.
func (s *PaymentService) Sweep(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.lastUsed.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	if n > 0 {
		s.logger.Info("session.sweep", "removed", n, "remaining", len(s.sessions))
	}
	return n
}

func (s *PaymentService) lookup(req *structpb.Struct) (*session, error) {
	id := utils.StringField(req, "session_id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, status.Error(codes.NotFound, "session not found")
	}
	sess.lastUsed = s.now()
	return sess, nil
}

func (s *PaymentService) sessionMap(o *core.Orchestrator) map[string]any {
	m := map[string]any{
		"session_id": o.ID(),
		"state":      string(o.State()),
	}
	if p := o.SelectedProvider(); p != nil {
		m["selected_provider"] = utils.ProviderToMap(*p, s.installed(*p))
	}
	if id := o.RequestID(); id != "" {
		m["request_id"] = id
	}
	if err := o.LastError(); err != nil {
		m["last_error"] = err.Error()
	}
	return m
}

func (s *PaymentService) providerList(list []entity.PaymentProvider) []any {
	out := make([]any, 0, len(list))
	for _, p := range list {
		out = append(out, utils.ProviderToMap(p, s.installed(p)))
	}
	return out
}

func (s *PaymentService) installed(p entity.PaymentProvider) bool {
	return s.deps.Registry != nil && s.deps.Registry.IsInstalled(p)
}
