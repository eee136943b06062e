package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/Skufu/SymptomDesk/internal/consultlog"
	"github.com/Skufu/SymptomDesk/internal/platform/logger"
	"github.com/Skufu/SymptomDesk/internal/recommend"
	"github.com/Skufu/SymptomDesk/internal/render"
)

// Analyzer is the part of the recommendation engine the conversation needs.
type Analyzer interface {
	Analyze(text string, maxClusters int) recommend.Analysis
}

type Options struct {
	BotName     string
	MaxClusters int
	Recorder    consultlog.Recorder
	Logger      *logger.Logger
}

// Service drives the two-stage conversation: ask for a name, then analyze
// symptoms accumulated over the last few messages.
type Service struct {
	store       Store
	engine      Analyzer
	recorder    consultlog.Recorder
	log         *logger.Logger
	botName     string
	maxClusters int
}

func NewService(store Store, engine Analyzer, opts Options) *Service {
	if opts.Recorder == nil {
		opts.Recorder = consultlog.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.MaxClusters < 1 {
		opts.MaxClusters = recommend.DefaultMaxClusters
	}
	if strings.TrimSpace(opts.BotName) == "" {
		opts.BotName = "Anna Balla"
	}
	return &Service{
		store:       store,
		engine:      engine,
		recorder:    opts.Recorder,
		log:         opts.Logger.With("component", "chat"),
		botName:     opts.BotName,
		maxClusters: opts.MaxClusters,
	}
}

// Open returns the session for id, starting a new one with the welcome
// message if none exists.
func (s *Service) Open(ctx context.Context, id string) (*Session, error) {
	sess, err := s.store.Load(ctx, id)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}
	sess = &Session{ID: id, Stage: StageAwaitingName}
	sess.append(RoleBot, render.Welcome(s.botName))
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Reply handles one user message and returns the updated session.
func (s *Service) Reply(ctx context.Context, id, message string) (*Session, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	sess, err := s.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.append(RoleUser, message)

	switch sess.Stage {
	case StageAwaitingSymptoms:
		sess.append(RoleBot, s.handleSymptoms(ctx, sess, message))
	default:
		sess.append(RoleBot, s.handleName(sess, message))
	}

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) Reset(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func (s *Service) handleName(sess *Session, message string) string {
	name := ""
	if !IsGreeting(message) {
		name = ExtractName(message)
	}
	if name == "" {
		return render.AskName()
	}
	sess.UserName = name
	sess.Stage = StageAwaitingSymptoms
	return render.NameAck(name)
}

func (s *Service) handleSymptoms(ctx context.Context, sess *Session, message string) string {
	if IsGreeting(message) {
		return render.GreetingNudge(sess.UserName)
	}
	sess.addSymptoms(message)
	combined := strings.Join(sess.SymptomHistory, " ")

	a := s.engine.Analyze(combined, s.maxClusters)
	if a.Outcome == recommend.OutcomeRecommended {
		sess.SymptomHistory = nil
	}
	if err := s.recorder.Record(ctx, consultlog.FromAnalysis(sess.ID, a)); err != nil {
		s.log.Warn("consultation not recorded", "session", sess.ID, "error", err)
	}
	s.log.Debug("symptoms analyzed",
		"session", sess.ID,
		"outcome", a.Outcome,
		"relevant", len(a.RelevantTokens),
		"recommendations", len(a.Recommendations),
	)
	return render.Analysis(a, sess.UserName)
}
