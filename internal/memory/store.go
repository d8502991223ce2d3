package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"expert-router/internal/common/config"
	"expert-router/internal/common/errors"
	"expert-router/internal/common/logger"
	"expert-router/internal/common/metrics"
	"expert-router/internal/models"
	"expert-router/internal/routing"
)

const ephemeralKeyPrefix = "ephemeral-"

// Config bounds per-key state.
type Config struct {
	MaxHistory              int
	MaxRecentTopics         int
	MaxPastRecommendations  int
	OngoingProjectThreshold int
	ContextWindow           int
}

func DefaultConfig() Config {
	return Config{
		MaxHistory:              50,
		MaxRecentTopics:         10,
		MaxPastRecommendations:  20,
		OngoingProjectThreshold: 3,
		ContextWindow:           10,
	}
}

// ConfigFrom fills unset values from DefaultConfig.
func ConfigFrom(m config.MemoryConfig) Config {
	c := DefaultConfig()
	if m.MaxHistory > 0 {
		c.MaxHistory = m.MaxHistory
	}
	if m.MaxRecentTopics > 0 {
		c.MaxRecentTopics = m.MaxRecentTopics
	}
	if m.MaxPastRecommendations > 0 {
		c.MaxPastRecommendations = m.MaxPastRecommendations
	}
	if m.OngoingProjectThreshold > 0 {
		c.OngoingProjectThreshold = m.OngoingProjectThreshold
	}
	if m.ContextWindow > 0 {
		c.ContextWindow = m.ContextWindow
	}
	return c
}

// SnapshotStore persists personalizations outside the process. Load returns
// nil, nil when nothing is stored for key.
type SnapshotStore interface {
	Load(ctx context.Context, key string) (*models.AgentPersonalization, error)
	Save(ctx context.Context, p *models.AgentPersonalization) error
	Delete(ctx context.Context, key string) error
}

// ResolveKey prefers userID over sessionID.
func ResolveKey(userID, sessionID string) string {
	if k := strings.TrimSpace(userID); k != "" {
		return k
	}
	return strings.TrimSpace(sessionID)
}

// IsEphemeralKey reports whether key was generated for a call without identity.
func IsEphemeralKey(key string) bool {
	return strings.HasPrefix(key, ephemeralKeyPrefix)
}

type entry struct {
	mu      sync.Mutex
	p       *models.AgentPersonalization
	removed bool
}

// Store holds one personalization per identity key. Operations on the same key
// are serialized; different keys proceed independently.
type Store struct {
	cfg       Config
	snapshots SnapshotStore
	logger    logger.Logger
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// NewStore creates a store. snapshots may be nil for purely in-process memory.
func NewStore(cfg Config, snapshots SnapshotStore, log logger.Logger) *Store {
	return &Store{
		cfg:       cfg,
		snapshots: snapshots,
		logger:    logger.ForComponent(log, "personalization-memory"),
		now:       func() time.Time { return time.Now().UTC() },
		entries:   map[string]*entry{},
	}
}

// TurnReceipt identifies a recorded turn.
type TurnReceipt struct {
	Key  string                  `json:"key"`
	Turn models.ConversationTurn `json:"turn"`
}

// ProfileUpdate carries explicit profile changes. Empty strings and nil slices
// leave the stored value alone.
type ProfileUpdate struct {
	Industry               string
	BusinessModel          string
	Challenges             []string
	CurrentGoals           []string
	ImplementedSuggestions []string
	Adaptations            *models.Adaptations
}

// GetOrCreate returns a copy of the personalization for key, creating an empty
// one on first use.
func (s *Store) GetOrCreate(ctx context.Context, key string) (*models.AgentPersonalization, error) {
	e, release, err := s.open(ctx, key, true)
	if err != nil {
		return nil, err
	}
	defer release()
	return clonePersonalization(e.p), nil
}

// RecordTurn appends a completed interaction and updates the learned patterns.
// A missing ID or timestamp is filled in; a turn without analysis is analyzed
// from its query.
func (s *Store) RecordTurn(ctx context.Context, key string, turn models.ConversationTurn) (TurnReceipt, error) {
	e, release, err := s.open(ctx, key, true)
	if err != nil {
		return TurnReceipt{}, err
	}
	defer release()

	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.now()
	}
	if turn.Analysis.Intent == "" {
		turn.Analysis = routing.Analyze(turn.UserQuery, nil)
	}
	turn.Insights = append([]string(nil), turn.Insights...)
	turn.FollowUpSuggestions = append([]string(nil), turn.FollowUpSuggestions...)

	p := e.p
	p.ConversationHistory = append(p.ConversationHistory, turn)
	if over := len(p.ConversationHistory) - s.cfg.MaxHistory; over > 0 {
		p.ConversationHistory = append([]models.ConversationTurn(nil), p.ConversationHistory[over:]...)
	}

	lp := &p.LearningPatterns
	adjustScore(lp.AgentScores, turn.SelectedAgent, turn.Success)
	for _, fw := range turn.Analysis.Frameworks {
		adjustScore(lp.FrameworkScores, fw, turn.Success)
	}
	if turn.Success {
		lp.SuccessfulQueryTypes = appendUnique(lp.SuccessfulQueryTypes,
			fmt.Sprintf("%s-%s", turn.Analysis.Intent, turn.Analysis.Complexity))
		for _, fw := range turn.Analysis.Frameworks {
			p.BusinessContext.PreferredFrameworks = appendUnique(p.BusinessContext.PreferredFrameworks, fw)
		}
	}
	if !turn.Success || turn.UserFeedback == models.FeedbackNegative {
		lp.CommonMisunderstandings = appendUnique(lp.CommonMisunderstandings, misunderstanding(turn))
	}

	cm := &p.ContextualMemory
	for _, topic := range ExtractTopics(turn.UserQuery) {
		cm.RecentTopics = pushFront(cm.RecentTopics, topic, s.cfg.MaxRecentTopics)
	}
	cm.OngoingProjects = s.promoteProjects(p)
	cm.PastRecommendations = append(cm.PastRecommendations, turn.Insights...)
	if over := len(cm.PastRecommendations) - s.cfg.MaxPastRecommendations; over > 0 {
		cm.PastRecommendations = append([]string(nil), cm.PastRecommendations[over:]...)
	}

	p.UpdatedAt = s.now()
	metrics.MemoryTurnsRecorded.WithLabelValues(metrics.Outcome(turn.Success)).Inc()
	s.logger.Debug("conversation turn recorded", map[string]interface{}{
		"key":     p.Key,
		"turnId":  turn.ID,
		"agent":   turn.SelectedAgent,
		"success": turn.Success,
		"history": len(p.ConversationHistory),
	})
	s.persist(ctx, p)

	return TurnReceipt{Key: p.Key, Turn: cloneTurn(turn)}, nil
}

// RecordFeedback attaches feedback to a stored turn and nudges the turn's
// agent score by one point in the feedback's direction, floored at zero.
func (s *Store) RecordFeedback(ctx context.Context, key, turnID string, feedback models.Feedback) error {
	if !feedback.Valid() {
		return errors.NewInvalidFeedbackError(string(feedback))
	}
	e, release, err := s.open(ctx, key, false)
	if err != nil {
		return err
	}
	if e == nil {
		return errors.NewTurnNotFoundError(key, turnID)
	}
	defer release()

	p := e.p
	idx := -1
	for i := range p.ConversationHistory {
		if p.ConversationHistory[i].ID == turnID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.NewTurnNotFoundError(p.Key, turnID)
	}

	turn := &p.ConversationHistory[idx]
	turn.UserFeedback = feedback
	scores := p.LearningPatterns.AgentScores
	switch feedback {
	case models.FeedbackPositive:
		scores[turn.SelectedAgent]++
	case models.FeedbackNegative:
		scores[turn.SelectedAgent] = floorZero(scores[turn.SelectedAgent] - 1)
		p.LearningPatterns.CommonMisunderstandings = appendUnique(p.LearningPatterns.CommonMisunderstandings, misunderstanding(*turn))
	}

	p.UpdatedAt = s.now()
	s.logger.Info("turn feedback recorded", map[string]interface{}{
		"key":      p.Key,
		"turnId":   turnID,
		"agent":    turn.SelectedAgent,
		"feedback": feedback,
	})
	s.persist(ctx, p)
	return nil
}

// ContextualRecommendations derives advice for query from what is remembered
// for key. It never mutates state.
func (s *Store) ContextualRecommendations(ctx context.Context, key, query string) (*models.ContextualRecommendations, error) {
	recs := &models.ContextualRecommendations{
		SuggestedAgents:     []string{},
		SuggestedFrameworks: []string{},
		RelevantTopics:      []string{},
		RelevantInsights:    []string{},
		Warnings:            []string{},
	}

	e, release, err := s.open(ctx, key, false)
	if err != nil || e == nil {
		return recs, err
	}
	defer release()

	p := e.p
	topics := ExtractTopics(query)
	recs.SuggestedAgents = topScored(p.LearningPatterns.AgentScores, 3)
	recs.SuggestedFrameworks = topScored(p.LearningPatterns.FrameworkScores, 3)

	for _, t := range p.ContextualMemory.RecentTopics {
		if overlapsAny(t, topics) {
			recs.RelevantTopics = append(recs.RelevantTopics, t)
		}
	}
	for _, insight := range p.ContextualMemory.PastRecommendations {
		if mentionsAny(insight, topics) {
			recs.RelevantInsights = appendUnique(recs.RelevantInsights, insight)
		}
	}
	for _, m := range p.LearningPatterns.CommonMisunderstandings {
		if len(recs.Warnings) == 2 {
			break
		}
		if mentionsAny(m, topics) {
			recs.Warnings = append(recs.Warnings, m)
		}
	}
	return recs, nil
}

// ConversationContext summarizes the most recent turns for key.
func (s *Store) ConversationContext(ctx context.Context, key string) (*models.ConversationContext, error) {
	out := &models.ConversationContext{
		DominantIntent:     models.IntentGeneral,
		DominantComplexity: models.ComplexitySimple,
		TopBusinessContext: []string{},
		ResponseStyle:      models.DefaultResponseStyle,
		DetailLevel:        models.DefaultDetailLevel,
	}

	e, release, err := s.open(ctx, key, false)
	if err != nil || e == nil {
		return out, err
	}
	defer release()

	p := e.p
	recent := p.ConversationHistory
	if len(recent) > s.cfg.ContextWindow {
		recent = recent[len(recent)-s.cfg.ContextWindow:]
	}

	intents := newTally()
	complexities := newTally()
	tags := newTally()
	for _, t := range recent {
		intents.add(string(t.Analysis.Intent))
		complexities.add(string(t.Analysis.Complexity))
		for _, tag := range t.Analysis.BusinessContext {
			tags.add(tag)
		}
	}

	out.TurnCount = len(recent)
	if top := intents.top(1); len(top) > 0 {
		out.DominantIntent = models.Intent(top[0])
	}
	if top := complexities.top(1); len(top) > 0 {
		out.DominantComplexity = models.Complexity(top[0])
	}
	out.TopBusinessContext = tags.top(3)
	out.ResponseStyle = p.Adaptations.ResponseStyle
	out.DetailLevel = p.Adaptations.DetailLevel
	return out, nil
}

// UpdateProfile applies explicit business-profile and adaptation changes.
func (s *Store) UpdateProfile(ctx context.Context, key string, u ProfileUpdate) (*models.AgentPersonalization, error) {
	e, release, err := s.open(ctx, key, true)
	if err != nil {
		return nil, err
	}
	defer release()

	p := e.p
	if u.Industry != "" {
		p.BusinessContext.Industry = u.Industry
	}
	if u.BusinessModel != "" {
		p.BusinessContext.BusinessModel = u.BusinessModel
	}
	if u.Challenges != nil {
		p.BusinessContext.Challenges = append([]string{}, u.Challenges...)
	}
	if u.CurrentGoals != nil {
		p.ContextualMemory.CurrentGoals = append([]string{}, u.CurrentGoals...)
	}
	for _, sug := range u.ImplementedSuggestions {
		p.ContextualMemory.ImplementedSuggestions = appendUnique(p.ContextualMemory.ImplementedSuggestions, sug)
	}
	if a := u.Adaptations; a != nil {
		if a.ResponseStyle != "" {
			p.Adaptations.ResponseStyle = a.ResponseStyle
		}
		if a.DetailLevel != "" {
			p.Adaptations.DetailLevel = a.DetailLevel
		}
		p.Adaptations.PrefersVisuals = a.PrefersVisuals
		p.Adaptations.PrefersExamples = a.PrefersExamples
	}

	p.UpdatedAt = s.now()
	s.persist(ctx, p)
	return clonePersonalization(p), nil
}

// Clear removes every trace of key, including its snapshot. A blank key has
// nothing retained under it, so clearing it succeeds without effect.
func (s *Store) Clear(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		s.logger.Warn("empty identity key, nothing to clear", map[string]interface{}{
			"error": errors.NewInvalidIdentityKeyError(),
		})
		return nil
	}

	// The entry stays in the map and locked until the snapshot is gone, so a
	// concurrent call for key waits instead of reloading the old snapshot.
	var e *entry
	for {
		s.mu.Lock()
		cur, ok := s.entries[key]
		if !ok {
			cur = &entry{}
			s.entries[key] = cur
		}
		s.mu.Unlock()

		cur.mu.Lock()
		if !cur.removed {
			e = cur
			break
		}
		cur.mu.Unlock()
	}
	defer e.mu.Unlock()

	if e.p != nil {
		metrics.MemoryIdentities.Dec()
	}
	e.p = nil

	var err error
	if s.snapshots != nil {
		err = s.snapshots.Delete(ctx, key)
	}
	s.discard(key, e)
	if err != nil {
		return errors.NewSnapshotSaveFailedError(key, err)
	}

	s.logger.Info("personalization cleared", map[string]interface{}{"key": key})
	return nil
}

// Len returns the number of identities held in process.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// open locks the entry for key, loading its snapshot on first use. With create
// unset, an unknown key yields a nil entry. Blank keys get a fresh ephemeral
// personalization that is never retained.
func (s *Store) open(ctx context.Context, key string, create bool) (*entry, func(), error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = ephemeralKeyPrefix + uuid.NewString()
		s.logger.Warn("empty identity key, using ephemeral key", map[string]interface{}{
			"key":   key,
			"error": errors.NewInvalidIdentityKeyError(),
		})
		e := &entry{p: models.NewAgentPersonalization(key, s.now())}
		return e, func() {}, nil
	}

	for {
		s.mu.Lock()
		e, ok := s.entries[key]
		if !ok {
			e = &entry{}
			s.entries[key] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		if e.removed {
			e.mu.Unlock()
			continue
		}
		if e.p != nil {
			return e, e.mu.Unlock, nil
		}

		p, err := s.load(ctx, key)
		if err != nil || (p == nil && !create) {
			s.discard(key, e)
			e.mu.Unlock()
			return nil, nil, err
		}
		if p == nil {
			p = models.NewAgentPersonalization(key, s.now())
			s.logger.Debug("personalization created", map[string]interface{}{"key": key})
		}
		e.p = p
		metrics.MemoryIdentities.Inc()
		return e, e.mu.Unlock, nil
	}
}

func (s *Store) discard(key string, e *entry) {
	e.removed = true
	s.mu.Lock()
	if s.entries[key] == e {
		delete(s.entries, key)
	}
	s.mu.Unlock()
}

func (s *Store) load(ctx context.Context, key string) (*models.AgentPersonalization, error) {
	if s.snapshots == nil {
		return nil, nil
	}
	p, err := s.snapshots.Load(ctx, key)
	if err != nil {
		s.logger.Error("failed to load personalization snapshot", map[string]interface{}{
			"key":   key,
			"error": err,
		})
		return nil, errors.NewSnapshotLoadFailedError(key, err)
	}
	if p != nil {
		p.Key = key
		fillDefaults(p)
	}
	return p, nil
}

func (s *Store) persist(ctx context.Context, p *models.AgentPersonalization) {
	if s.snapshots == nil || IsEphemeralKey(p.Key) {
		return
	}
	if err := s.snapshots.Save(ctx, p); err != nil {
		s.logger.Warn("failed to persist personalization snapshot", map[string]interface{}{
			"key":   p.Key,
			"error": err,
		})
	}
}

// promoteProjects returns the ongoing projects after counting topic mentions
// across the last ContextWindow turns.
func (s *Store) promoteProjects(p *models.AgentPersonalization) []string {
	recent := p.ConversationHistory
	if len(recent) > s.cfg.ContextWindow {
		recent = recent[len(recent)-s.cfg.ContextWindow:]
	}
	counts := map[string]int{}
	for _, t := range recent {
		for _, topic := range ExtractTopics(t.UserQuery) {
			counts[topic]++
		}
	}

	projects := p.ContextualMemory.OngoingProjects
	for _, b := range topicTable {
		if counts[b.name] >= s.cfg.OngoingProjectThreshold {
			projects = appendUnique(projects, b.name)
		}
	}
	return projects
}

func adjustScore(scores map[string]float64, name string, success bool) {
	if name == "" {
		return
	}
	if success {
		scores[name]++
		return
	}
	scores[name] = floorZero(scores[name] - 0.5)
}

func floorZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func misunderstanding(t models.ConversationTurn) string {
	return fmt.Sprintf("%s-%s", t.Analysis.Intent, t.SelectedAgent)
}

// topScored returns up to n names with a positive score, highest first, ties
// in lexical order.
func topScored(scores map[string]float64, n int) []string {
	names := make([]string, 0, len(scores))
	for name, v := range scores {
		if v > 0 {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if scores[names[i]] != scores[names[j]] {
			return scores[names[i]] > scores[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

func pushFront(list []string, item string, limit int) []string {
	out := make([]string, 0, len(list)+1)
	out = append(out, item)
	for _, v := range list {
		if v != item {
			out = append(out, v)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func appendUnique(list []string, item string) []string {
	for _, v := range list {
		if v == item {
			return list
		}
	}
	return append(list, item)
}

// tally counts occurrences; ties go to the most recently seen value.
type tally struct {
	counts   map[string]int
	lastSeen map[string]int
	seq      int
}

func newTally() *tally {
	return &tally{counts: map[string]int{}, lastSeen: map[string]int{}}
}

func (t *tally) add(v string) {
	if v == "" {
		return
	}
	t.seq++
	t.counts[v]++
	t.lastSeen[v] = t.seq
}

func (t *tally) top(n int) []string {
	keys := make([]string, 0, len(t.counts))
	for k := range t.counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if t.counts[keys[i]] != t.counts[keys[j]] {
			return t.counts[keys[i]] > t.counts[keys[j]]
		}
		return t.lastSeen[keys[i]] > t.lastSeen[keys[j]]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
