package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"relnet/internal/domain"
	"relnet/internal/graph"
	"relnet/internal/llm"
	"relnet/internal/matching"
	"relnet/internal/observability"
	"relnet/internal/repository"
)

var ErrMatchingServiceNotConfigured = errors.New("matching service not configured")

// MatchOptions ajusta el corte y el paralelismo del matching.
type MatchOptions struct {
	MinScore        int
	MaxSuggestions  int
	Workers         int
	SemanticTimeout time.Duration
}

// MatchResult acompana a cada candidato con su desglose de puntaje.
type MatchResult struct {
	Candidate domain.SuggestionCandidate
	Score     matching.ConnectionScore
}

// MatchingService puntua pares de personas para una meta y persiste los
// mejores como sugerencias propuestas.
type MatchingService struct {
	goals       repository.GoalRepository
	people      repository.PersonRepository
	edges       repository.EdgeRepository
	encounters  repository.EncounterRepository
	claims      repository.ClaimRepository
	suggestions repository.SuggestionRepository
	embedder    llm.Embedder
	collector   *observability.Collector
	opts        MatchOptions
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

// NewMatchingService acepta embedder nil: la similitud semantica queda neutra.
func NewMatchingService(
	goals repository.GoalRepository,
	people repository.PersonRepository,
	edges repository.EdgeRepository,
	encounters repository.EncounterRepository,
	claims repository.ClaimRepository,
	suggestions repository.SuggestionRepository,
	embedder llm.Embedder,
	collector *observability.Collector,
	opts MatchOptions,
	logger *zap.Logger,
) *MatchingService {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.SemanticTimeout <= 0 {
		opts.SemanticTimeout = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchingService{
		goals:       goals,
		people:      people,
		edges:       edges,
		encounters:  encounters,
		claims:      claims,
		suggestions: suggestions,
		embedder:    embedder,
		collector:   collector,
		opts:        opts,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// Match rankea los pares del workspace para la meta. Los pares que fallan se
// omiten; el llamador recibe el subconjunto exitoso ordenado por puntaje.
func (s *MatchingService) Match(ctx context.Context, workspaceID, goalID string) ([]MatchResult, error) {
	if s == nil || s.goals == nil || s.people == nil || s.edges == nil || s.encounters == nil || s.claims == nil {
		return nil, ErrMatchingServiceNotConfigured
	}
	workspaceID = strings.TrimSpace(workspaceID)
	goalID = strings.TrimSpace(goalID)
	if workspaceID == "" {
		return nil, domain.ErrEmptyWorkspace
	}

	goal, err := s.goals.GetByID(ctx, workspaceID, goalID)
	if err != nil {
		return nil, fmt.Errorf("load goal %s: %w", goalID, err)
	}
	if !goal.IsActive() {
		return nil, fmt.Errorf("%w: %s is %s", domain.ErrGoalNotActive, goal.ID, goal.Status)
	}

	people, err := s.people.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("load people: %w", err)
	}
	edges, err := s.edges.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("load edges: %w", err)
	}
	encounters, err := s.encounters.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("load encounters: %w", err)
	}
	claimList, err := s.claims.ListPersonClaims(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("load claims: %w", err)
	}
	claims := repository.GroupBySubject(claimList)

	pairs := matching.PrefilterPairs(matching.PrefilterInput{
		People:     people,
		Edges:      edges,
		Encounters: encounters,
		Claims:     claims,
	})
	profiles := s.buildProfiles(people, edges, claims)
	s.embedProfiles(ctx, pairs, people, profiles)

	now := s.now()
	scored, err := s.scorePairs(ctx, pairs, profiles, encounters, edges, goal, now)
	if err != nil {
		return nil, err
	}

	results := rankResults(scored, s.opts.MinScore, s.opts.MaxSuggestions)
	candidates := make([]domain.SuggestionCandidate, 0, len(results))
	for i := range results {
		c := &results[i].Candidate
		c.ID = s.newID()
		c.WorkspaceID = workspaceID
		c.GoalID = goal.ID
		c.Status = domain.SuggestionProposed
		c.CreatedAt = now
		candidates = append(candidates, *c)
	}

	if s.suggestions != nil {
		if err := s.suggestions.CreateBatch(ctx, candidates); err != nil {
			return nil, fmt.Errorf("store suggestions: %w", err)
		}
	}
	s.logger.Info("goal matching finished",
		zap.String("workspace_id", workspaceID),
		zap.String("goal_id", goal.ID),
		zap.Int("pairs", len(pairs)),
		zap.Int("scored", len(scored)),
		zap.Int("suggestions", len(results)),
	)
	return results, nil
}

func (s *MatchingService) buildProfiles(people []domain.Person, edges []domain.Edge, claims map[string][]domain.Claim) map[string]*matching.Profile {
	ids := make([]string, 0, len(people))
	for _, p := range people {
		ids = append(ids, p.ID)
	}
	g := graph.Build(ids, edges)

	profiles := make(map[string]*matching.Profile, len(people))
	for _, p := range people {
		prof := &matching.Profile{
			PersonID: p.ID,
			Location: p.Location,
			Claims:   claims[p.ID],
		}
		if i, ok := g.Index(p.ID); ok {
			for _, j := range g.Neighbors(i) {
				prof.Neighbors = append(prof.Neighbors, g.ID(j))
			}
		}
		profiles[p.ID] = prof
	}
	return profiles
}

// embedProfiles pide un embedding por persona, solo para quienes aparecen en
// algun par. Un fallo deja el embedding en nil y la feature queda neutra.
func (s *MatchingService) embedProfiles(ctx context.Context, pairs []matching.Pair, people []domain.Person, profiles map[string]*matching.Profile) {
	if s.embedder == nil || len(pairs) == 0 {
		return
	}
	byID := make(map[string]domain.Person, len(people))
	for _, p := range people {
		byID[p.ID] = p
	}

	var ids []string
	seen := make(map[string]struct{})
	for _, p := range pairs {
		for _, id := range []string{p.A, p.B} {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(s.opts.Workers)
	for _, id := range ids {
		prof := profiles[id]
		if prof == nil {
			continue
		}
		text := profileText(byID[id], prof.Claims)
		if text == "" {
			continue
		}
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, s.opts.SemanticTimeout)
			defer cancel()
			vec, err := s.embedder.Embed(callCtx, text)
			if err != nil {
				s.logger.Warn("embedding failed, using neutral semantic score",
					zap.String("person_id", prof.PersonID),
					zap.Error(err),
				)
				s.collector.SemanticFallback()
				return nil
			}
			prof.Embedding = vec
			return nil
		})
	}
	_ = g.Wait()
}

// profileText arma el texto a embeber: nombre, ubicacion y claims.
func profileText(p domain.Person, claims []domain.Claim) string {
	parts := make([]string, 0, len(claims)+2)
	if name := strings.TrimSpace(p.FullName); name != "" {
		parts = append(parts, name)
	}
	if loc := strings.TrimSpace(p.Location); loc != "" {
		parts = append(parts, "location: "+loc)
	}
	for _, c := range claims {
		v := strings.TrimSpace(c.Value)
		if v == "" {
			continue
		}
		parts = append(parts, c.Key+": "+v)
	}
	return strings.Join(parts, "; ")
}

func (s *MatchingService) scorePairs(
	ctx context.Context,
	pairs []matching.Pair,
	profiles map[string]*matching.Profile,
	encounters []domain.Encounter,
	edges []domain.Edge,
	goal *domain.Goal,
	now time.Time,
) ([]MatchResult, error) {
	slots := make([]*MatchResult, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, pair := range pairs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a, b := profiles[pair.A], profiles[pair.B]
			if a == nil || b == nil {
				s.skipPair(pair, fmt.Errorf("%w: unknown person", matching.ErrPairSkipped))
				return nil
			}
			res, err := scorePair(matching.PairInput{
				A:          *a,
				B:          *b,
				Encounters: encounters,
				Edges:      edges,
				Goal:       goal,
				Now:        now,
			})
			if err != nil {
				s.skipPair(pair, err)
				return nil
			}
			s.collector.PairScored()
			slots[i] = &res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]MatchResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *MatchingService) skipPair(pair matching.Pair, err error) {
	s.logger.Warn("pair skipped",
		zap.String("person_a_id", pair.A),
		zap.String("person_b_id", pair.B),
		zap.Error(err),
	)
	s.collector.PairSkipped()
}

// scorePair convierte un panic del extractor en error del par.
func scorePair(in matching.PairInput) (res MatchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = MatchResult{}
			err = fmt.Errorf("panic scoring pair: %v", r)
		}
	}()

	f, err := matching.Extract(in)
	if err != nil {
		return MatchResult{}, err
	}
	score := matching.Score(f.Vector)
	return MatchResult{
		Candidate: domain.SuggestionCandidate{
			PersonAID:  in.A.PersonID,
			PersonBID:  in.B.PersonID,
			Score:      score.Score,
			Confidence: score.Confidence,
			Why:        matching.Why(f, in.Goal),
		},
		Score: score,
	}, nil
}

// rankResults ordena por puntaje, confianza e ids, y aplica el corte.
func rankResults(results []MatchResult, minScore, limit int) []MatchResult {
	kept := results[:0:0]
	for _, r := range results {
		if r.Candidate.Score >= minScore {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i].Candidate, kept[j].Candidate
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.PersonAID != b.PersonAID {
			return a.PersonAID < b.PersonAID
		}
		return a.PersonBID < b.PersonBID
	})
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}
