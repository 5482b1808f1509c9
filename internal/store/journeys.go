package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/seamlane/journeyd/internal/domain"
)

// JourneyStore persists journey graphs: the journey row plus its states and
// transitions, written atomically.
type JourneyStore struct {
	db *DB
}

// NewJourneyStore creates a journey store using the given database.
func NewJourneyStore(db *DB) *JourneyStore {
	return &JourneyStore{db: db}
}

// Create validates and inserts a journey with its full graph in one
// transaction. State and transition ids are generated when empty; transitions
// must reference state ids, so callers building graphs from names assign ids
// first.
func (s *JourneyStore) Create(ctx context.Context, journey *domain.Journey, states []domain.JourneyState, transitions []domain.JourneyTransition) error {
	if journey.AgentID == "" {
		return &domain.ValidationError{Field: "agentId", Reason: "agent id is required"}
	}
	if journey.Title == "" {
		return &domain.ValidationError{Field: "title", Reason: "journey title is required"}
	}
	if journey.ID == "" {
		journey.ID = uuid.New().String()
	}
	if journey.CreatedAt.IsZero() {
		journey.CreatedAt = time.Now()
	}
	for i := range journey.Conditions {
		if err := journey.Conditions[i].Validate(); err != nil {
			return err
		}
	}
	for i := range states {
		if states[i].ID == "" {
			states[i].ID = uuid.New().String()
		}
		states[i].JourneyID = journey.ID
	}
	for i := range transitions {
		if transitions[i].ID == "" {
			transitions[i].ID = uuid.New().String()
		}
		transitions[i].JourneyID = journey.ID
	}
	if err := domain.ValidateJourneyGraph(states, transitions); err != nil {
		return err
	}

	condJSON, err := json.Marshal(journey.Conditions)
	if err != nil {
		return fmt.Errorf("encoding journey conditions: %w", err)
	}

	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO journeys (id, agent_id, title, description, conditions, allow_skipping, allow_revisiting, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			journey.ID, journey.AgentID, journey.Title, journey.Description, string(condJSON),
			boolInt(journey.AllowSkipping), boolInt(journey.AllowRevisiting), fmtTime(journey.CreatedAt),
		); err != nil {
			return fmt.Errorf("inserting journey: %w", err)
		}

		for i := range states {
			st := &states[i]
			cfg, err := domain.EncodeStateConfig(st.Config)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO journey_states (id, journey_id, name, state_type, is_initial, is_final, config)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				st.ID, journey.ID, st.Name, string(st.Type), boolInt(st.IsInitial), boolInt(st.IsFinal), string(cfg),
			); err != nil {
				return fmt.Errorf("inserting state %s: %w", st.Name, err)
			}
		}

		for i := range transitions {
			tr := &transitions[i]
			var condJSON sql.NullString
			if tr.Condition != nil {
				data, err := json.Marshal(tr.Condition)
				if err != nil {
					return fmt.Errorf("encoding transition condition: %w", err)
				}
				condJSON = sql.NullString{String: string(data), Valid: true}
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO journey_transitions (id, journey_id, from_state_id, to_state_id, priority, condition)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				tr.ID, journey.ID, tr.FromStateID, tr.ToStateID, tr.Priority, condJSON,
			); err != nil {
				return fmt.Errorf("inserting transition: %w", err)
			}
		}
		return nil
	})
}

// Get returns a journey by id.
func (s *JourneyStore) Get(ctx context.Context, id string) (*domain.Journey, error) {
	row := s.db.sql.QueryRowContext(ctx,
		`SELECT id, agent_id, title, description, conditions, allow_skipping, allow_revisiting, completion_count, created_at
		 FROM journeys WHERE id = ?`, id,
	)
	j, err := scanJourney(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading journey %s: %w", id, err)
	}
	return j, nil
}

// ListByAgent returns an agent's journeys in creation order. Creation order
// only breaks ties in entry-condition matching; transition choice never
// depends on it.
func (s *JourneyStore) ListByAgent(ctx context.Context, agentID string) ([]domain.Journey, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, agent_id, title, description, conditions, allow_skipping, allow_revisiting, completion_count, created_at
		 FROM journeys WHERE agent_id = ? ORDER BY created_at, id`, agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing journeys: %w", err)
	}
	defer rows.Close()

	var journeys []domain.Journey
	for rows.Next() {
		j, err := scanJourney(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning journey: %w", err)
		}
		journeys = append(journeys, *j)
	}
	return journeys, rows.Err()
}

// GetState returns a journey state by id.
func (s *JourneyStore) GetState(ctx context.Context, id string) (*domain.JourneyState, error) {
	row := s.db.sql.QueryRowContext(ctx,
		`SELECT id, journey_id, name, state_type, is_initial, is_final, config
		 FROM journey_states WHERE id = ?`, id,
	)
	st, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading state %s: %w", id, err)
	}
	return st, nil
}

// InitialState returns a journey's designated initial state.
func (s *JourneyStore) InitialState(ctx context.Context, journeyID string) (*domain.JourneyState, error) {
	row := s.db.sql.QueryRowContext(ctx,
		`SELECT id, journey_id, name, state_type, is_initial, is_final, config
		 FROM journey_states WHERE journey_id = ? AND is_initial = 1`, journeyID,
	)
	st, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading initial state of journey %s: %w", journeyID, err)
	}
	return st, nil
}

// States returns all states of a journey.
func (s *JourneyStore) States(ctx context.Context, journeyID string) ([]domain.JourneyState, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, journey_id, name, state_type, is_initial, is_final, config
		 FROM journey_states WHERE journey_id = ? ORDER BY name`, journeyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing states: %w", err)
	}
	defer rows.Close()

	var states []domain.JourneyState
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning state: %w", err)
		}
		states = append(states, *st)
	}
	return states, rows.Err()
}

// TransitionsFrom returns the outgoing transitions of a state in evaluation
// order: ascending priority, ties broken by id. This ordering is the
// determinism contract of the state machine; insertion order never matters.
func (s *JourneyStore) TransitionsFrom(ctx context.Context, journeyID, stateID string) ([]domain.JourneyTransition, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, journey_id, from_state_id, to_state_id, priority, condition
		 FROM journey_transitions
		 WHERE journey_id = ? AND from_state_id = ?
		 ORDER BY priority, id`, journeyID, stateID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing transitions: %w", err)
	}
	defer rows.Close()

	var transitions []domain.JourneyTransition
	for rows.Next() {
		var (
			tr       domain.JourneyTransition
			condJSON sql.NullString
		)
		if err := rows.Scan(&tr.ID, &tr.JourneyID, &tr.FromStateID, &tr.ToStateID, &tr.Priority, &condJSON); err != nil {
			return nil, fmt.Errorf("scanning transition: %w", err)
		}
		if condJSON.Valid && condJSON.String != "" {
			var cond domain.Condition
			if err := json.Unmarshal([]byte(condJSON.String), &cond); err != nil {
				return nil, fmt.Errorf("decoding condition of transition %s: %w", tr.ID, err)
			}
			tr.Condition = &cond
		}
		transitions = append(transitions, tr)
	}
	return transitions, rows.Err()
}

// GetTransition returns a transition by id.
func (s *JourneyStore) GetTransition(ctx context.Context, id string) (*domain.JourneyTransition, error) {
	var (
		tr       domain.JourneyTransition
		condJSON sql.NullString
	)
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT id, journey_id, from_state_id, to_state_id, priority, condition
		 FROM journey_transitions WHERE id = ?`, id,
	).Scan(&tr.ID, &tr.JourneyID, &tr.FromStateID, &tr.ToStateID, &tr.Priority, &condJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading transition %s: %w", id, err)
	}
	if condJSON.Valid && condJSON.String != "" {
		var cond domain.Condition
		if err := json.Unmarshal([]byte(condJSON.String), &cond); err != nil {
			return nil, fmt.Errorf("decoding condition of transition %s: %w", id, err)
		}
		tr.Condition = &cond
	}
	return &tr, nil
}

// IncrementCompletion bumps a journey's completion counter. Called exactly
// once per session reaching a final state.
func (s *JourneyStore) IncrementCompletion(ctx context.Context, journeyID string) error {
	_, err := s.db.sql.ExecContext(ctx,
		`UPDATE journeys SET completion_count = completion_count + 1 WHERE id = ?`, journeyID,
	)
	if err != nil {
		return fmt.Errorf("incrementing completion count for journey %s: %w", journeyID, err)
	}
	return nil
}

func scanJourney(row rowScanner) (*domain.Journey, error) {
	var (
		j              domain.Journey
		condJSON       sql.NullString
		skip, revisit  int
		createdAt      string
	)
	err := row.Scan(&j.ID, &j.AgentID, &j.Title, &j.Description, &condJSON,
		&skip, &revisit, &j.CompletionCount, &createdAt)
	if err != nil {
		return nil, err
	}
	j.AllowSkipping = skip != 0
	j.AllowRevisiting = revisit != 0
	j.CreatedAt = parseTime(createdAt)
	if condJSON.Valid && condJSON.String != "" {
		if err := json.Unmarshal([]byte(condJSON.String), &j.Conditions); err != nil {
			return nil, fmt.Errorf("decoding journey conditions: %w", err)
		}
	}
	return &j, nil
}

func scanState(row rowScanner) (*domain.JourneyState, error) {
	var (
		st                 domain.JourneyState
		stateType, cfgJSON string
		isInitial, isFinal int
	)
	if err := row.Scan(&st.ID, &st.JourneyID, &st.Name, &stateType, &isInitial, &isFinal, &cfgJSON); err != nil {
		return nil, err
	}
	st.Type = domain.StateType(stateType)
	st.IsInitial = isInitial != 0
	st.IsFinal = isFinal != 0
	cfg, err := domain.DecodeStateConfig(st.Type, []byte(cfgJSON))
	if err != nil {
		return nil, err
	}
	st.Config = cfg
	return &st, nil
}
