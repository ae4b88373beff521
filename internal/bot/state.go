package bot

import "sync"

// State says what input the bot expects next from a user. Exactly one state is
// held per user, so entering one upload state structurally clears the other.
type State int

const (
	StateIdle State = iota
	StateAwaitCodeUserCount // owner: step 1 of code creation, expects a number
	StateAwaitClaimCode     // expects a claim code string
	StateAwaitCustomCode    // owner: step 2 of code creation, expects the code string
	StateAwaitWithdrawUpload
	StateAwaitClaimUpload
)

type session struct {
	state          State
	pendingMaxUses int // scratch for the two-step code creation flow
}

// StateStore is the per-user conversation state table. It lives only in process
// memory; a restart drops in-flight flows and users simply start over. The mutex
// covers cross-user map access — per-user message ordering is the platform's
// guarantee.
type StateStore struct {
	mu       sync.Mutex
	sessions map[int64]session
}

func NewStateStore() *StateStore {
	return &StateStore{sessions: make(map[int64]session)}
}

func (s *StateStore) Get(userID int64) (State, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[userID]
	return sess.state, sess.pendingMaxUses
}

func (s *StateStore) Set(userID int64, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st == StateIdle {
		delete(s.sessions, userID)
		return
	}
	s.sessions[userID] = session{state: st}
}

// SetScratch enters a state carrying the pending max-uses value.
func (s *StateStore) SetScratch(userID int64, st State, maxUses int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = session{state: st, pendingMaxUses: maxUses}
}

// Clear drops all state and scratch for the user.
func (s *StateStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
