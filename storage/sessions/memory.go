package sessionstore

import (
	"sync"

	"github.com/cadenza-app/cadenza/core/session"
)

// memoryStore keeps sessions in process memory. Meant for dev and tests;
// production uses the Redis store.
type memoryStore struct {
	sync.RWMutex
	table map[string]session.Session
}

var _ session.Store = (*memoryStore)(nil)

func NewMemoryStore() session.Store {
	return &memoryStore{table: make(map[string]session.Session)}
}

func (st *memoryStore) SaveSession(sess session.Session) error {
	st.Lock()
	defer st.Unlock()
	st.table[sess.Key] = sess
	return nil
}

func (st *memoryStore) GetSession(key string) (session.Session, error) {
	st.RLock()
	defer st.RUnlock()
	if sess, ok := st.table[key]; ok {
		return sess, nil
	}
	return session.Session{}, session.ErrInvalidSession
}

func (st *memoryStore) DeleteSessions(keys ...string) error {
	st.Lock()
	defer st.Unlock()
	for _, key := range keys {
		delete(st.table, key)
	}
	return nil
}

func (st *memoryStore) DeleteUserSessions(userID string) error {
	st.Lock()
	defer st.Unlock()
	for key, sess := range st.table {
		if sess.UserID == userID {
			delete(st.table, key)
		}
	}
	return nil
}
