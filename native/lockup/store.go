package lockup

import (
	"encoding/hex"
	"fmt"
	"sort"
)

// Storage abstracts the subset of state-manager functionality required by the
// lockup engines.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	HasRole(role string, addr []byte) bool
	IsPaused(module string) bool
	SetPaused(module string, paused bool) error
}

// Store persists lockup records for one pool. Distinct pools (e.g. the split
// and credit variants) use distinct names so their ledgers never alias.
type Store struct {
	st   Storage
	pool string
}

// NewStore wraps the state manager for the named pool.
func NewStore(st Storage, pool string) *Store {
	return &Store{st: st, pool: pool}
}

func (s *Store) userKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("lockup/%s/user/%s", s.pool, hex.EncodeToString(addr[:])))
}

func (s *Store) splitKey(id uint32) []byte {
	return []byte(fmt.Sprintf("lockup/%s/split/%d", s.pool, id))
}

func (s *Store) splitIndexKey() []byte {
	return []byte(fmt.Sprintf("lockup/%s/splits", s.pool))
}

// GetUser loads the account record for addr. The boolean reports existence.
func (s *Store) GetUser(addr [20]byte) (*UserAccount, bool, error) {
	if s == nil || s.st == nil {
		return nil, false, errNilState
	}
	user := new(UserAccount)
	ok, err := s.st.KVGet(s.userKey(addr), user)
	if err != nil || !ok {
		return nil, false, err
	}
	return user.Normalize(), true, nil
}

// PutUser persists the account record.
func (s *Store) PutUser(user *UserAccount) error {
	if s == nil || s.st == nil {
		return errNilState
	}
	if user == nil {
		return fmt.Errorf("lockup store: nil user")
	}
	return s.st.KVPut(s.userKey(user.Address), user.Normalize())
}

// GetSplit loads the split configuration for id. The boolean reports existence.
func (s *Store) GetSplit(id uint32) (*SplitConfig, bool, error) {
	if s == nil || s.st == nil {
		return nil, false, errNilState
	}
	split := new(SplitConfig)
	ok, err := s.st.KVGet(s.splitKey(id), split)
	if err != nil || !ok {
		return nil, false, err
	}
	return split.Normalize(), true, nil
}

// PutSplit persists the split configuration and maintains the id index.
func (s *Store) PutSplit(split *SplitConfig) error {
	if s == nil || s.st == nil {
		return errNilState
	}
	if split == nil {
		return fmt.Errorf("lockup store: nil split")
	}
	var ids []uint32
	if _, err := s.st.KVGet(s.splitIndexKey(), &ids); err != nil {
		return err
	}
	known := false
	for _, id := range ids {
		if id == split.ID {
			known = true
			break
		}
	}
	if !known {
		ids = append(ids, split.ID)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		if err := s.st.KVPut(s.splitIndexKey(), ids); err != nil {
			return err
		}
	}
	return s.st.KVPut(s.splitKey(split.ID), split.Normalize())
}

// ListSplits returns every configured split ordered by identifier.
func (s *Store) ListSplits() ([]*SplitConfig, error) {
	if s == nil || s.st == nil {
		return nil, errNilState
	}
	var ids []uint32
	if _, err := s.st.KVGet(s.splitIndexKey(), &ids); err != nil {
		return nil, err
	}
	splits := make([]*SplitConfig, 0, len(ids))
	for _, id := range ids {
		split, ok, err := s.GetSplit(id)
		if err != nil {
			return nil, err
		}
		if ok {
			splits = append(splits, split)
		}
	}
	return splits, nil
}

// HasRole passes through to the state role registry.
func (s *Store) HasRole(role string, addr []byte) bool {
	if s == nil || s.st == nil {
		return false
	}
	return s.st.HasRole(role, addr)
}

// IsPaused passes through to the state pause registry.
func (s *Store) IsPaused(module string) bool {
	if s == nil || s.st == nil {
		return false
	}
	return s.st.IsPaused(module)
}

// SetPaused passes through to the state pause registry.
func (s *Store) SetPaused(module string, paused bool) error {
	if s == nil || s.st == nil {
		return errNilState
	}
	return s.st.SetPaused(module, paused)
}
