package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"lockvault/storage"
)

var errNilDatabase = errors.New("state manager: database not configured")

// Manager persists module records, role grants and pause toggles on top of a
// generic key-value database. Values are stored as JSON so records containing
// *big.Int fields round-trip without bespoke codecs.
type Manager struct {
	db storage.Database
}

// NewManager wraps the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// KVGet decodes the value stored under key into out. The boolean reports
// whether the key existed.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if m == nil || m.db == nil {
		return false, errNilDatabase
	}
	ok, err := m.db.Has(key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	raw, err := m.db.Get(key)
	if err != nil {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state manager: decode %q: %w", string(key), err)
	}
	return true, nil
}

// KVPut encodes value as JSON and stores it under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if m == nil || m.db == nil {
		return errNilDatabase
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state manager: encode %q: %w", string(key), err)
	}
	return m.db.Put(key, raw)
}

// KVDelete removes the value stored under key, if any.
func (m *Manager) KVDelete(key []byte) error {
	if m == nil || m.db == nil {
		return errNilDatabase
	}
	return m.db.Delete(key)
}

func roleKey(role string, addr []byte) []byte {
	return []byte("roles/" + strings.ToUpper(strings.TrimSpace(role)) + "/" + hex.EncodeToString(addr))
}

// HasRole reports whether addr carries the named role. Missing grants fail
// closed.
func (m *Manager) HasRole(role string, addr []byte) bool {
	if m == nil || m.db == nil || strings.TrimSpace(role) == "" {
		return false
	}
	ok, err := m.db.Has(roleKey(role, addr))
	if err != nil {
		return false
	}
	return ok
}

// GrantRole records a role grant for addr.
func (m *Manager) GrantRole(role string, addr []byte) error {
	if m == nil || m.db == nil {
		return errNilDatabase
	}
	if strings.TrimSpace(role) == "" {
		return fmt.Errorf("state manager: empty role")
	}
	return m.db.Put(roleKey(role, addr), []byte{1})
}

// RevokeRole removes a role grant for addr.
func (m *Manager) RevokeRole(role string, addr []byte) error {
	if m == nil || m.db == nil {
		return errNilDatabase
	}
	return m.db.Delete(roleKey(role, addr))
}

func pauseKey(module string) []byte {
	return []byte("pauses/" + strings.ToLower(strings.TrimSpace(module)))
}

// IsPaused reports whether the named module is paused. Unknown modules are
// not paused.
func (m *Manager) IsPaused(module string) bool {
	if m == nil || m.db == nil {
		return false
	}
	ok, err := m.db.Has(pauseKey(module))
	if err != nil {
		return false
	}
	return ok
}

// SetPaused toggles the pause flag for the named module.
func (m *Manager) SetPaused(module string, paused bool) error {
	if m == nil || m.db == nil {
		return errNilDatabase
	}
	if strings.TrimSpace(module) == "" {
		return fmt.Errorf("state manager: empty module name")
	}
	if paused {
		return m.db.Put(pauseKey(module), []byte{1})
	}
	return m.db.Delete(pauseKey(module))
}
