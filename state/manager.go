package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"hvstaking/native/staking"
	"hvstaking/storage"
	"hvstaking/token"
)

var (
	settingsKey    = []byte("staking/settings")
	positionPrefix = []byte("staking/resources/")
	ratioPrefix    = []byte("staking/ratio/")
	refundPrefix   = []byte("staking/refunds/")
	profilePrefix  = []byte("staking/profiles/")
	bankPrefix     = []byte("bank/accounts/")
)

func positionKey(owner string) []byte { return append(append([]byte(nil), positionPrefix...), owner...) }
func refundKey(owner string) []byte   { return append(append([]byte(nil), refundPrefix...), owner...) }
func profileKey(owner string) []byte  { return append(append([]byte(nil), profilePrefix...), owner...) }
func bankKey(name string) []byte      { return append(append([]byte(nil), bankPrefix...), name...) }

func ratioKey(day uint64) []byte {
	// Zero-padded so prefix scans return days in numeric order.
	return []byte(fmt.Sprintf("%s%020d", ratioPrefix, day))
}

// Manager provides typed, keyed access to the staking stores over a raw
// key-value database. Writes land in an in-memory overlay; an operation that
// succeeds commits the overlay in one pass and a failed one discards it, so
// no partial mutation ever reaches the database. The node serializes access,
// so the manager itself carries no locking.
type Manager struct {
	db      storage.Database
	writes  map[string][]byte
	deletes map[string]struct{}
}

// NewManager wraps the database with a fresh, empty overlay.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:      db,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

// KVGet decodes the value stored under key into out, honouring the overlay.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if m == nil || m.db == nil {
		return false, errors.New("state: manager not initialised")
	}
	if _, gone := m.deletes[string(key)]; gone {
		return false, nil
	}
	if buf, ok := m.writes[string(key)]; ok {
		return true, json.Unmarshal(buf, out)
	}
	buf, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(buf, out)
}

// KVPut stages a write in the overlay.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if m == nil || m.db == nil {
		return errors.New("state: manager not initialised")
	}
	buf, err := json.Marshal(value)
	if err != nil {
		return err
	}
	delete(m.deletes, string(key))
	m.writes[string(key)] = buf
	return nil
}

// KVDelete stages a deletion in the overlay.
func (m *Manager) KVDelete(key []byte) error {
	if m == nil || m.db == nil {
		return errors.New("state: manager not initialised")
	}
	delete(m.writes, string(key))
	m.deletes[string(key)] = struct{}{}
	return nil
}

// Commit flushes the overlay to the database and resets it.
func (m *Manager) Commit() error {
	for key := range m.deletes {
		if err := m.db.Delete([]byte(key)); err != nil {
			return err
		}
	}
	for key, value := range m.writes {
		if err := m.db.Put([]byte(key), value); err != nil {
			return err
		}
	}
	m.Discard()
	return nil
}

// Discard drops all staged writes and deletions.
func (m *Manager) Discard() {
	m.writes = make(map[string][]byte)
	m.deletes = make(map[string]struct{})
}

// Dirty reports whether the overlay holds uncommitted changes.
func (m *Manager) Dirty() bool {
	return len(m.writes) > 0 || len(m.deletes) > 0
}

// --- staking.State ---

// Settings returns the global ledger settings, lazily constructing the
// documented defaults when the record does not exist yet.
func (m *Manager) Settings() (*staking.Settings, error) {
	var st staking.Settings
	ok, err := m.KVGet(settingsKey, &st)
	if err != nil {
		return nil, err
	}
	if !ok {
		return staking.DefaultSettings(), nil
	}
	return st.Normalize(), nil
}

// PutSettings stores the global ledger settings.
func (m *Manager) PutSettings(st *staking.Settings) error {
	if st == nil {
		return errors.New("state: nil settings")
	}
	return m.KVPut(settingsKey, st.Normalize())
}

// Position returns the resource ledger entry for owner.
func (m *Manager) Position(owner string) (*staking.Position, bool, error) {
	var pos staking.Position
	ok, err := m.KVGet(positionKey(owner), &pos)
	if err != nil || !ok {
		return nil, false, err
	}
	return pos.Normalize(), true, nil
}

// PutPosition stores the resource ledger entry for owner after sanitising.
func (m *Manager) PutPosition(owner string, pos *staking.Position) error {
	sanitized, err := staking.SanitizePosition(pos)
	if err != nil {
		return err
	}
	return m.KVPut(positionKey(owner), sanitized)
}

// DeletePosition removes the resource ledger entry for owner.
func (m *Manager) DeletePosition(owner string) error {
	return m.KVDelete(positionKey(owner))
}

type ratioRecord struct {
	Day   uint64 `json:"day"`
	Ratio int32  `json:"ratio"`
}

// RewardRatio returns the ratio recorded for day.
func (m *Manager) RewardRatio(day uint64) (int32, bool, error) {
	var rec ratioRecord
	ok, err := m.KVGet(ratioKey(day), &rec)
	if err != nil || !ok {
		return 0, false, err
	}
	return rec.Ratio, true, nil
}

// PutRewardRatio upserts the ratio for day.
func (m *Manager) PutRewardRatio(day uint64, ratio int32) error {
	return m.KVPut(ratioKey(day), &ratioRecord{Day: day, Ratio: ratio})
}

// RefundRequest returns the pending withdrawal for owner.
func (m *Manager) RefundRequest(owner string) (*staking.RefundRequest, bool, error) {
	var req staking.RefundRequest
	ok, err := m.KVGet(refundKey(owner), &req)
	if err != nil || !ok {
		return nil, false, err
	}
	return req.Normalize(), true, nil
}

// PutRefundRequest stores the pending withdrawal for owner.
func (m *Manager) PutRefundRequest(owner string, req *staking.RefundRequest) error {
	if req == nil {
		return errors.New("state: nil refund request")
	}
	return m.KVPut(refundKey(owner), req.Normalize())
}

// DeleteRefundRequest removes the pending withdrawal for owner.
func (m *Manager) DeleteRefundRequest(owner string) error {
	return m.KVDelete(refundKey(owner))
}

// Profile returns the claim-eligibility record for owner.
func (m *Manager) Profile(owner string) (*staking.Profile, bool, error) {
	var profile staking.Profile
	ok, err := m.KVGet(profileKey(owner), &profile)
	if err != nil || !ok {
		return nil, false, err
	}
	return &profile, true, nil
}

// PutProfile stores the claim-eligibility record for owner.
func (m *Manager) PutProfile(owner string, profile *staking.Profile) error {
	if profile == nil {
		return errors.New("state: nil profile")
	}
	return m.KVPut(profileKey(owner), profile)
}

// PendingRefunds walks every committed pending withdrawal, in owner order.
// It reads the database directly (the overlay is empty between operations)
// and exists so the node can re-arm refund timers after a restart. A record
// that fails to decode aborts the scan: a refund obligation that cannot be
// read must be surfaced, not silently left without a timer.
func (m *Manager) PendingRefunds(fn func(owner string, req *staking.RefundRequest) bool) error {
	if m == nil || m.db == nil {
		return errors.New("state: manager not initialised")
	}
	var decodeErr error
	err := m.db.IteratePrefix(refundPrefix, func(key, value []byte) bool {
		owner := strings.TrimPrefix(string(key), string(refundPrefix))
		var req staking.RefundRequest
		if err := json.Unmarshal(value, &req); err != nil {
			decodeErr = fmt.Errorf("state: decode refund request for %s: %w", owner, err)
			return false
		}
		return fn(owner, req.Normalize())
	})
	if err != nil {
		return err
	}
	return decodeErr
}

var genesisKey = []byte("genesis/applied")

// GenesisApplied reports whether genesis balances have been minted.
func (m *Manager) GenesisApplied() (bool, error) {
	var applied bool
	ok, err := m.KVGet(genesisKey, &applied)
	if err != nil {
		return false, err
	}
	return ok && applied, nil
}

// MarkGenesisApplied records that genesis balances were minted so a restart
// never mints them twice.
func (m *Manager) MarkGenesisApplied() error {
	return m.KVPut(genesisKey, true)
}

// --- token.BankState ---

// BankAccount returns the custody balance record for name.
func (m *Manager) BankAccount(name string) (*token.Account, bool, error) {
	var acct token.Account
	ok, err := m.KVGet(bankKey(name), &acct)
	if err != nil || !ok {
		return nil, false, err
	}
	return &acct, true, nil
}

// PutBankAccount stores the custody balance record for name.
func (m *Manager) PutBankAccount(name string, acct *token.Account) error {
	if acct == nil {
		return errors.New("state: nil bank account")
	}
	return m.KVPut(bankKey(name), acct)
}
