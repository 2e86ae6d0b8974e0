// Package storage — хранилище в памяти с тем же контрактом, что и database.DB.
// Используется в режиме разработки без DATABASE_URL и в тестах.
package storage

import (
	"bytes"
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"go_form_bot/database"
)

type formKey struct {
	name    string
	groupID int64
}

type account struct {
	mu        sync.Mutex
	balance   database.Credits
	updatedAt time.Time
}

type Storage struct {
	now func() time.Time

	mu          sync.RWMutex
	groups      map[int64]database.Group
	admins      map[int64]database.Admin
	adminGroups map[int64]map[int64]struct{}
	forms       map[formKey]database.Form
	payments    map[string]database.Payment

	// балансы: у каждого админа свой мьютекс, разные админы не блокируют друг друга
	accMu    sync.Mutex
	accounts map[int64]*account

	subMu  sync.RWMutex
	subs   []database.Submission
	nextID int64
}

func New() *Storage {
	return NewWithClock(time.Now)
}

func NewWithClock(now func() time.Time) *Storage {
	return &Storage{
		now:         now,
		groups:      make(map[int64]database.Group),
		admins:      make(map[int64]database.Admin),
		adminGroups: make(map[int64]map[int64]struct{}),
		forms:       make(map[formKey]database.Form),
		payments:    make(map[string]database.Payment),
		accounts:    make(map[int64]*account),
	}
}

// ============================================
// Groups
// ============================================

func (s *Storage) AddGroup(_ context.Context, id int64, name string, addedBy int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; ok {
		return database.ErrGroupExists
	}
	s.groups[id] = database.Group{ID: id, Name: name, AddedBy: addedBy, AddedAt: s.now()}
	if _, isAdmin := s.admins[addedBy]; addedBy != 0 && isAdmin {
		s.linkLocked(addedBy, id)
	}
	return nil
}

func (s *Storage) linkLocked(adminID, groupID int64) {
	set, ok := s.adminGroups[adminID]
	if !ok {
		set = make(map[int64]struct{})
		s.adminGroups[adminID] = set
	}
	set[groupID] = struct{}{}
}

func (s *Storage) GetGroup(_ context.Context, id int64) (*database.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, database.ErrGroupNotFound
	}
	return &g, nil
}

func (s *Storage) ListGroups(_ context.Context, adminID int64) ([]database.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var groups []database.Group
	for id, g := range s.groups {
		if adminID != 0 {
			if _, ok := s.adminGroups[adminID][id]; !ok {
				continue
			}
		}
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].AddedAt.Before(groups[j].AddedAt) })
	return groups, nil
}

func (s *Storage) RemoveGroup(_ context.Context, id int64, adminID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if adminID != 0 {
		if _, ok := s.adminGroups[adminID][id]; !ok {
			return false, nil
		}
		delete(s.adminGroups[adminID], id)
		for _, set := range s.adminGroups {
			if _, ok := set[id]; ok {
				return true, nil
			}
		}
	}
	if _, ok := s.groups[id]; !ok {
		return false, nil
	}
	delete(s.groups, id)
	for _, set := range s.adminGroups {
		delete(set, id)
	}
	return true, nil
}

func (s *Storage) IsAuthorizedGroup(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.groups[id]
	return ok, nil
}

// ============================================
// Admins
// ============================================

func (s *Storage) AddAdmin(_ context.Context, userID int64, name string, addedBy int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.admins[userID]; ok {
		if name != "" {
			a.Name = name
			s.admins[userID] = a
		}
		return nil
	}
	s.admins[userID] = database.Admin{UserID: userID, Name: name, AddedBy: addedBy, AddedAt: s.now()}
	return nil
}

func (s *Storage) RemoveAdmin(_ context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[userID]; !ok {
		return false, nil
	}
	delete(s.admins, userID)
	delete(s.adminGroups, userID)
	return true, nil
}

func (s *Storage) IsAdmin(_ context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.admins[userID]
	return ok, nil
}

func (s *Storage) ListAdmins(ctx context.Context) ([]database.Admin, error) {
	s.mu.RLock()
	admins := make([]database.Admin, 0, len(s.admins))
	for _, a := range s.admins {
		admins = append(admins, a)
	}
	s.mu.RUnlock()

	for i := range admins {
		balance, err := s.Balance(ctx, admins[i].UserID)
		if err != nil {
			return nil, err
		}
		admins[i].Credits = balance
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].UserID < admins[j].UserID })
	return admins, nil
}

// ============================================
// Forms
// ============================================

func (s *Storage) CreateForm(_ context.Context, f database.Form) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := formKey{f.Name, f.GroupID}
	if _, ok := s.forms[key]; ok {
		return database.ErrFormExists
	}
	f.Fields = slices.Clone(f.Fields)
	f.CreatedAt = s.now()
	s.forms[key] = f
	return nil
}

func (s *Storage) GetForm(_ context.Context, name string, groupID int64) (*database.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.forms[formKey{name, groupID}]
	if !ok {
		return nil, database.ErrFormNotFound
	}
	f.Fields = slices.Clone(f.Fields)
	return &f, nil
}

func (s *Storage) FindFormByOwner(_ context.Context, name string, ownerID int64) (*database.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *database.Form
	for _, f := range s.forms {
		f := f
		if f.Name != name || f.CreatedBy != ownerID {
			continue
		}
		if found == nil || f.CreatedAt.Before(found.CreatedAt) {
			f.Fields = slices.Clone(f.Fields)
			found = &f
		}
	}
	if found == nil {
		return nil, database.ErrFormNotFound
	}
	return found, nil
}

func (s *Storage) ListForms(_ context.Context, filter database.FormFilter) ([]database.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var forms []database.Form
	for _, f := range s.forms {
		if filter.All || f.GroupID == filter.GroupID || f.CreatedBy == filter.OwnerID {
			f.Fields = slices.Clone(f.Fields)
			forms = append(forms, f)
		}
	}
	sort.Slice(forms, func(i, j int) bool {
		if forms[i].Name != forms[j].Name {
			return forms[i].Name < forms[j].Name
		}
		return forms[i].GroupID < forms[j].GroupID
	})
	return forms, nil
}

func (s *Storage) DeleteForm(_ context.Context, name string, groupID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := formKey{name, groupID}
	if _, ok := s.forms[key]; !ok {
		return false, nil
	}
	delete(s.forms, key)

	s.subMu.Lock()
	s.subs = slices.DeleteFunc(s.subs, func(sub database.Submission) bool {
		return sub.FormName == name && sub.GroupID == groupID
	})
	s.subMu.Unlock()
	return true, nil
}

// ============================================
// Admin credits
// ============================================

// acquire возвращает счёт админа; create=false не создаёт отсутствующий
func (s *Storage) acquire(adminID int64, create bool) *account {
	s.accMu.Lock()
	defer s.accMu.Unlock()

	acc, ok := s.accounts[adminID]
	if !ok && create {
		acc = &account{}
		s.accounts[adminID] = acc
	}
	return acc
}

func (s *Storage) Credit(_ context.Context, adminID int64, amount database.Credits) error {
	if err := database.ValidateAmount(amount); err != nil {
		return err
	}
	acc := s.acquire(adminID, true)
	acc.mu.Lock()
	acc.balance += amount
	acc.updatedAt = s.now()
	acc.mu.Unlock()
	return nil
}

func (s *Storage) Debit(_ context.Context, adminID int64, amount database.Credits) (bool, error) {
	if err := database.ValidateAmount(amount); err != nil {
		return false, err
	}
	acc := s.acquire(adminID, false)
	if acc == nil {
		return false, nil
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()

	if acc.balance < amount {
		return false, nil
	}
	acc.balance -= amount
	acc.updatedAt = s.now()
	return true, nil
}

func (s *Storage) Balance(_ context.Context, adminID int64) (database.Credits, error) {
	acc := s.acquire(adminID, false)
	if acc == nil {
		return 0, nil
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.balance, nil
}

// ============================================
// Submissions
// ============================================

type debitEntry struct {
	adminID int64
	amount  database.Credits
}

type admissionTx struct {
	s       *Storage
	debits  []debitEntry
	pending *database.NewSubmission
}

// RunAdmission: списания применяются сразу и возвращаются при ошибке fn,
// вставка выполняется в конце под мьютексом с проверкой уникальности отпечатка.
func (s *Storage) RunAdmission(ctx context.Context, fn func(database.AdmissionTx) error) error {
	tx := &admissionTx{s: s}
	if err := fn(tx); err != nil {
		tx.rollback(ctx)
		return err
	}
	return nil
}

func (tx *admissionTx) rollback(ctx context.Context) {
	for _, d := range tx.debits {
		_ = tx.s.Credit(ctx, d.adminID, d.amount)
	}
}

func (tx *admissionTx) Debit(ctx context.Context, adminID int64, amount database.Credits) (bool, error) {
	ok, err := tx.s.Debit(ctx, adminID, amount)
	if ok {
		tx.debits = append(tx.debits, debitEntry{adminID, amount})
	}
	return ok, err
}

func (tx *admissionTx) SubmissionExists(_ context.Context, formName string, groupID int64, fingerprint []byte) (bool, error) {
	tx.s.subMu.RLock()
	defer tx.s.subMu.RUnlock()
	return tx.s.existsLocked(formName, groupID, fingerprint), nil
}

func (tx *admissionTx) InsertSubmission(_ context.Context, ns database.NewSubmission) (int64, bool, error) {
	s := tx.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.forms[formKey{ns.FormName, ns.GroupID}]; !ok {
		return 0, false, database.ErrFormNotFound
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.existsLocked(ns.FormName, ns.GroupID, ns.Fingerprint) {
		return 0, false, nil
	}
	s.nextID++
	s.subs = append(s.subs, database.Submission{
		ID:          s.nextID,
		FormName:    ns.FormName,
		GroupID:     ns.GroupID,
		UserID:      ns.UserID,
		ChatID:      ns.ChatID,
		Data:        bytes.Clone(ns.Data),
		Fingerprint: bytes.Clone(ns.Fingerprint),
		CreatedAt:   s.now(),
	})
	return s.nextID, true, nil
}

func (s *Storage) existsLocked(formName string, groupID int64, fingerprint []byte) bool {
	for _, sub := range s.subs {
		if sub.FormName == formName && sub.GroupID == groupID && bytes.Equal(sub.Fingerprint, fingerprint) {
			return true
		}
	}
	return false
}

func (s *Storage) ReportSubmissions(_ context.Context, q database.ReportQuery) ([]database.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	var out []database.Submission
	for _, sub := range s.subs {
		if sub.FormName != q.FormName {
			continue
		}
		f, ok := s.forms[formKey{sub.FormName, sub.GroupID}]
		if !ok || (q.OwnerID != 0 && f.CreatedBy != q.OwnerID) {
			continue
		}
		if sub.CreatedAt.Before(q.From) || sub.CreatedAt.After(q.To) {
			continue
		}
		out = append(out, sub)
	}
	// s.subs уже упорядочен по id
	return out, nil
}

func (s *Storage) GetSubmission(_ context.Context, id int64) (*database.Submission, error) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for _, sub := range s.subs {
		if sub.ID == id {
			return &sub, nil
		}
	}
	return nil, nil
}

func (s *Storage) DeleteSubmission(_ context.Context, id int64) (bool, error) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	n := len(s.subs)
	s.subs = slices.DeleteFunc(s.subs, func(sub database.Submission) bool { return sub.ID == id })
	return len(s.subs) < n, nil
}

// ============================================
// Payments
// ============================================

func (s *Storage) RecordPayment(ctx context.Context, p database.Payment) (bool, error) {
	if err := database.ValidateAmount(p.Credited); err != nil {
		return false, err
	}
	s.mu.Lock()
	if _, ok := s.payments[p.PaymentID]; ok {
		s.mu.Unlock()
		return false, nil
	}
	p.CreatedAt = s.now()
	s.payments[p.PaymentID] = p
	if _, ok := s.admins[p.AdminID]; !ok {
		s.admins[p.AdminID] = database.Admin{UserID: p.AdminID, Name: p.AdminName, AddedBy: p.AdminID, AddedAt: s.now()}
	}
	s.mu.Unlock()

	return true, s.Credit(ctx, p.AdminID, p.Credited)
}
