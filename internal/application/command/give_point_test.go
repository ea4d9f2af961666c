package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/points"
	"github.com/bilim-hub/bilim-points-hub/internal/domain/shared"
	"github.com/bilim-hub/bilim-points-hub/internal/domain/student"
)

// fakeGrantStore implements points.Atomic with snapshot rollback, mirroring
// the fake used for purchases.
type fakeGrantStore struct {
	mu       sync.Mutex
	grants   map[string]*points.GrantRecord
	balances map[string]int
}

func newFakeGrantStore() *fakeGrantStore {
	return &fakeGrantStore{
		grants:   make(map[string]*points.GrantRecord),
		balances: make(map[string]int),
	}
}

func (f *fakeGrantStore) addStudent(id string, balance int) {
	f.balances[id] = balance
}

func (f *fakeGrantStore) InTx(ctx context.Context, fn func(ctx context.Context, store points.TxStore) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapGrants := make(map[string]*points.GrantRecord, len(f.grants))
	for k, v := range f.grants {
		cp := *v
		snapGrants[k] = &cp
	}
	snapBalances := make(map[string]int, len(f.balances))
	for k, v := range f.balances {
		snapBalances[k] = v
	}

	if err := fn(ctx, (*fakeGrantTx)(f)); err != nil {
		f.grants = snapGrants
		f.balances = snapBalances
		return err
	}
	return nil
}

type fakeGrantTx fakeGrantStore

func (f *fakeGrantTx) GrantByID(ctx context.Context, id string) (*points.GrantRecord, error) {
	g, ok := f.grants[id]
	if !ok {
		return nil, points.ErrGrantNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGrantTx) InsertGrant(ctx context.Context, g *points.GrantRecord) error {
	if _, ok := f.balances[g.StudentID]; !ok {
		return student.ErrStudentNotFound
	}
	cp := *g
	f.grants[g.ID] = &cp
	return nil
}

func (f *fakeGrantTx) UpdateGrant(ctx context.Context, g *points.GrantRecord) error {
	if _, ok := f.grants[g.ID]; !ok {
		return points.ErrGrantNotFound
	}
	cp := *g
	f.grants[g.ID] = &cp
	return nil
}

func (f *fakeGrantTx) DeleteGrant(ctx context.Context, id string) error {
	if _, ok := f.grants[id]; !ok {
		return points.ErrGrantNotFound
	}
	delete(f.grants, id)
	return nil
}

func (f *fakeGrantTx) AdjustBalance(ctx context.Context, studentID string, delta int) error {
	b, ok := f.balances[studentID]
	if !ok {
		return student.ErrStudentNotFound
	}
	if b+delta < 0 {
		return student.ErrInsufficientPoints
	}
	f.balances[studentID] = b + delta
	return nil
}

func (f *fakeGrantTx) ResetAllBalances(ctx context.Context) (int64, error) {
	var n int64
	for id := range f.balances {
		f.balances[id] = 0
		n++
	}
	return n, nil
}

func (f *fakeGrantTx) StudentBalance(ctx context.Context, studentID string) (int, error) {
	b, ok := f.balances[studentID]
	if !ok {
		return 0, student.ErrStudentNotFound
	}
	return b, nil
}

// checkLedgerConsistency asserts balance == initial + sum(current grants).
func checkLedgerConsistency(t *testing.T, f *fakeGrantStore, initial map[string]int) {
	t.Helper()

	granted := make(map[string]int)
	for _, g := range f.grants {
		granted[g.StudentID] += g.Amount
	}
	for id, base := range initial {
		assert.Equal(t, base+granted[id], f.balances[id], "ledger mismatch for student %s", id)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CREATE
// ══════════════════════════════════════════════════════════════════════════════

func TestCreateGrant_Success(t *testing.T) {
	store := newFakeGrantStore()
	store.addStudent("s1", 10)

	pub := &capturingPublisher{}
	h := NewGrantHandler(store, pub, nil)

	result, err := h.CreateGrant(context.Background(), CreateGrantCommand{
		StudentID: "s1", MentorID: "m1", Amount: 25, Description: "great demo",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Grant)

	assert.Equal(t, 35, result.StudentBalance)
	assert.Equal(t, 35, store.balances["s1"])
	assert.NotEmpty(t, result.Grant.ID)
	assert.False(t, result.Grant.Date.IsZero(), "zero date defaults to today")

	events := pub.byType(shared.EventPointsGranted)
	require.Len(t, events, 1)
	bc := events[0].(shared.BalanceChangedEvent)
	assert.Equal(t, 25, bc.Delta)
	assert.Equal(t, 35, bc.NewBalance)

	checkLedgerConsistency(t, store, map[string]int{"s1": 10})
}

func TestCreateGrant_ExplicitDate(t *testing.T) {
	store := newFakeGrantStore()
	store.addStudent("s1", 0)

	h := NewGrantHandler(store, nil, nil)

	date := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	result, err := h.CreateGrant(context.Background(), CreateGrantCommand{
		StudentID: "s1", Amount: 5, Date: date,
	})
	require.NoError(t, err)
	assert.Equal(t, date, result.Grant.Date)
}

func TestCreateGrant_ZeroAmountIsAllowed(t *testing.T) {
	store := newFakeGrantStore()
	store.addStudent("s1", 10)

	h := NewGrantHandler(store, nil, nil)

	result, err := h.CreateGrant(context.Background(), CreateGrantCommand{
		StudentID: "s1", Amount: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, result.StudentBalance)
}

func TestCreateGrant_Validation(t *testing.T) {
	h := NewGrantHandler(newFakeGrantStore(), nil, nil)

	_, err := h.CreateGrant(context.Background(), CreateGrantCommand{Amount: 5})
	assert.True(t, shared.IsValidation(err))

	_, err = h.CreateGrant(context.Background(), CreateGrantCommand{StudentID: "s1", Amount: -5})
	assert.True(t, shared.IsValidation(err))
}

func TestCreateGrant_UnknownStudent(t *testing.T) {
	h := NewGrantHandler(newFakeGrantStore(), nil, nil)

	_, err := h.CreateGrant(context.Background(), CreateGrantCommand{StudentID: "ghost", Amount: 5})
	assert.True(t, shared.IsNotFound(err))
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE
// ══════════════════════════════════════════════════════════════════════════════

func TestUpdateGrant_AmountOnly(t *testing.T) {
	store := newFakeGrantStore()
	store.addStudent("s1", 0)

	h := NewGrantHandler(store, nil, nil)

	created, err := h.CreateGrant(context.Background(), CreateGrantCommand{StudentID: "s1", Amount: 30})
	require.NoError(t, err)

	updated, err := h.UpdateGrant(context.Background(), UpdateGrantCommand{
		GrantID: created.Grant.ID, NewAmount: 12,
	})
	require.NoError(t, err)

	// Net effect of reverse(-30) then apply(+12).
	assert.Equal(t, 12, updated.StudentBalance)
	assert.Equal(t, 12, store.balances["s1"])
	checkLedgerConsistency(t, store, map[string]int{"s1": 0})
}

func TestUpdateGrant_MoveToOtherStudent(t *testing.T) {
	store := newFakeGrantStore()
	store.addStudent("s1", 0)
	store.addStudent("s2", 5)

	h := NewGrantHandler(store, nil, nil)

	created, err := h.CreateGrant(context.Background(), CreateGrantCommand{StudentID: "s1", Amount: 30})
	require.NoError(t, err)

	updated, err := h.UpdateGrant(context.Background(), UpdateGrantCommand{
		GrantID: created.Grant.ID, NewAmount: 30, NewStudentID: "s2",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, store.balances["s1"])
	assert.Equal(t, 35, store.balances["s2"])
	assert.Equal(t, "s2", updated.Grant.StudentID)
	checkLedgerConsistency(t, store, map[string]int{"s1": 0, "s2": 5})
}

func TestUpdateGrant_MovePublishesBothBalances(t *testing.T) {
	store := newFakeGrantStore()
	store.addStudent("s1", 0)
	store.addStudent("s2", 5)

	pub := &capturingPublisher{}
	h := NewGrantHandler(store, pub, nil)

	created, err := h.CreateGrant(context.Background(), CreateGrantCommand{StudentID: "s1", Amount: 30})
	require.NoError(t, err)

	_, err = h.UpdateGrant(context.Background(), UpdateGrantCommand{
		GrantID: created.Grant.ID, NewAmount: 20, NewStudentID: "s2",
	})
	require.NoError(t, err)

	// The debited original student and the newly credited one both get a
	// balance event, so the leaderboard never keeps a stale score.
	corrected := make(map[string]shared.BalanceChangedEvent)
	for _, e := range pub.byType(shared.EventGrantCorrected) {
		bc := e.(shared.BalanceChangedEvent)
		corrected[bc.StudentID] = bc
	}
	require.Contains(t, corrected, "s1")
	require.Contains(t, corrected, "s2")
	assert.Equal(t, -30, corrected["s1"].Delta)
	assert.Equal(t, 0, corrected["s1"].NewBalance)
	assert.Equal(t, 25, corrected["s2"].NewBalance)
}

func TestUpdateGrant_RollbackWhenReverseUnderflows(t *testing.T) {
	store := newFakeGrantStore()
	store.addStudent("s1", 0)

	h := NewGrantHandler(store, nil, nil)

	created, err := h.CreateGrant(context.Background(), CreateGrantCommand{StudentID: "s1", Amount: 30})
	require.NoError(t, err)

	// A purchase spent the granted points; balance is now 5, so reversing
	// the full 30 would cross the floor.
	store.balances["s1"] = 5

	_, err = h.UpdateGrant(context.Background(), UpdateGrantCommand{
		GrantID: created.Grant.ID, NewAmount: 10,
	})
	require.Error(t, err)
	assert.True(t, shared.IsInsufficientFunds(err))

	// Nothing moved.
	assert.Equal(t, 5, store.balances["s1"])
	assert.Equal(t, 30, store.grants[created.Grant.ID].Amount)
}

func TestUpdateGrant_NotFound(t *testing.T) {
	h := NewGrantHandler(newFakeGrantStore(), nil, nil)

	_, err := h.UpdateGrant(context.Background(), UpdateGrantCommand{GrantID: "ghost", NewAmount: 5})
	assert.True(t, shared.IsNotFound(err))
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETE & RESET
// ══════════════════════════════════════════════════════════════════════════════

func TestDeleteGrant_RevokesCredit(t *testing.T) {
	store := newFakeGrantStore()
	store.addStudent("s1", 0)

	pub := &capturingPublisher{}
	h := NewGrantHandler(store, pub, nil)

	created, err := h.CreateGrant(context.Background(), CreateGrantCommand{StudentID: "s1", Amount: 30})
	require.NoError(t, err)

	err = h.DeleteGrant(context.Background(), created.Grant.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, store.balances["s1"])
	assert.Empty(t, store.grants)
	assert.Len(t, pub.byType(shared.EventPointsRevoked), 1)
}

func TestDeleteGrant_RollbackWhenSpent(t *testing.T) {
	store := newFakeGrantStore()
	store.addStudent("s1", 0)

	h := NewGrantHandler(store, nil, nil)

	created, err := h.CreateGrant(context.Background(), CreateGrantCommand{StudentID: "s1", Amount: 30})
	require.NoError(t, err)

	store.balances["s1"] = 10 // partially spent

	err = h.DeleteGrant(context.Background(), created.Grant.ID)
	require.Error(t, err)
	assert.True(t, shared.IsInsufficientFunds(err))

	// The grant record survives the failed revoke.
	assert.Equal(t, 10, store.balances["s1"])
	assert.Len(t, store.grants, 1)
}

func TestResetAllBalances(t *testing.T) {
	store := newFakeGrantStore()
	store.addStudent("s1", 120)
	store.addStudent("s2", 45)
	store.addStudent("s3", 0)

	pub := &capturingPublisher{}
	h := NewGrantHandler(store, pub, nil)

	// Seed a grant so we can verify records survive the reset.
	_, err := h.CreateGrant(context.Background(), CreateGrantCommand{StudentID: "s1", Amount: 10})
	require.NoError(t, err)

	affected, err := h.ResetAllBalances(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), affected)
	for _, id := range []string{"s1", "s2", "s3"} {
		assert.Equal(t, 0, store.balances[id])
	}
	assert.Len(t, store.grants, 1, "reset zeroes balances only, never the ledger")
	assert.Len(t, pub.byType(shared.EventBalancesReset), 1)
}
