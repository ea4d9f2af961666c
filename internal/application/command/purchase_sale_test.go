package command

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/auction"
	"github.com/bilim-hub/bilim-points-hub/internal/domain/shared"
	"github.com/bilim-hub/bilim-points-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY TRANSACTIONAL FAKE
// ══════════════════════════════════════════════════════════════════════════════

// fakeAuctionStore implements auction.Atomic with snapshot rollback, so a
// failing transaction leaves no partial effect, exactly like the real store.
// InTx serializes transactions under a mutex, mimicking row locks.
type fakeAuctionStore struct {
	mu       sync.Mutex
	products map[string]*auction.Product
	sales    map[string]*auction.SaleRecord
	balances map[string]int
}

func newFakeAuctionStore() *fakeAuctionStore {
	return &fakeAuctionStore{
		products: make(map[string]*auction.Product),
		sales:    make(map[string]*auction.SaleRecord),
		balances: make(map[string]int),
	}
}

func (f *fakeAuctionStore) addProduct(p auction.Product) {
	f.products[p.ID] = &p
}

func (f *fakeAuctionStore) addStudent(id string, balance int) {
	f.balances[id] = balance
}

func (f *fakeAuctionStore) InTx(ctx context.Context, fn func(ctx context.Context, store auction.TxStore) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapProducts := make(map[string]*auction.Product, len(f.products))
	for k, v := range f.products {
		cp := *v
		snapProducts[k] = &cp
	}
	snapSales := make(map[string]*auction.SaleRecord, len(f.sales))
	for k, v := range f.sales {
		cp := *v
		snapSales[k] = &cp
	}
	snapBalances := make(map[string]int, len(f.balances))
	for k, v := range f.balances {
		snapBalances[k] = v
	}

	if err := fn(ctx, (*fakeAuctionTx)(f)); err != nil {
		f.products = snapProducts
		f.sales = snapSales
		f.balances = snapBalances
		return err
	}
	return nil
}

// fakeAuctionTx exposes the store's maps as an auction.TxStore. The InTx
// mutex is already held, so methods mutate directly.
type fakeAuctionTx fakeAuctionStore

func (f *fakeAuctionTx) ProductByID(ctx context.Context, id string) (*auction.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, auction.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeAuctionTx) SaleByID(ctx context.Context, id string) (*auction.SaleRecord, error) {
	s, ok := f.sales[id]
	if !ok {
		return nil, auction.ErrSaleNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeAuctionTx) InsertSale(ctx context.Context, s *auction.SaleRecord) error {
	if _, ok := f.products[s.ProductID]; !ok {
		return auction.ErrProductNotFound
	}
	cp := *s
	f.sales[s.ID] = &cp
	return nil
}

func (f *fakeAuctionTx) UpdateSale(ctx context.Context, s *auction.SaleRecord) error {
	existing, ok := f.sales[s.ID]
	if !ok {
		return auction.ErrSaleNotFound
	}
	cp := *s
	cp.Date = existing.Date // date is immutable
	cp.CreatedAt = existing.CreatedAt
	f.sales[s.ID] = &cp
	return nil
}

func (f *fakeAuctionTx) DeleteSale(ctx context.Context, id string) error {
	if _, ok := f.sales[id]; !ok {
		return auction.ErrSaleNotFound
	}
	delete(f.sales, id)
	return nil
}

func (f *fakeAuctionTx) AdjustStock(ctx context.Context, productID string, delta int) error {
	p, ok := f.products[productID]
	if !ok {
		return auction.ErrProductNotFound
	}
	if p.Amount+delta < 0 {
		return auction.ErrInsufficientStock
	}
	p.Amount += delta
	return nil
}

func (f *fakeAuctionTx) AdjustBalance(ctx context.Context, studentID string, delta int) error {
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

func (f *fakeAuctionTx) StudentBalance(ctx context.Context, studentID string) (int, error) {
	b, ok := f.balances[studentID]
	if !ok {
		return 0, student.ErrStudentNotFound
	}
	return b, nil
}

// capturingPublisher records published events for assertions.
type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) byType(t shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

// checkConsistency asserts the core invariant: for every student, balance
// equals initial credit minus the sum of their current sales' prices, and
// for every product, stock equals initial amount minus its sale count.
func checkConsistency(t *testing.T, f *fakeAuctionStore, initialBalances map[string]int, initialStock map[string]int) {
	t.Helper()

	spent := make(map[string]int)
	sold := make(map[string]int)
	for _, s := range f.sales {
		spent[s.StudentID] += s.Price
		sold[s.ProductID]++
	}

	for id, initial := range initialBalances {
		assert.Equal(t, initial-spent[id], f.balances[id], "balance mismatch for student %s", id)
	}
	for id, initial := range initialStock {
		assert.Equal(t, initial-sold[id], f.products[id].Amount, "stock mismatch for product %s", id)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CREATE
// ══════════════════════════════════════════════════════════════════════════════

func TestCreateSale_Success(t *testing.T) {
	store := newFakeAuctionStore()
	store.addProduct(auction.Product{ID: "p1", Name: "Hoodie", StartPoint: 20, Amount: 2})
	store.addStudent("s1", 100)

	pub := &capturingPublisher{}
	h := NewPurchaseHandler(store, pub, nil)

	result, err := h.CreateSale(context.Background(), CreateSaleCommand{
		ProductID: "p1", StudentID: "s1", Price: 30,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Sale)

	assert.Equal(t, 70, result.BuyerBalance)
	assert.Equal(t, 70, store.balances["s1"])
	assert.Equal(t, 1, store.products["p1"].Amount)
	assert.Len(t, store.sales, 1)
	assert.NotEmpty(t, result.Sale.ID)
	assert.False(t, result.Sale.Date.IsZero())

	assert.Len(t, pub.byType(shared.EventSaleCompleted), 1)
	balanceEvents := pub.byType(shared.EventBalanceChanged)
	require.Len(t, balanceEvents, 1)
	bc := balanceEvents[0].(shared.BalanceChangedEvent)
	assert.Equal(t, "s1", bc.StudentID)
	assert.Equal(t, -30, bc.Delta)
	assert.Equal(t, 70, bc.NewBalance)

	checkConsistency(t, store, map[string]int{"s1": 100}, map[string]int{"p1": 2})
}

func TestCreateSale_PriceBelowStart(t *testing.T) {
	store := newFakeAuctionStore()
	store.addProduct(auction.Product{ID: "p1", Name: "Hoodie", StartPoint: 50, Amount: 2})
	store.addStudent("s1", 100)

	h := NewPurchaseHandler(store, nil, nil)

	_, err := h.CreateSale(context.Background(), CreateSaleCommand{
		ProductID: "p1", StudentID: "s1", Price: 49,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, auction.ErrPriceBelowStart)
	assert.True(t, shared.IsInvalidPrice(err))

	// Rejection leaves no trace.
	assert.Equal(t, 100, store.balances["s1"])
	assert.Equal(t, 2, store.products["p1"].Amount)
	assert.Empty(t, store.sales)
}

func TestCreateSale_PriceAtStartIsAccepted(t *testing.T) {
	store := newFakeAuctionStore()
	store.addProduct(auction.Product{ID: "p1", Name: "Hoodie", StartPoint: 50, Amount: 1})
	store.addStudent("s1", 100)

	h := NewPurchaseHandler(store, nil, nil)

	result, err := h.CreateSale(context.Background(), CreateSaleCommand{
		ProductID: "p1", StudentID: "s1", Price: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, result.BuyerBalance)
}

func TestCreateSale_InsufficientFunds(t *testing.T) {
	store := newFakeAuctionStore()
	store.addProduct(auction.Product{ID: "p1", Name: "Hoodie", StartPoint: 10, Amount: 2})
	store.addStudent("s1", 25)

	h := NewPurchaseHandler(store, nil, nil)

	_, err := h.CreateSale(context.Background(), CreateSaleCommand{
		ProductID: "p1", StudentID: "s1", Price: 30,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, student.ErrInsufficientPoints)
	assert.True(t, shared.IsInsufficientFunds(err))

	// Stock debit happened before the balance debit inside the transaction;
	// rollback must undo it.
	assert.Equal(t, 2, store.products["p1"].Amount)
	assert.Equal(t, 25, store.balances["s1"])
	assert.Empty(t, store.sales)
}

func TestCreateSale_OutOfStock(t *testing.T) {
	store := newFakeAuctionStore()
	store.addProduct(auction.Product{ID: "p1", Name: "Hoodie", StartPoint: 10, Amount: 0})
	store.addStudent("s1", 100)

	h := NewPurchaseHandler(store, nil, nil)

	_, err := h.CreateSale(context.Background(), CreateSaleCommand{
		ProductID: "p1", StudentID: "s1", Price: 30,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, auction.ErrInsufficientStock)
	assert.Equal(t, 100, store.balances["s1"])
	assert.Empty(t, store.sales)
}

func TestCreateSale_UnknownProduct(t *testing.T) {
	store := newFakeAuctionStore()
	store.addStudent("s1", 100)

	h := NewPurchaseHandler(store, nil, nil)

	_, err := h.CreateSale(context.Background(), CreateSaleCommand{
		ProductID: "ghost", StudentID: "s1", Price: 30,
	})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestCreateSale_Validation(t *testing.T) {
	h := NewPurchaseHandler(newFakeAuctionStore(), nil, nil)

	_, err := h.CreateSale(context.Background(), CreateSaleCommand{StudentID: "s1", Price: 10})
	assert.True(t, shared.IsValidation(err))

	_, err = h.CreateSale(context.Background(), CreateSaleCommand{ProductID: "p1", Price: 10})
	assert.True(t, shared.IsValidation(err))

	_, err = h.CreateSale(context.Background(), CreateSaleCommand{ProductID: "p1", StudentID: "s1", Price: -1})
	assert.True(t, shared.IsValidation(err))
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE
// ══════════════════════════════════════════════════════════════════════════════

func TestUpdateSale_PriceOnly(t *testing.T) {
	store := newFakeAuctionStore()
	store.addProduct(auction.Product{ID: "p1", Name: "Hoodie", StartPoint: 10, Amount: 3})
	store.addStudent("s1", 100)

	h := NewPurchaseHandler(store, nil, nil)

	created, err := h.CreateSale(context.Background(), CreateSaleCommand{
		ProductID: "p1", StudentID: "s1", Price: 30,
	})
	require.NoError(t, err)

	updated, err := h.UpdateSale(context.Background(), UpdateSaleCommand{
		SaleID: created.Sale.ID, NewPrice: 45,
	})
	require.NoError(t, err)

	// Net effect of reverse(+30) then apply(-45) is -15 on top of -30.
	assert.Equal(t, 55, updated.BuyerBalance)
	assert.Equal(t, 55, store.balances["s1"])

	// Stock is reversed (+1) and re-applied (-1): unchanged.
	assert.Equal(t, 2, store.products["p1"].Amount)

	// Date survives the correction.
	assert.Equal(t, created.Sale.Date, store.sales[created.Sale.ID].Date)

	checkConsistency(t, store, map[string]int{"s1": 100}, map[string]int{"p1": 3})
}

func TestUpdateSale_MoveToOtherProductAndBuyer(t *testing.T) {
	store := newFakeAuctionStore()
	store.addProduct(auction.Product{ID: "p1", Name: "Hoodie", StartPoint: 10, Amount: 3})
	store.addProduct(auction.Product{ID: "p2", Name: "Mug", StartPoint: 5, Amount: 1})
	store.addStudent("s1", 100)
	store.addStudent("s2", 40)

	h := NewPurchaseHandler(store, nil, nil)

	created, err := h.CreateSale(context.Background(), CreateSaleCommand{
		ProductID: "p1", StudentID: "s1", Price: 30,
	})
	require.NoError(t, err)

	updated, err := h.UpdateSale(context.Background(), UpdateSaleCommand{
		SaleID: created.Sale.ID, NewPrice: 20, NewProductID: "p2", NewStudentID: "s2",
	})
	require.NoError(t, err)

	// Original buyer refunded, original product restocked.
	assert.Equal(t, 100, store.balances["s1"])
	assert.Equal(t, 3, store.products["p1"].Amount)

	// New buyer charged, new product depleted.
	assert.Equal(t, 20, store.balances["s2"])
	assert.Equal(t, 0, store.products["p2"].Amount)
	assert.Equal(t, "s2", updated.Sale.StudentID)
	assert.Equal(t, "p2", updated.Sale.ProductID)

	checkConsistency(t, store, map[string]int{"s1": 100, "s2": 40}, map[string]int{"p1": 3, "p2": 1})
}

func TestUpdateSale_MoveToOtherBuyerPublishesBothBalances(t *testing.T) {
	store := newFakeAuctionStore()
	store.addProduct(auction.Product{ID: "p1", Name: "Hoodie", StartPoint: 10, Amount: 3})
	store.addStudent("s1", 100)
	store.addStudent("s2", 40)

	pub := &capturingPublisher{}
	h := NewPurchaseHandler(store, pub, nil)

	created, err := h.CreateSale(context.Background(), CreateSaleCommand{
		ProductID: "p1", StudentID: "s1", Price: 30,
	})
	require.NoError(t, err)

	_, err = h.UpdateSale(context.Background(), UpdateSaleCommand{
		SaleID: created.Sale.ID, NewPrice: 20, NewStudentID: "s2",
	})
	require.NoError(t, err)

	// The refunded original buyer and the newly charged one both get a
	// balance event, so the leaderboard never keeps a stale score.
	corrected := make(map[string]shared.BalanceChangedEvent)
	for _, e := range pub.byType(shared.EventBalanceChanged) {
		bc := e.(shared.BalanceChangedEvent)
		if bc.Reason == "sale_corrected" {
			corrected[bc.StudentID] = bc
		}
	}
	require.Contains(t, corrected, "s1")
	require.Contains(t, corrected, "s2")
	assert.Equal(t, +30, corrected["s1"].Delta)
	assert.Equal(t, 100, corrected["s1"].NewBalance)
	assert.Equal(t, 20, corrected["s2"].NewBalance)
}

func TestUpdateSale_SameBuyerPublishesOneBalance(t *testing.T) {
	store := newFakeAuctionStore()
	store.addProduct(auction.Product{ID: "p1", Name: "Hoodie", StartPoint: 10, Amount: 3})
	store.addStudent("s1", 100)

	pub := &capturingPublisher{}
	h := NewPurchaseHandler(store, pub, nil)

	created, err := h.CreateSale(context.Background(), CreateSaleCommand{
		ProductID: "p1", StudentID: "s1", Price: 30,
	})
	require.NoError(t, err)

	_, err = h.UpdateSale(context.Background(), UpdateSaleCommand{
		SaleID: created.Sale.ID, NewPrice: 45,
	})
	require.NoError(t, err)

	var corrected []shared.BalanceChangedEvent
	for _, e := range pub.byType(shared.EventBalanceChanged) {
		bc := e.(shared.BalanceChangedEvent)
		if bc.Reason == "sale_corrected" {
			corrected = append(corrected, bc)
		}
	}
	require.Len(t, corrected, 1)
	assert.Equal(t, "s1", corrected[0].StudentID)
	assert.Equal(t, 55, corrected[0].NewBalance)
}

func TestUpdateSale_PriceBelowTargetStart(t *testing.T) {
	store := newFakeAuctionStore()
	store.addProduct(auction.Product{ID: "p1", Name: "Hoodie", StartPoint: 10, Amount: 3})
	store.addProduct(auction.Product{ID: "p2", Name: "Rare", StartPoint: 90, Amount: 1})
	store.addStudent("s1", 100)

	h := NewPurchaseHandler(store, nil, nil)

	created, err := h.CreateSale(context.Background(), CreateSaleCommand{
		ProductID: "p1", StudentID: "s1", Price: 30,
	})
	require.NoError(t, err)

	_, err = h.UpdateSale(context.Background(), UpdateSaleCommand{
		SaleID: created.Sale.ID, NewPrice: 50, NewProductID: "p2",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, auction.ErrPriceBelowStart)

	// The original sale stands untouched.
	assert.Equal(t, 70, store.balances["s1"])
	assert.Equal(t, 2, store.products["p1"].Amount)
	assert.Equal(t, 1, store.products["p2"].Amount)
	assert.Equal(t, "p1", store.sales[created.Sale.ID].ProductID)
}

func TestUpdateSale_RollbackOnInsufficientFunds(t *testing.T) {
	store := newFakeAuctionStore()
	store.addProduct(auction.Product{ID: "p1", Name: "Hoodie", StartPoint: 10, Amount: 3})
	store.addStudent("s1", 50)

	h := NewPurchaseHandler(store, nil, nil)

	created, err := h.CreateSale(context.Background(), CreateSaleCommand{
		ProductID: "p1", StudentID: "s1", Price: 30,
	})
	require.NoError(t, err)

	// 20 left; reverse refunds 30, but the new price 60 exceeds 50.
	_, err = h.UpdateSale(context.Background(), UpdateSaleCommand{
		SaleID: created.Sale.ID, NewPrice: 60,
	})
	require.Error(t, err)
	assert.True(t, shared.IsInsufficientFunds(err))

	// Rollback restores the pre-update state, not the pre-create state.
	assert.Equal(t, 20, store.balances["s1"])
	assert.Equal(t, 2, store.products["p1"].Amount)
	assert.Equal(t, 30, store.sales[created.Sale.ID].Price)
}

func TestUpdateSale_NotFound(t *testing.T) {
	h := NewPurchaseHandler(newFakeAuctionStore(), nil, nil)

	_, err := h.UpdateSale(context.Background(), UpdateSaleCommand{SaleID: "ghost", NewPrice: 10})
	assert.True(t, shared.IsNotFound(err))
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETE
// ══════════════════════════════════════════════════════════════════════════════

func TestDeleteSale_RestoresStockAndBalance(t *testing.T) {
	store := newFakeAuctionStore()
	store.addProduct(auction.Product{ID: "p1", Name: "Hoodie", StartPoint: 10, Amount: 2})
	store.addStudent("s1", 100)

	pub := &capturingPublisher{}
	h := NewPurchaseHandler(store, pub, nil)

	created, err := h.CreateSale(context.Background(), CreateSaleCommand{
		ProductID: "p1", StudentID: "s1", Price: 30,
	})
	require.NoError(t, err)

	err = h.DeleteSale(context.Background(), created.Sale.ID)
	require.NoError(t, err)

	assert.Equal(t, 100, store.balances["s1"])
	assert.Equal(t, 2, store.products["p1"].Amount)
	assert.Empty(t, store.sales)
	assert.Len(t, pub.byType(shared.EventSaleReversed), 1)

	checkConsistency(t, store, map[string]int{"s1": 100}, map[string]int{"p1": 2})
}

func TestDeleteSale_NotFound(t *testing.T) {
	h := NewPurchaseHandler(newFakeAuctionStore(), nil, nil)

	err := h.DeleteSale(context.Background(), "ghost")
	assert.True(t, shared.IsNotFound(err))
}

func TestDeleteSale_EmptyID(t *testing.T) {
	h := NewPurchaseHandler(newFakeAuctionStore(), nil, nil)

	err := h.DeleteSale(context.Background(), "")
	assert.True(t, shared.IsValidation(err))
}

// ══════════════════════════════════════════════════════════════════════════════
// CONCURRENCY
// ══════════════════════════════════════════════════════════════════════════════

func TestCreateSale_ConcurrentLastUnit(t *testing.T) {
	store := newFakeAuctionStore()
	store.addProduct(auction.Product{ID: "p1", Name: "Hoodie", StartPoint: 10, Amount: 1})
	store.addStudent("s1", 100)
	store.addStudent("s2", 100)

	h := NewPurchaseHandler(store, nil, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, sid := range []string{"s1", "s2"} {
		wg.Add(1)
		go func(i int, sid string) {
			defer wg.Done()
			_, errs[i] = h.CreateSale(context.Background(), CreateSaleCommand{
				ProductID: "p1", StudentID: sid, Price: 20,
			})
		}(i, sid)
	}
	wg.Wait()

	// Exactly one purchase wins the last unit.
	var ok, rejected int
	for _, err := range errs {
		if err == nil {
			ok++
		} else if errors.Is(err, auction.ErrInsufficientStock) {
			rejected++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 0, store.products["p1"].Amount)
	assert.Len(t, store.sales, 1)

	checkConsistency(t, store, map[string]int{"s1": 100, "s2": 100}, map[string]int{"p1": 1})
}

// ══════════════════════════════════════════════════════════════════════════════
// SCENARIO
// ══════════════════════════════════════════════════════════════════════════════

func TestPurchaseLifecycle(t *testing.T) {
	store := newFakeAuctionStore()
	store.addProduct(auction.Product{ID: "p1", Name: "Hoodie", StartPoint: 10, Amount: 5})
	store.addProduct(auction.Product{ID: "p2", Name: "Mug", StartPoint: 5, Amount: 5})
	store.addStudent("s1", 200)
	store.addStudent("s2", 200)

	h := NewPurchaseHandler(store, nil, nil)
	ctx := context.Background()

	initialBalances := map[string]int{"s1": 200, "s2": 200}
	initialStock := map[string]int{"p1": 5, "p2": 5}

	a, err := h.CreateSale(ctx, CreateSaleCommand{ProductID: "p1", StudentID: "s1", Price: 50})
	require.NoError(t, err)
	checkConsistency(t, store, initialBalances, initialStock)

	b, err := h.CreateSale(ctx, CreateSaleCommand{ProductID: "p2", StudentID: "s2", Price: 15})
	require.NoError(t, err)
	checkConsistency(t, store, initialBalances, initialStock)

	_, err = h.UpdateSale(ctx, UpdateSaleCommand{SaleID: a.Sale.ID, NewPrice: 60})
	require.NoError(t, err)
	checkConsistency(t, store, initialBalances, initialStock)

	_, err = h.UpdateSale(ctx, UpdateSaleCommand{SaleID: b.Sale.ID, NewPrice: 25, NewStudentID: "s1"})
	require.NoError(t, err)
	checkConsistency(t, store, initialBalances, initialStock)

	require.NoError(t, h.DeleteSale(ctx, a.Sale.ID))
	checkConsistency(t, store, initialBalances, initialStock)

	require.NoError(t, h.DeleteSale(ctx, b.Sale.ID))
	checkConsistency(t, store, initialBalances, initialStock)

	assert.Equal(t, 200, store.balances["s1"])
	assert.Equal(t, 200, store.balances["s2"])
	assert.Empty(t, store.sales)
}
