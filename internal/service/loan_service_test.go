package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- Fakes ---

type fakeLoanRepo struct {
	loans  map[uint]*model.Loan
	nextID uint
}

func newFakeLoanRepo() *fakeLoanRepo {
	return &fakeLoanRepo{loans: make(map[uint]*model.Loan), nextID: 1}
}

func (f *fakeLoanRepo) Create(_ context.Context, loan *model.Loan) error {
	loan.ID = f.nextID
	f.nextID++
	cp := *loan
	f.loans[loan.ID] = &cp
	return nil
}

func (f *fakeLoanRepo) GetByID(_ context.Context, id uint) (*model.Loan, error) {
	loan, ok := f.loans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *loan
	return &cp, nil
}

func (f *fakeLoanRepo) GetByIDForUpdate(ctx context.Context, id uint) (*model.Loan, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeLoanRepo) Update(_ context.Context, loan *model.Loan) error {
	if _, ok := f.loans[loan.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *loan
	f.loans[loan.ID] = &cp
	return nil
}

func (f *fakeLoanRepo) List(_ context.Context, filter repository.LoanFilter) ([]model.Loan, int64, error) {
	var out []model.Loan
	for _, l := range f.loans {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.BorrowerID != 0 && l.BorrowerID != filter.BorrowerID {
			continue
		}
		if filter.ItemID != 0 && l.ItemID != filter.ItemID {
			continue
		}
		out = append(out, *l)
	}
	return out, int64(len(out)), nil
}

func (f *fakeLoanRepo) ListByBorrower(ctx context.Context, borrowerID uint, page, limit int) ([]model.Loan, int64, error) {
	return f.List(ctx, repository.LoanFilter{BorrowerID: borrowerID, Page: page, Limit: limit})
}

func (f *fakeLoanRepo) ListOverdue(_ context.Context, today time.Time) ([]model.Loan, error) {
	var out []model.Loan
	for _, l := range f.loans {
		if l.IsOverdue(today) {
			out = append(out, *l)
		}
	}
	return out, nil
}

type fakeItemRepo struct {
	items map[uint]*model.Item
}

func newFakeItemRepo(items ...*model.Item) *fakeItemRepo {
	f := &fakeItemRepo{items: make(map[uint]*model.Item)}
	for _, it := range items {
		cp := *it
		f.items[it.ID] = &cp
	}
	return f
}

func (f *fakeItemRepo) GetByID(_ context.Context, id uint) (*model.Item, error) {
	it, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *it
	return &cp, nil
}

func (f *fakeItemRepo) GetByIDForUpdate(ctx context.Context, id uint) (*model.Item, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeItemRepo) UpdateStatus(_ context.Context, id uint, status model.ItemStatus) error {
	it, ok := f.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	it.Status = status
	return nil
}

type fakeExtensionRepo struct {
	exts   []model.Extension
	nextID uint
}

func (f *fakeExtensionRepo) Create(_ context.Context, ext *model.Extension) error {
	f.nextID++
	ext.ID = f.nextID
	f.exts = append(f.exts, *ext)
	return nil
}

func (f *fakeExtensionRepo) ListByLoan(_ context.Context, loanID uint) ([]model.Extension, error) {
	var out []model.Extension
	for _, e := range f.exts {
		if e.LoanID == loanID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeTxManager runs the callback directly; the fakes have no real
// transactional state to roll back.
type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeRecorder struct {
	entries []ActivityEntry
}

func (f *fakeRecorder) Record(_ context.Context, entry ActivityEntry) {
	f.entries = append(f.entries, entry)
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// --- Harness ---

type loanFixture struct {
	svc      LoanService
	loans    *fakeLoanRepo
	items    *fakeItemRepo
	exts     *fakeExtensionRepo
	recorder *fakeRecorder
	now      time.Time
}

func newLoanFixture(t *testing.T, now time.Time, items ...*model.Item) *loanFixture {
	t.Helper()
	f := &loanFixture{
		loans:    newFakeLoanRepo(),
		items:    newFakeItemRepo(items...),
		exts:     &fakeExtensionRepo{},
		recorder: &fakeRecorder{},
		now:      now,
	}
	f.svc = NewLoanService(f.loans, f.items, f.exts, fakeTxManager{}, f.recorder, fixedClock{now: now})
	return f
}

func (f *loanFixture) seedLoan(t *testing.T, loan *model.Loan) uint {
	t.Helper()
	require.NoError(t, f.loans.Create(context.Background(), loan))
	return loan.ID
}

var testNow = time.Date(2024, time.May, 10, 9, 0, 0, 0, time.UTC)

// --- CreateLoan ---

func TestCreateLoan(t *testing.T) {
	ctx := context.Background()

	t.Run("success flips item to on_loan", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Name: "Projector", Status: model.ItemStatusAvailable})

		resp, err := f.svc.CreateLoan(ctx, 7, CreateLoanRequest{
			ItemID:            1,
			PlannedReturnDate: "2024-05-15",
			Purpose:           "team presentation",
		})
		require.NoError(t, err)
		assert.Equal(t, model.LoanStatusOnLoan, resp.Status)
		assert.Equal(t, uint(7), resp.BorrowerID)
		assert.Equal(t, uint(7), resp.HandlerID)
		assert.Equal(t, "good", resp.ConditionAtLoan)

		item, _ := f.items.GetByID(ctx, 1)
		assert.Equal(t, model.ItemStatusOnLoan, item.Status)

		require.Len(t, f.recorder.entries, 1)
		assert.Equal(t, model.ActionCreateLoan, f.recorder.entries[0].Action)
	})

	t.Run("item already on loan", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusOnLoan})

		_, err := f.svc.CreateLoan(ctx, 7, CreateLoanRequest{
			ItemID:            1,
			PlannedReturnDate: "2024-05-15",
			Purpose:           "x",
		})
		assert.ErrorIs(t, err, ErrItemUnavailable)
		assert.Empty(t, f.recorder.entries)
	})

	t.Run("item in maintenance", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusMaintenance})

		_, err := f.svc.CreateLoan(ctx, 7, CreateLoanRequest{
			ItemID:            1,
			PlannedReturnDate: "2024-05-15",
			Purpose:           "x",
		})
		assert.ErrorIs(t, err, ErrItemUnavailable)
	})

	t.Run("unknown item", func(t *testing.T) {
		f := newLoanFixture(t, testNow)

		_, err := f.svc.CreateLoan(ctx, 7, CreateLoanRequest{
			ItemID:            99,
			PlannedReturnDate: "2024-05-15",
			Purpose:           "x",
		})
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("malformed date", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusAvailable})

		_, err := f.svc.CreateLoan(ctx, 7, CreateLoanRequest{
			ItemID:            1,
			PlannedReturnDate: "15-05-2024",
			Purpose:           "x",
		})
		assert.ErrorIs(t, err, ErrInvalidDate)
	})

	t.Run("planned return today or earlier", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusAvailable})

		_, err := f.svc.CreateLoan(ctx, 7, CreateLoanRequest{
			ItemID:            1,
			PlannedReturnDate: "2024-05-10",
			Purpose:           "x",
		})
		assert.ErrorIs(t, err, ErrInvalidDate)

		_, err = f.svc.CreateLoan(ctx, 7, CreateLoanRequest{
			ItemID:            1,
			PlannedReturnDate: "2024-05-01",
			Purpose:           "x",
		})
		assert.ErrorIs(t, err, ErrInvalidDate)
	})
}

// --- SubmitReturn ---

func TestSubmitReturn(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, f *loanFixture, planned time.Time) uint {
		return f.seedLoan(t, &model.Loan{
			ItemID:          1,
			BorrowerID:      7,
			HandlerID:       7,
			BorrowedAt:      testNow.AddDate(0, 0, -10),
			PlannedReturnAt: planned,
			Status:          model.LoanStatusOnLoan,
		})
	}

	t.Run("on time return", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusOnLoan})
		id := seed(t, f, testNow.AddDate(0, 0, 2))

		resp, err := f.svc.SubmitReturn(ctx, id, 7, SubmitReturnRequest{
			ConditionAtReturn: "good",
			PhotoURL:          "https://cdn.example.com/return.jpg",
		})
		require.NoError(t, err)
		assert.Equal(t, model.LoanStatusPendingReturn, resp.Status)
		assert.Equal(t, 0, resp.DaysLate)
		assert.Equal(t, int64(0), resp.LateFee)

		// Item stays locked to the loan until an admin confirms
		item, _ := f.items.GetByID(ctx, 1)
		assert.Equal(t, model.ItemStatusOnLoan, item.Status)
	})

	t.Run("late return accrues fee", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusOnLoan})
		id := seed(t, f, testNow.AddDate(0, 0, -3))

		resp, err := f.svc.SubmitReturn(ctx, id, 7, SubmitReturnRequest{
			ConditionAtReturn: "scratched",
			Note:              "dropped it once",
			PhotoURL:          "https://cdn.example.com/return.jpg",
		})
		require.NoError(t, err)
		assert.Equal(t, 3, resp.DaysLate)
		assert.Equal(t, int64(15000), resp.LateFee)

		stored, _ := f.loans.GetByID(ctx, id)
		assert.Equal(t, int64(15000), stored.LateFee)
		require.NotNil(t, stored.ReturnNote)
		assert.Equal(t, "dropped it once", *stored.ReturnNote)
	})

	t.Run("missing photo evidence", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusOnLoan})
		id := seed(t, f, testNow.AddDate(0, 0, 2))

		_, err := f.svc.SubmitReturn(ctx, id, 7, SubmitReturnRequest{ConditionAtReturn: "good"})
		assert.ErrorIs(t, err, ErrMissingEvidence)
	})

	t.Run("not the borrower", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusOnLoan})
		id := seed(t, f, testNow.AddDate(0, 0, 2))

		_, err := f.svc.SubmitReturn(ctx, id, 8, SubmitReturnRequest{
			ConditionAtReturn: "good",
			PhotoURL:          "https://cdn.example.com/return.jpg",
		})
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("already pending", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusOnLoan})
		id := f.seedLoan(t, &model.Loan{
			ItemID: 1, BorrowerID: 7, HandlerID: 7,
			PlannedReturnAt: testNow.AddDate(0, 0, 2),
			Status:          model.LoanStatusPendingReturn,
		})

		_, err := f.svc.SubmitReturn(ctx, id, 7, SubmitReturnRequest{
			ConditionAtReturn: "good",
			PhotoURL:          "https://cdn.example.com/return.jpg",
		})
		assert.ErrorIs(t, err, ErrWrongState)
	})

	t.Run("unknown loan", func(t *testing.T) {
		f := newLoanFixture(t, testNow)
		_, err := f.svc.SubmitReturn(ctx, 99, 7, SubmitReturnRequest{
			ConditionAtReturn: "good",
			PhotoURL:          "https://cdn.example.com/return.jpg",
		})
		assert.ErrorIs(t, err, ErrLoanNotFound)
	})
}

// --- ConfirmReturn ---

func TestConfirmReturn(t *testing.T) {
	ctx := context.Background()

	seedPending := func(t *testing.T, f *loanFixture) uint {
		cond := "good"
		photo := "https://cdn.example.com/return.jpg"
		submitted := testNow.Add(-time.Hour)
		return f.seedLoan(t, &model.Loan{
			ItemID:            1,
			BorrowerID:        7,
			HandlerID:         7,
			PlannedReturnAt:   testNow.AddDate(0, 0, -2),
			ReturnSubmittedAt: &submitted,
			ConditionAtReturn: &cond,
			ReturnPhotoURL:    &photo,
			LateFee:           10000,
			Status:            model.LoanStatusPendingReturn,
		})
	}

	t.Run("approve finalizes and frees item", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusOnLoan})
		id := seedPending(t, f)

		resp, err := f.svc.ConfirmReturn(ctx, id, 2, model.RoleAdmin, ConfirmReturnRequest{Approve: true})
		require.NoError(t, err)
		assert.Equal(t, model.LoanStatusReturned, resp.Status)
		require.NotNil(t, resp.ConfirmedBy)
		assert.Equal(t, uint(2), *resp.ConfirmedBy)
		assert.NotNil(t, resp.ActualReturnAt)

		item, _ := f.items.GetByID(ctx, 1)
		assert.Equal(t, model.ItemStatusAvailable, item.Status)

		require.Len(t, f.recorder.entries, 1)
		assert.Equal(t, model.ActionConfirmReturn, f.recorder.entries[0].Action)
	})

	t.Run("reject clears evidence and fee", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusOnLoan})
		id := seedPending(t, f)

		_, err := f.svc.ConfirmReturn(ctx, id, 2, model.RoleAdmin, ConfirmReturnRequest{
			Approve: false,
			Note:    "photo does not show the item",
		})
		require.NoError(t, err)

		stored, _ := f.loans.GetByID(ctx, id)
		assert.Equal(t, model.LoanStatusOnLoan, stored.Status)
		assert.Nil(t, stored.ConditionAtReturn)
		assert.Nil(t, stored.ReturnPhotoURL)
		assert.Nil(t, stored.ReturnSubmittedAt)
		assert.Equal(t, int64(0), stored.LateFee)

		// Item stays with the borrower
		item, _ := f.items.GetByID(ctx, 1)
		assert.Equal(t, model.ItemStatusOnLoan, item.Status)

		require.Len(t, f.recorder.entries, 1)
		assert.Equal(t, model.ActionRejectReturn, f.recorder.entries[0].Action)
	})

	t.Run("non-admin caller", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusOnLoan})
		id := seedPending(t, f)

		_, err := f.svc.ConfirmReturn(ctx, id, 7, model.RoleUser, ConfirmReturnRequest{Approve: true})
		assert.ErrorIs(t, err, ErrNotAdmin)
	})

	t.Run("loan not pending", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusOnLoan})
		id := f.seedLoan(t, &model.Loan{
			ItemID: 1, BorrowerID: 7, HandlerID: 7,
			PlannedReturnAt: testNow.AddDate(0, 0, 2),
			Status:          model.LoanStatusOnLoan,
		})

		_, err := f.svc.ConfirmReturn(ctx, id, 2, model.RoleAdmin, ConfirmReturnRequest{Approve: true})
		assert.ErrorIs(t, err, ErrWrongState)
	})
}

// --- DirectReturn ---

func TestDirectReturn(t *testing.T) {
	ctx := context.Background()

	t.Run("borrower returns in one step", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusOnLoan})
		id := f.seedLoan(t, &model.Loan{
			ItemID: 1, BorrowerID: 7, HandlerID: 7,
			PlannedReturnAt: testNow.AddDate(0, 0, -1),
			Status:          model.LoanStatusOnLoan,
		})

		resp, err := f.svc.DirectReturn(ctx, id, 7, model.RoleUser, DirectReturnRequest{
			ConditionAtReturn: "good",
		})
		require.NoError(t, err)
		assert.Equal(t, model.LoanStatusReturned, resp.Status)
		assert.Equal(t, 1, resp.DaysLate)
		assert.Equal(t, int64(5000), resp.LateFee)

		item, _ := f.items.GetByID(ctx, 1)
		assert.Equal(t, model.ItemStatusAvailable, item.Status)
	})

	t.Run("admin can return on behalf of borrower", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusOnLoan})
		id := f.seedLoan(t, &model.Loan{
			ItemID: 1, BorrowerID: 7, HandlerID: 7,
			PlannedReturnAt: testNow.AddDate(0, 0, 2),
			Status:          model.LoanStatusOnLoan,
		})

		_, err := f.svc.DirectReturn(ctx, id, 2, model.RoleAdmin, DirectReturnRequest{
			ConditionAtReturn: "good",
		})
		assert.NoError(t, err)
	})

	t.Run("stranger forbidden", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusOnLoan})
		id := f.seedLoan(t, &model.Loan{
			ItemID: 1, BorrowerID: 7, HandlerID: 7,
			PlannedReturnAt: testNow.AddDate(0, 0, 2),
			Status:          model.LoanStatusOnLoan,
		})

		_, err := f.svc.DirectReturn(ctx, id, 8, model.RoleUser, DirectReturnRequest{
			ConditionAtReturn: "good",
		})
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("already returned", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusAvailable})
		id := f.seedLoan(t, &model.Loan{
			ItemID: 1, BorrowerID: 7, HandlerID: 7,
			PlannedReturnAt: testNow.AddDate(0, 0, 2),
			Status:          model.LoanStatusReturned,
		})

		_, err := f.svc.DirectReturn(ctx, id, 7, model.RoleUser, DirectReturnRequest{
			ConditionAtReturn: "good",
		})
		assert.ErrorIs(t, err, ErrWrongState)
	})

	t.Run("pending_return still allowed", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusOnLoan})
		id := f.seedLoan(t, &model.Loan{
			ItemID: 1, BorrowerID: 7, HandlerID: 7,
			PlannedReturnAt: testNow.AddDate(0, 0, 2),
			Status:          model.LoanStatusPendingReturn,
		})

		resp, err := f.svc.DirectReturn(ctx, id, 7, model.RoleUser, DirectReturnRequest{
			ConditionAtReturn: "good",
		})
		require.NoError(t, err)
		assert.Equal(t, model.LoanStatusReturned, resp.Status)
	})
}

// --- ExtendLoan ---

func TestExtendLoan(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, f *loanFixture, planned time.Time) uint {
		return f.seedLoan(t, &model.Loan{
			ItemID: 1, BorrowerID: 7, HandlerID: 7,
			PlannedReturnAt: planned,
			Status:          model.LoanStatusOnLoan,
		})
	}

	t.Run("success records history and moves date", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusOnLoan})
		planned := time.Date(2024, time.May, 12, 0, 0, 0, 0, time.UTC)
		id := seed(t, f, planned)

		resp, err := f.svc.ExtendLoan(ctx, id, 7, ExtendLoanRequest{
			NewPlannedReturnDate: "2024-05-20",
			Reason:               "project slipped a week",
		})
		require.NoError(t, err)
		assert.Equal(t, planned, resp.OldPlannedReturnAt)
		assert.Equal(t, time.Date(2024, time.May, 20, 0, 0, 0, 0, time.UTC), resp.NewPlannedReturnAt)

		stored, _ := f.loans.GetByID(ctx, id)
		assert.Equal(t, resp.NewPlannedReturnAt, stored.PlannedReturnAt)
		assert.Equal(t, model.LoanStatusOnLoan, stored.Status)

		exts, _ := f.exts.ListByLoan(ctx, id)
		require.Len(t, exts, 1)
		assert.Equal(t, "project slipped a week", exts[0].Reason)
	})

	t.Run("overdue loan can still be extended", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusOnLoan})
		id := seed(t, f, testNow.AddDate(0, 0, -5))

		_, err := f.svc.ExtendLoan(ctx, id, 7, ExtendLoanRequest{
			NewPlannedReturnDate: "2024-05-20",
			Reason:               "still needed",
		})
		assert.NoError(t, err)
	})

	t.Run("new date not after current", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusOnLoan})
		id := seed(t, f, time.Date(2024, time.May, 20, 0, 0, 0, 0, time.UTC))

		_, err := f.svc.ExtendLoan(ctx, id, 7, ExtendLoanRequest{
			NewPlannedReturnDate: "2024-05-20",
			Reason:               "x",
		})
		assert.ErrorIs(t, err, ErrInvalidDate)

		_, err = f.svc.ExtendLoan(ctx, id, 7, ExtendLoanRequest{
			NewPlannedReturnDate: "2024-05-15",
			Reason:               "x",
		})
		assert.ErrorIs(t, err, ErrInvalidDate)
	})

	t.Run("pending return cannot be extended", func(t *testing.T) {
		f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusOnLoan})
		id := f.seedLoan(t, &model.Loan{
			ItemID: 1, BorrowerID: 7, HandlerID: 7,
			PlannedReturnAt: testNow.AddDate(0, 0, 2),
			Status:          model.LoanStatusPendingReturn,
		})

		_, err := f.svc.ExtendLoan(ctx, id, 7, ExtendLoanRequest{
			NewPlannedReturnDate: "2024-05-20",
			Reason:               "x",
		})
		assert.ErrorIs(t, err, ErrWrongState)
	})
}

// --- Read surface ---

func TestListOverdue(t *testing.T) {
	ctx := context.Background()
	f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusOnLoan})

	f.seedLoan(t, &model.Loan{ItemID: 1, BorrowerID: 7, HandlerID: 7,
		PlannedReturnAt: testNow.AddDate(0, 0, -3), Status: model.LoanStatusOnLoan})
	f.seedLoan(t, &model.Loan{ItemID: 1, BorrowerID: 8, HandlerID: 8,
		PlannedReturnAt: testNow.AddDate(0, 0, 3), Status: model.LoanStatusOnLoan})
	f.seedLoan(t, &model.Loan{ItemID: 1, BorrowerID: 9, HandlerID: 9,
		PlannedReturnAt: testNow.AddDate(0, 0, -3), Status: model.LoanStatusReturned})

	loans, err := f.svc.ListOverdue(ctx)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, uint(7), loans[0].BorrowerID)
	assert.Equal(t, model.LoanStatusOverdue, loans[0].Status)
	assert.Equal(t, 3, loans[0].DaysLate)
}

func TestGetLoanIncludesExtensions(t *testing.T) {
	ctx := context.Background()
	f := newLoanFixture(t, testNow, &model.Item{ID: 1, Status: model.ItemStatusOnLoan})
	id := f.seedLoan(t, &model.Loan{
		ItemID: 1, BorrowerID: 7, HandlerID: 7,
		PlannedReturnAt: testNow.AddDate(0, 0, 5),
		Status:          model.LoanStatusOnLoan,
	})

	_, err := f.svc.ExtendLoan(ctx, id, 7, ExtendLoanRequest{
		NewPlannedReturnDate: "2024-05-25",
		Reason:               "longer trip",
	})
	require.NoError(t, err)

	detail, err := f.svc.GetLoan(ctx, id)
	require.NoError(t, err)
	require.Len(t, detail.Extensions, 1)
	assert.Equal(t, "longer trip", detail.Extensions[0].Reason)
}

func TestGetLoanNotFound(t *testing.T) {
	f := newLoanFixture(t, testNow)
	_, err := f.svc.GetLoan(context.Background(), 404)
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

// TestFullLifecycle walks one loan through borrow, late submission, rejection,
// resubmission and final approval.
func TestFullLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newLoanFixture(t, testNow, &model.Item{ID: 1, Name: "Camera", Status: model.ItemStatusAvailable})

	created, err := f.svc.CreateLoan(ctx, 7, CreateLoanRequest{
		ItemID:            1,
		PlannedReturnDate: "2024-05-12",
		Purpose:           "field documentation",
	})
	require.NoError(t, err)

	// Second borrower cannot take the same item
	_, err = f.svc.CreateLoan(ctx, 8, CreateLoanRequest{
		ItemID:            1,
		PlannedReturnDate: "2024-05-12",
		Purpose:           "also wants it",
	})
	assert.ErrorIs(t, err, ErrItemUnavailable)

	// First submission gets rejected
	_, err = f.svc.SubmitReturn(ctx, created.ID, 7, SubmitReturnRequest{
		ConditionAtReturn: "good",
		PhotoURL:          "https://cdn.example.com/blurry.jpg",
	})
	require.NoError(t, err)
	_, err = f.svc.ConfirmReturn(ctx, created.ID, 2, model.RoleAdmin, ConfirmReturnRequest{
		Approve: false,
		Note:    "photo too blurry",
	})
	require.NoError(t, err)

	// Resubmit and approve
	_, err = f.svc.SubmitReturn(ctx, created.ID, 7, SubmitReturnRequest{
		ConditionAtReturn: "good",
		PhotoURL:          "https://cdn.example.com/clear.jpg",
	})
	require.NoError(t, err)
	final, err := f.svc.ConfirmReturn(ctx, created.ID, 2, model.RoleAdmin, ConfirmReturnRequest{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, model.LoanStatusReturned, final.Status)

	item, _ := f.items.GetByID(ctx, 1)
	assert.Equal(t, model.ItemStatusAvailable, item.Status)

	// create, submit, reject, submit, confirm
	assert.Len(t, f.recorder.entries, 5)
}
