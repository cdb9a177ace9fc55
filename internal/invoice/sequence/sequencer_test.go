package sequence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/billfold/internal/invoice/domain"
	dbpkg "github.com/smallbiznis/billfold/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := dbpkg.NewTest()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&domain.InvoiceSequence{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

var now = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

func TestFirstAllocationIsOne(t *testing.T) {
	conn := newTestDB(t)
	s := New()
	ctx := context.Background()

	current, err := s.Current(ctx, conn, "tenant-a", 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(0), current)

	number, err := s.Allocate(ctx, conn, "tenant-a", "INV", 2025, now)
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-0001", number)

	number, err = s.Allocate(ctx, conn, "tenant-a", "INV", 2025, now)
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-0002", number)

	current, err = s.Current(ctx, conn, "tenant-a", 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(2), current)
}

func TestSequencesAreScopedByTenantAndYear(t *testing.T) {
	conn := newTestDB(t)
	s := New()
	ctx := context.Background()

	_, err := s.Next(ctx, conn, "tenant-a", 2025, now)
	require.NoError(t, err)
	_, err = s.Next(ctx, conn, "tenant-a", 2025, now)
	require.NoError(t, err)

	seq, err := s.Next(ctx, conn, "tenant-b", 2025, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	seq, err = s.Next(ctx, conn, "tenant-a", 2026, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}

func TestRolledBackAllocationIsReturned(t *testing.T) {
	conn := newTestDB(t)
	s := New()
	ctx := context.Background()

	_, err := s.Next(ctx, conn, "tenant-a", 2025, now)
	require.NoError(t, err)

	rollback := assert.AnError
	err = conn.Transaction(func(tx *gorm.DB) error {
		if _, err := s.Next(ctx, tx, "tenant-a", 2025, now); err != nil {
			return err
		}
		return rollback
	})
	require.ErrorIs(t, err, rollback)

	current, err := s.Current(ctx, conn, "tenant-a", 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current)
}

func TestConcurrentAllocationsAreDistinct(t *testing.T) {
	conn := newTestDB(t)
	s := New()
	ctx := context.Background()

	const workers = 25
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]int)
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var number string
			err := conn.Transaction(func(tx *gorm.DB) error {
				var err error
				number, err = s.Allocate(ctx, tx, "tenant-a", "INV", 2025, now)
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers[number]++
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Len(t, numbers, workers)
	for number, count := range numbers {
		assert.Equal(t, 1, count, number)
	}

	current, err := s.Current(ctx, conn, "tenant-a", 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(workers), current)
}

func TestWidensPastFourDigits(t *testing.T) {
	conn := newTestDB(t)
	s := New()
	ctx := context.Background()

	require.NoError(t, conn.Create(&domain.InvoiceSequence{
		TenantID: "tenant-a", Year: 2025, Sequence: 9999, CreatedAt: now, UpdatedAt: now,
	}).Error)

	number, err := s.Allocate(ctx, conn, "tenant-a", "INV", 2025, now)
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-10000", number)
}
