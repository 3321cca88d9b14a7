package billing_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	domhacienda "github.com/jhoicas/Comprobantes-api/internal/domain/hacienda"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
	"github.com/jhoicas/Comprobantes-api/pkg/logger"
)

func newAllocator(maxAttempts int) *billing.ConsecutiveAllocator {
	return billing.NewConsecutiveAllocator(billing.AllocatorConfig{MaxAttempts: maxAttempts}, nil, logger.Nop())
}

func TestNextSequence_Formato(t *testing.T) {
	counters := newMemoryCounters()
	alloc := newAllocator(0)

	seq, err := alloc.NextSequence(context.Background(), counters, "empresa-1", entity.KindInvoice)
	require.NoError(t, err)
	assert.Equal(t, "00100001010000000001", seq)

	seq, err = alloc.NextSequence(context.Background(), counters, "empresa-1", entity.KindTicket)
	require.NoError(t, err)
	assert.Equal(t, "00100001040000000001", seq, "cada tipo tiene su propio contador")

	seq, err = alloc.NextSequence(context.Background(), counters, "empresa-1", entity.KindInvoice)
	require.NoError(t, err)
	assert.Equal(t, "00100001010000000002", seq)
}

func TestNextSequence_CienConcurrentesSinDuplicados(t *testing.T) {
	counters := newMemoryCounters()
	alloc := newAllocator(0)

	const callers = 100
	results := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seq, err := alloc.NextSequence(context.Background(), counters, "empresa-1", entity.KindInvoice)
			assert.NoError(t, err)
			results[i] = seq
		}(i)
	}
	wg.Wait()

	numbers := make([]int64, 0, callers)
	seen := map[string]bool{}
	for _, seq := range results {
		require.Len(t, seq, domhacienda.SequenceLength)
		assert.False(t, seen[seq], "consecutivo repetido: %s", seq)
		seen[seq] = true
		parts, err := domhacienda.ParseSequence(seq)
		require.NoError(t, err)
		numbers = append(numbers, parts.Number)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for i, n := range numbers {
		assert.Equal(t, int64(i+1), n, "la numeración debe ser contigua y estrictamente creciente")
	}
}

func TestNextSequence_ReintentaContencion(t *testing.T) {
	counters := newMemoryCounters()
	counters.contentions = 2
	seq, err := newAllocator(5).NextSequence(context.Background(), counters, "empresa-1", entity.KindCreditNote)
	require.NoError(t, err)
	assert.Equal(t, "00100001030000000001", seq)
	assert.Equal(t, int32(3), counters.calls.Load())
}

func TestNextSequence_PresupuestoAgotado(t *testing.T) {
	counters := newMemoryCounters()
	counters.contentions = -1
	_, err := newAllocator(3).NextSequence(context.Background(), counters, "empresa-1", entity.KindInvoice)
	require.ErrorIs(t, err, domain.ErrAllocation)
	assert.Equal(t, int32(3), counters.calls.Load())
}

func TestNextSequence_ErrorNoTransitorioNoReintenta(t *testing.T) {
	counters := newMemoryCounters()
	counters.err = errors.New("conexión cerrada")
	_, err := newAllocator(5).NextSequence(context.Background(), counters, "empresa-1", entity.KindInvoice)
	require.ErrorIs(t, err, domain.ErrAllocation)
	assert.Equal(t, int32(1), counters.calls.Load())
}

func TestNextSequence_Desbordamiento(t *testing.T) {
	counters := newMemoryCounters()
	counters.values[repository.CounterKey{
		CompanyID: "empresa-1",
		KindCode:  "01",
		Branch:    domhacienda.DefaultBranch,
		Terminal:  domhacienda.DefaultTerminal,
	}] = domhacienda.MaxSequenceNumber

	_, err := newAllocator(0).NextSequence(context.Background(), counters, "empresa-1", entity.KindInvoice)
	assert.ErrorIs(t, err, domain.ErrAllocation)
}

func TestNextSequence_EntradaInvalida(t *testing.T) {
	_, err := newAllocator(0).NextSequence(context.Background(), newMemoryCounters(), "", entity.KindInvoice)
	assert.ErrorIs(t, err, domain.ErrAllocation)

	_, err = newAllocator(0).NextSequence(context.Background(), newMemoryCounters(), "empresa-1", entity.DocumentKind("recibo"))
	assert.ErrorIs(t, err, domain.ErrAllocation)
}
