package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"quantfuse/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

func TestUpsertBarsBatchesStatements(t *testing.T) {
	batchResults := &stubBatchResults{}
	pool := &stubPool{batchResults: batchResults}
	repo := NewPriceRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	bars := []domain.PriceBar{
		{Symbol: "TCS", Date: time.Unix(0, 0), Close: 3500},
		{Symbol: "INFY", Date: time.Unix(86400, 0), Close: 1500},
	}
	if err := repo.UpsertBars(context.Background(), bars); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.queuedBatch == nil || pool.queuedBatch.Len() != len(bars) {
		t.Fatalf("expected batch of size %d", len(bars))
	}
	if batchResults.execCalls != len(bars) {
		t.Fatalf("expected %d Exec calls, got %d", len(bars), batchResults.execCalls)
	}
}

func TestUpsertBarsEmptyIsNoop(t *testing.T) {
	pool := &stubPool{}
	repo := NewPriceRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))
	if err := repo.UpsertBars(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.queuedBatch != nil {
		t.Fatal("expected no batch for empty input")
	}
}

func TestGetBarsReturnsRows(t *testing.T) {
	rows := [][]any{
		{"TCS", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 3500.0},
	}
	pool := &stubPool{rowsData: rows}
	repo := NewPriceRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	bars, err := repo.GetBars(context.Background(), "TCS", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 1 || bars[0].Symbol != "TCS" || bars[0].Close != 3500.0 {
		t.Fatalf("unexpected bars: %+v", bars)
	}
}

func TestGetBarsInRange(t *testing.T) {
	now := time.Now().UTC()
	rows := [][]any{
		{"INFY", now, 1500.0},
	}
	pool := &stubPool{rowsData: rows}
	repo := NewPriceRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	bars, err := repo.GetBarsInRange(context.Background(), "INFY", now.AddDate(0, 0, -30), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 1 || bars[0].Symbol != "INFY" {
		t.Fatalf("unexpected bars: %+v", bars)
	}
}

type stubPool struct {
	batchResults pgx.BatchResults
	queuedBatch  *pgx.Batch
	rowsData     [][]any
	execSQL      []string
}

func (s *stubPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execSQL = append(s.execSQL, sql)
	return pgconn.CommandTag{}, nil
}

func (s *stubPool) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	s.queuedBatch = b
	if s.batchResults != nil {
		return s.batchResults
	}
	return &stubBatchResults{}
}

func (s *stubPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if s.rowsData == nil {
		return &stubRows{}, nil
	}
	dataCopy := make([][]any, len(s.rowsData))
	for i := range s.rowsData {
		row := make([]any, len(s.rowsData[i]))
		copy(row, s.rowsData[i])
		dataCopy[i] = row
	}
	return &stubRows{data: dataCopy}, nil
}

func (s *stubPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return &stubRow{}
}

type stubBatchResults struct {
	execCalls int
}

func (s *stubBatchResults) Exec() (pgconn.CommandTag, error) {
	s.execCalls++
	return pgconn.CommandTag{}, nil
}

func (s *stubBatchResults) Query() (pgx.Rows, error) { return &stubRows{}, nil }

func (s *stubBatchResults) QueryRow() pgx.Row { return &stubRow{} }

func (s *stubBatchResults) Close() error { return nil }

type stubRows struct {
	data [][]any
	idx  int
}

func (r *stubRows) Close() {}

func (r *stubRows) Err() error { return nil }

func (r *stubRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (r *stubRows) Next() bool {
	if len(r.data) == 0 || r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.data) {
		return fmt.Errorf("invalid scan index")
	}
	row := r.data[r.idx-1]
	for i, d := range dest {
		switch ptr := d.(type) {
		case *string:
			*ptr = row[i].(string)
		case *time.Time:
			*ptr = row[i].(time.Time)
		case *float64:
			*ptr = row[i].(float64)
		case *int:
			*ptr = row[i].(int)
		default:
			return fmt.Errorf("unsupported dest type %T", d)
		}
	}
	return nil
}

func (r *stubRows) Values() ([]any, error) { return nil, nil }

func (r *stubRows) RawValues() [][]byte { return nil }

func (r *stubRows) Conn() *pgx.Conn { return nil }

type stubRow struct{}

func (stubRow) Scan(dest ...any) error { return nil }
