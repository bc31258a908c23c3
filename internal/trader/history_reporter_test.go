package trader_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"fx-breakout-trader/internal/metrics"
	"fx-breakout-trader/internal/model"
	"fx-breakout-trader/internal/trader"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockHistorySource struct {
	GetHistoryOrdersFunc func(ctx context.Context, from, to time.Time) ([]model.HistoryRecord, error)
}

func (m *mockHistorySource) GetHistoryOrders(ctx context.Context, from, to time.Time) ([]model.HistoryRecord, error) {
	if m.GetHistoryOrdersFunc != nil {
		return m.GetHistoryOrdersFunc(ctx, from, to)
	}
	return nil, nil
}

func historyRecords(n int) []model.HistoryRecord {
	records := make([]model.HistoryRecord, n)
	for i := range records {
		records[i] = model.HistoryRecord{
			ID:       fmt.Sprintf("order-%d", i+1),
			Symbol:   "EURUSD",
			Type:     "ORDER_TYPE_BUY",
			DoneTime: testNow.Add(time.Duration(i-n) * time.Minute),
		}
	}
	return records
}

func TestHistoryReporter_Report(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		records     []model.HistoryRecord
		err         error
		wantIDs     []string
		wantNotices int
		wantErrors  int
	}{
		{
			name:    "eight records: last five in original order",
			records: historyRecords(8),
			wantIDs: []string{"order-4", "order-5", "order-6", "order-7", "order-8"},
		},
		{
			name:    "fewer than limit: all reported",
			records: historyRecords(3),
			wantIDs: []string{"order-1", "order-2", "order-3"},
		},
		{
			name:        "no records: exactly one notice",
			records:     nil,
			wantNotices: 1,
		},
		{
			name:       "fetch error: logged",
			err:        errors.New("gateway unavailable"),
			wantErrors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.DebugLevel)
			m := metrics.NewMetrics()
			var gotFrom, gotTo time.Time
			source := &mockHistorySource{
				GetHistoryOrdersFunc: func(ctx context.Context, from, to time.Time) ([]model.HistoryRecord, error) {
					gotFrom, gotTo = from, to
					return tt.records, tt.err
				},
			}
			reporter := trader.NewHistoryReporter(source, time.Hour, 5, zap.New(core), m)

			reported := reporter.Report(context.Background(), testNow)

			assert.Equal(t, testNow.Add(-time.Hour), gotFrom)
			assert.Equal(t, testNow, gotTo)

			var ids []string
			for _, r := range reported {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, len(tt.wantIDs), logs.FilterMessage("Trade").Len())
			assert.Equal(t, tt.wantNotices, logs.FilterMessage("No recent trades found.").Len())

			errLogs := logs.FilterMessage("Failed to fetch trade history").All()
			require.Len(t, errLogs, tt.wantErrors)
			if tt.wantErrors > 0 {
				assert.Equal(t, zapcore.ErrorLevel, errLogs[0].Level)
			}
			assert.Equal(t, float64(tt.wantErrors), testutil.ToFloat64(m.HistoryFetchErrors))
		})
	}
}
