package engine_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/stock-monitor/internal/engine"
	"github.com/donaldgifford/stock-monitor/internal/notify"
	notifyMocks "github.com/donaldgifford/stock-monitor/internal/notify/mocks"
	"github.com/donaldgifford/stock-monitor/internal/shopee"
	shopeeMocks "github.com/donaldgifford/stock-monitor/internal/shopee/mocks"
	"github.com/donaldgifford/stock-monitor/internal/state"
	stateMocks "github.com/donaldgifford/stock-monitor/internal/state/mocks"
	"github.com/donaldgifford/stock-monitor/pkg/logger"
	domain "github.com/donaldgifford/stock-monitor/pkg/types"
)

var testItem = domain.TrackedItem{ShopID: "581472460", ItemID: "28841260015"}

func snapshot(stock int64) *domain.Snapshot {
	s := domain.NewSnapshot("Suno AI Pro", stock, decimal.NewFromInt(150000))
	s.Strategy = shopee.StrategyStandard
	return &s
}

// sentMessages records every message the notifier receives.
type sentMessages struct {
	msgs []notify.Message
}

func (s *sentMessages) record(_ context.Context, m notify.Message) error {
	s.msgs = append(s.msgs, m)
	return nil
}

func (s *sentMessages) reset() { s.msgs = nil }

func newEngine(
	t *testing.T,
	f shopee.ProductFetcher,
	st state.Store,
	items ...domain.TrackedItem,
) (*engine.Engine, *sentMessages) {
	t.Helper()

	sent := &sentMessages{}
	n := notifyMocks.NewMockNotifier(t)
	n.EXPECT().Send(mock.Anything, mock.Anything).RunAndReturn(sent.record).Maybe()

	d := notify.NewDispatcher(n,
		notify.WithPriorityRepeat(3, 0),
		notify.WithDispatcherLogger(logger.Discard()),
	)
	mb := notify.NewMessageBuilder("https://shopee.co.id")

	if len(items) == 0 {
		items = []domain.TrackedItem{testItem}
	}

	eng := engine.NewEngine(f, st, d, mb, items,
		engine.WithLogger(logger.Discard()),
		engine.WithItemDelay(0),
	)
	return eng, sent
}

func TestEngine_RunCycle_Scenario(t *testing.T) {
	t.Parallel()

	f := shopeeMocks.NewMockProductFetcher(t)
	f.EXPECT().Fetch(mock.Anything, testItem).Return(snapshot(10), nil).Once()
	f.EXPECT().Fetch(mock.Anything, testItem).Return(snapshot(0), nil).Once()
	f.EXPECT().Fetch(mock.Anything, testItem).
		Return(nil, shopee.ErrAllStrategiesFailed).Once()
	f.EXPECT().Fetch(mock.Anything, testItem).Return(snapshot(3), nil).Once()

	store := state.NewFileStore(
		filepath.Join(t.TempDir(), "product_state.json"),
		state.WithFileLogger(logger.Discard()),
	)
	eng, sent := newEngine(t, f, store)
	ctx := context.Background()
	key := testItem.Key()

	persisted := func() domain.AvailabilityState {
		st, err := store.Load(ctx)
		require.NoError(t, err)
		return st
	}

	// Cycle 1: unseen item becomes the baseline, no notification.
	report, err := eng.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AvailabilityState{key: true}, persisted())
	assert.Empty(t, report.Events)
	assert.Empty(t, sent.msgs)
	assert.True(t, eng.Ready())

	// Cycle 2: sold out, one ordinary notification.
	report, err = eng.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AvailabilityState{key: false}, persisted())
	require.Len(t, report.Events, 1)
	assert.False(t, report.Events[0].Current)
	require.Len(t, sent.msgs, 1)
	assert.Contains(t, sent.msgs[0].Text, "SOLD OUT")
	assert.False(t, sent.msgs[0].Priority)
	sent.reset()

	// Cycle 3: fetch fails, state untouched, nothing sent.
	report, err = eng.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AvailabilityState{key: false}, persisted())
	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, report.Events)
	assert.Empty(t, sent.msgs)
	require.Len(t, report.Results, 1)
	assert.Contains(t, report.Results[0].Error, "all strategies failed")

	// Cycle 4: back in stock, one priority notification delivered three times.
	report, err = eng.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AvailabilityState{key: true}, persisted())
	require.Len(t, report.Events, 1)
	assert.True(t, report.Events[0].Current)
	assert.Equal(t, 1, report.Notified)
	require.Len(t, sent.msgs, 3)
	for _, m := range sent.msgs {
		assert.True(t, m.Priority)
		assert.Contains(t, m.Text, "BACK IN STOCK")
		assert.Contains(t, m.Text, "Only 3 left")
	}

	assert.Equal(t, domain.AvailabilityState{key: true}, eng.State())
}

func TestEngine_RunCycle_FailureKeepsOtherKeys(t *testing.T) {
	t.Parallel()

	other := domain.TrackedItem{ShopID: "1", ItemID: "2"}

	f := shopeeMocks.NewMockProductFetcher(t)
	f.EXPECT().Fetch(mock.Anything, testItem).Return(nil, errors.New("blocked")).Once()
	f.EXPECT().Fetch(mock.Anything, other).Return(snapshot(1), nil).Once()

	st := stateMocks.NewMockStore(t)
	st.EXPECT().Load(mock.Anything).
		Return(domain.AvailabilityState{testItem.Key(): false, other.Key(): true, "9_9": true}, nil).Once()
	st.EXPECT().
		Save(mock.Anything, domain.AvailabilityState{testItem.Key(): false, other.Key(): true, "9_9": true}).
		Return(nil).Once()

	eng, sent := newEngine(t, f, st, testItem, other)

	report, err := eng.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, sent.msgs)
}

func TestEngine_RunCycle_LoadErrorUsesMemory(t *testing.T) {
	t.Parallel()

	f := shopeeMocks.NewMockProductFetcher(t)
	f.EXPECT().Fetch(mock.Anything, testItem).Return(snapshot(5), nil).Once()
	f.EXPECT().Fetch(mock.Anything, testItem).Return(snapshot(0), nil).Once()

	st := stateMocks.NewMockStore(t)
	st.EXPECT().Load(mock.Anything).Return(domain.AvailabilityState{}, nil).Once()
	st.EXPECT().Load(mock.Anything).Return(nil, errors.New("connection refused")).Once()
	st.EXPECT().Save(mock.Anything, mock.Anything).Return(nil).Twice()

	eng, sent := newEngine(t, f, st)
	ctx := context.Background()

	_, err := eng.RunCycle(ctx)
	require.NoError(t, err)

	report, err := eng.RunCycle(ctx)
	require.NoError(t, err)
	require.Len(t, report.Events, 1)
	assert.Len(t, sent.msgs, 1)
}

func TestEngine_RunCycle_NoSaveUntilStateLoaded(t *testing.T) {
	t.Parallel()

	f := shopeeMocks.NewMockProductFetcher(t)
	f.EXPECT().Fetch(mock.Anything, testItem).Return(snapshot(2), nil).Twice()

	// The first load fails after a restart. Saving the in-memory map then
	// would prune the persisted "9_9" key, so no Save may happen until a
	// load succeeds.
	st := stateMocks.NewMockStore(t)
	st.EXPECT().Load(mock.Anything).Return(nil, errors.New("connection refused")).Once()
	st.EXPECT().Load(mock.Anything).Return(domain.AvailabilityState{"9_9": false}, nil).Once()
	st.EXPECT().
		Save(mock.Anything, domain.AvailabilityState{"9_9": false, testItem.Key(): true}).
		Return(nil).Once()

	eng, sent := newEngine(t, f, st)
	ctx := context.Background()

	report, err := eng.RunCycle(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Events)
	assert.Equal(t, domain.AvailabilityState{testItem.Key(): true}, eng.State())

	_, err = eng.RunCycle(ctx)
	require.NoError(t, err)
	assert.Empty(t, sent.msgs)
}

func TestEngine_RunCycle_SaveErrorIsNotFatal(t *testing.T) {
	t.Parallel()

	f := shopeeMocks.NewMockProductFetcher(t)
	f.EXPECT().Fetch(mock.Anything, testItem).Return(snapshot(1), nil).Once()

	st := stateMocks.NewMockStore(t)
	st.EXPECT().Load(mock.Anything).Return(domain.AvailabilityState{}, nil).Once()
	st.EXPECT().Save(mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	eng, _ := newEngine(t, f, st)

	_, err := eng.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.AvailabilityState{testItem.Key(): true}, eng.State())
}

func TestEngine_RunCycle_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	other := domain.TrackedItem{ShopID: "1", ItemID: "2"}

	f := shopeeMocks.NewMockProductFetcher(t)
	f.EXPECT().Fetch(mock.Anything, testItem).
		RunAndReturn(func(context.Context, domain.TrackedItem) (*domain.Snapshot, error) {
			cancel()
			return snapshot(1), nil
		}).Once()

	st := stateMocks.NewMockStore(t)
	st.EXPECT().Load(mock.Anything).Return(domain.AvailabilityState{}, nil).Once()
	st.EXPECT().Save(mock.Anything, domain.AvailabilityState{testItem.Key(): true}).Return(nil).Once()

	eng, _ := newEngine(t, f, st, testItem, other)

	_, err := eng.RunCycle(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, eng.Ready())
}

func TestEngine_Messages(t *testing.T) {
	t.Parallel()

	f := shopeeMocks.NewMockProductFetcher(t)
	st := stateMocks.NewMockStore(t)
	eng, sent := newEngine(t, f, st)
	ctx := context.Background()

	assert.True(t, eng.SendStartup(ctx, 5*time.Minute))
	assert.True(t, eng.SendStopped(ctx, "shutdown"))
	eng.ReportFailure(ctx, errors.New("boom"), time.Minute)
	eng.SendHeartbeat(ctx)

	require.Len(t, sent.msgs, 4)
	assert.True(t, strings.Contains(sent.msgs[0].Text, "started"))
	assert.True(t, strings.Contains(sent.msgs[1].Text, "stopped"))
	assert.True(t, strings.Contains(sent.msgs[2].Text, "boom"))
	assert.True(t, strings.Contains(sent.msgs[3].Text, "heartbeat"))

	assert.Equal(t, []domain.TrackedItem{testItem}, eng.Items())
	assert.Nil(t, eng.LastReport())
}
