package commands

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/coinkong/internal/clock"
	"github.com/ksred/coinkong/internal/config"
	"github.com/ksred/coinkong/internal/exchange"
	"github.com/ksred/coinkong/internal/journal"
	"github.com/ksred/coinkong/internal/notify"
	"github.com/ksred/coinkong/internal/observability"
	"github.com/ksred/coinkong/internal/quote"
	"github.com/ksred/coinkong/internal/random"
	"github.com/ksred/coinkong/internal/swap"
	"github.com/ksred/coinkong/internal/types"
)

const owner = "owner-1"

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type recordingLauncher struct {
	mu       sync.Mutex
	launched []string
}

func (l *recordingLauncher) Launch(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launched = append(l.launched, id)
}

type staticHistory struct {
	events []journal.Event
	err    error
}

func (h staticHistory) History(context.Context, string) ([]journal.Event, error) {
	return h.events, h.err
}

type harness struct {
	cfg      *config.Store
	registry *swap.Registry
	launcher *recordingLauncher
	metrics  *observability.Metrics
	svc      *Service
}

// Midpoint draws: jitter 1.0, exchange fee 0.2%
func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.NewDefaultStore(owner)
	h := &harness{
		cfg:      cfg,
		registry: swap.NewRegistry(),
		launcher: &recordingLauncher{},
		metrics:  observability.NewMetrics("test"),
	}
	engine := quote.NewEngine(cfg, random.NewScripted([]float64{0.5}, nil))
	h.svc = NewService(cfg, engine, h.registry, h.launcher, clock.NewFake(epoch)).WithMetrics(h.metrics)
	return h
}

func TestSwap_BTCtoETH(t *testing.T) {
	h := newHarness(t)

	record, err := h.svc.Swap(context.Background(), "alice", 100, "btc", "eth")
	require.NoError(t, err)

	fromAmount := 100.0 / 35000
	estimated := fromAmount * 15.2
	assert.Equal(t, types.StatusPending, record.Status)
	assert.Equal(t, "BTC", record.FromCurrency)
	assert.Equal(t, "ETH", record.ToCurrency)
	assert.InDelta(t, 0.002857, record.FromAmount, 1e-6)
	assert.InDelta(t, 15.2, record.ExchangeRate, 1e-9)
	assert.InDelta(t, estimated, record.EstimatedAmount, 1e-12)
	assert.InDelta(t, 0.5, record.PlatformFeePercent, 1e-9)
	assert.InDelta(t, 0.2, record.ExchangeFeePercent, 1e-9)
	assert.InDelta(t, estimated*(1-0.007), record.ToAmount, 1e-12)
	assert.Equal(t, types.PlaceholderSourceAddress, record.SourceAddress)
	assert.Equal(t, types.PlaceholderDestinationAddress, record.DestinationAddress)
	assert.Equal(t, epoch, record.CreatedAt)
	assert.Regexp(t, `^KONG-1704110400-\d+$`, record.ID)

	stored, err := h.registry.Get(record.ID)
	require.NoError(t, err)
	assert.Equal(t, *record, stored)
	assert.Equal(t, []string{record.ID}, h.launcher.launched)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.SwapsCreated.WithLabelValues("BTC-ETH")))
}

func TestSwap_IDsAreUnique(t *testing.T) {
	h := newHarness(t)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		record, err := h.svc.Swap(context.Background(), "alice", 10, "BTC", "ETH")
		require.NoError(t, err)
		assert.False(t, seen[record.ID], "duplicate id %s", record.ID)
		seen[record.ID] = true
	}
}

func TestSwap_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		usd     float64
		from    string
		to      string
		field   string
		message string
		target  error
	}{
		{name: "unknown source", usd: 100, from: "ABC", to: "ETH", field: "from_currency", message: "Invalid source currency: ABC. Use /supported_tokens to see available options."},
		{name: "unknown target", usd: 100, from: "BTC", to: "xyz", field: "to_currency", message: "Invalid target currency: XYZ. Use /supported_tokens to see available options."},
		{name: "same currency before amount", usd: 0, from: "BTC", to: "btc", field: "to_currency", message: "Source and target currencies cannot be the same."},
		{name: "zero amount", usd: 0, from: "BTC", to: "ETH", field: "usd_amount", message: "Amount must be greater than zero."},
		{name: "negative amount", usd: -5, from: "BTC", to: "ETH", field: "usd_amount", message: "Amount must be greater than zero."},
		{name: "below minimum", usd: 0.5, from: "BTC", to: "ETH", field: "usd_amount", message: "Amount is below the minimum required ($1 USD)."},
		{name: "pair missing from rate table", usd: 100, from: "LTC", to: "XRP", target: types.ErrPairNotSupported},
		{name: "amount overflows conversion", usd: 1e308, from: "DOGE", to: "BTC", target: types.ErrConversionFailed},
		{name: "infinite amount", usd: math.Inf(1), from: "BTC", to: "ETH", target: types.ErrConversionFailed},
		{name: "NaN amount", usd: math.NaN(), from: "BTC", to: "ETH", field: "usd_amount", message: "Amount must be greater than zero."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			record, err := h.svc.Swap(context.Background(), "alice", tt.usd, tt.from, tt.to)
			require.Error(t, err)
			assert.Nil(t, record)

			if tt.target != nil {
				assert.True(t, errors.Is(err, tt.target))
			} else {
				var ve *types.ValidationError
				require.True(t, errors.As(err, &ve))
				assert.Equal(t, tt.field, ve.Field)
				assert.Equal(t, tt.message, ve.Message)
			}

			assert.Empty(t, h.registry.All())
			assert.Empty(t, h.launcher.launched)
		})
	}
}

func TestSwap_Access(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.cfg.Blacklist("mallory")
	h.cfg.Whitelist("mallory")
	_, err := h.svc.Swap(ctx, "mallory", 100, "BTC", "ETH")
	assert.True(t, errors.Is(err, types.ErrAccessDenied))

	require.NoError(t, h.svc.Pause(owner))
	_, err = h.svc.Swap(ctx, "alice", 100, "BTC", "ETH")
	assert.True(t, errors.Is(err, types.ErrMaintenance))

	_, err = h.svc.Swap(ctx, owner, 100, "BTC", "ETH")
	assert.NoError(t, err)

	added, err := h.svc.Whitelist(owner, "alice")
	require.NoError(t, err)
	assert.True(t, added)
	_, err = h.svc.Swap(ctx, "alice", 100, "BTC", "ETH")
	assert.NoError(t, err)

	require.NoError(t, h.svc.Resume(owner))
	_, err = h.svc.Swap(ctx, "bob", 100, "BTC", "ETH")
	assert.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.SwapsRejected.WithLabelValues("access")))
}

func TestSetFee(t *testing.T) {
	h := newHarness(t)

	err := h.svc.SetFee(owner, 150)
	assert.True(t, types.IsValidation(err))
	assert.InDelta(t, 0.5, h.cfg.FeePercent(), 1e-9)

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		err = h.svc.SetFee(owner, bad)
		assert.True(t, types.IsValidation(err), "%v", bad)
	}
	assert.InDelta(t, 0.5, h.cfg.FeePercent(), 1e-9)

	err = h.svc.SetFee("alice", 10)
	assert.True(t, errors.Is(err, types.ErrNotOwner))
	assert.InDelta(t, 0.5, h.cfg.FeePercent(), 1e-9)

	require.NoError(t, h.svc.SetFee(owner, 10))
	assert.InDelta(t, 10, h.cfg.FeePercent(), 1e-9)

	record, err := h.svc.Swap(context.Background(), "alice", 100, "BTC", "ETH")
	require.NoError(t, err)
	assert.InDelta(t, 10, record.PlatformFeePercent, 1e-9)
	assert.InDelta(t, record.EstimatedAmount*0.10, record.PlatformFee, 1e-12)
}

func TestOwnerCommands_RequireOwner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.True(t, errors.Is(h.svc.Pause("alice"), types.ErrNotOwner))
	assert.True(t, errors.Is(h.svc.Resume("alice"), types.ErrNotOwner))
	_, err := h.svc.Whitelist("alice", "bob")
	assert.True(t, errors.Is(err, types.ErrNotOwner))
	_, err = h.svc.Blacklist("alice", "bob")
	assert.True(t, errors.Is(err, types.ErrNotOwner))
	_, err = h.svc.ShowOrder(ctx, "alice", "KONG-1-1")
	assert.True(t, errors.Is(err, types.ErrNotOwner))
	_, err = h.svc.UserOrders("alice", "bob")
	assert.True(t, errors.Is(err, types.ErrNotOwner))

	assert.False(t, h.cfg.Paused())
	assert.False(t, h.cfg.IsBlacklisted("bob"))
	assert.Equal(t, 6.0, testutil.ToFloat64(h.metrics.CommandsTotal.WithLabelValues("pause", "error"))+
		testutil.ToFloat64(h.metrics.CommandsTotal.WithLabelValues("resume", "error"))+
		testutil.ToFloat64(h.metrics.CommandsTotal.WithLabelValues("whitelist", "error"))+
		testutil.ToFloat64(h.metrics.CommandsTotal.WithLabelValues("blacklist", "error"))+
		testutil.ToFloat64(h.metrics.CommandsTotal.WithLabelValues("show_order", "error"))+
		testutil.ToFloat64(h.metrics.CommandsTotal.WithLabelValues("user_orders", "error")))
}

func TestLists_Idempotent(t *testing.T) {
	h := newHarness(t)

	added, err := h.svc.Blacklist(owner, "mallory")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = h.svc.Blacklist(owner, "mallory")
	require.NoError(t, err)
	assert.False(t, added)

	_, err = h.svc.Whitelist(owner, "  ")
	assert.True(t, types.IsValidation(err))
}

func TestStatus(t *testing.T) {
	h := newHarness(t)

	record, err := h.svc.Swap(context.Background(), "alice", 100, "BTC", "ETH")
	require.NoError(t, err)

	view, err := h.svc.Status("alice", record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, view.ID)
	assert.Equal(t, "⏳ Pending", view.StatusLabel)
	assert.Equal(t, "$100.00", view.USDAmount)
	assert.Equal(t, "0.00285714 BTC", view.From)
	assert.Equal(t, "1 BTC = 15.2 ETH", view.ExchangeRate)

	_, err = h.svc.Status(owner, record.ID)
	assert.NoError(t, err)

	_, err = h.svc.Status("bob", record.ID)
	assert.True(t, errors.Is(err, types.ErrNotSwapOwner))

	_, err = h.svc.Status("alice", "KONG-0-0")
	assert.True(t, errors.Is(err, types.ErrSwapNotFound))

	h.cfg.Blacklist("alice")
	_, err = h.svc.Status("alice", record.ID)
	assert.True(t, errors.Is(err, types.ErrAccessDenied))
}

func TestShowOrderAndUserOrders(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.svc.Swap(ctx, "alice", 100, "BTC", "ETH")
	require.NoError(t, err)
	_, err = h.svc.Swap(ctx, "bob", 50, "ETH", "BTC")
	require.NoError(t, err)
	second, err := h.svc.Swap(ctx, "alice", 25, "BTC", "SOL")
	require.NoError(t, err)

	events := []journal.Event{{SwapID: first.ID, FromStatus: "pending", ToStatus: "initiating"}}
	h.svc.WithHistory(staticHistory{events: events})

	details, err := h.svc.ShowOrder(ctx, owner, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, details.View.ID)
	assert.Equal(t, *first, details.Swap)
	assert.Equal(t, events, details.History)

	_, err = h.svc.ShowOrder(ctx, owner, "KONG-0-0")
	assert.True(t, errors.Is(err, types.ErrSwapNotFound))

	// journal errors degrade to an empty history
	h.svc.WithHistory(staticHistory{err: errors.New("db gone")})
	details, err = h.svc.ShowOrder(ctx, owner, first.ID)
	require.NoError(t, err)
	assert.Empty(t, details.History)

	views, err := h.svc.UserOrders(owner, "alice")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, first.ID, views[0].ID)
	assert.Equal(t, second.ID, views[1].ID)

	views, err = h.svc.UserOrders(owner, "nobody")
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestInformationalCommands(t *testing.T) {
	h := newHarness(t)

	tokens := h.svc.SupportedTokens()
	require.Len(t, tokens, 9)
	assert.Equal(t, "BTC", tokens[0].Symbol)

	support := h.svc.Support()
	assert.Equal(t, 1.0, support.MinimumSwapUSD)
	assert.Equal(t, 0.5, support.PlatformFeePercent)
	assert.NotEmpty(t, support.Contact)

	help := h.svc.Help()
	assert.Len(t, help.UserCommands, 5)
	assert.Len(t, help.OwnerCommands, 7)
}

func TestSwap_RunsToTerminalState(t *testing.T) {
	cfg := config.NewDefaultStore(owner)
	rnd := random.New(7)
	clk := clock.NewFake(epoch)
	registry := swap.NewRegistry()

	router := exchange.NewRouter(cfg, rnd, clk, 2*time.Second, 0)
	proc := swap.NewProcessor(registry, router, notify.LogNotifier{}, clk, rnd, swap.DefaultOptions())
	svc := NewService(cfg, quote.NewEngine(cfg, rnd), registry, proc, clk)

	record, err := svc.Swap(context.Background(), "alice", 100, "BTC", "ETH")
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, record.Status)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, proc.Wait(ctx))

	view, err := svc.Status("alice", record.ID)
	require.NoError(t, err)
	assert.Contains(t, []string{"completed", "failed"}, view.Status)
	assert.NotEmpty(t, view.Exchange)
	assert.NotEmpty(t, view.CompletedAt)
	assert.False(t, registry.IsActive(record.ID))
	assert.Len(t, registry.All(), 1)
}
