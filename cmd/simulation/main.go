package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ksred/coinkong/internal/notify"
	"github.com/ksred/coinkong/pkg/client"
)

const (
	minSwaps     = 15
	maxSwaps     = 60
	numWorkers   = 5
	pollInterval = time.Second
	swapDeadline = 2 * time.Minute
)

var (
	// pairs the stock rate table prices
	pairs = [][2]string{
		{"BTC", "ETH"}, {"ETH", "BTC"}, {"BTC", "LTC"}, {"LTC", "BTC"},
		{"ETH", "LTC"}, {"BTC", "SOL"}, {"SOL", "ETH"}, {"BTC", "DOGE"},
		{"BTC", "XMR"}, {"TRX", "BTC"},
	}
	users = []string{"sim-user-1", "sim-user-2", "sim-user-3", "sim-user-4"}
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// summary collects outcomes across workers
type summary struct {
	mu            sync.Mutex
	created       int
	rejected      int
	timedOut      int
	totalUSD      float64
	pairs         map[string]int
	outcomes      map[string]int
	exchanges     map[string]int
	notifications atomic.Int64
}

func newSummary() *summary {
	return &summary{
		pairs:     make(map[string]int),
		outcomes:  make(map[string]int),
		exchanges: make(map[string]int),
	}
}

// main drives a running bot API with random swaps from several users and
// reports outcomes and endpoint latency
func main() {
	baseURL := getenv("SIM_SERVER", "http://localhost:8080")
	ctx := context.Background()

	recorder := newStatsRecorder()
	api := client.New(baseURL, client.WithObserver(recorder.observe))
	if err := api.Authenticate(ctx, getenv("COINKONG_GATEWAY_API_KEY", "gateway-api-key"), getenv("COINKONG_GATEWAY_API_SECRET", "gateway-api-secret")); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	sum := newSummary()
	listenCtx, stopListening := context.WithCancel(ctx)
	defer stopListening()
	go listen(listenCtx, api, sum)

	if tokens, err := api.Tokens(ctx, users[0]); err == nil {
		log.Info().Int("tokens", len(tokens)).Msg("Supported tokens loaded")
	}

	targetSwaps := rand.Intn(maxSwaps-minSwaps) + minSwaps
	log.Info().Int("target_swaps", targetSwaps).Str("server", baseURL).Msg("Starting simulation")
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			runWorker(ctx, workerID, targetSwaps/numWorkers, api, sum)
		}(i)
	}
	wg.Wait()
	stopListening()

	duration := time.Since(start)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("🚀 SWAP SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf(`
📊 Swap Statistics
------------------
Created:          %d
Rejected:         %d
Timed out:        %d
Notifications:    %d
Total Volume:     $%.2f
Duration:         %v
`, sum.created, sum.rejected, sum.timedOut, sum.notifications.Load(), sum.totalUSD, duration.Round(time.Millisecond))

	printDistribution("📈 Pair Distribution", sum.pairs)
	printDistribution("🏁 Outcomes", sum.outcomes)
	printDistribution("🏛️ Exchanges", sum.exchanges)
	fmt.Println("\n" + strings.Repeat("=", 80))

	successRate := 0.0
	if sum.created > 0 {
		successRate = float64(sum.outcomes["completed"]) / float64(sum.created) * 100
	}
	log.Info().
		Float64("success_rate", successRate).
		Int("created", sum.created).
		Int("completed", sum.outcomes["completed"]).
		Float64("total_usd", sum.totalUSD).
		Dur("duration", duration).
		Msg("Simulation completed")

	recorder.printPerformanceStats()
}

// runWorker creates swaps for random users and follows each one until it
// reaches a terminal status
func runWorker(ctx context.Context, workerID, numSwaps int, api *client.Client, sum *summary) {
	logger := log.With().Int("worker_id", workerID).Logger()

	for i := 0; i < numSwaps; i++ {
		pair := pairs[rand.Intn(len(pairs))]
		user := users[rand.Intn(len(users))]
		usd := float64(rand.Intn(500) + 1)

		created, err := api.CreateSwap(ctx, user, usd, pair[0], pair[1])
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) {
				logger.Warn().Str("code", apiErr.Code).Str("message", apiErr.Message).Msg("Swap rejected")
			} else {
				logger.Error().Err(err).Msg("Failed to create swap")
			}
			sum.mu.Lock()
			sum.rejected++
			sum.mu.Unlock()
			continue
		}

		sum.mu.Lock()
		sum.created++
		sum.totalUSD += usd
		sum.pairs[pair[0]+"-"+pair[1]]++
		sum.mu.Unlock()

		logger.Info().
			Str("swap_id", created.Swap.ID).
			Str("user_id", user).
			Str("from", created.View.From).
			Str("to", created.View.To).
			Msg("Swap created")

		status, dex := follow(ctx, api, user, created.Swap.ID)
		sum.mu.Lock()
		if status == "" {
			sum.timedOut++
		} else {
			sum.outcomes[status]++
			if dex != "" {
				sum.exchanges[dex]++
			}
		}
		sum.mu.Unlock()

		logger.Info().Str("swap_id", created.Swap.ID).Str("status", status).Msg("Swap finished")
		time.Sleep(time.Duration(rand.Intn(500)) * time.Millisecond)
	}
}

// follow polls a swap until it is completed or failed. It returns an empty
// status when the swap did not finish in time.
func follow(ctx context.Context, api *client.Client, user, swapID string) (string, string) {
	deadline := time.Now().Add(swapDeadline)
	for time.Now().Before(deadline) {
		view, err := api.Status(ctx, user, swapID)
		if err == nil && (view.Status == "completed" || view.Status == "failed") {
			return view.Status, view.Exchange
		}
		time.Sleep(pollInterval)
	}
	return "", ""
}

// listen counts notifications pushed over the gateway websocket
func listen(ctx context.Context, api *client.Client, sum *summary) {
	header := map[string][]string{"Authorization": {"Bearer " + api.Token()}}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, api.WebsocketURL(""), header)
	if err != nil {
		log.Warn().Err(err).Msg("Notification stream unavailable")
		return
	}
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		var n notify.Notification
		if err := conn.ReadJSON(&n); err != nil {
			return
		}
		sum.notifications.Add(1)
		log.Debug().Str("swap_id", n.SwapID).Str("kind", string(n.Kind)).Msg("Notification received")
	}
}
