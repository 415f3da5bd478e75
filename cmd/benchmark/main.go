// Webhook load driver. Fires signed checkout.session.completed events at
// the webhook endpoint and reports acknowledgment throughput. Needs the
// same STRIPE_WEBHOOK_SECRET the server runs with.
package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	targetURL   string
	concurrency int
	duration    time.Duration
	secret      string
	badSigPct   int
)

// Metrics
var (
	totalRequests uint64
	success200    uint64
	rejected400   uint64
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.IntVar(&badSigPct, "badsig", 0, "Percent of requests sent with a corrupted signature")
}

func main() {
	flag.Parse()
	secret = os.Getenv("STRIPE_WEBHOOK_SECRET")
	if secret == "" {
		log.Fatal("STRIPE_WEBHOOK_SECRET is required")
	}

	log.Printf("Starting Benchmark | Workers: %d | Duration: %s | Bad signatures: %d%%", concurrency, duration, badSigPct)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

func worker(wg *sync.WaitGroup, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		sessionID := "cs_bench_" + uuid.NewString()
		payload := eventPayload(sessionID)

		ts := time.Now().Unix()
		sig := signPayload(payload, ts)
		if badSigPct > 0 && rand.Intn(100) < badSigPct {
			sig = "deadbeef" + sig[8:]
		}
		header := fmt.Sprintf("t=%d,v1=%s", ts, sig)

		req, _ := http.NewRequest("POST", targetURL+"/products/webhook", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("stripe-signature", header)

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch resp.StatusCode {
		case 200:
			atomic.AddUint64(&success200, 1)
		case 400:
			atomic.AddUint64(&rejected400, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func eventPayload(sessionID string) []byte {
	event := map[string]interface{}{
		"id":   "evt_" + uuid.NewString(),
		"type": "checkout.session.completed",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":           sessionID,
				"amount_total": int64(rand.Intn(100000) + 1),
				"customer_details": map[string]interface{}{
					"email": "bench@example.com",
				},
			},
		},
	}
	body, _ := json.Marshal(event)
	return body
}

// signPayload computes the provider's v1 signature: HMAC-SHA256 over
// "<timestamp>.<payload>" keyed with the shared secret.
func signPayload(payload []byte, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	s200 := atomic.LoadUint64(&success200)
	r400 := atomic.LoadUint64(&rejected400)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()

	results := map[string]interface{}{
		"duration_sec":   d.Seconds(),
		"total_requests": total,
		"throughput_tps": tps,
		"acknowledged":   s200,
		"rejected_sig":   r400,
		"errors":         fErr,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	file, _ := os.Create("results_webhook.json")
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
