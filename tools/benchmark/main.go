package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/victorgomez09/portal/internal/session"
)

// Measures authenticated request latency. Every request passes the auth gate, which
// re-reads the user, so this is the cost floor of any protected endpoint.
func main() {
	baseURL := flag.String("url", "http://localhost:8080", "API base URL")
	path := flag.String("path", "/api/auth/verify", "authenticated path to request")
	email := flag.String("email", "", "account email")
	password := flag.String("password", os.Getenv("PORTAL_BENCH_PASSWORD"), "account password")
	concurrency := flag.Int("c", 10, "Number of concurrent requests")
	requests := flag.Int("n", 1000, "Total number of requests")
	duration := flag.Duration("d", 0, "Duration of the test")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("-email and -password (or PORTAL_BENCH_PASSWORD) are required")
	}

	ctx := context.Background()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	m, err := session.New(session.Options{
		BaseURL:    *baseURL,
		Primary:    session.NewMemoryStore(),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	})
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close()

	if _, err := m.Login(ctx, *email, *password); err != nil {
		log.Fatalf("login: %v", err)
	}

	var (
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, *requests)
		statuses  = make(map[int]int)
		errCount  int
	)

	client := m.Client()
	target := *baseURL + *path
	perWorker := *requests / *concurrency

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < *concurrency; i++ {
		g.Go(func() error {
			for j := 0; j < perWorker && gctx.Err() == nil; j++ {
				req, err := http.NewRequestWithContext(gctx, http.MethodGet, target, nil)
				if err != nil {
					return err
				}
				requestStart := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(requestStart)

				mu.Lock()
				if err != nil {
					if gctx.Err() == nil {
						errCount++
					}
				} else {
					statuses[resp.StatusCode]++
					latencies = append(latencies, elapsed)
				}
				mu.Unlock()

				if resp != nil {
					io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
	taken := time.Since(start)

	fmt.Printf("\nBenchmark Results:\n")
	fmt.Printf("URL: %s\n", target)
	fmt.Printf("Concurrency Level: %d\n", *concurrency)
	fmt.Printf("Time taken: %v\n", taken)
	fmt.Printf("Complete requests: %d\n", len(latencies))
	fmt.Printf("Failed requests: %d\n", errCount)
	for code, n := range statuses {
		fmt.Printf("  HTTP %d: %d\n", code, n)
	}
	if len(latencies) == 0 {
		return
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	var total time.Duration
	for _, d := range latencies {
		total += d
	}
	fmt.Printf("Requests per second: %.2f\n", float64(len(latencies))/taken.Seconds())
	fmt.Printf("Mean latency: %v\n", total/time.Duration(len(latencies)))
	fmt.Printf("Min latency: %v\n", latencies[0])
	fmt.Printf("p95 latency: %v\n", latencies[len(latencies)*95/100])
	fmt.Printf("Max latency: %v\n", latencies[len(latencies)-1])
	fmt.Printf("Session state after run: %s\n", m.State())
}
