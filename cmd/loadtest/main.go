// Command loadtest drives a running member-qa service with a rotating set
// of questions and prints throughput, latency percentiles, and status code
// counts when the run ends.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"
)

var questions = []string{
	"Who wants to go to Japan?",
	"Where is Sophia going this weekend?",
	"When is the trip to London?",
	"How many people are joining dinner?",
	"How many cabanas does Marcus need?",
	"What are the dinner options?",
	"Which restaurant is the group going to?",
	"Why did Hunter cancel the charter?",
	"Who asked about the yacht in Monaco?",
	"Where is the gallery showing the Basquiat?",
	"When is the private view?",
	"How many drivers are needed in Paris?",
	"Who booked the Aspen chalet?",
	"What are the options for the weekend?",
	"Tell me about the beach club",
}

// tally accumulates one worker's results. Workers never share a tally, so
// no locking is needed; main merges them after all workers return.
type tally struct {
	requests  int64
	succeeded int64
	failed    int64
	notFound  int64
	latencies []time.Duration
	byStatus  map[int]int64
}

func newTally() *tally {
	return &tally{byStatus: map[int]int64{}}
}

func (t *tally) merge(o *tally) {
	t.requests += o.requests
	t.succeeded += o.succeeded
	t.failed += o.failed
	t.notFound += o.notFound
	t.latencies = append(t.latencies, o.latencies...)
	for code, n := range o.byStatus {
		t.byStatus[code] += n
	}
}

func main() {
	base := flag.String("url", "http://localhost:8080", "base URL of the member-qa service")
	workers := flag.Int("workers", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "how long to run")
	flag.Parse()

	fmt.Println("member-qa load test")
	fmt.Printf("  target    %s\n", *base)
	fmt.Printf("  workers   %d\n", *workers)
	fmt.Printf("  duration  %s\n", *duration)
	fmt.Printf("  questions %d\n\n", len(questions))

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: *workers,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	go progress(ctx)

	tallies := make(chan *tally, *workers)
	for i := range *workers {
		go func() { tallies <- run(ctx, client, *base, i) }()
	}
	total := newTally()
	for range *workers {
		total.merge(<-tallies)
	}
	fmt.Println(" done")
	fmt.Println()

	report(total, *duration)
	if total.requests == 0 {
		fmt.Println("no requests completed; is the service running?")
		os.Exit(1)
	}
}

// run asks questions in a loop until ctx expires, rotating through the
// question list from an offset so workers do not ask in lockstep. A request
// cut short by the deadline is dropped rather than counted as a failure.
func run(ctx context.Context, client *http.Client, base string, offset int) *tally {
	t := newTally()
	for i := offset; ctx.Err() == nil; i++ {
		question := questions[i%len(questions)]
		started := time.Now()
		status, notFound, err := ask(ctx, client, base, question)
		if err != nil {
			if ctx.Err() == nil {
				t.requests++
				t.failed++
			}
			continue
		}
		t.requests++
		t.latencies = append(t.latencies, time.Since(started))
		t.byStatus[status]++
		if status == http.StatusOK {
			t.succeeded++
			if notFound {
				t.notFound++
			}
		} else {
			t.failed++
		}
	}
	return t
}

func ask(ctx context.Context, client *http.Client, base, question string) (status int, notFound bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/ask?q="+url.QueryEscape(question), nil)
	if err != nil {
		return 0, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, false, err
	}
	var out struct {
		Answer string `json:"answer"`
	}
	if json.Unmarshal(body, &out) == nil && out.Answer == "not found" {
		notFound = true
	}
	return resp.StatusCode, notFound, nil
}

func progress(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	fmt.Print("running")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Print(".")
		}
	}
}

func report(t *tally, elapsed time.Duration) {
	fmt.Printf("requests   %d total, %d ok, %d failed, %d answered not found\n",
		t.requests, t.succeeded, t.failed, t.notFound)
	if t.requests > 0 {
		fmt.Printf("throughput %.1f req/s\n", float64(t.requests)/elapsed.Seconds())
	}

	if len(t.latencies) > 0 {
		slices.Sort(t.latencies)
		fmt.Printf("latency    min %s  p50 %s  p90 %s  p95 %s  p99 %s  max %s\n",
			t.latencies[0],
			pct(t.latencies, 50), pct(t.latencies, 90),
			pct(t.latencies, 95), pct(t.latencies, 99),
			t.latencies[len(t.latencies)-1])
	}

	if len(t.byStatus) > 0 {
		parts := make([]string, 0, len(t.byStatus))
		for _, code := range slices.Sorted(maps.Keys(t.byStatus)) {
			parts = append(parts, fmt.Sprintf("%d:%d", code, t.byStatus[code]))
		}
		fmt.Printf("status     %s\n", strings.Join(parts, "  "))
	}
}

// pct returns the nearest-rank percentile of an ascending latency slice.
func pct(sorted []time.Duration, p int) time.Duration {
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
