package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type attempt struct {
	Index    int
	Status   int
	Code     string
	Duration time.Duration
	Error    error
}

type envelope struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	var (
		base       string
		customerID string
		startsAt   string
		duration   time.Duration
		shift      time.Duration
		workers    int
		timeout    time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL including prefix")
	flag.StringVar(&customerID, "customer", "", "Customer ID to write appointments for (required)")
	flag.StringVar(&startsAt, "starts-at", "", "RFC3339 start of the first candidate, defaults to tomorrow 10:00 UTC")
	flag.DurationVar(&duration, "duration", time.Hour, "Length of every candidate")
	flag.DurationVar(&shift, "shift", 5*time.Minute, "Offset added per candidate; must stay below duration to overlap")
	flag.IntVar(&workers, "n", 10, "Number of concurrent creates")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	if customerID == "" {
		log.Fatal("-customer is required")
	}
	if workers < 2 {
		log.Fatal("-n must be at least 2")
	}
	if shift*time.Duration(workers-1) >= duration {
		log.Printf("warning: shift %s with %d workers leaves some candidates disjoint", shift, workers)
	}

	first, err := firstStart(startsAt)
	if err != nil {
		log.Fatalf("invalid -starts-at: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	url := fmt.Sprintf("%s/customers/%s/appointments", strings.TrimRight(base, "/"), customerID)

	results := make([]attempt, workers)
	gate := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := first.Add(time.Duration(i) * shift)
			<-gate
			results[i] = create(client, url, i, start, start.Add(duration))
		}(i)
	}
	close(gate)
	wg.Wait()

	created := printReport(results)
	if created != 1 {
		fmt.Printf("FAIL: expected exactly one 201, got %d\n", created)
		os.Exit(1)
	}
	fmt.Println("PASS: exactly one overlapping create was admitted")
}

func firstStart(raw string) (time.Time, error) {
	if raw == "" {
		tomorrow := time.Now().UTC().AddDate(0, 0, 1)
		return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 10, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(time.RFC3339, raw)
}

func create(client *http.Client, url string, index int, start, end time.Time) attempt {
	res := attempt{Index: index}
	payload, err := json.Marshal(map[string]interface{}{
		"title":     fmt.Sprintf("overlap probe #%d", index),
		"starts_at": start.Format(time.RFC3339),
		"ends_at":   end.Format(time.RFC3339),
	})
	if err != nil {
		res.Error = err
		return res
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		res.Error = err
		return res
	}
	req.Header.Set("Content-Type", "application/json")

	began := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(began)
	if err != nil {
		res.Error = err
		return res
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Error = fmt.Errorf("read body: %w", err)
		return res
	}
	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		res.Code = env.Error.Code
	}
	return res
}

func printReport(results []attempt) int {
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	fmt.Println("Overlap Probe Report")
	fmt.Println("====================")
	created := 0
	for _, res := range results {
		switch {
		case res.Error != nil:
			fmt.Printf("[ERROR] #%d %v\n", res.Index, res.Error)
		case res.Status == http.StatusCreated:
			created++
			fmt.Printf("[201] #%d (%s)\n", res.Index, res.Duration)
		default:
			fmt.Printf("[%d] #%d %s (%s)\n", res.Status, res.Index, res.Code, res.Duration)
		}
	}
	return created
}
