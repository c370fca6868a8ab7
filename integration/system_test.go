//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/require"
)

// The service under test should run with REVIEW_RATE_LIMIT=0. With the
// default limit of 30 reviews per minute per IP, reruns within a minute
// start getting 429s once E2E_REVIEWS posts add up past the budget.
var (
	baseURL     = getenv("E2E_BASE_URL", "http://localhost:8084")
	reviewCount = getenvInt("E2E_REVIEWS", 10)
)

func TestSystem_E2E_Reviews(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	// Random id so reruns against a long-lived service do not collide.
	id := 1_000_000 + rand.IntN(1_000_000)
	productURL := fmt.Sprintf("%s/products/%d", baseURL, id)

	doJSON(t, http.MethodPut, productURL, nil, nil, http.StatusNoContent)

	var list struct {
		Reviews []string `json:"reviews"`
	}
	doJSON(t, http.MethodGet, productURL+"/reviews", nil, &list, http.StatusOK)
	require.Empty(t, list.Reviews)

	n := reviewCount
	statuses := make([]int, n)
	var wg conc.WaitGroup
	for i := 0; i < n; i++ {
		wg.Go(func() {
			statuses[i] = postReview(ctx, productURL+"/reviews", fmt.Sprintf("review %d", i))
		})
	}
	wg.Wait()

	for i, code := range statuses {
		if code == http.StatusTooManyRequests {
			t.Fatalf("review %d rate limited; run the service with REVIEW_RATE_LIMIT=0", i)
		}
		require.Equal(t, http.StatusCreated, code, "review %d", i)
	}

	doJSON(t, http.MethodGet, productURL+"/reviews", nil, &list, http.StatusOK)
	require.Len(t, list.Reviews, n)

	var reviewed struct {
		ProductIDs []int `json:"product_ids"`
	}
	doJSON(t, http.MethodGet, baseURL+"/products/reviewed", nil, &reviewed, http.StatusOK)
	require.Contains(t, reviewed.ProductIDs, id)

	doJSON(t, http.MethodDelete, productURL, nil, nil, http.StatusNoContent)
	doJSON(t, http.MethodGet, productURL+"/reviews/latest", nil, nil, http.StatusNotFound)
}

func postReview(ctx context.Context, url, text string) int {
	body, _ := json.Marshal(map[string]any{"text": text})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0
	}
	_ = resp.Body.Close()
	return resp.StatusCode
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	for ctx.Err() == nil {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

func doJSON(t *testing.T, method, url string, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, want, resp.StatusCode, "%s %s", method, url)

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
}

func getenvInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
