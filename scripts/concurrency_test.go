//go:build ignore
// +build ignore

// Package main provides a manual concurrency stress test for the checkout API.
//
// Usage:
//
//	go run ./scripts/concurrency_test.go <book_id> <user1_id> [user2_id ...]
//
// Or use the convenience environment variables:
//
//	BOOK_ID=<uuid>  USER_IDS=<uuid1>,<uuid2>,...  go run ./scripts/concurrency_test.go
//
// What it does:
//  1. Fires N goroutines (one per user) all attempting to check out the same book simultaneously.
//  2. Prints how many requests got the book and how many were rejected as a conflict.
//  3. Fails unless exactly one request succeeded.
//
// Prerequisites:
//   - Server must be running against a migrated database (SEED_DATA=true gives you books and users).
//   - The book must not be checked out yet.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

type checkoutResult struct {
	UserID     string
	CheckoutID string
	StatusCode int
	Message    string
	Err        error
}

func main() {
	serverAddr := os.Getenv("API_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}

	bookID := os.Getenv("BOOK_ID")
	var userIDs []string
	if env := os.Getenv("USER_IDS"); env != "" {
		userIDs = strings.Split(env, ",")
	}

	// Positional args win over the environment: script <book_id> [user_ids...]
	args := os.Args[1:]
	if len(args) >= 1 {
		bookID = args[0]
	}
	if len(args) >= 2 {
		userIDs = args[1:]
	}

	if bookID == "" {
		log.Fatal("Usage: BOOK_ID=<uuid> USER_IDS=<u1,u2,...> go run ./scripts/concurrency_test.go\n" +
			"  or: go run ./scripts/concurrency_test.go <book_id> <user1_id> [user2_id ...]")
	}
	if len(userIDs) == 0 {
		log.Fatal("At least one user ID must be provided via USER_IDS env or positional args")
	}

	fmt.Printf("=== Checkout Concurrency Test ===\n")
	fmt.Printf("Server : %s\n", serverAddr)
	fmt.Printf("Book   : %s\n", bookID)
	fmt.Printf("Users  : %d\n\n", len(userIDs))

	results := make([]checkoutResult, len(userIDs))
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i, uid := range userIDs {
		wg.Add(1)
		go func(idx int, userID string) {
			defer wg.Done()
			<-start
			results[idx] = attemptCheckout(serverAddr, bookID, strings.TrimSpace(userID))
		}(i, uid)
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)
	wg.Wait()
	fmt.Println("All requests completed.")
	fmt.Println()

	var granted, conflicts, failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] user=%-38s err=%v\n", r.UserID, r.Err)
		case r.StatusCode == http.StatusCreated:
			granted++
			fmt.Printf("  [CHCK] user=%-38s checkout=%s\n", r.UserID, r.CheckoutID)
		case r.StatusCode == http.StatusBadRequest:
			conflicts++
			fmt.Printf("  [BUSY] user=%-38s %s\n", r.UserID, r.Message)
		default:
			failures++
			fmt.Printf("  [FAIL] user=%-38s status=%d %s\n", r.UserID, r.StatusCode, r.Message)
		}
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Checked out : %d\n", granted)
	fmt.Printf("Conflicts   : %d\n", conflicts)
	fmt.Printf("Failures    : %d\n", failures)
	fmt.Printf("Total       : %d\n\n", len(userIDs))

	// The partial unique index uniq_outstanding_item allows one outstanding
	// item per book, so a race can never hand the book out twice.
	if granted != 1 || failures > 0 {
		fmt.Printf("[WARNING] expected exactly one checkout and no failures; check server logs.\n")
		os.Exit(1)
	}
	fmt.Println("OK: the book was checked out exactly once.")
}

// attemptCheckout sends POST /api/checkouts for a single book on behalf of userID.
func attemptCheckout(serverAddr, bookID, userID string) checkoutResult {
	payload, err := json.Marshal(map[string]any{
		"user_id":  userID,
		"book_ids": []string{bookID},
	})
	if err != nil {
		return checkoutResult{UserID: userID, Err: err}
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(serverAddr+"/api/checkouts", "application/json", bytes.NewReader(payload))
	if err != nil {
		return checkoutResult{UserID: userID, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return checkoutResult{UserID: userID, StatusCode: resp.StatusCode, Err: fmt.Errorf("bad JSON: %s", raw)}
	}

	id, _ := parsed["id"].(string)
	msg, _ := parsed["error"].(string)
	return checkoutResult{
		UserID:     userID,
		CheckoutID: id,
		StatusCode: resp.StatusCode,
		Message:    msg,
	}
}
