//go:build ignore

// stubservice is a simple stub service used for dispatcher testing.
// It provides /ping, /process and /health endpoints and can simulate
// failures.
//
// Usage:
//
//	go run stubservice.go -port 8081 -name echo
//	go run stubservice.go -port 8082 -name echo -fail-rate 0.5
//
// The server logs all requests and returns JSON responses with unique
// request IDs, so retry and circuit breaker behavior is observable from
// the dispatcher side.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/big"
	"net/http"
)

// newUUID generates a random v4 UUID per RFC 4122.
func newUUID() string {
	b := make([]byte, 16)
	_, err := rand.Read(b)
	if err != nil {
		return ""
	}
	// set version (4) and variant bits per RFC 4122
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	// format as hex groups
	return fmt.Sprintf("%s-%s-%s-%s-%s",
		hex.EncodeToString(b[0:4]),
		hex.EncodeToString(b[4:6]),
		hex.EncodeToString(b[6:8]),
		hex.EncodeToString(b[8:10]),
		hex.EncodeToString(b[10:16]),
	)
}

// shouldFail rolls against the configured failure rate.
func shouldFail(rate float64) bool {
	if rate <= 0 {
		return false
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		return false
	}
	return float64(n.Int64()) < rate*1000
}

func main() {
	port := flag.Int("port", 8081, "port to listen on")
	name := flag.String("name", "echo", "service name reported in responses")
	failRate := flag.Float64("fail-rate", 0, "fraction of requests answered with 500")
	flag.Parse()

	mux := http.NewServeMux()

	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("request: method=%s path=%s from=%s", r.Method, r.URL.Path, r.RemoteAddr)

		if shouldFail(*failRate) {
			http.Error(w, "simulated failure", http.StatusInternalServerError)
			return
		}

		resp := map[string]any{
			"service":    *name,
			"request_id": newUUID(),
			"pong":       true,
		}
		b, _ := json.Marshal(resp)
		w.Header().Set("Content-Type", "application/json")
		w.Write(b)
	})

	mux.HandleFunc("/process", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		// log request for visibility when running multiple instances
		log.Printf("request: method=%s path=%s from=%s body=%s", r.Method, r.URL.Path, r.RemoteAddr, string(body))

		if shouldFail(*failRate) {
			http.Error(w, "simulated failure", http.StatusInternalServerError)
			return
		}

		var payload any
		if len(body) > 0 {
			if err := json.Unmarshal(body, &payload); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		resp := map[string]any{
			"service":    *name,
			"request_id": newUUID(),
			"echo":       payload,
		}
		b, _ := json.Marshal(resp)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write(b)
	})

	// simple health endpoint for manual checks
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("starting %s stub on %s (fail rate %.2f)", *name, addr, *failRate)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
