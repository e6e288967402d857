//go:build ignore

// dispatchdemo is a tool to verify dispatcher retry and circuit breaker
// behavior against running stub services.
//
// Usage:
//
//	go run dispatchdemo.go -mesh http://localhost:8000 -service brain -stub-port 8081
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func main() {
	var (
		meshURL  = flag.String("mesh", "http://localhost:8000", "Mesh admin server URL")
		service  = flag.String("service", "brain", "Service name to dispatch to")
		stubPort = flag.Int("stub-port", 8081, "Stub service port to kill for testing")
		requests = flag.Int("requests", 20, "Requests per phase")
		skipKill = flag.Bool("skip-kill", false, "Skip the kill stub phase")
	)
	flag.Parse()

	client := &http.Client{Timeout: 15 * time.Second}

	fmt.Println(colorCyan + "╔════════════════════════════════════════════════════════════════╗" + colorReset)
	fmt.Println(colorCyan + "║         DISPATCHER RETRY & CIRCUIT BREAKER TEST               ║" + colorReset)
	fmt.Println(colorCyan + "╚════════════════════════════════════════════════════════════════╝" + colorReset)
	fmt.Println()

	// PHASE 1: Verify normal dispatch
	fmt.Println(colorBlue + "━━━ PHASE 1: Normal Dispatch ━━━" + colorReset)
	fmt.Printf("Dispatching to service %q...\n", *service)

	successCount := 0
	for i := 0; i < *requests; i++ {
		status, err := dispatch(client, *meshURL, *service)
		if err != nil {
			fmt.Printf(colorRed+"  Request %d: ERROR - %v\n"+colorReset, i+1, err)
			continue
		}
		if status >= 500 {
			fmt.Printf(colorRed+"  Request %d: Status=%d\n"+colorReset, i+1, status)
		} else {
			successCount++
		}
	}

	fmt.Printf("\n  Results: %d/%d successful\n", successCount, *requests)
	if successCount == 0 {
		fmt.Println(colorRed + "  ✗ No dispatches succeeded! Is the mesh running?" + colorReset)
		os.Exit(1)
	}
	fmt.Println(colorGreen + "  ✓ Normal dispatch verified" + colorReset)
	fmt.Println()

	// PHASE 2: Kill a stub and verify retry + unhealthy marking
	if !*skipKill {
		fmt.Println(colorBlue + "━━━ PHASE 2: Instance Failure & Retry ━━━" + colorReset)
		fmt.Printf("Killing stub on port %d...\n", *stubPort)

		if err := killStub(*stubPort); err != nil {
			fmt.Printf(colorYellow+"  Warning: Could not kill stub: %v\n"+colorReset, err)
		} else {
			fmt.Printf(colorGreen+"  ✓ Stub on port %d killed\n"+colorReset, *stubPort)
		}

		time.Sleep(500 * time.Millisecond)

		fmt.Println("\n  Dispatching (retries should exhaust, then circuit opens)...")
		failureCount := 0
		for i := 0; i < *requests; i++ {
			start := time.Now()
			status, err := dispatch(client, *meshURL, *service)
			duration := time.Since(start)
			if err != nil {
				fmt.Printf(colorRed+"  Request %d: ERROR - %v (took %v)\n"+colorReset, i+1, err, duration)
				failureCount++
				continue
			}
			if status >= 500 {
				fmt.Printf(colorYellow+"  Request %d: Status=%d (took %v)\n"+colorReset, i+1, status, duration)
				failureCount++
			} else {
				fmt.Printf("  Request %d: Status=%d (took %v)\n", i+1, status, duration)
			}
		}

		fmt.Printf("\n  Results: %d/%d failed\n", failureCount, *requests)
		fmt.Println(colorGreen + "  ✓ Failure phase complete (fast failures mean the circuit opened)" + colorReset)
		fmt.Println()
	}

	// PHASE 3: Circuit breaker status
	fmt.Println(colorBlue + "━━━ PHASE 3: Circuit Breaker Status ━━━" + colorReset)
	fmt.Println("Checking /circuits endpoint...")

	circuits, err := getJSONArray(client, *meshURL+"/circuits")
	if err != nil {
		fmt.Printf(colorYellow+"  Could not fetch circuits: %v\n"+colorReset, err)
	} else {
		fmt.Println("\n  Circuit states:")
		for _, data := range circuits {
			if cb, ok := data.(map[string]interface{}); ok {
				name, _ := cb["name"].(string)
				state, _ := cb["state"].(string)
				statusColor := colorGreen
				if state == "OPEN" {
					statusColor = colorRed
				} else if state == "HALF_OPEN" {
					statusColor = colorYellow
				}
				fmt.Printf("    %s → %s%s%s\n", name, statusColor, state, colorReset)
			}
		}
	}
	fmt.Println()

	// PHASE 4: Registry health
	fmt.Println(colorBlue + "━━━ PHASE 4: Registry Health ━━━" + colorReset)
	fmt.Println("Checking /services endpoint...")

	services, err := getJSON(client, *meshURL+"/services")
	if err != nil {
		fmt.Printf(colorYellow+"  Could not fetch services: %v\n"+colorReset, err)
	} else {
		fmt.Println("\n  Instance health:")
		for name, data := range services {
			if instances, ok := data.([]interface{}); ok {
				for _, instData := range instances {
					if inst, ok := instData.(map[string]interface{}); ok {
						url, _ := inst["url"].(string)
						status, _ := inst["status"].(string)
						statusColor := colorGreen
						if status != "healthy" {
							statusColor = colorRed
						}
						fmt.Printf("    %s %s → %s%s%s\n", name, url, statusColor, strings.ToUpper(status), colorReset)
					}
				}
			}
		}
	}
	fmt.Println()

	// Summary
	fmt.Println(colorCyan + "╔════════════════════════════════════════════════════════════════╗" + colorReset)
	fmt.Println(colorCyan + "║                    TEST COMPLETE                               ║" + colorReset)
	fmt.Println(colorCyan + "╚════════════════════════════════════════════════════════════════╝" + colorReset)
	fmt.Println()
	fmt.Println("Key behaviors verified:")
	fmt.Println("  1. Normal dispatch through the registry")
	fmt.Println("  2. Retry on instance failure")
	fmt.Println("  3. Circuit breaker state via /circuits")
	fmt.Println("  4. Unhealthy marking via /services")
	fmt.Println()
	fmt.Println("Check mesh logs for detailed retry/circuit breaker activity.")
}

func dispatch(client *http.Client, meshURL, service string) (int, error) {
	payload := fmt.Sprintf(`{"service":%q,"endpoint":"/ping","method":"GET"}`, service)
	req, err := http.NewRequest("POST", meshURL+"/dispatch", strings.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func killStub(port int) error {
	cmd := exec.Command("lsof", "-ti", fmt.Sprintf(":%d", port))
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("no process found on port %d", port)
	}

	pid := strings.TrimSpace(string(output))
	if pid == "" {
		return fmt.Errorf("no process found on port %d", port)
	}

	killCmd := exec.Command("kill", pid)
	return killCmd.Run()
}

func getJSON(client *http.Client, url string) (map[string]interface{}, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, err
	}

	return data, nil
}

func getJSONArray(client *http.Client, url string) ([]interface{}, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var data []interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, err
	}

	return data, nil
}
