// Command smoke probes a running talenta-api instance: it logs in with the
// admin password, walks a list of endpoints, and reports status codes,
// envelope shape, and latency. Exits non-zero when a critical probe fails.
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
	"strings"
	"time"
)

type probe struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Status   int    `json:"status"`
	Critical bool   `json:"critical"`
}

type probeFile struct {
	Probes []probe `json:"probes"`
}

type result struct {
	Probe    probe
	Status   int
	Envelope bool
	Duration time.Duration
	Err      error
}

// defaultProbes covers every read surface of the API. Mutating endpoints
// are left to the test suite; a smoke run must not change data.
var defaultProbes = []probe{
	{Method: http.MethodGet, Path: "/health", Status: http.StatusOK, Critical: true},
	{Method: http.MethodGet, Path: "/ready", Status: http.StatusOK, Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/auth/admin/check", Status: http.StatusOK, Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/students", Status: http.StatusOK, Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/departments", Status: http.StatusOK, Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/attendance", Status: http.StatusOK, Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/attendance/available-dates", Status: http.StatusOK, Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/talents/leaderboard", Status: http.StatusOK, Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/talents/transactions", Status: http.StatusOK, Critical: false},
	{Method: http.MethodGet, Path: "/api/v1/statistics/overview", Status: http.StatusOK, Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/statistics/grades", Status: http.StatusOK, Critical: false},
	{Method: http.MethodGet, Path: "/api/v1/statistics/departments", Status: http.StatusOK, Critical: false},
	{Method: http.MethodGet, Path: "/api/v1/statistics/talent", Status: http.StatusOK, Critical: false},
}

func main() {
	var (
		base       string
		password   string
		probesPath string
		timeout    time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&password, "password", "1004", "admin password for login")
	flag.StringVar(&probesPath, "probes", "", "optional JSON file overriding the default probe list")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	probes := defaultProbes
	if probesPath != "" {
		loaded, err := loadProbes(probesPath)
		if err != nil {
			log.Fatalf("failed to load probes: %v", err)
		}
		probes = loaded
	}

	client := &http.Client{Timeout: timeout}
	token, err := login(client, base, password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}

	var failures int
	results := make([]result, 0, len(probes))
	for _, p := range probes {
		res := runProbe(client, base, token, p)
		if res.Err != nil || res.Status != expectedStatus(p) || !res.Envelope {
			if p.Critical {
				failures++
			}
		}
		results = append(results, res)
	}

	printReport(results)
	fmt.Printf("Critical failures: %d\n", failures)
	if failures > 0 {
		os.Exit(1)
	}
}

func loadProbes(path string) ([]probe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file probeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Probes) == 0 {
		return nil, fmt.Errorf("no probes defined in %s", path)
	}
	return file.Probes, nil
}

func login(client *http.Client, base, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"password": password})
	resp, err := client.Post(strings.TrimRight(base, "/")+"/api/v1/auth/admin/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected login status %d", resp.StatusCode)
	}
	var envelope struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", err
	}
	if envelope.Data.Token == "" {
		return "", fmt.Errorf("login response carried no token")
	}
	return envelope.Data.Token, nil
}

func runProbe(client *http.Client, base, token string, p probe) result {
	res := result{Probe: p}

	method := strings.ToUpper(strings.TrimSpace(p.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := p.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		res.Err = err
		return res
	}
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Err = fmt.Errorf("read body: %w", err)
		return res
	}
	res.Envelope = isEnvelope(path, body)
	return res
}

func expectedStatus(p probe) int {
	if p.Status != 0 {
		return p.Status
	}
	return http.StatusOK
}

// isEnvelope checks the response carries the standard {data|error} wrapper.
// Infra endpoints outside the API prefix skip the check.
func isEnvelope(path string, body []byte) bool {
	if !strings.HasPrefix(path, "/api/") {
		return true
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}
	_, hasData := payload["data"]
	_, hasError := payload["error"]
	return hasData || hasError
}

func printReport(results []result) {
	fmt.Printf("%-6s %-40s %-8s %-10s %-10s %s\n", "METHOD", "PATH", "STATUS", "ENVELOPE", "LATENCY", "ERROR")
	for _, res := range results {
		errMsg := ""
		if res.Err != nil {
			errMsg = res.Err.Error()
		}
		envelope := "ok"
		if !res.Envelope {
			envelope = "bad"
		}
		fmt.Printf("%-6s %-40s %-8d %-10s %-10s %s\n",
			strings.ToUpper(res.Probe.Method), res.Probe.Path, res.Status, envelope,
			res.Duration.Round(time.Millisecond), errMsg)
	}
}
