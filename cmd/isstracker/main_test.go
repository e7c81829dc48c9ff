package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const issTLE = "ISS (ZARYA)\n" +
	"1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9009\n" +
	"2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    01\n"

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestOrbitCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(issTLE))
	}))
	defer server.Close()
	t.Setenv("ISSTRACKER_TLE_URL", server.URL)

	out, err := runCLI(t, "orbit", "--start", "2024-04-10T12:00:00Z")
	if err != nil {
		t.Fatalf("orbit: %v", err)
	}

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string       `json:"type"`
				Coordinates [][2]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	if err := json.Unmarshal([]byte(out), &fc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) == 0 {
		t.Fatalf("collection = %q with %d features", fc.Type, len(fc.Features))
	}

	total := 0
	for _, f := range fc.Features {
		if f.Geometry.Type != "LineString" {
			t.Errorf("feature type = %q, want LineString", f.Geometry.Type)
		}
		total += len(f.Geometry.Coordinates)
	}
	if total != 181 {
		t.Errorf("total points = %d, want 181", total)
	}
}

func TestOrbitCommandBadStart(t *testing.T) {
	if _, err := runCLI(t, "orbit", "--start", "noon"); err == nil {
		t.Error("expected error for invalid --start")
	}
}

func TestSnapshotCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"latitude":48.858222,"longitude":2.294500123,"altitude":421.06,"velocity":27555.56,"visibility":"daylight","timestamp":1712750400}`))
	}))
	defer server.Close()
	t.Setenv("ISSTRACKER_TELEMETRY_URL", server.URL)

	out, err := runCLI(t, "snapshot")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	var info map[string]any
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	want := map[string]float64{
		"latitude":     48.8582,
		"longitude":    2.2945,
		"altitude_km":  421.1,
		"velocity_kmh": 27555.6,
	}
	for k, v := range want {
		if info[k] != v {
			t.Errorf("%s = %v, want %v", k, info[k], v)
		}
	}
}

func TestSnapshotCommandUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()
	t.Setenv("ISSTRACKER_TELEMETRY_URL", server.URL)

	if _, err := runCLI(t, "snapshot"); err == nil {
		t.Error("expected error for 502 upstream")
	}
}

func TestEnvFileFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"latitude":1,"longitude":2,"altitude":400,"velocity":27000}`))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("ISSTRACKER_TELEMETRY_URL="+server.URL+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// Register cleanup for the variable the file sets.
	t.Setenv("ISSTRACKER_TELEMETRY_URL", "")
	os.Unsetenv("ISSTRACKER_TELEMETRY_URL")

	if _, err := runCLI(t, "--env-file", path, "snapshot"); err != nil {
		t.Fatalf("snapshot with env file: %v", err)
	}
	if _, err := runCLI(t, "--env-file", filepath.Join(t.TempDir(), "missing.env"), "snapshot"); err == nil {
		t.Error("expected error for missing env file")
	}
}
