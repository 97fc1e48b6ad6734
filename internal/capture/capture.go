// Package capture records fetched provider payloads as JSON fixtures for
// debugging. It is off unless PRESTO_CAPTURE_DIR points somewhere.
package capture

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

var (
	runID      = time.Now().Format("20060102-150405")
	captureSeq uint64
)

// envCaptureDir is the environment variable that controls capture output.
const envCaptureDir = "PRESTO_CAPTURE_DIR"

// Enabled reports whether capture is currently active.
func Enabled() bool {
	return os.Getenv(envCaptureDir) != ""
}

// WriteJSON marshals the payload to indented JSON and stores it in the
// capture directory. Failures are logged but otherwise ignored.
func WriteJSON(category string, payload interface{}) {
	if !Enabled() {
		return
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		log.Printf("[WARN] capture: failed to marshal %s payload: %v", category, err)
		return
	}
	writeFile(category, "json", data)
}

func writeFile(category, ext string, data []byte) {
	dir := filepath.Join(os.Getenv(envCaptureDir), runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("[WARN] capture: failed to create directory %s: %v", dir, err)
		return
	}

	seq := atomic.AddUint64(&captureSeq, 1)
	path := filepath.Join(dir, fmt.Sprintf("%s-%04d.%s", category, seq, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("[WARN] capture: failed to write file %s: %v", path, err)
	}
}
