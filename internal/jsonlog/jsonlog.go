package jsonlog

import (
	"encoding/json"
	"log"
	"time"
)

// Package jsonlog emits one JSON object per line to the standard logger.
// All application components log through Emit so operators get a single
// machine-parseable stream.

// Emit writes data as a single JSON log line, stamping ts and defaulting level
// from status when the caller did not set one.
func Emit(data map[string]any) {
	data["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal log entry: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
