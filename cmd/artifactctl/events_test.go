package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joshuapare/artifactkit/internal/testutil"
)

func writeSecurityLog(t *testing.T) string {
	t.Helper()
	created := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	b := testutil.NewEvtx()
	for _, id := range []uint16{4624, 4688, 4625} {
		b.AddEvent(testutil.Event{
			EventID:  id,
			Provider: "Microsoft-Windows-Security-Auditing",
			Channel:  "Security",
			Computer: "WKS-042",
			Created:  created,
			Data: []testutil.EventData{
				{Name: "TargetUserName", Value: "analyst"},
				{Name: "LogonType", Value: "2"},
			},
		})
	}
	path := filepath.Join(t.TempDir(), "Security.evtx")
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func resetEventFlags(t *testing.T) {
	t.Helper()
	withGlobals(t)
	ids, limit, xml := eventIDs, eventsLimit, eventsXML
	t.Cleanup(func() { eventIDs, eventsLimit, eventsXML = ids, limit, xml })
	eventIDs, eventsLimit, eventsXML, snakeCase, quiet = nil, 0, false, false, false
}

func TestEventsCommand(t *testing.T) {
	path := writeSecurityLog(t)

	tests := []struct {
		name    string
		setup   func()
		wantIDs []float64
	}{
		{name: "all records", setup: func() {}, wantIDs: []float64{4624, 4688, 4625}},
		{name: "filtered", setup: func() { eventIDs = []uint{4625, 4624} }, wantIDs: []float64{4624, 4625}},
		{name: "limited", setup: func() { eventsLimit = 1 }, wantIDs: []float64{4624}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetEventFlags(t)
			tt.setup()
			out, err := captureOutput(t, func() error { return runEvents([]string{path}) })
			if err != nil {
				t.Fatalf("runEvents() error = %v", err)
			}
			lines := strings.Split(strings.TrimSpace(out), "\n")
			if len(lines) != len(tt.wantIDs) {
				t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(tt.wantIDs), out)
			}
			for i, line := range lines {
				var m map[string]any
				if err := json.Unmarshal([]byte(line), &m); err != nil {
					t.Fatalf("line %d is not JSON: %v", i, err)
				}
				if m["event_id"] != tt.wantIDs[i] {
					t.Errorf("line %d event_id = %v, want %v", i, m["event_id"], tt.wantIDs[i])
				}
			}
		})
	}
}

func TestEventsCommandDecodedFields(t *testing.T) {
	resetEventFlags(t)
	snakeCase = true
	path := writeSecurityLog(t)

	out, err := captureOutput(t, func() error { return runEvents([]string{path}) })
	if err != nil {
		t.Fatalf("runEvents() error = %v", err)
	}
	first := strings.SplitN(out, "\n", 2)[0]
	assertContains(t, first, []string{
		`"record_id":1`,
		`"provider":"Microsoft-Windows-Security-Auditing"`,
		`"computer":"WKS-042"`,
		`"data":{"target_user_name":"analyst","logon_type":"2"}`,
	})
}

func TestEventsCommandXML(t *testing.T) {
	resetEventFlags(t)
	eventsXML = true
	eventsLimit = 1
	path := writeSecurityLog(t)

	out, err := captureOutput(t, func() error { return runEvents([]string{path}) })
	if err != nil {
		t.Fatalf("runEvents() error = %v", err)
	}
	assertContains(t, out, []string{`<EventID>4624</EventID>`, `<Data Name="LogonType">2</Data>`})
}

func TestEventsCommandNotEvtx(t *testing.T) {
	resetEventFlags(t)
	path := filepath.Join(t.TempDir(), "bogus.evtx")
	if err := os.WriteFile(path, []byte("definitely not an event log"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := captureOutput(t, func() error { return runEvents([]string{path}) }); err == nil {
		t.Fatal("expected an error")
	}
}
