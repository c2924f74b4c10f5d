package artifacts

import (
	"time"

	"github.com/Velocidex/ordereddict"

	"github.com/joshuapare/artifactkit/internal/image"
	"github.com/joshuapare/artifactkit/pkg/event"
	"github.com/joshuapare/artifactkit/pkg/evtx"
)

// EventEntry is one collected event.
type EventEntry struct {
	EventRecordID uint64 `json:"event_record_id"`
	EventID       uint32 `json:"event_id"`
	// LogonType is set for logon events.
	LogonType   string            `json:"logon_type,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Description string            `json:"description"`
	Data        *ordereddict.Dict `json:"data"`
}

// EventExtractor selects the events of one artifact from an event log.
type EventExtractor struct {
	Name     string
	Source   image.Source
	Category Category
	// describe returns the entry description, or false when the event is
	// not part of the artifact.
	describe func(ev event.Event) (string, bool)
	// withLogonType copies the LogonType field into the entry.
	withLogonType bool
}

// Entry builds the artifact entry for a decoded record.
func (x EventExtractor) Entry(rec evtx.Record, ev event.Event, snake bool) (EventEntry, bool) {
	desc, ok := x.describe(ev)
	if !ok {
		return EventEntry{}, false
	}
	e := EventEntry{
		EventRecordID: rec.ID,
		EventID:       ev.System.EventID,
		Timestamp:     rec.Written,
		Description:   desc,
		Data:          ev.Dict(snake),
	}
	if x.withLogonType {
		e.LogonType, _ = ev.Get(event.LogonType)
	}
	return e, true
}

// EventExtractors returns every event log extractor in output order.
func EventExtractors() []EventExtractor {
	return []EventExtractor{
		{
			Name: "evtx_logons", Source: image.SecurityLog, Category: AccountUsage,
			describe: describeLogon, withLogonType: true,
		},
		{
			Name: "evtx_authentication_events", Source: image.SecurityLog, Category: AccountUsage,
			describe: byEventID(authenticationEvents),
		},
		{
			Name: "evtx_rdp_usage", Source: image.SecurityLog, Category: AccountUsage,
			describe: describeRDP, withLogonType: true,
		},
		{
			Name: "evtx_sec_service_events_usage", Source: image.SecurityLog, Category: AccountUsage,
			describe: byEventID(securityServiceEvents),
		},
		{
			Name: "evtx_sys_service_events_usage", Source: image.SystemLog, Category: AccountUsage,
			describe: byEventID(systemServiceEvents),
		},
	}
}

const eventLogon = 4624

var logonTypes = map[string]string{
	"2":  "Logon via console",
	"3":  "Network Logon",
	"4":  "Batch Logon",
	"5":  "Windows Service Logon",
	"7":  "Credentials used to unlock screen, RDP session reconnect",
	"8":  "Network Logon sending credentials (cleartext)",
	"9":  "Different credentials used than logged on user",
	"10": "Remote interactive logon (RDP)",
	"11": "Cached credentials used to login",
	"12": "Cached remote interactive",
	"13": "Cached unlock",
}

var logonEvents = map[uint32]string{
	4625: "Failed Logon",
	4634: "Successful Logoff",
	4647: "Successful Logoff",
	4648: "Logon using explicit credentials (runas)",
	4672: "account logon with superuser rights (administrator)",
	4720: "an account was created",
}

var authenticationEvents = map[uint32]string{
	4776: "Successful/Failed account authentication",
	4768: "Ticket Granting Ticket was granted (successful logon)",
	4769: "Service Ticket was requested (access to server resource)",
	4771: "Pre-authentication failed (failed logon)",
}

var rdpEvents = map[uint32]string{
	4778: "Session Connected/Reconnected",
	4779: "Session Disconnected",
}

var securityServiceEvents = map[uint32]string{
	4697: "A service was installed on the system",
}

var systemServiceEvents = map[uint32]string{
	7034: "A service crashed unexpectedly",
	7035: "A service sent a Start/Stop control",
	7036: "A service started or stopped",
	7040: "The start type changed (Boot|On request|Disabled)",
	7045: "A service was installed on the system",
}

func byEventID(m map[uint32]string) func(event.Event) (string, bool) {
	return func(ev event.Event) (string, bool) {
		d, ok := m[ev.System.EventID]
		return d, ok
	}
}

// describeLogon keeps 4624 only for the listed logon types.
func describeLogon(ev event.Event) (string, bool) {
	if ev.System.EventID == eventLogon {
		lt, _ := ev.Get(event.LogonType)
		d, ok := logonTypes[lt]
		return d, ok
	}
	d, ok := logonEvents[ev.System.EventID]
	return d, ok
}

func describeRDP(ev event.Event) (string, bool) {
	if ev.System.EventID == eventLogon {
		if lt, _ := ev.Get(event.LogonType); lt == "10" {
			return logonTypes[lt], true
		}
		return "", false
	}
	d, ok := rdpEvents[ev.System.EventID]
	return d, ok
}
