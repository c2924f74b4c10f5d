package event

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/Velocidex/ordereddict"
	"github.com/stoewer/go-strcase"

	"github.com/joshuapare/artifactkit/pkg/types"
)

// Event is a decoded event record.
type Event struct {
	XMLName   xml.Name   `xml:"Event"`
	System    System     `xml:"System"`
	EventData *EventData `xml:"EventData"`
}

// System is the System block common to every event.
type System struct {
	Provider struct {
		Name            string `xml:"Name,attr"`
		GUID            string `xml:"Guid,attr"`
		EventSourceName string `xml:"EventSourceName,attr"`
	} `xml:"Provider"`
	EventID     uint32 `xml:"EventID"`
	Version     uint8  `xml:"Version"`
	Level       uint8  `xml:"Level"`
	Task        uint16 `xml:"Task"`
	Opcode      uint8  `xml:"Opcode"`
	Keywords    string `xml:"Keywords"`
	TimeCreated struct {
		SystemTime time.Time `xml:"SystemTime,attr"`
	} `xml:"TimeCreated"`
	EventRecordID uint64 `xml:"EventRecordID"`
	Correlation   struct {
		ActivityID string `xml:"ActivityID,attr"`
	} `xml:"Correlation"`
	Execution struct {
		ProcessID uint32 `xml:"ProcessID,attr"`
		ThreadID  uint32 `xml:"ThreadID,attr"`
	} `xml:"Execution"`
	Channel  string `xml:"Channel"`
	Computer string `xml:"Computer"`
	Security struct {
		UserID string `xml:"UserID,attr"`
	} `xml:"Security"`
}

// EventData is the ordered list of Data entries.
type EventData struct {
	Data []Data `xml:"Data"`
}

// Data is one <Data Name="...">value</Data> entry. Value is nil for an empty
// element.
type Data struct {
	Name  Name
	Value *string
}

func (d *Data) UnmarshalXML(dec *xml.Decoder, start xml.StartElement) error {
	var raw struct {
		Name string `xml:"Name,attr"`
		Text string `xml:",chardata"`
	}
	if err := dec.DecodeElement(&raw, &start); err != nil {
		return err
	}
	d.Name = ParseName(raw.Name)
	d.Value = nil
	if raw.Text != "" {
		v := raw.Text
		d.Value = &v
	}
	return nil
}

// Decode parses the XML of one event record.
func Decode(s string) (Event, error) {
	var ev Event
	if err := xml.NewDecoder(strings.NewReader(s)).Decode(&ev); err != nil {
		return Event{}, &types.Error{Kind: types.ErrKindXML, Msg: "decode event: " + err.Error(), Err: types.ErrXMLDecode}
	}
	return ev, nil
}

// Get returns the value of the first Data entry named f.
func (e Event) Get(f Field) (string, bool) {
	return e.lookup(func(n Name) bool { return n.Is(f) })
}

// GetRaw returns the value of the first Data entry whose name text is raw.
func (e Event) GetRaw(raw string) (string, bool) {
	return e.lookup(func(n Name) bool { return n.String() == raw })
}

func (e Event) lookup(match func(Name) bool) (string, bool) {
	if e.EventData == nil {
		return "", false
	}
	for _, d := range e.EventData.Data {
		if match(d.Name) {
			if d.Value == nil {
				return "", true
			}
			return *d.Value, true
		}
	}
	return "", false
}

// Dict returns the EventData entries as an ordered dictionary. Null values
// map to nil. Unnamed entries are keyed param1, param2 and so on by position.
// With snake set, keys are converted to snake_case.
func (e Event) Dict(snake bool) *ordereddict.Dict {
	out := ordereddict.NewDict()
	if e.EventData == nil {
		return out
	}
	for i, d := range e.EventData.Data {
		key := d.Name.String()
		if key == "" {
			key = fmt.Sprintf("param%d", i+1)
		}
		if snake {
			key = strcase.SnakeCase(key)
		}
		var v interface{}
		if d.Value != nil {
			v = *d.Value
		}
		out.Set(key, v)
	}
	return out
}

// Time returns the creation time of the event.
func (e Event) Time() time.Time { return e.System.TimeCreated.SystemTime }
