// Package event decodes the XML rendering of Windows event records into
// typed events.
//
// Only the System block and the EventData block are decoded. EventData
// entries keep their document order and carry a Name that is either one of
// the known fields or the raw attribute text:
//
//	ev, err := event.Decode(rec.XML)
//	if err != nil {
//		return err
//	}
//	if ev.System.EventID == 4624 {
//		lt, _ := ev.Get(event.LogonType)
//		...
//	}
package event
