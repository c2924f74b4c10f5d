package evtx_test

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/artifactkit/internal/testutil"
	"github.com/joshuapare/artifactkit/pkg/evtx"
	"github.com/joshuapare/artifactkit/pkg/types"
)

var created = time.Date(2024, 1, 2, 3, 4, 5, 678901234, time.UTC)

func logonEvent(id uint64, logonType string) testutil.Event {
	return testutil.Event{
		RecordID: id,
		EventID:  4624,
		Provider: "Microsoft-Windows-Security-Auditing",
		Channel:  "Security",
		Computer: "WS01",
		Created:  created,
		Data: []testutil.EventData{
			{Name: "TargetUserName", Value: "alice"},
			{Name: "LogonType", Value: logonType},
		},
	}
}

type result struct {
	recs []evtx.Record
	errs []error
}

func collect(t *testing.T, log []byte) result {
	t.Helper()
	f, err := evtx.NewReader(bytes.NewReader(log), int64(len(log)))
	require.NoError(t, err)
	var out result
	for rec, err := range f.Records() {
		if err != nil {
			out.errs = append(out.errs, err)
			continue
		}
		out.recs = append(out.recs, rec)
	}
	return out
}

func TestRecordRendersEvent(t *testing.T) {
	b := testutil.NewEvtx()
	b.AddEvent(logonEvent(7, "10"))

	res := collect(t, b.Bytes())
	require.Empty(t, res.errs)
	require.Len(t, res.recs, 1)

	rec := res.recs[0]
	assert.Equal(t, uint64(7), rec.ID)
	assert.True(t, rec.Written.Equal(created.Truncate(time.Microsecond)))
	assert.Equal(t, `<Event xmlns="http://schemas.microsoft.com/win/2004/08/events/event">`+
		`<System><Provider Name="Microsoft-Windows-Security-Auditing"/><EventID>4624</EventID>`+
		`<TimeCreated SystemTime="2024-01-02T03:04:05.678901Z"/><EventRecordID>7</EventRecordID>`+
		`<Channel>Security</Channel><Computer>WS01</Computer></System>`+
		`<EventData><Data Name="TargetUserName">alice</Data><Data Name="LogonType">10</Data></EventData>`+
		`</Event>`, rec.XML)
}

func TestCorruptRecordIsSkipped(t *testing.T) {
	b := testutil.NewEvtx()
	for i := 1; i <= 3; i++ {
		b.AddEvent(logonEvent(uint64(i), "2"))
	}
	bad := b.AddBody(created, []byte{0x0f, 0x01, 0x01, 0x00, 0xff})
	b.AddEvent(logonEvent(0, "3"))

	res := collect(t, b.Bytes())
	require.Len(t, res.errs, 1)
	require.Len(t, res.recs, 4)

	var re *evtx.RecordError
	require.ErrorAs(t, res.errs[0], &re)
	assert.Equal(t, bad, re.RecordID)

	ids := make([]uint64, 0, len(res.recs))
	for _, r := range res.recs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []uint64{1, 2, 3, 5}, ids)
	assert.Contains(t, res.recs[3].XML, `<Data Name="LogonType">3</Data>`)
}

func TestBadChunkMovesToNextChunk(t *testing.T) {
	b := testutil.NewEvtx()
	b.AddEvent(logonEvent(1, "2"))
	b.AddEvent(logonEvent(2, "2"))
	b.NewChunk()
	b.AddEvent(logonEvent(3, "5"))
	log := b.Bytes()
	testutil.CorruptChunk(log, 0)

	res := collect(t, log)
	require.Len(t, res.errs, 1)
	assert.True(t, types.IsKind(res.errs[0], types.ErrKindCorrupt))
	require.Len(t, res.recs, 1)
	assert.Equal(t, uint64(3), res.recs[0].ID)
}

func TestBrokenRecordSizeResumesAtNextRecord(t *testing.T) {
	b := testutil.NewEvtx()
	b.AddEvent(logonEvent(1, "2"))
	b.AddEvent(logonEvent(2, "2"))
	b.AddEvent(logonEvent(3, "2"))
	b.NewChunk()
	b.AddEvent(logonEvent(4, "2"))
	log := b.Bytes()

	// middle record of the first chunk: break its trailing size copy
	first := 0x1000 + 0x200
	size := binary.LittleEndian.Uint32(log[first+4:])
	second := first + int(size)
	size2 := binary.LittleEndian.Uint32(log[second+4:])
	binary.LittleEndian.PutUint32(log[second+int(size2)-4:], 1)

	res := collect(t, log)
	require.Len(t, res.errs, 1)
	var re *evtx.RecordError
	require.ErrorAs(t, res.errs[0], &re)
	assert.Equal(t, uint64(2), re.RecordID)

	ids := make([]uint64, 0, len(res.recs))
	for _, r := range res.recs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []uint64{1, 3, 4}, ids)
}

func TestBrokenRecordMagicResumesAtNextRecord(t *testing.T) {
	b := testutil.NewEvtx()
	b.AddEvent(logonEvent(1, "2"))
	b.AddEvent(logonEvent(2, "2"))
	b.AddEvent(logonEvent(3, "2"))
	log := b.Bytes()

	first := 0x1000 + 0x200
	size := binary.LittleEndian.Uint32(log[first+4:])
	copy(log[first+int(size):], "XXXX")

	res := collect(t, log)
	require.Len(t, res.errs, 1)
	assert.True(t, types.IsKind(res.errs[0], types.ErrKindCorrupt))
	ids := make([]uint64, 0, len(res.recs))
	for _, r := range res.recs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []uint64{1, 3}, ids)
}

func TestTemplateSharedWithinChunk(t *testing.T) {
	b := testutil.NewEvtx()
	b.AddEvent(logonEvent(1, "2"))
	b.AddEvent(logonEvent(2, "10"))
	b.NewChunk()
	b.AddEvent(logonEvent(3, "11"))

	res := collect(t, b.Bytes())
	require.Empty(t, res.errs)
	require.Len(t, res.recs, 3)
	for i, want := range []string{"2", "10", "11"} {
		assert.Contains(t, res.recs[i].XML, `<Data Name="LogonType">`+want+`</Data>`)
		assert.Contains(t, res.recs[i].XML, `<Data Name="TargetUserName">alice</Data>`)
	}
}

func TestNullDataRendersEmptyElement(t *testing.T) {
	e := logonEvent(1, "3")
	e.Data = append(e.Data, testutil.EventData{Name: "IpAddress", Null: true})
	b := testutil.NewEvtx()
	b.AddEvent(e)

	res := collect(t, b.Bytes())
	require.Empty(t, res.errs)
	assert.Contains(t, res.recs[0].XML, `<Data Name="IpAddress"/>`)
}

func TestNestedBinXMLArgument(t *testing.T) {
	inner := &testutil.Instance{
		Template: &testutil.Template{Key: "inner", Root: testutil.Elem("Item", nil, testutil.Sub(0, testutil.XString))},
		Args:     []testutil.Arg{{Type: testutil.XString, Data: testutil.UTF16("x&y")}},
	}
	outer := &testutil.Instance{
		Template: &testutil.Template{Key: "outer", Root: testutil.Elem("Event", nil,
			testutil.Elem("UserData", nil, testutil.Sub(0, testutil.XBinXML)))},
		Args: []testutil.Arg{{Nested: inner}},
	}
	b := testutil.NewEvtx()
	b.Add(created, outer)

	res := collect(t, b.Bytes())
	require.Empty(t, res.errs)
	require.Len(t, res.recs, 1)
	assert.Equal(t, `<Event><UserData><Item>x&amp;y</Item></UserData></Event>`, res.recs[0].XML)
}

func TestLiteralNodes(t *testing.T) {
	root := testutil.Elem("E", []testutil.XAttr{testutil.Attr("a", `x<y&"`)},
		testutil.Text("1 < 2"),
		testutil.CharRef(65),
		testutil.EntityRef("amp"),
		testutil.CDATA("raw<"),
		testutil.Elem("Empty", nil),
	)
	b := testutil.NewEvtx()
	b.Add(created, root)

	res := collect(t, b.Bytes())
	require.Empty(t, res.errs)
	assert.Equal(t, `<E a="x&lt;y&amp;&#34;">1 &lt; 2&#65;&amp;<![CDATA[raw<]]><Empty/></E>`, res.recs[0].XML)
}

func TestOptionalNullAttributeOmitted(t *testing.T) {
	inst := &testutil.Instance{
		Template: &testutil.Template{Key: "opt", Root: testutil.Elem("E", []testutil.XAttr{
			{Name: "a", Value: testutil.OptSub(0, testutil.XString)},
			{Name: "b", Value: testutil.OptSub(1, testutil.XString)},
		})},
		Args: []testutil.Arg{{Type: testutil.XNull}, {Type: testutil.XString, Data: testutil.UTF16("v")}},
	}
	b := testutil.NewEvtx()
	b.Add(created, inst)

	res := collect(t, b.Bytes())
	require.Empty(t, res.errs)
	assert.Equal(t, `<E b="v"/>`, res.recs[0].XML)
}

func TestStopEarly(t *testing.T) {
	b := testutil.NewEvtx()
	for i := 1; i <= 5; i++ {
		b.AddEvent(logonEvent(uint64(i), "2"))
	}
	log := b.Bytes()
	f, err := evtx.NewReader(bytes.NewReader(log), int64(len(log)))
	require.NoError(t, err)

	n := 0
	for range f.Records() {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestTrailingPartialChunk(t *testing.T) {
	b := testutil.NewEvtx()
	b.AddEvent(logonEvent(1, "2"))
	log := append(b.Bytes(), make([]byte, 100)...)

	res := collect(t, log)
	require.Len(t, res.recs, 1)
	require.Len(t, res.errs, 1)
	var re *evtx.RecordError
	assert.ErrorAs(t, res.errs[0], &re)
}

func TestNewReaderErrors(t *testing.T) {
	t.Run("bad magic", func(t *testing.T) {
		log := testutil.NewEvtx().Bytes()
		copy(log, "NotAFile")
		_, err := evtx.NewReader(bytes.NewReader(log), int64(len(log)))
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrNotEvtx)
		assert.True(t, types.IsKind(err, types.ErrKindFormat))
	})
	t.Run("short", func(t *testing.T) {
		_, err := evtx.NewReader(bytes.NewReader([]byte("ElfFile")), 7)
		assert.ErrorIs(t, err, types.ErrNotEvtx)
	})
	t.Run("version", func(t *testing.T) {
		log := testutil.NewEvtx().Bytes()
		binary.LittleEndian.PutUint16(log[38:], 4)
		_, err := evtx.NewReader(bytes.NewReader(log), int64(len(log)))
		assert.True(t, types.IsKind(err, types.ErrKindUnsupported))
	})
}

func TestOpen(t *testing.T) {
	_, err := evtx.Open(filepath.Join(t.TempDir(), "missing.evtx"))
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrKindIO))

	b := testutil.NewEvtx()
	b.AddEvent(logonEvent(1, "2"))
	path := testutil.WriteFile(t, t.TempDir(), "Security.evtx", b.Bytes())

	f, err := evtx.Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, uint16(3), f.Header().MajorVersion)
	assert.Equal(t, uint16(1), f.Header().ChunkCount)
	assert.False(t, f.Header().Dirty())

	n := 0
	for _, err := range f.Records() {
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 1, n)
	assert.NoError(t, f.Close())
}
