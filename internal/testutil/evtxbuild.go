package testutil

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/joshuapare/artifactkit/pkg/wintime"
)

// Event log layout constants.
const (
	evtxHeadSize  = 0x1000
	evtxChunkSize = 0x10000
	evtxRecStart  = 0x200
)

// Binary XML value types used by the builder.
const (
	XNull     uint8 = 0x00
	XString   uint8 = 0x01
	XUInt16   uint8 = 0x06
	XUInt32   uint8 = 0x08
	XUInt64   uint8 = 0x0a
	XGUID     uint8 = 0x0f
	XFileTime uint8 = 0x11
	XSID      uint8 = 0x13
	XHexInt32 uint8 = 0x14
	XBinXML   uint8 = 0x21
)

// XNode is a Binary XML content node.
type XNode interface {
	write(w *bxWriter)
}

// XAttr is an element attribute with a single content node as its value.
type XAttr struct {
	Name  string
	Value XNode
}

type (
	xElem struct {
		name     string
		attrs    []XAttr
		children []XNode
	}
	xText   string
	xCDATA  string
	xChar   uint16
	xEntity string
	xSubst  struct {
		index    uint16
		typ      uint8
		optional bool
	}
	xRaw []byte
)

// Elem builds an element.
func Elem(name string, attrs []XAttr, children ...XNode) XNode {
	return &xElem{name: name, attrs: attrs, children: children}
}

// Attr is shorthand for a literal attribute.
func Attr(name, value string) XAttr { return XAttr{Name: name, Value: Text(value)} }

func Text(s string) XNode      { return xText(s) }
func CDATA(s string) XNode     { return xCDATA(s) }
func CharRef(v uint16) XNode   { return xChar(v) }
func EntityRef(n string) XNode { return xEntity(n) }

// Sub is a normal substitution of argument index.
func Sub(index uint16, typ uint8) XNode { return xSubst{index: index, typ: typ} }

// OptSub is an optional substitution of argument index.
func OptSub(index uint16, typ uint8) XNode { return xSubst{index: index, typ: typ, optional: true} }

// Raw emits bytes verbatim, for building malformed records.
func Raw(b []byte) XNode { return xRaw(b) }

// Template is a template definition. Definitions with the same Key share one
// chunk-level definition.
type Template struct {
	Key  string
	Root XNode
}

// Arg is a template argument. Nested, when set, is encoded as a Binary XML
// fragment and the argument type is forced to XBinXML.
type Arg struct {
	Type   uint8
	Data   []byte
	Nested XNode
}

// Instance binds a template to its arguments.
type Instance struct {
	Template *Template
	Args     []Arg
}

type bxWriter struct {
	b         []byte
	base      int
	templates map[string]uint32
}

func (w *bxWriter) pos() int { return w.base + len(w.b) }

func (w *bxWriter) u8(v uint8)   { w.b = append(w.b, v) }
func (w *bxWriter) u16(v uint16) { w.b = binary.LittleEndian.AppendUint16(w.b, v) }
func (w *bxWriter) u32(v uint32) { w.b = binary.LittleEndian.AppendUint32(w.b, v) }

// name writes an inline name reference.
func (w *bxWriter) name(s string) {
	w.u32(uint32(w.pos() + 4))
	w.u32(0) // next
	w.u16(0) // hash
	w.u16(uint16(len(UTF16(s)) / 2))
	w.b = append(w.b, UTF16(s)...)
	w.u16(0)
}

func (w *bxWriter) counted(s string) {
	u := UTF16(s)
	w.u16(uint16(len(u) / 2))
	w.b = append(w.b, u...)
}

func (w *bxWriter) fragment(n XNode) {
	w.b = append(w.b, 0x0f, 0x01, 0x01, 0x00)
	n.write(w)
	w.u8(0x00)
}

func (e *xElem) write(w *bxWriter) {
	tok := uint8(0x01)
	if len(e.attrs) > 0 {
		tok |= 0x40
	}
	w.u8(tok)
	w.u16(0xFFFF)
	w.u32(0) // data size, unused by readers here
	w.name(e.name)
	if len(e.attrs) > 0 {
		w.u32(0)
	}
	for i, a := range e.attrs {
		tok := uint8(0x06)
		if i < len(e.attrs)-1 {
			tok |= 0x40
		}
		w.u8(tok)
		w.name(a.Name)
		a.Value.write(w)
	}
	if len(e.children) == 0 {
		w.u8(0x03)
		return
	}
	w.u8(0x02)
	for _, c := range e.children {
		c.write(w)
	}
	w.u8(0x04)
}

func (t xText) write(w *bxWriter) {
	w.u8(0x05)
	w.u8(XString)
	w.counted(string(t))
}

func (t xCDATA) write(w *bxWriter) {
	w.u8(0x07)
	w.counted(string(t))
}

func (c xChar) write(w *bxWriter) {
	w.u8(0x08)
	w.u16(uint16(c))
}

func (e xEntity) write(w *bxWriter) {
	w.u8(0x09)
	w.name(string(e))
}

func (s xSubst) write(w *bxWriter) {
	if s.optional {
		w.u8(0x0e)
	} else {
		w.u8(0x0d)
	}
	w.u16(s.index)
	w.u8(s.typ)
}

func (r xRaw) write(w *bxWriter) { w.b = append(w.b, r...) }

func (in *Instance) write(w *bxWriter) {
	w.u8(0x0c)
	w.u8(0x01)
	w.u32(0) // template id
	if off, ok := w.templates[in.Template.Key]; ok {
		w.u32(off)
	} else {
		def := uint32(w.pos() + 4)
		w.u32(def)
		w.templates[in.Template.Key] = def
		w.u32(0) // next definition
		w.b = append(w.b, make([]byte, 16)...)
		sizeAt := len(w.b)
		w.u32(0)
		start := len(w.b)
		w.fragment(in.Template.Root)
		binary.LittleEndian.PutUint32(w.b[sizeAt:], uint32(len(w.b)-start))
	}

	// Nested fragments are encoded first so their sizes are known; their
	// position follows the descriptor table and the preceding values.
	data := make([][]byte, len(in.Args))
	typs := make([]uint8, len(in.Args))
	at := w.pos() + 4 + 4*len(in.Args)
	for i, a := range in.Args {
		typs[i], data[i] = a.Type, a.Data
		if a.Nested != nil {
			sub := &bxWriter{base: at, templates: w.templates}
			sub.fragment(a.Nested)
			typs[i], data[i] = XBinXML, sub.b
		}
		at += len(data[i])
	}
	w.u32(uint32(len(in.Args)))
	for i := range in.Args {
		w.u16(uint16(len(data[i])))
		w.u8(typs[i])
		w.u8(0)
	}
	for _, d := range data {
		w.b = append(w.b, d...)
	}
}

// EvtxBuilder lays out records into chunks of a synthetic event log.
type EvtxBuilder struct {
	chunks [][]byte
	cur    *evtxChunk
	nextID uint64
}

type evtxChunk struct {
	buf       []byte
	pos       int
	templates map[string]uint32
	first     uint64
	last      uint64
}

// NewEvtx returns an empty builder whose first record gets ID 1.
func NewEvtx() *EvtxBuilder { return &EvtxBuilder{nextID: 1} }

// NewChunk starts a new chunk for subsequent records.
func (b *EvtxBuilder) NewChunk() {
	b.flush()
	b.cur = &evtxChunk{
		buf:       make([]byte, evtxChunkSize),
		pos:       evtxRecStart,
		templates: make(map[string]uint32),
	}
}

// Add appends a record whose body is a fragment holding root and returns its
// record ID.
func (b *EvtxBuilder) Add(written time.Time, root XNode) uint64 {
	if b.cur == nil {
		b.NewChunk()
	}
	w := &bxWriter{base: b.cur.pos + 24, templates: b.cur.templates}
	w.fragment(root)
	return b.addBody(written, w.b)
}

// AddBody appends a record with a verbatim body.
func (b *EvtxBuilder) AddBody(written time.Time, body []byte) uint64 {
	if b.cur == nil {
		b.NewChunk()
	}
	return b.addBody(written, body)
}

func (b *EvtxBuilder) addBody(written time.Time, body []byte) uint64 {
	c := b.cur
	size := 24 + len(body) + 4
	if c.pos+size > evtxChunkSize {
		panic("testutil: record does not fit the chunk")
	}
	id := b.nextID
	b.nextID++
	r := c.buf[c.pos:]
	copy(r, "**\x00\x00")
	binary.LittleEndian.PutUint32(r[4:], uint32(size))
	binary.LittleEndian.PutUint64(r[8:], id)
	binary.LittleEndian.PutUint64(r[16:], wintime.Ticks(written))
	copy(r[24:], body)
	binary.LittleEndian.PutUint32(r[size-4:], uint32(size))
	c.pos += size
	if c.first == 0 {
		c.first = id
	}
	c.last = id
	return id
}

// CorruptChunk overwrites the chunk magic of chunk i once the log is built.
func CorruptChunk(log []byte, i int) {
	copy(log[evtxHeadSize+i*evtxChunkSize:], "BadChnk\x00")
}

func (b *EvtxBuilder) flush() {
	if b.cur == nil {
		return
	}
	c := b.cur.buf
	copy(c, "ElfChnk\x00")
	binary.LittleEndian.PutUint64(c[8:], b.cur.first)
	binary.LittleEndian.PutUint64(c[16:], b.cur.last)
	binary.LittleEndian.PutUint64(c[24:], b.cur.first)
	binary.LittleEndian.PutUint64(c[32:], b.cur.last)
	binary.LittleEndian.PutUint32(c[40:], 128)
	binary.LittleEndian.PutUint32(c[48:], uint32(b.cur.pos))
	b.chunks = append(b.chunks, c)
	b.cur = nil
}

// Bytes returns the complete log.
func (b *EvtxBuilder) Bytes() []byte {
	b.flush()
	out := make([]byte, evtxHeadSize, evtxHeadSize+len(b.chunks)*evtxChunkSize)
	copy(out, "ElfFile\x00")
	if n := len(b.chunks); n > 0 {
		binary.LittleEndian.PutUint64(out[16:], uint64(n-1))
	}
	binary.LittleEndian.PutUint64(out[24:], b.nextID)
	binary.LittleEndian.PutUint32(out[32:], 128)
	binary.LittleEndian.PutUint16(out[36:], 2)
	binary.LittleEndian.PutUint16(out[38:], 3)
	binary.LittleEndian.PutUint16(out[40:], evtxHeadSize)
	binary.LittleEndian.PutUint16(out[42:], uint16(len(b.chunks)))
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	return out
}

// EventData is one <Data Name=...> entry of a synthetic event. Null data is
// encoded as a null argument.
type EventData struct {
	Name  string
	Value string
	Null  bool
}

// Event describes a synthetic Windows event record.
type Event struct {
	RecordID uint64
	EventID  uint16
	Provider string
	Channel  string
	Computer string
	Created  time.Time
	Data     []EventData
}

const eventNS = "http://schemas.microsoft.com/win/2004/08/events/event"

// EventInstance encodes e as an instance of a standard event template. Events
// with the same data names share a template.
func EventInstance(e Event) *Instance {
	names := make([]string, len(e.Data))
	for i, d := range e.Data {
		names[i] = d.Name
	}
	var data []XNode
	for i, d := range e.Data {
		data = append(data, Elem("Data", []XAttr{Attr("Name", d.Name)}, OptSub(uint16(6+i), XString)))
	}
	tmpl := &Template{
		Key: "event:" + strings.Join(names, ","),
		Root: Elem("Event", []XAttr{Attr("xmlns", eventNS)},
			Elem("System", nil,
				Elem("Provider", []XAttr{{Name: "Name", Value: Sub(0, XString)}}),
				Elem("EventID", nil, Sub(1, XUInt16)),
				Elem("TimeCreated", []XAttr{{Name: "SystemTime", Value: Sub(2, XFileTime)}}),
				Elem("EventRecordID", nil, Sub(3, XUInt64)),
				Elem("Channel", nil, Sub(4, XString)),
				Elem("Computer", nil, Sub(5, XString)),
			),
			Elem("EventData", nil, data...),
		),
	}

	args := []Arg{
		{Type: XString, Data: UTF16(e.Provider)},
		{Type: XUInt16, Data: binary.LittleEndian.AppendUint16(nil, e.EventID)},
		{Type: XFileTime, Data: binary.LittleEndian.AppendUint64(nil, wintime.Ticks(e.Created))},
		{Type: XUInt64, Data: binary.LittleEndian.AppendUint64(nil, e.RecordID)},
		{Type: XString, Data: UTF16(e.Channel)},
		{Type: XString, Data: UTF16(e.Computer)},
	}
	for _, d := range e.Data {
		if d.Null {
			args = append(args, Arg{Type: XNull})
			continue
		}
		args = append(args, Arg{Type: XString, Data: UTF16(d.Value)})
	}
	return &Instance{Template: tmpl, Args: args}
}

// AddEvent appends e using its record ID when set and returns the ID used.
func (b *EvtxBuilder) AddEvent(e Event) uint64 {
	if e.RecordID == 0 {
		e.RecordID = b.nextID
	} else {
		b.nextID = e.RecordID
	}
	return b.Add(e.Created, EventInstance(e))
}
