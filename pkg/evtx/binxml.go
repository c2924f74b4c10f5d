package evtx

import (
	"github.com/pkg/errors"

	"github.com/joshuapare/artifactkit/internal/buf"
	"github.com/joshuapare/artifactkit/pkg/textenc"
)

// Binary XML tokens. flagMore marks tokens followed by attributes or further
// attribute values.
const (
	tokEOF         = 0x00
	tokOpenStart   = 0x01
	tokCloseStart  = 0x02
	tokCloseEmpty  = 0x03
	tokEnd         = 0x04
	tokValue       = 0x05
	tokAttribute   = 0x06
	tokCDATA       = 0x07
	tokCharRef     = 0x08
	tokEntityRef   = 0x09
	tokPITarget    = 0x0a
	tokPIData      = 0x0b
	tokTemplate    = 0x0c
	tokSubst       = 0x0d
	tokOptSubst    = 0x0e
	tokFragmentHdr = 0x0f

	flagMore = 0x40
)

const maxDepth = 64

// Parsed Binary XML. Templates keep substitution placeholders; instances bind
// them to argument values at render time.
type (
	node interface{}

	element struct {
		name     string
		attrs    []attribute
		children []node
	}
	attribute struct {
		name  string
		value []node
	}
	textNode  string
	cdataNode string
	charRef   uint16
	entityRef string
	piNode    struct{ target, data string }

	substitution struct {
		index    uint16
		typ      uint8
		optional bool
	}
	template struct {
		nodes []node
	}
	instance struct {
		tmpl *template
		args []value
	}
	value struct {
		typ    uint8
		data   []byte
		nested []node // for BinXml values
	}
)

// parser decodes Binary XML within one chunk. Template definitions are shared
// by every record of the chunk and cached by their chunk offset.
type parser struct {
	chunk     []byte
	c         *buf.Cursor
	templates map[uint32]*template
	depth     int
}

func newParser(chunk []byte) *parser {
	return &parser{chunk: chunk, c: buf.NewCursor(chunk, 0), templates: make(map[uint32]*template)}
}

// record parses the body spanning [start, end) and renders it to XML.
func (p *parser) record(start, end int) (string, error) {
	if err := p.c.Seek(start); err != nil {
		return "", err
	}
	p.depth = 0
	nodes, err := p.fragment(end)
	if err != nil {
		return "", errors.Wrapf(err, "binxml at %#x", p.c.Pos())
	}
	return render(nodes)
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return errors.New("binxml nested too deeply")
	}
	return nil
}

// fragment reads nodes until an EOF token or end.
func (p *parser) fragment(end int) ([]node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	var out []node
	for p.c.Pos() < end {
		tok, err := p.c.U8()
		if err != nil {
			return nil, err
		}
		if tok == tokEOF {
			return out, nil
		}
		n, err := p.content(tok)
		if err != nil {
			return nil, err
		}
		if n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// content decodes one content token. Fragment headers yield a nil node.
func (p *parser) content(tok byte) (node, error) {
	switch tok &^ flagMore {
	case tokFragmentHdr:
		return nil, p.c.Skip(3)
	case tokOpenStart:
		return p.element(tok&flagMore != 0)
	case tokValue:
		if _, err := p.c.U8(); err != nil {
			return nil, err
		}
		s, err := p.countedString()
		return textNode(s), err
	case tokCDATA:
		s, err := p.countedString()
		return cdataNode(s), err
	case tokCharRef:
		v, err := p.c.U16()
		return charRef(v), err
	case tokEntityRef:
		s, err := p.name()
		return entityRef(s), err
	case tokPITarget:
		target, err := p.name()
		if err != nil {
			return nil, err
		}
		next, err := p.c.U8()
		if err != nil {
			return nil, err
		}
		if next != tokPIData {
			return nil, errors.Errorf("pi target followed by token %#x", next)
		}
		data, err := p.countedString()
		return piNode{target: target, data: data}, err
	case tokTemplate:
		return p.instance()
	case tokSubst, tokOptSubst:
		idx, err := p.c.U16()
		if err != nil {
			return nil, err
		}
		typ, err := p.c.U8()
		if err != nil {
			return nil, err
		}
		return substitution{index: idx, typ: typ, optional: tok == tokOptSubst}, nil
	default:
		return nil, errors.Errorf("unexpected token %#x", tok)
	}
}

func (p *parser) element(hasAttrs bool) (*element, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	// dependency id and element size
	if err := p.c.Skip(2 + 4); err != nil {
		return nil, err
	}
	name, err := p.name()
	if err != nil {
		return nil, err
	}
	if hasAttrs {
		if err := p.c.Skip(4); err != nil {
			return nil, err
		}
	}
	el := &element{name: name}

	for {
		tok, err := p.c.U8()
		if err != nil {
			return nil, err
		}
		switch tok &^ flagMore {
		case tokAttribute:
			a, err := p.attribute()
			if err != nil {
				return nil, err
			}
			el.attrs = append(el.attrs, a)
		case tokCloseEmpty:
			return el, nil
		case tokCloseStart:
			return el, p.children(el)
		default:
			return nil, errors.Errorf("unexpected token %#x in <%s>", tok, name)
		}
	}
}

func (p *parser) attribute() (attribute, error) {
	name, err := p.name()
	if err != nil {
		return attribute{}, err
	}
	a := attribute{name: name}
	for {
		next, err := p.c.Peek()
		if err != nil {
			return attribute{}, err
		}
		switch next &^ flagMore {
		case tokAttribute, tokCloseStart, tokCloseEmpty:
			return a, nil
		}
		_, _ = p.c.U8()
		n, err := p.content(next)
		if err != nil {
			return attribute{}, err
		}
		if n != nil {
			a.value = append(a.value, n)
		}
	}
}

func (p *parser) children(el *element) error {
	for {
		tok, err := p.c.U8()
		if err != nil {
			return err
		}
		if tok == tokEnd {
			return nil
		}
		n, err := p.content(tok)
		if err != nil {
			return err
		}
		if n != nil {
			el.children = append(el.children, n)
		}
	}
}

func (p *parser) instance() (*instance, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	if err := p.c.Skip(1); err != nil {
		return nil, err
	}
	if _, err := p.c.U32(); err != nil { // template id
		return nil, err
	}
	defOff, err := p.c.U32()
	if err != nil {
		return nil, err
	}

	tmpl, ok := p.templates[defOff]
	switch {
	case int(defOff) == p.c.Pos():
		// Definition follows inline. Parse it even when cached to step over it.
		tmpl, err = p.definition()
		if err != nil {
			return nil, errors.Wrap(err, "template definition")
		}
		p.templates[defOff] = tmpl
	case !ok:
		resume := p.c.Pos()
		if err := p.c.Seek(int(defOff)); err != nil {
			return nil, errors.Wrapf(err, "template at %#x", defOff)
		}
		tmpl, err = p.definition()
		if err != nil {
			return nil, errors.Wrapf(err, "template at %#x", defOff)
		}
		p.templates[defOff] = tmpl
		if err := p.c.Seek(resume); err != nil {
			return nil, err
		}
	}

	args, err := p.arguments()
	if err != nil {
		return nil, errors.Wrap(err, "template arguments")
	}
	return &instance{tmpl: tmpl, args: args}, nil
}

// definition reads a template header and body at the cursor and leaves the
// cursor after the body.
func (p *parser) definition() (*template, error) {
	// next definition offset and GUID
	if err := p.c.Skip(4 + 16); err != nil {
		return nil, err
	}
	size, err := p.c.U32()
	if err != nil {
		return nil, err
	}
	start := p.c.Pos()
	end, ok := buf.AddOverflowSafe(start, int(size))
	if !ok || end > p.c.Len() {
		return nil, errors.Errorf("template body of %d bytes overruns chunk", size)
	}
	nodes, err := p.fragment(end)
	if err != nil {
		return nil, err
	}
	return &template{nodes: nodes}, p.c.Seek(end)
}

func (p *parser) arguments() ([]value, error) {
	count, err := p.c.U32()
	if err != nil {
		return nil, err
	}
	if int(count)*4 > p.c.Len()-p.c.Pos() {
		return nil, errors.Errorf("argument count %d overruns chunk", count)
	}
	args := make([]value, count)
	sizes := make([]int, count)
	for i := range args {
		size, err := p.c.U16()
		if err != nil {
			return nil, err
		}
		typ, err := p.c.U8()
		if err != nil {
			return nil, err
		}
		if err := p.c.Skip(1); err != nil {
			return nil, err
		}
		args[i].typ = typ
		sizes[i] = int(size)
	}
	for i := range args {
		start := p.c.Pos()
		data, err := p.c.Bytes(sizes[i])
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d", i)
		}
		args[i].data = data
		if args[i].typ != valBinXML {
			continue
		}
		if err := p.c.Seek(start); err != nil {
			return nil, err
		}
		nested, err := p.fragment(start + sizes[i])
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d", i)
		}
		args[i].nested = nested
		if err := p.c.Seek(start + sizes[i]); err != nil {
			return nil, err
		}
	}
	return args, nil
}

// name reads a chunk-relative name reference. The name is stored inline when
// the reference points just past itself.
func (p *parser) name() (string, error) {
	off, err := p.c.U32()
	if err != nil {
		return "", err
	}
	if int(off) == p.c.Pos() {
		return readName(p.c)
	}
	return readName(buf.NewCursor(p.chunk, int(off)))
}

// readName decodes a name record: next offset, hash, character count, the
// characters and a NUL terminator.
func readName(c *buf.Cursor) (string, error) {
	if err := c.Skip(4 + 2); err != nil {
		return "", err
	}
	n, err := c.U16()
	if err != nil {
		return "", err
	}
	raw, err := c.Bytes(2 * int(n))
	if err != nil {
		return "", err
	}
	if err := c.Skip(2); err != nil {
		return "", err
	}
	s, _ := textenc.DecodeUTF16LE(raw)
	return s, nil
}

func (p *parser) countedString() (string, error) {
	n, err := p.c.U16()
	if err != nil {
		return "", err
	}
	raw, err := p.c.Bytes(2 * int(n))
	if err != nil {
		return "", err
	}
	s, _ := textenc.DecodeUTF16LE(raw)
	return s, nil
}
