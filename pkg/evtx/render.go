package evtx

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type renderer struct {
	sb    strings.Builder
	depth int
}

func render(nodes []node) (string, error) {
	var r renderer
	if err := r.nodes(nodes, nil); err != nil {
		return "", err
	}
	return r.sb.String(), nil
}

func (r *renderer) nodes(nodes []node, args []value) error {
	r.depth++
	defer func() { r.depth-- }()
	if r.depth > maxDepth {
		return errors.New("render nested too deeply")
	}
	for _, n := range nodes {
		if err := r.node(n, args); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) node(n node, args []value) error {
	switch n := n.(type) {
	case *element:
		return r.element(n, args)
	case textNode:
		r.escape(string(n))
	case cdataNode:
		r.sb.WriteString("<![CDATA[")
		r.sb.WriteString(string(n))
		r.sb.WriteString("]]>")
	case charRef:
		r.sb.WriteString("&#")
		r.sb.WriteString(strconv.Itoa(int(n)))
		r.sb.WriteByte(';')
	case entityRef:
		r.sb.WriteByte('&')
		r.sb.WriteString(string(n))
		r.sb.WriteByte(';')
	case piNode:
		r.sb.WriteString("<?")
		r.sb.WriteString(n.target)
		if n.data != "" {
			r.sb.WriteByte(' ')
			r.sb.WriteString(n.data)
		}
		r.sb.WriteString("?>")
	case substitution:
		return r.substitute(n, args)
	case *instance:
		return r.nodes(n.tmpl.nodes, n.args)
	default:
		return errors.Errorf("cannot render %T", n)
	}
	return nil
}

func (r *renderer) element(el *element, args []value) error {
	r.sb.WriteByte('<')
	r.sb.WriteString(el.name)
	for _, a := range el.attrs {
		if omitted(a, args) {
			continue
		}
		var sub renderer
		sub.depth = r.depth
		if err := sub.nodes(a.value, args); err != nil {
			return err
		}
		r.sb.WriteByte(' ')
		r.sb.WriteString(a.name)
		r.sb.WriteString(`="`)
		r.sb.WriteString(sub.sb.String())
		r.sb.WriteByte('"')
	}
	if len(el.children) == 0 {
		r.sb.WriteString("/>")
		return nil
	}
	r.sb.WriteByte('>')
	if err := r.nodes(el.children, args); err != nil {
		return err
	}
	r.sb.WriteString("</")
	r.sb.WriteString(el.name)
	r.sb.WriteByte('>')
	return nil
}

// omitted reports whether an attribute consists only of optional
// substitutions bound to null values.
func omitted(a attribute, args []value) bool {
	if len(a.value) == 0 {
		return false
	}
	for _, n := range a.value {
		s, ok := n.(substitution)
		if !ok || !s.optional {
			return false
		}
		if int(s.index) < len(args) && !args[s.index].null() {
			return false
		}
	}
	return true
}

func (r *renderer) substitute(s substitution, args []value) error {
	if int(s.index) >= len(args) {
		if s.optional {
			return nil
		}
		return errors.Errorf("substitution %d with %d arguments", s.index, len(args))
	}
	v := args[s.index]
	if v.typ == valBinXML {
		return r.nodes(v.nested, nil)
	}
	text, err := v.String()
	if err != nil {
		return errors.Wrapf(err, "substitution %d", s.index)
	}
	r.escape(text)
	return nil
}

func (r *renderer) escape(s string) {
	_ = xml.EscapeText(&r.sb, []byte(s))
}
