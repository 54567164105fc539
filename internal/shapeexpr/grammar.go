// Package shapeexpr parses and evaluates the dataset shape type grammar
// used by the flow run supervisor (C3) to turn a dataset's declared or
// inferred shape into samplesheet/input JSON (spec §4.3 step 2):
//
//	T ::= "String" | "Bool" | "File" | "Directory" | "GenotypeRecord"
//	    | "List[" T "]"
//	    | "Map[" "String" "," T "]"
//	    | "Record{" FIELDS "}"          // FIELDS = name ":" T ("," name ":" T)*
//	    | T "?"                          // optional suffix
package shapeexpr

import (
	"fmt"
	"strings"
)

// Kind enumerates the grammar's scalar and composite type tags.
type Kind string

const (
	KindString        Kind = "String"
	KindBool          Kind = "Bool"
	KindFile          Kind = "File"
	KindDirectory     Kind = "Directory"
	KindGenotypeRecord Kind = "GenotypeRecord"
	KindList          Kind = "List"
	KindMap           Kind = "Map"
	KindRecord        Kind = "Record"
)

// Type is one parsed shape expression node.
type Type struct {
	Kind     Kind
	Optional bool
	Elem     *Type            // List element, or Map value
	MapKey   Kind             // always KindString when Kind == KindMap
	Fields   map[string]*Type // Record fields, order-independent
	Order    []string         // Record field declaration order
}

// Parse parses a shape expression, rejecting non-String map keys and empty
// records per testable property 10.
func Parse(expr string) (*Type, error) {
	p := &parser{input: strings.TrimSpace(expr)}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("shapeexpr: unexpected trailing input %q", p.input[p.pos:])
	}
	return t, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		return fmt.Errorf("shapeexpr: expected %q at position %d", c, p.pos)
	}
	p.pos++
	return nil
}

func (p *parser) parseIdent() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			p.pos++
			continue
		}
		break
	}
	return p.input[start:p.pos]
}

func (p *parser) parseType() (*Type, error) {
	p.skipSpace()
	ident := p.parseIdent()
	if ident == "" {
		return nil, fmt.Errorf("shapeexpr: expected type at position %d", p.pos)
	}

	var t *Type
	switch Kind(ident) {
	case KindString, KindBool, KindFile, KindDirectory, KindGenotypeRecord:
		t = &Type{Kind: Kind(ident)}
	case KindList:
		if err := p.expect('['); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		t = &Type{Kind: KindList, Elem: elem}
	case KindMap:
		if err := p.expect('['); err != nil {
			return nil, err
		}
		keyIdent := p.parseIdent()
		if Kind(keyIdent) != KindString {
			return nil, fmt.Errorf("shapeexpr: Map key must be String, got %q", keyIdent)
		}
		p.skipSpace()
		if err := p.expect(','); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		t = &Type{Kind: KindMap, MapKey: KindString, Elem: elem}
	case KindRecord:
		if err := p.expect('{'); err != nil {
			return nil, err
		}
		fields := map[string]*Type{}
		var order []string
		p.skipSpace()
		for p.peek() != '}' {
			name := p.parseIdent()
			if name == "" {
				return nil, fmt.Errorf("shapeexpr: expected field name at position %d", p.pos)
			}
			if err := p.expect(':'); err != nil {
				return nil, err
			}
			ft, err := p.parseType()
			if err != nil {
				return nil, err
			}
			fields[name] = ft
			order = append(order, name)
			p.skipSpace()
			if p.peek() == ',' {
				p.pos++
				p.skipSpace()
				continue
			}
			break
		}
		if err := p.expect('}'); err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			return nil, fmt.Errorf("shapeexpr: Record{} must declare at least one field")
		}
		t = &Type{Kind: KindRecord, Fields: fields, Order: order}
	default:
		return nil, fmt.Errorf("shapeexpr: unknown type %q", ident)
	}

	p.skipSpace()
	if p.peek() == '?' {
		p.pos++
		t.Optional = true
	}
	return t, nil
}

// String renders t back to its grammar form, mainly for error messages and
// tests.
func (t *Type) String() string {
	var b strings.Builder
	t.write(&b)
	if t.Optional {
		b.WriteByte('?')
	}
	return b.String()
}

func (t *Type) write(b *strings.Builder) {
	switch t.Kind {
	case KindList:
		b.WriteString("List[")
		b.WriteString(t.Elem.String())
		b.WriteByte(']')
	case KindMap:
		b.WriteString("Map[String,")
		b.WriteString(t.Elem.String())
		b.WriteByte(']')
	case KindRecord:
		b.WriteString("Record{")
		for i, name := range t.Order {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(name)
			b.WriteByte(':')
			b.WriteString(t.Fields[name].String())
		}
		b.WriteByte('}')
	default:
		b.WriteString(string(t.Kind))
	}
}
