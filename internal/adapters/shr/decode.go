package shr

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/akshaysorathiya9581/book-your-stay/internal/domain"
)

// decodeJSON returns nil when the body is not a JSON document. The caller
// falls through to XML for targets known to return it.
func decodeJSON(b []byte) *domain.Node {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	if v == nil {
		return nil
	}
	return domain.FromAny(v)
}

// decodeXML converts an XML document into the same nested shape decodeJSON
// produces: element attributes under "@attributes", mixed text under "Text",
// text-only elements collapsed to strings, repeated sibling elements
// collapsed into arrays. The root element name is kept as the top-level key,
// which is why the normalizer's candidate paths carry both rooted and
// rootless variants.
func decodeXML(b []byte) (*domain.Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(b))
	dec.Strict = false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, errors.New("no root element")
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		child, err := parseElement(dec, se)
		if err != nil {
			return nil, err
		}
		root := domain.ObjectNode()
		root.Set(se.Name.Local, child)
		return root, nil
	}
}

func parseElement(dec *xml.Decoder, se xml.StartElement) (*domain.Node, error) {
	obj := domain.ObjectNode()

	attrs := domain.ObjectNode()
	for _, a := range se.Attr {
		// namespace declarations are noise, not data
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		attrs.Set(a.Name.Local, domain.StringNode(a.Value))
	}
	if attrs.Len() > 0 {
		obj.Set("@attributes", attrs)
	}

	var text strings.Builder
	children := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := parseElement(dec, t)
			if err != nil {
				return nil, err
			}
			addChild(obj, t.Name.Local, child)
			children++
		case xml.CharData:
			text.Write([]byte(t))
		case xml.EndElement:
			s := strings.TrimSpace(text.String())
			if children == 0 && obj.Len() == 0 {
				return domain.StringNode(s), nil
			}
			if s != "" {
				obj.Set("Text", domain.StringNode(s))
			}
			return obj, nil
		}
	}
}

// addChild promotes repeated sibling elements to an array.
func addChild(obj *domain.Node, name string, child *domain.Node) {
	existing := obj.Get(name)
	if existing == nil {
		obj.Set(name, child)
		return
	}
	if existing.Kind() == domain.KindArray {
		existing.Append(child)
		return
	}
	obj.Set(name, domain.ArrayNode(existing, child))
}
