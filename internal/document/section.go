package document

import (
	"bytes"
	"encoding/json"
)

// Section is a node of an article's heading tree: either a Leaf holding
// text or a Node holding named subsections in document order.
type Section interface {
	section()
}

// Leaf is a section without subsections.
type Leaf struct {
	Text string
}

// Node is a section with ordered, named subsections.
type Node struct {
	Children []Child
}

// Child names one subsection of a Node.
type Child struct {
	Name    string
	Section Section
}

func (Leaf) section()  {}
func (*Node) section() {}

// Get returns the subsection called name.
func (n *Node) Get(name string) (Section, bool) {
	for _, c := range n.Children {
		if c.Name == name {
			return c.Section, true
		}
	}
	return nil, false
}

func (n *Node) add(name string, s Section) {
	n.Children = append(n.Children, Child{Name: name, Section: s})
}

// MarshalJSON encodes a leaf as a bare string.
func (l Leaf) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Text)
}

// MarshalJSON encodes a node as an object whose keys keep document order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range n.Children {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(c.Section)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
