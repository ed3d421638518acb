package dataloop

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
)

// ErrInvalidPromptItem is wrapped by every ParsePromptItem failure.
var ErrInvalidPromptItem = stderrors.New("dataloop: invalid prompt item")

const (
	PromptTypeText = "application/text"

	RoleUser = "user"

	promptFileExt = ".json"
)

type Content struct {
	Mimetype string `json:"mimetype"`
	Value    string `json:"value"`
}

type Message struct {
	Role    string
	Content []Content
}

// Prompt is one keyed entry of a prompt item. Keys are "1", "2", ... in
// insertion order.
type Prompt struct {
	Key      string
	Role     string
	Elements []Content
}

// PromptItem is the JSON document the platform stores for a conversational
// item.
type PromptItem struct {
	Name    string
	Prompts []Prompt
}

func NewPromptItem(name string) *PromptItem {
	return &PromptItem{Name: name}
}

// Add appends msg as the next prompt. Only user messages become prompts;
// responses live in annotations.
func (p *PromptItem) Add(msg Message) error {
	if msg.Role != RoleUser {
		return fmt.Errorf("prompt item %s: unsupported role %q", p.Name, msg.Role)
	}
	if len(msg.Content) == 0 {
		return fmt.Errorf("prompt item %s: message has no content", p.Name)
	}
	p.Prompts = append(p.Prompts, Prompt{
		Key:      strconv.Itoa(len(p.Prompts) + 1),
		Role:     msg.Role,
		Elements: append([]Content(nil), msg.Content...),
	})
	return nil
}

// FileName is the name the item is stored under. The platform keeps the
// ".json" extension in the item name.
func (p *PromptItem) FileName() string {
	return p.Name + promptFileExt
}

// FirstPromptKey returns the key of the first prompt.
func (p *PromptItem) FirstPromptKey() (string, bool) {
	if len(p.Prompts) == 0 {
		return "", false
	}
	return p.Prompts[0].Key, true
}

type promptItemHeader struct {
	Shebang  string            `json:"shebang"`
	Metadata map[string]string `json:"metadata"`
	Prompts  json.RawMessage   `json:"prompts"`
}

// MarshalJSON writes prompts as an object whose key order follows Prompts.
func (p *PromptItem) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prompt := range p.Prompts {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prompt.Key)
		if err != nil {
			return nil, err
		}
		elements, err := json.Marshal(prompt.Elements)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(elements)
	}
	buf.WriteByte('}')

	return json.Marshal(promptItemHeader{
		Shebang:  "dataloop",
		Metadata: map[string]string{"dltype": "prompt"},
		Prompts:  buf.Bytes(),
	})
}

// ParsePromptItem reads a prompt item document, keeping prompt order as it
// appears in the file.
func ParsePromptItem(name string, data []byte) (*PromptItem, error) {
	var header promptItemHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidPromptItem, name, err)
	}
	if header.Metadata["dltype"] != "prompt" {
		return nil, fmt.Errorf("%w: %s has dltype %q", ErrInvalidPromptItem, name, header.Metadata["dltype"])
	}

	item := NewPromptItem(name)
	if len(header.Prompts) == 0 {
		return item, nil
	}

	dec := json.NewDecoder(bytes.NewReader(header.Prompts))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: decode prompts of %s: %v", ErrInvalidPromptItem, name, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: prompts of %s: expected object", ErrInvalidPromptItem, name)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: decode prompts of %s: %v", ErrInvalidPromptItem, name, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: prompts of %s: expected key, got %v", ErrInvalidPromptItem, name, tok)
		}
		var elements []Content
		if err := dec.Decode(&elements); err != nil {
			return nil, fmt.Errorf("%w: decode prompt %s of %s: %v", ErrInvalidPromptItem, key, name, err)
		}
		item.Prompts = append(item.Prompts, Prompt{Key: key, Role: RoleUser, Elements: elements})
	}

	return item, nil
}
