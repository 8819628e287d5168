package content

// BlockType discriminates provider-agnostic content blocks.
type BlockType string

const (
	BlockTypeText  BlockType = "text"
	BlockTypeImage BlockType = "image"
)

// Block is one unit of message content assembled before provider-specific
// formatting: either text (with an optional title, usually a filename) or
// raw image bytes with their MIME type.
type Block struct {
	Type     BlockType
	Title    string
	Text     string
	MimeType string
	Data     []byte
}

func TextBlock(title, text string) Block {
	return Block{Type: BlockTypeText, Title: title, Text: text}
}

func ImageBlock(mimeType string, data []byte) Block {
	return Block{Type: BlockTypeImage, MimeType: mimeType, Data: data}
}

// HasImage reports whether any block in the list carries image bytes.
func HasImage(blocks []Block) bool {
	for _, b := range blocks {
		if b.Type == BlockTypeImage {
			return true
		}
	}
	return false
}
