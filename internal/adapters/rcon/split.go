package rcon

// DefaultChatChunk is the longest chat payload the server relays intact.
const DefaultChatChunk = 150

// SplitText slices text into pieces of at most size bytes. Short text is
// returned as a single piece; empty text yields nothing.
func SplitText(text string, size int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChatChunk
	}
	if len(text) <= size {
		return []string{text}
	}

	pieces := make([]string, 0, len(text)/size+1)
	for len(text) > size {
		pieces = append(pieces, text[:size])
		text = text[size:]
	}
	if text != "" {
		pieces = append(pieces, text)
	}
	return pieces
}
