package llm

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// DoneMarker terminates an event stream.
const DoneMarker = "[DONE]"

// Chunk mirrors the provider's incremental delta shape.
type Chunk struct {
	Choices []ChunkChoice `json:"choices"`
}

type ChunkChoice struct {
	Delta Delta `json:"delta"`
}

type Delta struct {
	Content string `json:"content"`
}

// SyntheticStream is a single-chunk stream carrying text, followed by the done marker.
func SyntheticStream(text string) io.ReadCloser {
	chunk, _ := json.Marshal(Chunk{Choices: []ChunkChoice{{Delta: Delta{Content: text}}}})
	var b strings.Builder
	b.WriteString("data: ")
	b.Write(chunk)
	b.WriteString("\n\n")
	b.WriteString("data: " + DoneMarker + "\n\n")
	return io.NopCloser(strings.NewReader(b.String()))
}

// CollectContent concatenates every delta in an event stream. Lines that are
// not data events or fail to decode are skipped.
func CollectContent(r io.Reader) (string, error) {
	var out strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), 1<<20)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == DoneMarker {
			break
		}
		var chunk Chunk
		if json.Unmarshal([]byte(data), &chunk) != nil {
			continue
		}
		for _, choice := range chunk.Choices {
			out.WriteString(choice.Delta.Content)
		}
	}
	return out.String(), scanner.Err()
}
