package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/subtitle"
	"github.com/Rnteacher/stremio-hebrew-subtitles/pkg/log"
	"golang.org/x/text/language/display"
)

// chatClient is the LLM surface the translator depends on.
type chatClient interface {
	SimpleChat(ctx context.Context, prompt string, systemPrompt string) (string, error)
}

// llmTranslator translates SRT documents through a chat-completions model.
// Oversized documents are split into batches of whole entries, translated
// strictly in order, and reassembled; any batch failure aborts the whole
// translation.
type llmTranslator struct {
	client chatClient
	cfg    Config
}

// NewLLMTranslator creates a translator backed by the given chat client.
func NewLLMTranslator(client chatClient, cfg Config) Translator {
	return &llmTranslator{
		client: client,
		cfg:    cfg.withDefaults(),
	}
}

func (t *llmTranslator) Translate(ctx context.Context, doc *subtitle.Document) (*subtitle.Document, error) {
	if doc == nil || len(doc.Entries) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrTranslationFailed)
	}

	// If the source already reads as the target language there is nothing
	// to translate; skip the external calls entirely.
	if detected := subtitle.DetectLanguage(doc); detected == t.cfg.TargetLanguage {
		log.Info("Document already in target language %s, skipping translation", t.cfg.TargetLanguage)
		copied := *doc
		copied.Entries = append([]subtitle.Entry(nil), doc.Entries...)
		return &copied, nil
	}

	batchSize := len(doc.Entries)
	if lineCount(doc) > t.cfg.ChunkThreshold {
		batchSize = t.cfg.BatchSize
	}

	systemPrompt := t.buildSystemPrompt()
	translated := make([]subtitle.Entry, 0, len(doc.Entries))

	// Batches are issued sequentially so output order is trivially the
	// input order and the translation service sees one call at a time.
	for start := 0; start < len(doc.Entries); start += batchSize {
		end := min(start+batchSize, len(doc.Entries))
		batch := doc.Entries[start:end]

		out, err := t.translateBatch(ctx, systemPrompt, batch)
		if err != nil {
			return nil, fmt.Errorf("%w: entries %d-%d: %v", ErrTranslationFailed, start+1, end, err)
		}
		translated = append(translated, out...)
	}

	return &subtitle.Document{
		Entries: translated,
		Format:  doc.Format,
	}, nil
}

func (t *llmTranslator) translateBatch(ctx context.Context, systemPrompt string, batch []subtitle.Entry) ([]subtitle.Entry, error) {
	prompt := subtitle.Render(&subtitle.Document{Entries: batch})

	batchCtx, cancel := context.WithTimeout(ctx, t.cfg.BatchTimeout)
	defer cancel()

	content, err := t.client.SimpleChat(batchCtx, prompt, systemPrompt)
	if err != nil {
		return nil, err
	}

	out, err := subtitle.Parse(strings.TrimSpace(content) + "\n")
	if err != nil {
		return nil, fmt.Errorf("model output is not valid SRT: %w", err)
	}

	if err := verifyStructure(batch, out.Entries); err != nil {
		return nil, err
	}

	// Indices are restored from the source so renumbering by the model
	// cannot leak into the output.
	for i := range out.Entries {
		out.Entries[i].Index = batch[i].Index
	}
	return out.Entries, nil
}

// verifyStructure fails closed when the model altered anything besides the
// dialogue text: entry count and per-entry timestamps must match the source.
func verifyStructure(in, out []subtitle.Entry) error {
	if len(out) != len(in) {
		return fmt.Errorf("entry count changed: sent %d, got %d", len(in), len(out))
	}
	for i := range in {
		if in[i].StartTime != out[i].StartTime || in[i].EndTime != out[i].EndTime {
			return fmt.Errorf("timestamps changed on entry %d", in[i].Index)
		}
	}
	return nil
}

func (t *llmTranslator) buildSystemPrompt() string {
	source := display.English.Tags().Name(t.cfg.SourceLanguage)
	target := display.English.Tags().Name(t.cfg.TargetLanguage)

	var prompt strings.Builder
	prompt.WriteString("You are a professional subtitle translator. Translate the SRT subtitle block below from " + source + " to " + target + ".\n\n")
	prompt.WriteString("=== RULES ===\n")
	prompt.WriteString("1. Translate ONLY the dialogue text lines.\n")
	prompt.WriteString("2. Keep every entry index exactly as it is.\n")
	prompt.WriteString("3. Keep every timestamp line exactly as it is, including the --> separator.\n")
	prompt.WriteString("4. Keep the blank line between entries.\n")
	prompt.WriteString("5. The number of entries in your output must exactly match the input.\n")
	prompt.WriteString("6. Use natural, fluent " + target + " appropriate for on-screen subtitles.\n")
	prompt.WriteString("\n=== OUTPUT FORMAT ===\n")
	prompt.WriteString("Return ONLY the translated SRT text. No explanations, notes, or code fences.\n")

	return prompt.String()
}

// lineCount counts the lines of the rendered document: index line, timing
// line, text lines and the blank separator per entry.
func lineCount(doc *subtitle.Document) int {
	n := 0
	for _, entry := range doc.Entries {
		n += 4 + strings.Count(entry.Text, "\n")
	}
	return n
}
