package subtitle

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// MinRawBytes is the smallest payload accepted as a plausible subtitle file.
const MinRawBytes = 64

// TimingSeparator is the SRT range marker every well-formed file contains.
const TimingSeparator = "-->"

// ValidateRaw performs the lightweight well-formedness check applied to
// freshly downloaded subtitle text before it is parsed or translated.
func ValidateRaw(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("subtitle content is empty")
	}
	if len(raw) < MinRawBytes {
		return fmt.Errorf("subtitle content too short: %d bytes", len(raw))
	}
	if !strings.Contains(raw, TimingSeparator) {
		return fmt.Errorf("subtitle content has no %q timing separator", TimingSeparator)
	}
	return nil
}

// Parse reads SRT text into a Document. Entry order is taken as-is from the
// input; only per-entry time sanity is enforced.
func Parse(text string) (*Document, error) {
	var entries []Entry
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	current := Entry{}
	state := "index" // possible values: "index", "time", "text"
	var textLines []string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch state {
		case "index":
			if line == "" {
				continue
			}
			index, err := strconv.Atoi(line)
			if err != nil {
				continue // skip non-index lines such as BOM remnants
			}
			current.Index = index
			state = "time"

		case "time":
			if line == "" {
				continue
			}
			startTime, endTime, err := parseSRTTime(line)
			if err != nil {
				return nil, fmt.Errorf("failed to parse time: %w", err)
			}
			if endTime < startTime {
				return nil, fmt.Errorf("entry %d ends before it starts", current.Index)
			}
			current.StartTime = startTime
			current.EndTime = endTime
			state = "text"
			textLines = []string{}

		case "text":
			if line == "" {
				// caption text ends
				if len(textLines) > 0 {
					current.Text = strings.Join(textLines, "\n")
					entries = append(entries, current)
					current = Entry{}
				}
				state = "index"
				textLines = []string{}
			} else {
				textLines = append(textLines, line)
			}
		}
	}

	// handle trailing entry without a closing blank line
	if state == "text" && len(textLines) > 0 {
		current.Text = strings.Join(textLines, "\n")
		entries = append(entries, current)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan subtitle text: %w", err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("no subtitle entries found")
	}

	return &Document{
		Entries: entries,
		Format:  "SRT",
	}, nil
}

// Render writes a Document back to SRT text, entry indices, timestamp lines
// and blank-line separators included.
func Render(doc *Document) string {
	var sb strings.Builder
	for _, entry := range doc.Entries {
		fmt.Fprintf(&sb, "%d\n", entry.Index)
		fmt.Fprintf(&sb, "%s %s %s\n", FormatDuration(entry.StartTime), TimingSeparator, FormatDuration(entry.EndTime))
		fmt.Fprintf(&sb, "%s\n\n", entry.Text)
	}
	return sb.String()
}

// FormatDuration formats a duration in the SRT timestamp form.
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	milliseconds := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, milliseconds)
}

var srtTimeRe = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2}),(\d{3}) --> (\d{2}):(\d{2}):(\d{2}),(\d{3})`)

// parseSRTTime parses an SRT range line such as "00:02:16,612 --> 00:02:19,376"
func parseSRTTime(timeString string) (time.Duration, time.Duration, error) {
	matches := srtTimeRe.FindStringSubmatch(timeString)
	if len(matches) != 9 {
		return 0, 0, fmt.Errorf("invalid time format: %s", timeString)
	}

	parseTime := func(hours, minutes, seconds, milliseconds string) time.Duration {
		h, _ := strconv.Atoi(hours)
		m, _ := strconv.Atoi(minutes)
		s, _ := strconv.Atoi(seconds)
		ms, _ := strconv.Atoi(milliseconds)

		return time.Duration(h)*time.Hour +
			time.Duration(m)*time.Minute +
			time.Duration(s)*time.Second +
			time.Duration(ms)*time.Millisecond
	}

	startTime := parseTime(matches[1], matches[2], matches[3], matches[4])
	endTime := parseTime(matches[5], matches[6], matches[7], matches[8])
	return startTime, endTime, nil
}

// DetectLanguage guesses the dominant language of a document by majority
// vote over its entries.
func DetectLanguage(doc *Document) language.Tag {
	if doc == nil || len(doc.Entries) == 0 {
		return language.Und
	}

	langMap := make(map[string]int)
	for _, entry := range doc.Entries {
		lang := whatlanggo.DetectLang(entry.Text).Iso6391()
		langMap[lang]++
	}

	var topLang string
	var topCount int
	for lang, count := range langMap {
		if count > topCount {
			topLang = lang
			topCount = count
		}
	}

	tag, err := language.Parse(topLang)
	if err != nil {
		return language.Und
	}
	return tag
}
