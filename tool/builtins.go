package tool

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// timeTool reports the current date and time. The input is ignored.
type timeTool struct {
	now func() time.Time
}

var (
	_ Tool = (*timeTool)(nil)
	_ Tool = (*webSearchTool)(nil)
	_ Tool = (*fileReaderTool)(nil)
	_ Tool = (*textProcessorTool)(nil)
	_ Tool = (*weatherTool)(nil)
	_ Tool = (*wikipediaSearchTool)(nil)
)

func newTimeTool() *timeTool { return &timeTool{now: time.Now} }

func (t *timeTool) Name() string { return "time" }

func (t *timeTool) Description() string {
	return "Returns the current date and time. Input is ignored."
}

func (t *timeTool) Call(_ context.Context, _ string) (string, error) {
	return t.now().Format("Current time: 2006-01-02 15:04:05 MST"), nil
}

// webSearchTool simulates a web search. It never performs network I/O; it
// returns a fixed set of placeholder results so pipelines that bind it have
// deterministic output.
type webSearchTool struct{}

func newWebSearchTool() *webSearchTool { return &webSearchTool{} }

func (w *webSearchTool) Name() string { return "web_search" }

func (w *webSearchTool) Description() string {
	return "Searches the web for the given query and returns a list of results. Input should be a search query."
}

func (w *webSearchTool) Call(_ context.Context, input string) (string, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return "Error: search query is empty.", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Search results for %q:\n", query)
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&b, "%d. Simulated result %d about %s\n", i, i, query)
	}
	return b.String(), nil
}

// fileReaderTool simulates reading a file. It refuses paths that look like
// they target secrets and otherwise returns placeholder content; it never
// touches the real filesystem.
type fileReaderTool struct{}

func newFileReaderTool() *fileReaderTool { return &fileReaderTool{} }

func (f *fileReaderTool) Name() string { return "file_reader" }

func (f *fileReaderTool) Description() string {
	return "Reads the contents of a file. Input should be a file path."
}

func (f *fileReaderTool) Call(_ context.Context, input string) (string, error) {
	path := strings.TrimSpace(input)
	if path == "" {
		return "Error: file path is empty.", nil
	}
	if strings.Contains(strings.ToLower(path), "secret") {
		return fmt.Sprintf("Access denied: %s", path), nil
	}
	return fmt.Sprintf("Contents of %s:\n[simulated file content]", path), nil
}

// weatherTool simulates a weather lookup for a handful of known cities and
// falls back to a fixed reading for anything else. No network I/O.
type weatherTool struct{}

func newWeatherTool() *weatherTool { return &weatherTool{} }

func (w *weatherTool) Name() string { return "weather" }

func (w *weatherTool) Description() string {
	return "Gets the current weather for a location. Input should be a city name."
}

var simulatedWeather = map[string]string{
	"new york": "75°F, Sunny",
	"london":   "60°F, Cloudy",
	"tokyo":    "68°F, Partly Cloudy",
	"sydney":   "72°F, Clear",
}

func (w *weatherTool) Call(_ context.Context, input string) (string, error) {
	location := strings.TrimSpace(input)
	if location == "" {
		return "Error: location is empty.", nil
	}
	if report, ok := simulatedWeather[strings.ToLower(location)]; ok {
		return fmt.Sprintf("Weather in %s: %s", location, report), nil
	}
	return fmt.Sprintf("Weather data not available for %s. Simulated: 70°F, Mostly Sunny", location), nil
}

// wikipediaSearchTool simulates a Wikipedia lookup, returning a fixed
// article outline for the query.
type wikipediaSearchTool struct{}

func newWikipediaSearchTool() *wikipediaSearchTool { return &wikipediaSearchTool{} }

func (w *wikipediaSearchTool) Name() string { return "wikipedia_search" }

func (w *wikipediaSearchTool) Description() string {
	return "Search Wikipedia for information on a topic."
}

func (w *wikipediaSearchTool) Call(_ context.Context, input string) (string, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return "Error: search query is empty.", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Wikipedia results for %q:\n", query)
	fmt.Fprintf(&b, "1. %s - Overview and history\n", query)
	fmt.Fprintf(&b, "2. Applications of %s\n", query)
	fmt.Fprintf(&b, "3. Recent developments in %s field\n", query)
	return b.String(), nil
}

// textProcessorTool applies a named operation to text. Input format:
// "<operation>: <text>".
type textProcessorTool struct{}

func newTextProcessorTool() *textProcessorTool { return &textProcessorTool{} }

func (t *textProcessorTool) Name() string { return "text_processor" }

func (t *textProcessorTool) Description() string {
	return "Processes text. Input format: '<operation>: <text>' where operation is one of word_count, character_count, reverse, upper, lower, extract_numbers."
}

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

func (t *textProcessorTool) Call(_ context.Context, input string) (string, error) {
	op, text, ok := strings.Cut(input, ":")
	if !ok {
		return "Error: expected input format '<operation>: <text>'.", nil
	}
	op = strings.ToLower(strings.TrimSpace(op))
	text = strings.TrimSpace(text)

	switch op {
	case "word_count":
		return fmt.Sprintf("Word count: %d", len(strings.Fields(text))), nil
	case "character_count":
		return fmt.Sprintf("Character count: %d", len([]rune(text))), nil
	case "reverse":
		runes := []rune(text)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes), nil
	case "upper":
		return strings.ToUpper(text), nil
	case "lower":
		return strings.ToLower(text), nil
	case "extract_numbers":
		nums := numberPattern.FindAllString(text, -1)
		if len(nums) == 0 {
			return "No numbers found.", nil
		}
		return "Numbers found: " + strings.Join(nums, ", "), nil
	default:
		return fmt.Sprintf("Error: unknown operation %q. Supported: word_count, character_count, reverse, upper, lower, extract_numbers.", op), nil
	}
}
