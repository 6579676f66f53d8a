package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/yungbote/enemia-backend/internal/platform/apierr"
)

// ErrNoJSON means the model output held nothing that looked like the expected JSON.
var ErrNoJSON = errors.New("no json found in model output")

var fencedJSONRE = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")

// SliceArray returns text from the first '[' through the last ']'.
func SliceArray(text string) (string, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < 0 || end < start {
		return "", fmt.Errorf("%w: no bracketed array", ErrNoJSON)
	}
	return text[start : end+1], nil
}

// SliceObject returns text from the first '{' through the last '}'. When the last '}' comes before
// the first '{' the slice is empty and nil error is returned, so decoding it fails like any malformed object.
func SliceObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < 0 {
		return "", fmt.Errorf("%w: no object", ErrNoJSON)
	}
	if end < start {
		return "", nil
	}
	return text[start : end+1], nil
}

// SliceFenced returns the body of the first ```json fenced block.
func SliceFenced(text string) (string, error) {
	m := fencedJSONRE.FindStringSubmatch(text)
	if m == nil {
		return "", fmt.Errorf("%w: no fenced json block", ErrNoJSON)
	}
	return m[1], nil
}

// ExtractArray recovers the bracket-delimited array embedded in text. Any failure is a generation parse error.
func ExtractArray[T any](text string) ([]T, error) {
	raw, err := SliceArray(text)
	if err != nil {
		return nil, apierr.GenerationParse(err)
	}
	var out []T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, apierr.GenerationParse(fmt.Errorf("decode json array: %w", err))
	}
	return out, nil
}

// ExtractFencedJSON decodes the first ```json block in text. There is no fallback.
func ExtractFencedJSON[T any](text string) (T, error) {
	var out T
	raw, err := SliceFenced(text)
	if err != nil {
		return out, apierr.GenerationParse(err)
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, apierr.GenerationParse(fmt.Errorf("decode fenced json: %w", err))
	}
	return out, nil
}
