package reply

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrParse is matched by every *ParseError.
var ErrParse = errors.New("reply: model output is not a json object")

// ParseError reports model output that could not be read as an object by any
// extraction stage.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", ErrParse, e.Err)
	}
	return ErrParse.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// CorrectionResult is the structured evaluation of one learner utterance.
type CorrectionResult struct {
	Original    string `json:"original" jsonschema:"the learner sentence exactly as heard"`
	Corrected   string `json:"corrected" jsonschema:"the corrected sentence, identical to original when there are no errors"`
	HasErrors   bool   `json:"has_errors" jsonschema:"whether the original contains grammar or word-choice errors"`
	Explanation string `json:"explanation" jsonschema:"short explanation of the errors in simple Arabic"`
	Improved    string `json:"improved" jsonschema:"a more natural or richer rewording"`
	Followup    string `json:"followup" jsonschema:"a short follow-up question that continues the conversation"`
}

// ReplyText is the assistant-visible text of r: the follow-up when present,
// otherwise the corrected sentence.
func (r CorrectionResult) ReplyText() string {
	if s := strings.TrimSpace(r.Followup); s != "" {
		return s
	}
	return strings.TrimSpace(r.Corrected)
}

// Parser extracts a CorrectionResult from raw model text.
//
// Stages run in order: the whole trimmed text, then the span from the first
// '{' to the last '}'. With Repair set, a final stage runs the span through
// jsonrepair before giving up.
type Parser struct {
	Repair bool
}

// Parse runs the default, non-repairing parser.
func Parse(raw string) (CorrectionResult, error) {
	return Parser{}.Parse(raw)
}

// Parse extracts a CorrectionResult from raw. Missing fields take their zero
// value and unknown fields are ignored.
func (p Parser) Parse(raw string) (CorrectionResult, error) {
	text := strings.TrimSpace(raw)
	fields, err := decodeObject(text)
	if err == nil {
		return fromFields(fields), nil
	}
	firstErr := err

	span, ok := braceSpan(text)
	if !ok {
		return CorrectionResult{}, &ParseError{Raw: raw, Err: firstErr}
	}
	if fields, err = decodeObject(span); err == nil {
		return fromFields(fields), nil
	}

	if p.Repair {
		fixed, rerr := jsonrepair.JSONRepair(span)
		if rerr == nil {
			if fields, err = decodeObject(fixed); err == nil {
				return fromFields(fields), nil
			}
		}
	}
	return CorrectionResult{}, &ParseError{Raw: raw, Err: err}
}

func braceSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func decodeObject(s string) (map[string]json.RawMessage, error) {
	if s == "" {
		return nil, errors.New("empty input")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		// literal null
		return nil, errors.New("not an object")
	}
	return fields, nil
}

func fromFields(f map[string]json.RawMessage) CorrectionResult {
	return CorrectionResult{
		Original:    stringField(f, "original"),
		Corrected:   stringField(f, "corrected"),
		HasErrors:   boolField(f, "has_errors"),
		Explanation: stringField(f, "explanation"),
		Improved:    stringField(f, "improved"),
		Followup:    stringField(f, "followup"),
	}
}

func stringField(f map[string]json.RawMessage, key string) string {
	raw, ok := f[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// boolField also accepts "true"/"false" strings, which models emit often
// enough to matter.
func boolField(f map[string]json.RawMessage, key string) bool {
	raw, ok := f[key]
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.EqualFold(strings.TrimSpace(s), "true")
	}
	return false
}
