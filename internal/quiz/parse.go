package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/abdulachik/novelquiz/internal/llm"
)

// ErrInvalidResponse is returned when a model response does not match the
// quiz schema.
var ErrInvalidResponse = errors.New("invalid quiz response")

// responseSchema is the contract for model output. Choice fields are
// optional; normalization fills them in.
const responseSchema = `{
  "type": "object",
  "required": ["questions"],
  "properties": {
    "summary": {"type": "string"},
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["question", "choices"],
        "properties": {
          "question": {"type": "string", "minLength": 1},
          "summary": {"type": "string"},
          "choices": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "properties": {
                "text": {"type": "string"},
                "isCorrect": {"type": "boolean"},
                "feedback": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`

var schema = mustLoadSchema(responseSchema)

func mustLoadSchema(s string) *gojsonschema.Schema {
	sch, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("load quiz response schema: %v", err))
	}
	return sch
}

// Response is the model's quiz output.
type Response struct {
	Summary   string        `json:"summary"`
	Questions []RawQuestion `json:"questions"`
}

// RawQuestion is a question as the model returned it.
type RawQuestion struct {
	Question string      `json:"question"`
	Choices  []RawChoice `json:"choices"`
	Summary  string      `json:"summary"`
}

// RawChoice is a choice as the model returned it.
type RawChoice struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
	Feedback  string `json:"feedback"`
}

// ParseResponse strips code fences, validates the JSON against the quiz
// schema and decodes it.
func ParseResponse(raw string) (*Response, error) {
	body := llm.StripCodeFence(raw)
	if !json.Valid([]byte(body)) {
		// Models sometimes wrap the object in prose.
		extracted, err := extractJSONObject(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
		}
		body = extracted
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(body))
	if err != nil {
		return nil, fmt.Errorf("validate response: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, strings.Join(msgs, "; "))
	}

	var resp Response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

// extractJSONObject finds the first balanced JSON object in a response that
// may contain other text.
func extractJSONObject(response string) (string, error) {
	start := strings.IndexByte(response, '{')
	if start == -1 {
		return "", fmt.Errorf("no JSON object found in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("malformed JSON object in response")
}
