package inference

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ParseKind tags the outcome of ParseResponse.
type ParseKind int

const (
	ParseText ParseKind = iota
	ParseEmpty
	ParseMalformed
)

func (k ParseKind) String() string {
	switch k {
	case ParseText:
		return "text"
	case ParseEmpty:
		return "empty"
	default:
		return "malformed"
	}
}

// ParseResult is the tagged outcome of decoding a response body.
type ParseResult struct {
	Kind ParseKind
	Text string
	// Err explains a malformed body.
	Err error
}

// envelope covers every response shape the service has been seen to return.
type envelope struct {
	GeneratedText string `json:"generated_text"`
	Choices       []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (e envelope) text() string {
	if e.GeneratedText != "" {
		return e.GeneratedText
	}
	if len(e.Choices) > 0 {
		if e.Choices[0].Message.Content != "" {
			return e.Choices[0].Message.Content
		}
		return e.Choices[0].Text
	}
	if len(e.Candidates) > 0 {
		var sb strings.Builder
		for _, part := range e.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
		return sb.String()
	}
	return ""
}

// ParseResponse extracts the generated text from a response body. It accepts
// a list of results, a single result object, an OpenAI-style object and a
// Gemini REST object. Missing fields yield ParseEmpty instead of an error.
func ParseResponse(body []byte) ParseResult {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ParseResult{Kind: ParseEmpty}
	}

	var text string
	switch trimmed[0] {
	case '[':
		var list []envelope
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return malformed(err)
		}
		if len(list) > 0 {
			text = list[0].text()
		}
	case '{':
		var single envelope
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return malformed(err)
		}
		text = single.text()
	default:
		return malformed(fmt.Errorf("unexpected leading byte %q", trimmed[0]))
	}

	if strings.TrimSpace(text) == "" {
		return ParseResult{Kind: ParseEmpty}
	}
	return ParseResult{Kind: ParseText, Text: text}
}

func malformed(err error) ParseResult {
	return ParseResult{Kind: ParseMalformed, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
}
