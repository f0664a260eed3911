package llm

import "strings"

// ExtractJSON returns the first complete JSON object or array in a model reply.
// Code fences, preambles and trailing chatter are dropped. When no balanced
// value is found the trimmed text is returned so the decoder reports the error.
func ExtractJSON(text string) string {
	text = stripFence(strings.TrimSpace(text))

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	if value := balanced(text[start:]); value != "" {
		return value
	}
	return text
}

// stripFence removes a surrounding ``` block, with or without a language tag.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		tag := text[:nl]
		if !strings.ContainsAny(tag, " {[") {
			text = text[nl+1:]
		}
	}
	if end := strings.LastIndex(text, "```"); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}

// balanced returns the JSON value that opens at s[0], or "" if it never closes.
// Brackets inside strings are ignored.
func balanced(s string) string {
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
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
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
