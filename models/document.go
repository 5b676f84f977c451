package models

// Remote documents travel through JSON, so numeric fields come back as
// float64. These helpers normalize lookups without caring which concrete
// numeric type a field carries.

// DocInt reads an integer field from a document, defaulting to 0.
func DocInt(doc map[string]any, key string) int {
	return int(DocInt64(doc, key))
}

// DocInt64 reads a 64-bit integer field from a document, defaulting to 0.
func DocInt64(doc map[string]any, key string) int64 {
	switch v := doc[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// DocString reads a string field from a document, defaulting to "".
func DocString(doc map[string]any, key string) string {
	if s, ok := doc[key].(string); ok {
		return s
	}
	return ""
}

// DocBool reads a boolean field from a document, defaulting to false.
func DocBool(doc map[string]any, key string) bool {
	if b, ok := doc[key].(bool); ok {
		return b
	}
	return false
}
