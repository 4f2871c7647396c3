// Package htmltext extracts plain text from parsed HTML.
//
// StrippedText follows the "strip every text node, then concatenate"
// convention used for page statistics and RAG chunks: surrounding whitespace
// of each text node is removed and nothing is inserted between nodes.
// Script, style and template contents are not text.
package htmltext
