package providers

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

const maxInlineText = 8000

type attachmentKind int

const (
	kindImage attachmentKind = iota
	kindDocument
	kindText
	kindUnsupported
)

var attachmentTypes = map[string]struct {
	kind attachmentKind
	mime string
}{
	".jpg":  {kindImage, "image/jpeg"},
	".jpeg": {kindImage, "image/jpeg"},
	".png":  {kindImage, "image/png"},
	".gif":  {kindImage, "image/gif"},
	".webp": {kindImage, "image/webp"},
	".pdf":  {kindDocument, "application/pdf"},
	".xls":  {kindDocument, "application/vnd.ms-excel"},
	".xlsx": {kindDocument, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	".xlsm": {kindDocument, "application/vnd.ms-excel.sheet.macroEnabled.12"},
	".txt":  {kindText, "text/plain"},
	".md":   {kindText, "text/markdown"},
	".json": {kindText, "application/json"},
	".csv":  {kindText, "text/csv"},
	".xml":  {kindText, "application/xml"},
	".html": {kindText, "text/html"},
}

// attachment is a file prepared for a provider request.
type attachment struct {
	name string
	kind attachmentKind
	mime string
	data []byte
}

func (a attachment) dataURI() string {
	return "data:" + a.mime + ";base64," + base64.StdEncoding.EncodeToString(a.data)
}

func (a attachment) base64() string {
	return base64.StdEncoding.EncodeToString(a.data)
}

// inlineText renders text attachments into the prompt and notes files the
// provider cannot receive.
func (a attachment) inlineText() string {
	if a.kind == kindUnsupported {
		return fmt.Sprintf("\n\n[File attached: %s - This file type may not be fully processed by this model]", a.name)
	}

	content := string(a.data)
	if len(content) > maxInlineText {
		content = content[:maxInlineText] + "... [content truncated]"
	}
	return fmt.Sprintf("\n\n--- Content of %s ---\n%s\n--- End of %s ---", a.name, content, a.name)
}

func loadAttachments(paths []string) ([]attachment, error) {
	out := make([]attachment, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read attachment %s: %w", filepath.Base(p), err)
		}

		ext := strings.ToLower(filepath.Ext(p))
		a := attachment{name: filepath.Base(p), data: data, kind: kindUnsupported}
		if t, ok := attachmentTypes[ext]; ok {
			a.kind, a.mime = t.kind, t.mime
		} else if m := mime.TypeByExtension(ext); strings.HasPrefix(m, "text/") {
			a.kind, a.mime = kindText, m
		}

		out = append(out, a)
	}
	return out, nil
}

// splitAttachments separates binary parts from text appended to the prompt.
func splitAttachments(prompt string, files []attachment) (string, []attachment) {
	binary := make([]attachment, 0, len(files))
	var text strings.Builder
	text.WriteString(prompt)

	for _, f := range files {
		switch f.kind {
		case kindImage, kindDocument:
			binary = append(binary, f)
		default:
			text.WriteString(f.inlineText())
		}
	}

	if text.Len() == 0 && len(binary) > 0 {
		text.WriteString("Please analyze the attached file(s).")
	}
	return text.String(), binary
}
