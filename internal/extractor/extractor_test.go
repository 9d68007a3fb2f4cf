package extractor

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/docuchat/server/internal/domain"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func TestExtract_Text(t *testing.T) {
	path := writeFile(t, "notes.md", []byte("# Title\r\n\r\n\r\n\r\nbody   \n"))

	text, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nbody", text)
}

func TestExtract_InvalidUTF8(t *testing.T) {
	path := writeFile(t, "bad.txt", []byte{0xff, 0xfe, 0xfd})

	_, err := New().Extract(context.Background(), path)

	var extErr *domain.ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, "bad.txt", extErr.Filename)
}

func TestExtract_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, "image.png", []byte("png"))

	_, err := New().Extract(context.Background(), path)

	var extErr *domain.ExtractionError
	assert.ErrorAs(t, err, &extErr)
	assert.False(t, New().Supports("image.png"))
	assert.True(t, New().Supports("REPORT.PDF"))
}

func TestExtract_HTML(t *testing.T) {
	doc := `<html><head><style>p{color:red}</style><script>alert(1)</script></head>
<body><h1>Heading</h1><p>First paragraph.</p><p>Second</p></body></html>`
	path := writeFile(t, "page.html", []byte(doc))

	text, err := New().Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Contains(t, text, "Heading")
	assert.Contains(t, text, "First paragraph.")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
}

func TestExtract_DOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.docx")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve"> docx</w:t></w:r></w:p>
<w:p><w:r><w:t>Second line</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	text, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Hello docx\nSecond line", text)
}

func TestExtract_CorruptPDF(t *testing.T) {
	path := writeFile(t, "broken.pdf", []byte("not a pdf"))

	_, err := New().Extract(context.Background(), path)

	var extErr *domain.ExtractionError
	assert.ErrorAs(t, err, &extErr)
}

func TestExtract_Cancelled(t *testing.T) {
	path := writeFile(t, "notes.txt", []byte("hello"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Extract(ctx, path)
	// either the read won the race or cancellation did; both are acceptable but never a partial result
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
