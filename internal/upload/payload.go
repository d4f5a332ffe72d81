package upload

import (
	"bufio"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/aiverify/aiv-upload/internal/collector"
	"github.com/aiverify/aiv-upload/internal/registry"
)

// Multipart field names expected by the folder upload endpoints.
const (
	FieldFiles      = "files"
	FieldFolderName = "foldername"
	FieldSubfolders = "subfolders"
)

// Payload is one folder's transfer payload: every file as a repeated part,
// plus the folder name and the comma-joined subfolder path of each file.
type Payload struct {
	FolderName string
	Subfolders string
	Files      []collector.Entry
}

// BuildPayload assembles the payload for a queued folder.
func BuildPayload(folder registry.Folder) *Payload {
	subfolders := make([]string, len(folder.Files))
	for i, e := range folder.Files {
		subfolders[i] = e.SubfolderPath()
	}
	return &Payload{
		FolderName: folder.Name,
		Subfolders: strings.Join(subfolders, ","),
		Files:      folder.Files,
	}
}

// TotalBytes is the sum of declared file sizes.
func (p *Payload) TotalBytes() int64 {
	var total int64
	for _, e := range p.Files {
		total += e.Blob.Size
	}
	return total
}

// WriteMultipart writes the payload. The writer is not closed.
func (p *Payload) WriteMultipart(mw *multipart.Writer) error {
	for _, e := range p.Files {
		if err := writeFilePart(mw, e.Blob); err != nil {
			return fmt.Errorf("failed to add %s: %w", e.RelativePath(), err)
		}
	}
	if err := mw.WriteField(FieldFolderName, p.FolderName); err != nil {
		return err
	}
	return mw.WriteField(FieldSubfolders, p.Subfolders)
}

// NewBoundary returns a random multipart boundary.
func NewBoundary() string {
	return multipart.NewWriter(io.Discard).Boundary()
}

// FormDataContentType is the Content-Type header for a body using boundary.
func FormDataContentType(boundary string) string {
	mw := multipart.NewWriter(io.Discard)
	_ = mw.SetBoundary(boundary)
	return mw.FormDataContentType()
}

// Stream returns a reader producing the multipart body and its content type.
func (p *Payload) Stream() (io.ReadCloser, string) {
	boundary := NewBoundary()
	return p.StreamWithBoundary(boundary), FormDataContentType(boundary)
}

// StreamWithBoundary generates the body on demand through a pipe. Closing
// the reader stops the writer goroutine.
func (p *Payload) StreamWithBoundary(boundary string) io.ReadCloser {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	if err := mw.SetBoundary(boundary); err != nil {
		pw.CloseWithError(err)
		return pr
	}

	go func() {
		err := p.WriteMultipart(mw)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	return pr
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFilePart(mw *multipart.Writer, blob collector.Blob) error {
	rc, err := blob.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	br := bufio.NewReaderSize(rc, 512)
	mediaType := blob.MediaType
	if mediaType == "" {
		head, _ := br.Peek(512)
		mediaType = http.DetectContentType(head)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FieldFiles, quoteEscaper.Replace(blob.Name)))
	h.Set("Content-Type", mediaType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, br)
	return err
}
