package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/pribylovaa/go-blog/internal/models"
)

// multipartMemory — сколько формы держим в памяти; остальное уходит во временные файлы.
const multipartMemory = 8 << 20

// sniffLen — сколько байт читает http.DetectContentType.
const sniffLen = 512

// parseMultipart разбирает multipart-форму с ограничением размера тела.
func (h *Handlers) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}

	return r.ParseMultipartForm(multipartMemory)
}

// formValue возвращает значение поля формы и признак его присутствия.
func formValue(r *http.Request, name string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}

	vals, ok := r.MultipartForm.Value[name]
	if !ok || len(vals) == 0 {
		return "", false
	}

	return vals[0], true
}

// openUploads открывает файлы поля name. Возвращённый closer нужно вызвать
// после того, как сервис дочитал тела.
func openUploads(r *http.Request, name string) ([]models.ImageUpload, func(), error) {
	var files []*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File[name]
	}

	opened := make([]multipart.File, 0, len(files))
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	uploads := make([]models.ImageUpload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		opened = append(opened, f)

		ct, err := contentType(fh, f)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}

		uploads = append(uploads, models.ImageUpload{
			Filename:    fh.Filename,
			ContentType: ct,
			Size:        fh.Size,
			Body:        f,
		})
	}

	return uploads, closeAll, nil
}

// contentType определяет тип изображения по первым байтам файла.
// Заявленный клиентом тип (без параметров) должен совпасть с определённым;
// пустой или application/octet-stream заменяется определённым.
func contentType(fh *multipart.FileHeader, f multipart.File) (string, error) {
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	sniffed := mediaType(http.DetectContentType(buf[:n]))

	declared := mediaType(fh.Header.Get("Content-Type"))
	if declared == "image/jpg" {
		declared = "image/jpeg"
	}

	if declared != "" && declared != "application/octet-stream" && declared != sniffed {
		return "", fmt.Errorf("%w: declared %q, detected %q", errContentMismatch, declared, sniffed)
	}

	return sniffed, nil
}

// errContentMismatch — заявленный тип части не совпал с содержимым.
var errContentMismatch = errors.New("content type mismatch")

// mediaType отбрасывает параметры ("; charset=...") и приводит тип к нижнему регистру.
func mediaType(v string) string {
	v = strings.TrimSpace(v)
	if mt, _, err := mime.ParseMediaType(v); err == nil {
		return mt
	}

	return strings.ToLower(v)
}
