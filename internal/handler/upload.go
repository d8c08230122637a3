package handler

import (
	"io"

	"github.com/cloudwego/hertz/pkg/app"

	"GreenNest/internal/wizard"
	"GreenNest/pkg/errors"
)

// readUpload 读取 multipart 文件，超过 maxBytes 直接拒绝
func readUpload(c *app.RequestContext, field string, maxBytes int64) (wizard.ImageFile, error) {
	fh, err := c.FormFile(field)
	if err != nil || fh == nil || fh.Size == 0 {
		return wizard.ImageFile{}, errors.UploadMissingFile
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return wizard.ImageFile{}, errors.UploadTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return wizard.ImageFile{}, errors.UploadMissingFile
	}
	defer f.Close()

	reader := io.Reader(f)
	if maxBytes > 0 {
		reader = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return wizard.ImageFile{}, err
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return wizard.ImageFile{}, errors.UploadTooLarge
	}

	return wizard.ImageFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
