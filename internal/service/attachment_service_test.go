package service

import (
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mannavlakhab/studio/internal/config"
	"github.com/mannavlakhab/studio/internal/model"
)

func newTestNormalizer() AttachmentService {
	return NewAttachmentService(config.ChatConfig{})
}

func TestClassify_Image(t *testing.T) {
	raw := []byte{0xFF, 0xD8, 0xFF, 0xE0} // JPEG 头
	att, err := newTestNormalizer().Classify("photo.jpg", "image/jpeg", strings.NewReader(string(raw)))
	require.NoError(t, err)

	assert.Equal(t, "photo.jpg", att.Name)
	assert.Equal(t, model.AttachmentKindImage, att.Kind)
	assert.Equal(t, "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString(raw), att.Payload)
}

func TestClassify_ImageAllowList(t *testing.T) {
	for _, mediaType := range []string{"image/jpeg", "image/png", "image/webp", "image/gif"} {
		att, err := newTestNormalizer().Classify("f", mediaType, strings.NewReader("x"))
		require.NoError(t, err, mediaType)
		assert.Equal(t, model.AttachmentKindImage, att.Kind)
		assert.True(t, strings.HasPrefix(att.Payload, "data:"+mediaType+";base64,"), mediaType)
	}
}

func TestClassify_Document(t *testing.T) {
	att, err := newTestNormalizer().Classify("notes.txt", "text/plain", strings.NewReader("hello 世界"))
	require.NoError(t, err)

	assert.Equal(t, model.AttachmentKindDocument, att.Kind)
	assert.Equal(t, "hello 世界", att.Payload)
}

func TestClassify_MediaTypeParametersIgnored(t *testing.T) {
	att, err := newTestNormalizer().Classify("notes.txt", "text/plain; charset=utf-8", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, model.AttachmentKindDocument, att.Kind)
}

func TestClassify_UnsupportedType(t *testing.T) {
	_, err := newTestNormalizer().Classify("report.pdf", "application/pdf", strings.NewReader("%PDF"))

	var unsupported *UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "application/pdf", unsupported.DeclaredType)
	// 拒绝信息必须点名被拒绝的类型
	assert.Contains(t, unsupported.Error(), "application/pdf")
}

func TestClassify_InvalidUTF8Document(t *testing.T) {
	_, err := newTestNormalizer().Classify("bad.txt", "text/plain", strings.NewReader("\xff\xfe"))
	assert.ErrorIs(t, err, ErrFileRead)
}

func TestClassify_ReadFailure(t *testing.T) {
	_, err := newTestNormalizer().Classify("bad.txt", "text/plain", &failingReader{})
	assert.ErrorIs(t, err, ErrFileRead)
}

func TestClassify_TooLarge(t *testing.T) {
	svc := NewAttachmentService(config.ChatConfig{MaxAttachmentBytes: 8})
	_, err := svc.Classify("big.txt", "text/plain", strings.NewReader("0123456789"))
	assert.ErrorIs(t, err, ErrFileRead)
}

type failingReader struct{}

func (r *failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("disk error")
}

var _ io.Reader = (*failingReader)(nil)
