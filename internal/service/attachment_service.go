package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/mannavlakhab/studio/internal/config"
	"github.com/mannavlakhab/studio/internal/model"
)

// ErrFileRead 表示附件内容读取或解码失败。
var ErrFileRead = errors.New("failed to read attachment")

// 附件大小的默认上限（10 MiB），可通过 chat.max_attachment_bytes 调整。
const defaultMaxAttachmentBytes = 10 << 20

// 允许的图片类型白名单。
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

const textPlainType = "text/plain"

// UnsupportedTypeError 表示附件的声明类型不被接受，携带被拒绝的类型用于提示用户。
type UnsupportedTypeError struct {
	DeclaredType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("File type %q is not supported. Please upload an image (JPG, PNG, GIF, WEBP) or a plain text file (.txt).", e.DeclaredType)
}

// AttachmentService 将用户选择的文件归一化为待提交附件。
type AttachmentService interface {
	// Classify 按声明的媒体类型将文件归类为图片或文档，并产出编码后的载荷：
	// 图片编码为 data:<mimetype>;base64,<data> 形式的 data URI，
	// 纯文本解码为 UTF-8 文本。类型不在白名单内时返回 *UnsupportedTypeError，
	// 读取或解码失败时返回包装了 ErrFileRead 的错误。不触碰对话状态。
	Classify(fileName, declaredType string, r io.Reader) (*model.PendingAttachment, error)
}

type attachmentService struct {
	maxBytes int64
}

// NewAttachmentService 创建一个新的 AttachmentService 实例。
func NewAttachmentService(cfg config.ChatConfig) AttachmentService {
	maxBytes := cfg.MaxAttachmentBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxAttachmentBytes
	}
	return &attachmentService{maxBytes: maxBytes}
}

// Classify 将文件归类并产出待提交附件。
func (s *attachmentService) Classify(fileName, declaredType string, r io.Reader) (*model.PendingAttachment, error) {
	mediaType := normalizeMediaType(declaredType)

	switch {
	case allowedImageTypes[mediaType]:
		data, err := s.readAll(r)
		if err != nil {
			return nil, err
		}
		return &model.PendingAttachment{
			Name:    fileName,
			Kind:    model.AttachmentKindImage,
			Payload: "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data),
		}, nil

	case mediaType == textPlainType:
		data, err := s.readAll(r)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%w: document is not valid UTF-8 text", ErrFileRead)
		}
		return &model.PendingAttachment{
			Name:    fileName,
			Kind:    model.AttachmentKindDocument,
			Payload: string(data),
		}, nil

	default:
		return nil, &UnsupportedTypeError{DeclaredType: declaredType}
	}
}

// readAll 读取全部内容，超出大小上限视作读取失败。
func (s *attachmentService) readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: attachment exceeds %d bytes", ErrFileRead, s.maxBytes)
	}
	return data, nil
}

// normalizeMediaType 去掉媒体类型中的参数部分并统一为小写。
func normalizeMediaType(declaredType string) string {
	mediaType, _, err := mime.ParseMediaType(declaredType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(declaredType))
	}
	return mediaType
}
