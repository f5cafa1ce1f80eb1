package grpcapi

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Format is the requested output kind. Only FormatText is produced.
type Format int32

const (
	FormatText  Format = 0
	FormatImage Format = 1
	FormatPDF   Format = 2
)

func (f Format) String() string {
	if v := formatDesc.Values().ByNumber(protoreflect.EnumNumber(f)); v != nil {
		return string(v.Name())
	}
	return fmt.Sprintf("FORMAT_%d", int32(f))
}

// routerFormat maps the enum onto the format argument of Router.Extract:
// FORMAT_TEXT is "text", anything else keeps its lower-cased name and is
// rejected there as unsupported.
func (f Format) routerFormat() string {
	if f == FormatText {
		return "text"
	}
	return strings.ToLower(strings.TrimPrefix(f.String(), "FORMAT_"))
}

// File is a document on the wire: the upload in requests, the Markdown
// result in responses.
type File struct {
	Name        string
	Content     []byte
	ContentType string
}

// ExtractRequest asks for one extraction.
type ExtractRequest struct {
	File   *File
	Format Format
}

func (r *ExtractRequest) GetFile() *File {
	if r == nil || r.File == nil {
		return &File{}
	}
	return r.File
}

func (f *File) toProto() *dynamicpb.Message {
	m := dynamicpb.NewMessage(fileDesc)
	if f == nil {
		return m
	}
	fields := fileDesc.Fields()
	if f.Name != "" {
		m.Set(fields.ByNumber(fileName), protoreflect.ValueOfString(f.Name))
	}
	if len(f.Content) > 0 {
		m.Set(fields.ByNumber(fileContent), protoreflect.ValueOfBytes(f.Content))
	}
	if f.ContentType != "" {
		m.Set(fields.ByNumber(fileContentType), protoreflect.ValueOfString(f.ContentType))
	}
	return m
}

func fileFromProto(m protoreflect.Message) *File {
	fields := m.Descriptor().Fields()
	return &File{
		Name:        m.Get(fields.ByNumber(fileName)).String(),
		Content:     m.Get(fields.ByNumber(fileContent)).Bytes(),
		ContentType: m.Get(fields.ByNumber(fileContentType)).String(),
	}
}

func (r *ExtractRequest) toProto() *dynamicpb.Message {
	m := dynamicpb.NewMessage(requestDesc)
	if r == nil {
		return m
	}
	fields := requestDesc.Fields()
	if r.File != nil {
		m.Set(fields.ByNumber(requestFile), protoreflect.ValueOfMessage(r.File.toProto()))
	}
	if r.Format != FormatText {
		m.Set(fields.ByNumber(requestFormat), protoreflect.ValueOfEnum(protoreflect.EnumNumber(r.Format)))
	}
	return m
}

func requestFromProto(m protoreflect.Message) *ExtractRequest {
	fields := m.Descriptor().Fields()
	r := &ExtractRequest{Format: Format(m.Get(fields.ByNumber(requestFormat)).Enum())}
	if fd := fields.ByNumber(requestFile); m.Has(fd) {
		r.File = fileFromProto(m.Get(fd).Message())
	}
	return r
}
