package grpcapi

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// extractorProto describes the wire schema:
//
//	syntax = "proto3";
//	package extractor;
//
//	service Extractor {
//	  rpc Extract(ExtractRequest) returns (File);
//	}
//
//	enum Format {
//	  FORMAT_TEXT = 0;
//	  FORMAT_IMAGE = 1;
//	  FORMAT_PDF = 2;
//	}
//
//	message File {
//	  string name = 1;
//	  bytes content = 2;
//	  string content_type = 3;
//	}
//
//	message ExtractRequest {
//	  File file = 1;
//	  Format format = 2;
//	}
var extractorProto = &descriptorpb.FileDescriptorProto{
	Name:    proto.String("extractor.proto"),
	Package: proto.String("extractor"),
	Syntax:  proto.String("proto3"),
	EnumType: []*descriptorpb.EnumDescriptorProto{{
		Name: proto.String("Format"),
		Value: []*descriptorpb.EnumValueDescriptorProto{
			{Name: proto.String("FORMAT_TEXT"), Number: proto.Int32(int32(FormatText))},
			{Name: proto.String("FORMAT_IMAGE"), Number: proto.Int32(int32(FormatImage))},
			{Name: proto.String("FORMAT_PDF"), Number: proto.Int32(int32(FormatPDF))},
		},
	}},
	MessageType: []*descriptorpb.DescriptorProto{
		{
			Name: proto.String("File"),
			Field: []*descriptorpb.FieldDescriptorProto{
				protoField("name", fileName, descriptorpb.FieldDescriptorProto_TYPE_STRING, ""),
				protoField("content", fileContent, descriptorpb.FieldDescriptorProto_TYPE_BYTES, ""),
				protoField("content_type", fileContentType, descriptorpb.FieldDescriptorProto_TYPE_STRING, ""),
			},
		},
		{
			Name: proto.String("ExtractRequest"),
			Field: []*descriptorpb.FieldDescriptorProto{
				protoField("file", requestFile, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".extractor.File"),
				protoField("format", requestFormat, descriptorpb.FieldDescriptorProto_TYPE_ENUM, ".extractor.Format"),
			},
		},
	},
	Service: []*descriptorpb.ServiceDescriptorProto{{
		Name: proto.String("Extractor"),
		Method: []*descriptorpb.MethodDescriptorProto{{
			Name:       proto.String("Extract"),
			InputType:  proto.String(".extractor.ExtractRequest"),
			OutputType: proto.String(".extractor.File"),
		}},
	}},
}

// Field numbers.
const (
	fileName        protoreflect.FieldNumber = 1
	fileContent     protoreflect.FieldNumber = 2
	fileContentType protoreflect.FieldNumber = 3

	requestFile   protoreflect.FieldNumber = 1
	requestFormat protoreflect.FieldNumber = 2
)

func protoField(name string, num protoreflect.FieldNumber, typ descriptorpb.FieldDescriptorProto_Type, typeName string) *descriptorpb.FieldDescriptorProto {
	f := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(int32(num)),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
	if typeName != "" {
		f.TypeName = proto.String(typeName)
	}
	return f
}

// Descriptors resolved from extractorProto. The file is registered in
// protoregistry.GlobalFiles so server reflection can serve it.
var (
	fileDesc    protoreflect.MessageDescriptor
	requestDesc protoreflect.MessageDescriptor
	formatDesc  protoreflect.EnumDescriptor
)

func init() {
	fd, err := protodesc.NewFile(extractorProto, protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("grpcapi: build extractor.proto: %v", err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("grpcapi: register extractor.proto: %v", err))
	}
	fileDesc = fd.Messages().ByName("File")
	requestDesc = fd.Messages().ByName("ExtractRequest")
	formatDesc = fd.Enums().ByName("Format")
}
