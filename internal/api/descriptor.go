package api

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ProtoFile is the descriptor path of the ResilienceEngine service. It is registered in
// protoregistry.GlobalFiles so server reflection can resolve the service and its methods.
const ProtoFile = "microres/v1/resilience.proto"

const structType = ".google.protobuf.Struct"

func init() {
	if _, err := protoregistry.GlobalFiles.FindFileByPath(ProtoFile); err == nil {
		return
	}
	fd, err := buildFileDescriptor()
	if err != nil {
		panic(fmt.Sprintf("build %s descriptor: %v", ProtoFile, err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("register %s: %v", ProtoFile, err))
	}
}

func buildFileDescriptor() (protoreflect.FileDescriptor, error) {
	method := func(name string) *descriptorpb.MethodDescriptorProto {
		return &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(name),
			InputType:  proto.String(structType),
			OutputType: proto.String(structType),
		}
	}
	file := &descriptorpb.FileDescriptorProto{
		Name:       proto.String(ProtoFile),
		Package:    proto.String("microres.v1"),
		Syntax:     proto.String("proto3"),
		Dependency: []string{structpb.File_google_protobuf_struct_proto.Path()},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String("ResilienceEngine"),
			Method: []*descriptorpb.MethodDescriptorProto{method("Evaluate"), method("ListEvaluations")},
		}},
	}
	return protodesc.NewFile(file, protoregistry.GlobalFiles)
}
