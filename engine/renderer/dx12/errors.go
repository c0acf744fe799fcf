package dx12

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima-dx12/engine/core"
)

// Configuration errors. Detected before any native call.
var (
	ErrDescriptorArraysUnimplemented = errors.New("unimplemented: descriptor arrays")
	ErrDuplicateBinding              = errors.New("duplicate descriptor binding")
	ErrInvalidPushConstantBlockSize  = errors.New("invalid push constant block size")
	ErrWrongPipelineType             = errors.New("wrong pipeline type")
	ErrUnsupportedShaderFormat       = errors.New("unsupported shader format")
	ErrMeshShadersUnimplemented      = errors.New("unimplemented: amplification and mesh shaders")
	ErrMissingShaderStage            = errors.New("missing shader stage")
	ErrTooManyDescriptorSets         = errors.New("too many descriptor sets")
	ErrInvalidVertexInput            = errors.New("invalid vertex input")
	ErrTooManyRenderTargets          = errors.New("too many render targets")
	ErrInvalidTopology               = errors.New("invalid primitive topology")
	ErrUnsupportedFormat             = errors.New("unsupported format")
	ErrInvalidArenaDesc              = errors.New("invalid descriptor arena description")
)

// Exhaustion errors. The caller can recover by releasing objects or
// creating a fresh pool or arena.
var (
	ErrOutOfDescriptorHeapSpace = errors.New("out of descriptor heap space")
	ErrOutOfSamplers            = errors.New("out of samplers")
	ErrDescriptorPoolExhausted  = errors.New("descriptor pool exhausted")
)

// Platform errors wrap the native diagnostic.
var (
	ErrRootSignatureCreate  = errors.New("failed to create root signature")
	ErrPipelineCreate       = errors.New("failed to create pipeline")
	ErrResourceCreate       = errors.New("failed to create resource")
	ErrFenceCreate          = errors.New("failed to create fence")
	ErrQueueCreate          = errors.New("failed to create command queue")
	ErrDescriptorHeapCreate = errors.New("failed to create descriptor heap")
	ErrFenceWait            = errors.New("failed to wait for fences")
)

// CreateError is a native failure observed while creating an object. Both
// Kind and the native Cause are in its unwrap chain.
type CreateError struct {
	Kind  error
	Cause error
	msg   string
}

func (e *CreateError) Error() string {
	return e.msg
}

func (e *CreateError) Unwrap() []error {
	return []error{e.Kind, e.Cause}
}

// platformError wraps a native failure with kind and logs it. It is called
// once, at the public entry point that observed the failure.
func platformError(kind, cause error, format string, args ...interface{}) error {
	err := &CreateError{
		Kind:  kind,
		Cause: cause,
		msg:   fmt.Sprintf("%v: %s: %v", kind, fmt.Sprintf(format, args...), cause),
	}
	core.LogError("%s", err)
	return err
}
