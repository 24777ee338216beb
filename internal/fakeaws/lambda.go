package fakeaws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/bgdnvk/cloudify-aws/internal/wire"
)

func (b *Backend) GetFunction(_ context.Context, in *lambda.GetFunctionInput, _ ...func(*lambda.Options)) (*lambda.GetFunctionOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn, ok := b.functions[*in.FunctionName]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: in.FunctionName}
	}
	return &lambda.GetFunctionOutput{
		Configuration: &types.FunctionConfiguration{
			FunctionName: &fn.name,
			FunctionArn:  &fn.arn,
			State:        types.StateActive,
		},
	}, nil
}

func (b *Backend) CreateFunction(_ context.Context, in *lambda.CreateFunctionInput, _ ...func(*lambda.Options)) (*lambda.CreateFunctionOutput, error) {
	b.mu.Lock()
	if _, exists := b.functions[*in.FunctionName]; exists {
		b.mu.Unlock()
		return nil, &types.ResourceConflictException{Message: in.FunctionName}
	}
	modulePath := string(in.Code.ZipFile)
	targets, ok := b.modules[modulePath]
	if !ok {
		b.mu.Unlock()
		return nil, fmt.Errorf("fakeaws: no module registered for %q", modulePath)
	}
	fn := &function{
		name:    *in.FunctionName,
		arn:     fakeArn("lambda:function", *in.FunctionName),
		roleArn: *in.Role,
		module:  targets,
	}
	b.functions[*in.FunctionName] = fn
	b.recordMutation()
	b.mu.Unlock()
	return &lambda.CreateFunctionOutput{FunctionName: in.FunctionName, FunctionArn: &fn.arn, State: types.StateActive}, nil
}

func (b *Backend) DeleteFunction(_ context.Context, in *lambda.DeleteFunctionInput, _ ...func(*lambda.Options)) (*lambda.DeleteFunctionOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.functions[*in.FunctionName]; !ok {
		return nil, &types.ResourceNotFoundException{Message: in.FunctionName}
	}
	delete(b.functions, *in.FunctionName)
	b.recordMutation()
	return &lambda.DeleteFunctionOutput{}, nil
}

func (b *Backend) AddPermission(_ context.Context, in *lambda.AddPermissionInput, _ ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.functions[*in.FunctionName]; !ok {
		return nil, &types.ResourceNotFoundException{Message: in.FunctionName}
	}
	b.recordMutation()
	stmt := "{}"
	return &lambda.AddPermissionOutput{Statement: &stmt}, nil
}

// Invoke is the direct-mode entry point: it runs the target in-process and
// returns a wire.FunctionReturn envelope exactly the way a real Lambda
// invocation's response payload would carry it.
func (b *Backend) Invoke(_ context.Context, in *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	b.mu.Lock()
	fn, ok := b.functions[*in.FunctionName]
	b.mu.Unlock()
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: in.FunctionName}
	}

	var call wire.FunctionCall
	if err := json.Unmarshal(in.Payload, &call); err != nil {
		return nil, fmt.Errorf("fakeaws: malformed invoke payload: %w", err)
	}

	ret := runTarget(fn, call)
	payload, err := json.Marshal(ret)
	if err != nil {
		return nil, err
	}

	out := &lambda.InvokeOutput{Payload: payload, StatusCode: 200}
	if ret.Type == wire.ReturnError {
		msg := "Process exited before completing request"
		out.FunctionError = &msg
	}
	logLine := base64.StdEncoding.EncodeToString([]byte("START RequestId: fake\nEND RequestId: fake\n"))
	out.LogResult = &logLine
	return out, nil
}

// runTarget executes a registered target and recovers from panics the same
// way the real trampoline's uncaught-exception handling would, returning a
// value or error wire envelope.
func runTarget(fn *function, call wire.FunctionCall) (ret wire.FunctionReturn) {
	target, ok := fn.module[call.Name]
	if !ok {
		errVal, _ := json.Marshal(wire.ErrorValue{Name: "NotFound", Message: fmt.Sprintf("no target %q in module", call.Name)})
		return wire.FunctionReturn{Type: wire.ReturnError, Value: errVal}
	}

	defer func() {
		if r := recover(); r != nil {
			errVal, _ := json.Marshal(wire.ErrorValue{Name: "PanicError", Message: fmt.Sprint(r)})
			ret = wire.FunctionReturn{Type: wire.ReturnError, Value: errVal}
		}
	}()

	value, err := target(call.Args)
	if err != nil {
		errVal, _ := json.Marshal(wire.ErrorValue{Name: "Error", Message: err.Error()})
		return wire.FunctionReturn{Type: wire.ReturnError, Value: errVal}
	}
	return wire.FunctionReturn{Type: wire.ReturnValue, Value: value}
}
