package awsprovider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/bgdnvk/cloudify-aws/internal/wire"
	"go.uber.org/zap"
)

// Result is what Invoke hands back to the caller: at most one of Value or
// Error is set, and RawResponse always carries the underlying SDK envelope
// through for observability.
type Result struct {
	Value       json.RawMessage
	Error       *RemoteInvocationFailure
	RawResponse any
}

// Invoke dispatches one call through whichever path the instance was
// initialized with. It never returns an error for a call-level failure —
// those surface through Result.Error — only for transport or cancellation
// failures.
func Invoke(ctx context.Context, in *Instance, functionName string, args json.RawMessage) (Result, error) {
	callID := newCallID()
	call := wire.FunctionCall{Name: functionName, Args: args, CallID: callID}

	if !in.useQueue {
		return invokeDirect(ctx, in, call)
	}
	return invokeQueue(ctx, in, call)
}

// invokeDirect synchronously invokes the function with LogType=Tail. A
// non-empty FunctionError means the remote trampoline reported failure: the
// log tail is emitted and the payload is returned in Result.Error as a
// RemoteInvocationFailure, with a nil error. This
// path leaves the raw payload bytes in Error.Message verbatim since whether
// callers expect JSON or a bare string there is ambiguous upstream.
func invokeDirect(ctx context.Context, in *Instance, call wire.FunctionCall) (Result, error) {
	payload, err := json.Marshal(call)
	if err != nil {
		return Result{}, fmt.Errorf("cloudify: encode function call: %w", err)
	}

	out, err := in.client.Lambda.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: &in.manifest.FunctionName,
		Payload:      payload,
		LogType:      lambdatypes.LogTypeTail,
	})
	if err != nil {
		return Result{}, fmt.Errorf("cloudify: invoke %s: %w", call.Name, err)
	}

	if out.FunctionError != nil && *out.FunctionError != "" {
		if out.LogResult != nil {
			if tail, err := base64.StdEncoding.DecodeString(*out.LogResult); err == nil {
				in.logger.Info("remote function log tail", zap.String("function", call.Name), zap.ByteString("log", tail))
			}
		}
		return Result{
			Error:       &RemoteInvocationFailure{Message: string(out.Payload)},
			RawResponse: out,
		}, nil
	}

	var ret wire.FunctionReturn
	if err := json.Unmarshal(out.Payload, &ret); err != nil {
		return Result{}, fmt.Errorf("cloudify: decode function return: %w", err)
	}
	return resultFromReturn(ret, out), nil
}

// invokeQueue registers a pending slot before publishing, since the
// trampoline may reply before the publish call returns on the caller's
// side; starts the collector if it is not already running; then awaits the
// slot's single-assignment completion.
func invokeQueue(ctx context.Context, in *Instance, call wire.FunctionCall) (Result, error) {
	call.ResponseQueueURL = *in.manifest.ResponseQueueURL

	slot := newPendingSlot()
	in.mu.Lock()
	in.pending[call.CallID] = slot
	in.mu.Unlock()

	ensureCollectorRunning(in)

	payload, err := json.Marshal(call)
	if err != nil {
		removePending(in, call.CallID)
		return Result{}, fmt.Errorf("cloudify: encode function call: %w", err)
	}

	if err := publishRequest(ctx, in, payload); err != nil {
		removePending(in, call.CallID)
		return Result{}, err
	}

	select {
	case <-ctx.Done():
		removePending(in, call.CallID)
		return Result{}, ctx.Err()
	case sr := <-slot.resultCh:
		return resultFromReturn(sr.ret, sr.raw), nil
	case err := <-slot.errCh:
		return Result{}, err
	}
}

func removePending(in *Instance, callID string) {
	in.mu.Lock()
	delete(in.pending, callID)
	in.mu.Unlock()
}

// resultFromReturn maps the wire.FunctionReturn contract onto Result: a
// type=error return becomes Result.Error reconstructed from
// {name, message, stack}; type=value yields Result.Value.
func resultFromReturn(ret wire.FunctionReturn, raw any) Result {
	if ret.Type == wire.ReturnError {
		var ev wire.ErrorValue
		_ = json.Unmarshal(ret.Value, &ev)
		return Result{
			Error:       &RemoteInvocationFailure{Name: ev.Name, Message: ev.Message, Stack: ev.Stack},
			RawResponse: raw,
		}
	}
	return Result{Value: ret.Value, RawResponse: raw}
}

// publishRequest ships the serialized FunctionCall to the request topic
// created during Initialize; the subscribed function fans it out from
// there.
func publishRequest(ctx context.Context, in *Instance, payload []byte) error {
	msg := string(payload)
	_, err := in.client.SNS.Publish(ctx, &sns.PublishInput{
		TopicArn: in.manifest.RequestTopicARN,
		Message:  &msg,
	})
	if err != nil {
		return fmt.Errorf("cloudify: publish call to request topic: %w", err)
	}
	return nil
}
