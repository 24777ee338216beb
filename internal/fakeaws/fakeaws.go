// Package fakeaws is an in-memory stand-in for the slice of the AWS IAM,
// Lambda, SQS, SNS, and CloudWatch Logs APIs the provider calls. It lets
// internal/awsprovider's property tests exercise the real provisioning,
// dispatch, collection, and teardown logic without live AWS credentials —
// the local in-process executor spec.md mentions only to fix the shape of
// the provider interface, built out fully here as the test harness.
package fakeaws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// UserFunc is a registered target function: the thing a real deployment
// would reach through the trampoline after unmarshaling call.Args. It is a
// type alias, not a defined type, so a function module's own unnamed
// map[string]func(...) targets table can be registered without a
// conversion step or a dependency on this package.
type UserFunc = func(args json.RawMessage) (json.RawMessage, error)

// pollInterval bounds how long an empty ReceiveMessage waits before
// returning, so tests never actually block for the real 20s long-poll
// window the provider requests.
const pollInterval = 5 * time.Millisecond

type role struct {
	arn     string
	attached map[string]string // policyArn -> policyArn
	inline   map[string]string // policyName -> document
}

type logGroup struct {
	retentionDays *int32
}

type function struct {
	name    string
	arn     string
	roleArn string
	module  map[string]UserFunc
}

type queueRes struct {
	url        string
	arn        string
	attributes map[string]string
	mu         sync.Mutex
	messages   []storedMessage
}

type storedMessage struct {
	id         string
	body       string
	attributes map[string]messageAttr
}

type messageAttr struct {
	dataType    string
	stringValue string
}

type subscription struct {
	arn      string
	protocol string
	endpoint string
}

type topic struct {
	arn           string
	attributes    map[string]string
	subscriptions []*subscription
}

// Backend is the shared, in-memory AWS account state. It satisfies
// awsprovider.LambdaAPI, IAMAPI, SQSAPI, SNSAPI, and LogsAPI directly:
// the method names those five interfaces declare never collide, so one
// type can stand in for all of a test's client bundle.
type Backend struct {
	mu sync.Mutex

	roles     map[string]*role
	logGroups map[string]*logGroup
	functions map[string]*function
	queues    map[string]*queueRes
	topics    map[string]*topic

	// modules holds function modules registered by the test before
	// Initialize runs, keyed by the path Initialize's Packager.Pack call
	// is given. CreateFunction resolves a function's module this way
	// instead of unpacking a real archive.
	modules map[string]map[string]UserFunc

	mutations int
}

func (b *Backend) recordMutation() {
	b.mutations++
}

// NewBackend returns an empty fake account.
func NewBackend() *Backend {
	return &Backend{
		roles:     make(map[string]*role),
		logGroups: make(map[string]*logGroup),
		functions: make(map[string]*function),
		queues:    make(map[string]*queueRes),
		topics:    make(map[string]*topic),
		modules:   make(map[string]map[string]UserFunc),
	}
}

// RegisterModule makes a function module's targets available for a
// subsequent Initialize(ctx, modulePath, ...) call. Call this before
// Initialize.
func (b *Backend) RegisterModule(modulePath string, targets map[string]UserFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.modules[modulePath] = targets
}

// Packager is the fakeaws stand-in for a real archive builder: it encodes
// the module path as the archive bytes so CreateFunction can resolve the
// registered targets without unpacking anything.
type Packager struct{}

func (Packager) Pack(_ context.Context, functionModule string) ([]byte, error) {
	return []byte(functionModule), nil
}

// SeedExistingFunction pre-populates a function name, used by the
// name-collision test scenario.
func (b *Backend) SeedExistingFunction(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.functions[name] = &function{name: name, arn: fakeArn("function", name)}
}

// FunctionExists reports whether a function with this name is still
// present, used by teardown-completeness assertions.
func (b *Backend) FunctionExists(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.functions[name]
	return ok
}

// RoleExists reports whether a role with this name is still present.
func (b *Backend) RoleExists(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.roles[name]
	return ok
}

// LogGroupExists reports whether a log group with this name is still
// present.
func (b *Backend) LogGroupExists(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.logGroups[name]
	return ok
}

// QueueExists reports whether a queue at this URL is still present.
func (b *Backend) QueueExists(url string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.queues[url]
	return ok
}

// TopicExists reports whether a topic with this ARN is still present.
func (b *Backend) TopicExists(arn string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.topics[arn]
	return ok
}

// MutationCount is incremented by every state-changing call and used by
// the teardown-idempotence property test to assert a second Cleanup makes
// no further mutations.
func (b *Backend) MutationCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mutations
}

func fakeArn(kind, name string) string {
	return fmt.Sprintf("arn:aws:%s:us-east-1:000000000000:%s", kind, name)
}

func newID() string {
	return uuid.New().String()
}
