package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/domain"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	workflowpb "go.temporal.io/api/workflow/v1"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func decodeInto(v interface{}, valuePtr interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, valuePtr)
}

type fakeRun struct {
	client.WorkflowRun
	id string
}

func (r fakeRun) GetID() string { return r.id }

type fakeUpdateHandle struct {
	client.WorkflowUpdateHandle
	result interface{}
	err    error
}

func (h fakeUpdateHandle) Get(_ context.Context, valuePtr interface{}) error {
	if h.err != nil {
		return h.err
	}
	return decodeInto(h.result, valuePtr)
}

type fakeValue struct {
	converter.EncodedValue
	v interface{}
}

func (v fakeValue) HasValue() bool { return v.v != nil }

func (v fakeValue) Get(valuePtr interface{}) error { return decodeInto(v.v, valuePtr) }

type sentSignal struct {
	workflowID string
	name       string
	arg        interface{}
}

type fakeClient struct {
	executions map[string]*workflowpb.WorkflowExecutionInfo

	startErr error
	started  []client.StartWorkflowOptions

	updateResult interface{}
	updateErr    error
	updates      []client.UpdateWorkflowOptions
	withStart    []client.UpdateWithStartWorkflowOptions

	queryResult interface{}
	queryErr    error

	signalErr error
	signals   []sentSignal
}

func newFakeClient() *fakeClient {
	return &fakeClient{executions: map[string]*workflowpb.WorkflowExecutionInfo{}}
}

func (c *fakeClient) addExecution(id string, status enumspb.WorkflowExecutionStatus, startedAt time.Time) {
	c.executions[id] = &workflowpb.WorkflowExecutionInfo{
		Status:    status,
		StartTime: timestamppb.New(startedAt),
	}
}

func (c *fakeClient) ExecuteWorkflow(_ context.Context, options client.StartWorkflowOptions, _ interface{}, _ ...interface{}) (client.WorkflowRun, error) {
	c.started = append(c.started, options)
	if c.startErr != nil {
		return nil, c.startErr
	}
	return fakeRun{id: options.ID}, nil
}

func (c *fakeClient) DescribeWorkflowExecution(_ context.Context, workflowID, _ string) (*workflowservice.DescribeWorkflowExecutionResponse, error) {
	info, ok := c.executions[workflowID]
	if !ok {
		return nil, serviceerror.NewNotFound("workflow not found")
	}
	return &workflowservice.DescribeWorkflowExecutionResponse{WorkflowExecutionInfo: info}, nil
}

func (c *fakeClient) UpdateWorkflow(_ context.Context, options client.UpdateWorkflowOptions) (client.WorkflowUpdateHandle, error) {
	c.updates = append(c.updates, options)
	return fakeUpdateHandle{result: c.updateResult, err: c.updateErr}, nil
}

func (c *fakeClient) UpdateWithStartWorkflow(_ context.Context, options client.UpdateWithStartWorkflowOptions) (client.WorkflowUpdateHandle, error) {
	c.withStart = append(c.withStart, options)
	return fakeUpdateHandle{result: c.updateResult, err: c.updateErr}, nil
}

func (c *fakeClient) QueryWorkflow(_ context.Context, _, _, _ string, _ ...interface{}) (converter.EncodedValue, error) {
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	return fakeValue{v: c.queryResult}, nil
}

func (c *fakeClient) SignalWorkflow(_ context.Context, workflowID, _, signalName string, arg interface{}) error {
	if c.signalErr != nil {
		return c.signalErr
	}
	c.signals = append(c.signals, sentSignal{workflowID: workflowID, name: signalName, arg: arg})
	return nil
}

type fakeTokens struct{}

func (fakeTokens) Issue(user domain.User) (string, time.Time, error) {
	return "token-for-" + user.Email, time.Unix(1700000000, 0), nil
}

type fakeParser struct {
	event domain.PaymentWebhookEvent
	err   error
}

func (p fakeParser) Parse([]byte, string) (domain.PaymentWebhookEvent, error) {
	return p.event, p.err
}

type fakeDedup struct {
	seen      map[string]bool
	err       error
	forgotten []string
}

func (d *fakeDedup) MarkSeen(_ context.Context, id string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

func (d *fakeDedup) Forget(_ context.Context, id string) error {
	delete(d.seen, id)
	d.forgotten = append(d.forgotten, id)
	return nil
}

var errUnavailable = errors.New("unavailable")
