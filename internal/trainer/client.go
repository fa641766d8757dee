// Package trainer submits prepared training groups to the Python
// training service over gRPC. The service exposes a generic
// struct-payload interface, so requests and responses travel as
// protobuf Structs rather than a generated schema.
package trainer

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/agentcredit/go-credit/internal/dataset"
	"github.com/agentcredit/go-credit/internal/trajectory"
)

// #region rpc-names
const (
	methodSubmitGroup = "/credit.Trainer/SubmitGroup"
	methodSubmitBatch = "/credit.Trainer/SubmitBatch"
)

// #endregion rpc-names

// #region types

// StepMetrics is the training side's report for one submitted group.
type StepMetrics struct {
	Step       int64
	Loss       float64
	KL         float64
	GradNorm   float64
	Accepted   bool
	ServerNote string
}

// invoker matches grpc.ClientConn's unary invocation surface. Tests
// inject a fake; production uses the real connection.
type invoker interface {
	Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error
}

// #endregion types

// #region client-struct
// Client wraps the gRPC connection to the Python training service.
type Client struct {
	conn    *grpc.ClientConn
	inv     invoker
	timeout time.Duration
}

// #endregion client-struct

// #region constructor
// NewClient connects to the training gRPC server.
func NewClient(addr string, timeout time.Duration) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, inv: conn, timeout: timeout}, nil
}

// NewClientWithInvoker creates a Client with an injected transport.
// Used for testing without a real gRPC connection.
func NewClientWithInvoker(inv invoker, timeout time.Duration) *Client {
	return &Client{inv: inv, timeout: timeout}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region submit-group
// SubmitGroup sends one mean-centered training group and returns the
// training step metrics.
func (c *Client) SubmitGroup(ctx context.Context, group dataset.ScoredGroup) (StepMetrics, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := groupToStruct(group)
	if err != nil {
		return StepMetrics{}, err
	}

	reply := &structpb.Struct{}
	if err := c.inv.Invoke(ctx, methodSubmitGroup, req, reply); err != nil {
		return StepMetrics{}, fmt.Errorf("submit group rpc: %w", err)
	}
	return metricsFromStruct(reply), nil
}

// SubmitBatch sends every group for every purpose, returning metrics
// in submission order. Submission stops at the first transport error.
func (c *Client) SubmitBatch(ctx context.Context, groups map[trajectory.Purpose][]dataset.ScoredGroup) ([]StepMetrics, error) {
	var all []StepMetrics
	for _, p := range trajectory.Purposes {
		for _, g := range groups[p] {
			m, err := c.SubmitGroup(ctx, g)
			if err != nil {
				return all, fmt.Errorf("submit %s group: %w", p, err)
			}
			all = append(all, m)
		}
	}
	return all, nil
}

// #endregion submit-group

// #region encoding

// groupToStruct encodes a group as a protobuf Struct. Token and mask
// arrays are included only when tokenization happened client-side.
func groupToStruct(group dataset.ScoredGroup) (*structpb.Struct, error) {
	scores := make([]any, len(group.Scores))
	for i, s := range group.Scores {
		scores[i] = s
	}

	messages := make([]any, len(group.Messages))
	for i, transcript := range group.Messages {
		msgs := make([]any, len(transcript))
		for j, m := range transcript {
			msgs[j] = map[string]any{"role": m.Role, "content": m.Content}
		}
		messages[i] = msgs
	}

	payload := map[string]any{
		"purpose":  string(group.Purpose),
		"scores":   scores,
		"messages": messages,
		"rawMean":  group.RawMean,
	}
	if len(group.Tokens) > 0 {
		payload["tokens"] = intMatrix(group.Tokens)
		payload["masks"] = intMatrix(group.Masks)
	}

	st, err := structpb.NewStruct(payload)
	if err != nil {
		return nil, fmt.Errorf("encode group: %w", err)
	}
	return st, nil
}

func intMatrix(rows [][]int) []any {
	out := make([]any, len(rows))
	for i, row := range rows {
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = v
		}
		out[i] = vals
	}
	return out
}

// metricsFromStruct decodes the training service's reply. Missing
// fields default to zero values; unknown fields are ignored.
func metricsFromStruct(st *structpb.Struct) StepMetrics {
	var m StepMetrics
	if st == nil {
		return m
	}
	fields := st.GetFields()
	if v, ok := fields["step"]; ok {
		m.Step = int64(v.GetNumberValue())
	}
	if v, ok := fields["loss"]; ok {
		m.Loss = v.GetNumberValue()
	}
	if v, ok := fields["kl"]; ok {
		m.KL = v.GetNumberValue()
	}
	if v, ok := fields["gradNorm"]; ok {
		m.GradNorm = v.GetNumberValue()
	}
	if v, ok := fields["accepted"]; ok {
		m.Accepted = v.GetBoolValue()
	}
	if v, ok := fields["note"]; ok {
		m.ServerNote = v.GetStringValue()
	}
	return m
}

// #endregion encoding
